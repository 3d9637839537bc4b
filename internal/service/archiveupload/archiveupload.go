// Package archiveupload implements the public archive upload
// composite service: given a set of named files, split and upload
// each one's content as self-encrypted public data, then publish the
// resulting path -> (child data address, size) manifest as a single
// public archive record.
//
// Grounded on internal/client.PublicDataClient's chunk-reassembly
// pattern (here run in reverse - split and upload instead of fetch and
// decrypt) and on internal/codec.SelfEncryption as the pluggable
// splitting/encryption boundary every other codec-touching path in
// this module goes through.
package archiveupload

import (
	"context"

	"github.com/fxamacker/cbor/v2"

	"github.com/traktion/anttp/internal/addr"
	"github.com/traktion/anttp/internal/apperr"
	"github.com/traktion/anttp/internal/archivemodel"
	"github.com/traktion/anttp/internal/codec"
	"github.com/traktion/anttp/internal/netface"
)

// File is one named input to an archive upload.
type File struct {
	Path    string
	Content []byte
}

// ManifestEntry is an alias of the data model's own manifest row type,
// kept under this package's name since it's the shape Upload's callers
// build and read back.
type ManifestEntry = archivemodel.ManifestEntry

// Uploader splits and uploads file content through a SelfEncryption
// codec and a netface.Client, then assembles and publishes the
// resulting archive manifest.
type Uploader struct {
	net netface.Client
	enc codec.SelfEncryption
}

func NewUploader(net netface.Client, enc codec.SelfEncryption) *Uploader {
	return &Uploader{net: net, enc: enc}
}

// Upload splits and uploads every file's content as public data, then
// publishes the archive manifest and returns its address.
func (u *Uploader) Upload(ctx context.Context, files []File) (addr.Address, error) {
	entries := make([]ManifestEntry, 0, len(files))

	for _, f := range files {
		childAddr, size, err := u.uploadFile(ctx, f.Content)
		if err != nil {
			return addr.Address{}, err
		}
		entries = append(entries, ManifestEntry{Path: f.Path, Address: childAddr, Size: size})
	}

	manifest, err := cbor.Marshal(entries)
	if err != nil {
		return addr.Address{}, apperr.New(apperr.PhaseCreate, apperr.ReasonCorrupt, "archiveupload.manifest", err)
	}

	root, err := u.net.PutImmutable(ctx, addr.KindPublicArchive, archivemodel.WrapEnvelope(archivemodel.EnvelopeNative, manifest))
	if err != nil {
		return addr.Address{}, apperr.New(apperr.PhaseCreate, apperr.ReasonUpstreamUnavailable, "archiveupload.putarchive", err)
	}

	return root, nil
}

// uploadFile splits content into self-encrypted chunks, uploads each
// one, then publishes the resulting data map as the file's own public
// data object, returning its address and the content's original size.
func (u *Uploader) uploadFile(ctx context.Context, content []byte) (addr.Address, int64, error) {
	dm, chunks, err := u.enc.Split(content)
	if err != nil {
		return addr.Address{}, 0, apperr.New(apperr.PhaseCreate, apperr.ReasonInvalidInput, "archiveupload.split", err)
	}

	dm.ChunkAddresses = make([]addr.Address, len(chunks))
	for i, raw := range chunks {
		a, err := u.net.PutImmutable(ctx, addr.KindChunk, raw)
		if err != nil {
			return addr.Address{}, 0, apperr.New(apperr.PhaseCreate, apperr.ReasonUpstreamUnavailable, "archiveupload.putchunk", err)
		}
		dm.ChunkAddresses[i] = a
	}
	if dm.TotalSize == 0 {
		dm.TotalSize = int64(len(content))
	}

	encoded, err := cbor.Marshal(dm)
	if err != nil {
		return addr.Address{}, 0, apperr.New(apperr.PhaseCreate, apperr.ReasonCorrupt, "archiveupload.datamap", err)
	}

	root, err := u.net.PutImmutable(ctx, addr.KindPublicData, encoded)
	if err != nil {
		return addr.Address{}, 0, apperr.New(apperr.PhaseCreate, apperr.ReasonUpstreamUnavailable, "archiveupload.putdata", err)
	}

	return root, dm.TotalSize, nil
}
