// Package tarbuild implements the tarchive builder composite service:
// pack a set of named files into a stdlib archive/tar byte stream, tag
// it with the trailer index archivemodel.BuildFromTar expects to find,
// self-encrypt and upload the whole blob as one object, and return its
// address - the single address every entry in the resulting tarchive
// shares, located within it by offset and size.
//
// Grounded on internal/archivemodel.BuildFromTar, the reader this
// writer must stay byte-compatible with, and on
// internal/service/archiveupload's split-then-upload pattern for the
// self-encryption side.
package tarbuild

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/traktion/anttp/internal/addr"
	"github.com/traktion/anttp/internal/apperr"
	"github.com/traktion/anttp/internal/archivemodel"
	"github.com/traktion/anttp/internal/codec"
	"github.com/traktion/anttp/internal/netface"
)

// File is one named input to a tarchive build.
type File struct {
	Path    string
	Content []byte
}

// trailerSentinel and trailerBlockSize mirror the constants
// archivemodel.BuildFromTar scans for: a leading NUL, the literal
// "archive.tar.idx", a trailing NUL, padded out to a 513-byte pseudo
// header so the index body begins exactly trailerBlockSize bytes past
// the sentinel's first byte.
const (
	trailerSentinel  = "\x00archive.tar.idx\x00"
	trailerBlockSize = 513
)

// Builder packs files into a tarchive blob and publishes it.
type Builder struct {
	net netface.Client
	enc codec.SelfEncryption
}

func NewBuilder(net netface.Client, enc codec.SelfEncryption) *Builder {
	return &Builder{net: net, enc: enc}
}

// Build writes files into a tar stream in order, appends the
// archive.tar.idx trailer recording each entry's content offset and
// size within that stream, then splits, uploads and publishes the
// whole blob as one self-encrypted object.
func (b *Builder) Build(ctx context.Context, files []File) (addr.Address, error) {
	blob, err := packTar(files)
	if err != nil {
		return addr.Address{}, err
	}
	return b.publish(ctx, blob)
}

type tarEntry struct {
	path   string
	offset int64
	size   int64
}

// packTar writes files as a standard tar stream, then appends the
// archive.tar.idx trailer byte-for-byte in the layout BuildFromTar's
// fixed-window scan expects: the sentinel is raw bytes, not run
// through archive/tar's own header encoding, so the result stays
// parseable independent of real tar block-padding internals.
func packTar(files []File) ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	entries := make([]tarEntry, 0, len(files))
	for _, f := range files {
		hdr := &tar.Header{
			Name:     f.Path,
			Mode:     0644,
			Size:     int64(len(f.Content)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, apperr.New(apperr.PhaseCreate, apperr.ReasonInvalidInput, "tarbuild.header", err)
		}

		offset := int64(buf.Len())
		if _, err := tw.Write(f.Content); err != nil {
			return nil, apperr.New(apperr.PhaseCreate, apperr.ReasonInvalidInput, "tarbuild.write", err)
		}
		entries = append(entries, tarEntry{path: f.Path, offset: offset, size: int64(len(f.Content))})
	}

	if err := tw.Close(); err != nil {
		return nil, apperr.New(apperr.PhaseCreate, apperr.ReasonInvalidInput, "tarbuild.close", err)
	}

	var idxBody bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&idxBody, "%s %d %d\n", e.path, e.offset, e.size)
	}

	trailerHeader := make([]byte, trailerBlockSize)
	copy(trailerHeader, trailerSentinel)

	buf.Write(trailerHeader)
	buf.Write(idxBody.Bytes())

	return buf.Bytes(), nil
}

// publish splits blob into self-encrypted chunks, uploads each, then
// publishes the resulting data map as a tar-archive kind object.
func (b *Builder) publish(ctx context.Context, blob []byte) (addr.Address, error) {
	dm, chunks, err := b.enc.Split(blob)
	if err != nil {
		return addr.Address{}, apperr.New(apperr.PhaseCreate, apperr.ReasonInvalidInput, "tarbuild.split", err)
	}

	dm.ChunkAddresses = make([]addr.Address, len(chunks))
	for i, raw := range chunks {
		a, err := b.net.PutImmutable(ctx, addr.KindChunk, raw)
		if err != nil {
			return addr.Address{}, apperr.New(apperr.PhaseCreate, apperr.ReasonUpstreamUnavailable, "tarbuild.putchunk", err)
		}
		dm.ChunkAddresses[i] = a
	}
	if dm.TotalSize == 0 {
		dm.TotalSize = int64(len(blob))
	}

	encoded, err := cbor.Marshal(dm)
	if err != nil {
		return addr.Address{}, apperr.New(apperr.PhaseCreate, apperr.ReasonCorrupt, "tarbuild.datamap", err)
	}

	root, err := b.net.PutImmutable(ctx, addr.KindTarArchive, archivemodel.WrapEnvelope(archivemodel.EnvelopeTar, encoded))
	if err != nil {
		return addr.Address{}, apperr.New(apperr.PhaseCreate, apperr.ReasonUpstreamUnavailable, "tarbuild.puttar", err)
	}

	return root, nil
}
