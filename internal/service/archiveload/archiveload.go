// Package archiveload implements resolver.ArchiveLoader: given a root
// address, fetch its envelope-tagged payload and decode it as either a
// native public archive manifest or a tarchive's data map, handing
// back a unified internal/archivemodel.Archive either way.
//
// Grounded on internal/client.PublicDataClient's chunk-reassembly loop
// (repeated here for the tarchive case, where the whole blob
// must be reassembled before archivemodel.BuildFromTar can scan its
// trailer) and on the envelope tag internal/service/archiveupload and
// internal/service/tarbuild both write ahead of their payload.
package archiveload

import (
	"context"

	"github.com/fxamacker/cbor/v2"

	"github.com/traktion/anttp/internal/addr"
	"github.com/traktion/anttp/internal/apperr"
	"github.com/traktion/anttp/internal/archivemodel"
	"github.com/traktion/anttp/internal/codec"
	"github.com/traktion/anttp/internal/netface"
)

// Loader implements resolver.ArchiveLoader over a netface.Client and a
// SelfEncryption codec, with no cache of its own - archive metadata
// lookups are expected to be infrequent relative to file-range reads,
// which go through internal/stream instead.
type Loader struct {
	net netface.Client
	enc codec.SelfEncryption
}

func NewLoader(net netface.Client, enc codec.SelfEncryption) *Loader {
	return &Loader{net: net, enc: enc}
}

// LoadArchive fetches root's envelope-tagged payload and decodes it
// according to its tag. An unrecognised or malformed envelope is
// reported as an error, which resolver.Resolver treats as "not an
// archive" and falls back to raw chunk address mode.
func (l *Loader) LoadArchive(ctx context.Context, root addr.Address) (*archivemodel.Archive, error) {
	raw, err := l.net.FetchChunk(ctx, root)
	if err != nil {
		return nil, apperr.New(apperr.PhaseGet, apperr.ReasonUpstreamUnavailable, "archiveload.fetch", err)
	}

	kind, payload, ok := archivemodel.UnwrapEnvelope(raw)
	if !ok {
		return nil, apperr.New(apperr.PhaseGet, apperr.ReasonCorrupt, "archiveload.envelope", nil)
	}

	switch kind {
	case archivemodel.EnvelopeNative:
		return l.loadNative(root, payload)
	case archivemodel.EnvelopeTar:
		return l.loadTar(ctx, root, payload)
	default:
		return nil, apperr.New(apperr.PhaseGet, apperr.ReasonCorrupt, "archiveload.envelope", nil)
	}
}

func (l *Loader) loadNative(root addr.Address, payload []byte) (*archivemodel.Archive, error) {
	var entries []archivemodel.ManifestEntry
	if err := cbor.Unmarshal(payload, &entries); err != nil {
		return nil, apperr.New(apperr.PhaseGet, apperr.ReasonCorrupt, "archiveload.manifest", err)
	}
	return archivemodel.NewFromManifest(root, entries), nil
}

func (l *Loader) loadTar(ctx context.Context, root addr.Address, payload []byte) (*archivemodel.Archive, error) {
	var dm codec.DataMap
	if err := cbor.Unmarshal(payload, &dm); err != nil {
		return nil, apperr.New(apperr.PhaseGet, apperr.ReasonCorrupt, "archiveload.datamap", err)
	}

	blob := make([]byte, 0, dm.TotalSize)
	for i, a := range dm.ChunkAddresses {
		raw, err := l.net.FetchChunk(ctx, a)
		if err != nil {
			return nil, apperr.New(apperr.PhaseGet, apperr.ReasonUpstreamUnavailable, "archiveload.fetchchunk", err)
		}
		plain, err := l.enc.DecryptChunk(dm, i, raw)
		if err != nil {
			return nil, apperr.New(apperr.PhaseGet, apperr.ReasonCorrupt, "archiveload.decrypt", err)
		}
		blob = append(blob, plain...)
	}

	return archivemodel.BuildFromTar(root, blob)
}
