package archivemodel

import (
	"time"

	"github.com/traktion/anttp/internal/addr"
)

// Envelope tags are a one-byte prefix written ahead of a published
// archive root's CBOR payload, letting a loader tell a native public
// archive's manifest apart from a tarchive's data map without trying
// to decode the bytes as both and hoping only one succeeds.
const (
	EnvelopeNative byte = 0
	EnvelopeTar    byte = 1
)

// WrapEnvelope prepends an envelope tag to an already-encoded payload.
func WrapEnvelope(kind byte, payload []byte) []byte {
	out := make([]byte, 0, len(payload)+1)
	out = append(out, kind)
	return append(out, payload...)
}

// UnwrapEnvelope splits a tagged payload back into its kind byte and
// the CBOR body, failing on empty input.
func UnwrapEnvelope(raw []byte) (kind byte, payload []byte, ok bool) {
	if len(raw) == 0 {
		return 0, nil, false
	}
	return raw[0], raw[1:], true
}

// ManifestEntry is one row of a published native public archive's
// manifest: the address of the file's own data map plus its original
// size, mirroring the data model's "mapping from a relative path to
// (child data address, metadata{..., size, ...})".
type ManifestEntry struct {
	Path    string
	Address addr.Address
	Size    int64
}

// NewFromManifest builds an Archive from a native public archive's own
// published manifest: every entry has its own child data address and
// an offset of 0, per the data model's native-archive convention.
func NewFromManifest(root addr.Address, entries []ManifestEntry) *Archive {
	a := newArchive(root)
	now := time.Now().Unix()
	for _, e := range entries {
		a.Put(e.Path, Entry{ChildAddress: e.Address, Offset: 0, Size: e.Size, Modified: now})
	}
	return a
}
