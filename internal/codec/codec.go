// Package codec defines the self-encryption boundary: the gateway
// never implements the erasure/encryption scheme itself, it depends on
// a SelfEncryption implementation the same way internal/netface
// depends on a network Client, keeping the cryptographic scheme a
// pluggable external collaborator rather than code this module owns.
package codec

import "github.com/traktion/anttp/internal/addr"

// DataMap describes how a public-data or public-archive payload was
// split into self-encrypted chunks: the ordered chunk addresses plus
// per-chunk decryption keys needed to reassemble and decrypt the
// original bytes.
type DataMap struct {
	ChunkAddresses []addr.Address
	ChunkKeys      [][]byte
	TotalSize      int64
}

// SelfEncryption is the pluggable encryption/erasure-coding scheme
// used to turn a data map plus raw chunk bytes back into the original
// content, and to split outbound content into chunks for upload.
type SelfEncryption interface {
	// DecryptChunk decrypts a single fetched chunk using the key at
	// the given index of a DataMap.
	DecryptChunk(dm DataMap, index int, raw []byte) ([]byte, error)

	// Split breaks content into self-encrypted chunks ready for
	// PutImmutable, returning the DataMap describing them.
	Split(content []byte) (DataMap, [][]byte, error)
}
