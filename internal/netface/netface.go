// Package netface defines the boundary between the gateway and the
// decentralized storage network it fronts. Nothing in this module
// talks to the network directly - every fetch, put and check goes
// through a Client, so the cache, command executor and stream pipeline
// can all be exercised against a fake in tests without a live network.
package netface

import (
	"context"

	"github.com/traktion/anttp/internal/addr"
)

// Client is the minimal operation set the gateway needs from the
// storage network, independent of any particular record kind: raw
// byte fetch/put keyed by address, and an existence check that does
// not fetch the payload.
type Client interface {
	// FetchChunk retrieves the raw (still encrypted/self-encrypted)
	// bytes of a single chunk.
	FetchChunk(ctx context.Context, a addr.Address) ([]byte, error)

	// FetchMutable retrieves the current target bytes of a mutable
	// record (pointer, register, scratchpad), along with its current
	// version counter used for optimistic-update conflict checks.
	FetchMutable(ctx context.Context, a addr.Address) (data []byte, version uint64, err error)

	// FetchGraphEntry retrieves a single graph entry's raw CBOR/DAG
	// payload together with the addresses of its direct descendants.
	FetchGraphEntry(ctx context.Context, a addr.Address) (data []byte, descendants []addr.Address, err error)

	// PutImmutable uploads an immutable record and returns the
	// address it was stored at.
	PutImmutable(ctx context.Context, kind addr.Kind, data []byte) (addr.Address, error)

	// PutMutable creates or updates a mutable record at a, failing
	// with a conflict if expectVersion does not match the network's
	// current version counter.
	PutMutable(ctx context.Context, a addr.Address, data []byte, expectVersion uint64) (newVersion uint64, err error)

	// Exists checks presence without fetching the full payload.
	Exists(ctx context.Context, kind addr.Kind, a addr.Address) (bool, error)
}
