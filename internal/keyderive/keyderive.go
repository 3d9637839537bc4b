// Package keyderive defines the pluggable boundary between the
// gateway and the public-key address scheme mutable records (pointer,
// register, scratchpad) authenticate writes against: given the bytes
// a client wants to publish at some address, a Deriver computes the
// address that body is actually entitled to be written at. A PUT
// whose derived address disagrees with the URL address is rejected
// with apperr.ReasonNotDerivedAddress before ever reaching the
// network.
//
// Grounded on internal/codec.SelfEncryption as the same kind of
// external-collaborator boundary: the gateway depends on the
// interface, never the cryptographic scheme itself.
package keyderive

import "github.com/traktion/anttp/internal/addr"

// Deriver derives the address a mutable-record body is entitled to be
// published at.
type Deriver interface {
	DeriveAddress(body []byte) (addr.Address, error)
}

// ContentAddressDeriver is a placeholder Deriver standing in for a
// real public-key derivation scheme: it treats a body's entitled
// address as its own content address (internal/addr.FromContent), the
// same content-addressing every immutable record already uses. A real
// deployment replaces this with genuine public-key derivation; every
// caller depends only on the Deriver interface, so that swap touches
// nothing else.
type ContentAddressDeriver struct{}

func (ContentAddressDeriver) DeriveAddress(body []byte) (addr.Address, error) {
	return addr.FromContent(body), nil
}

var _ Deriver = ContentAddressDeriver{}
