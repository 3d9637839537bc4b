// Package addr defines the content-addressing primitives shared across
// every record kind the gateway understands: chunks, public data,
// archives, pointers, registers, scratchpads and graph entries.
//
// An Address is always a 32-byte value, hex-rendered for the HTTP
// surface and for cache/command keys.
package addr

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const Size = 32

// Address is a raw 32-byte content or network address.
type Address [Size]byte

// Kind distinguishes the record type an Address resolves to. Two
// addresses with identical bytes but different Kinds are different
// network objects.
type Kind uint8

const (
	KindChunk Kind = iota
	KindPublicData
	KindPublicArchive
	KindTarArchive
	KindPointer
	KindRegister
	KindScratchpad
	KindGraphEntry
)

func (k Kind) String() string {
	switch k {
	case KindChunk:
		return "chunk"
	case KindPublicData:
		return "public-data"
	case KindPublicArchive:
		return "public-archive"
	case KindTarArchive:
		return "tar-archive"
	case KindPointer:
		return "pointer"
	case KindRegister:
		return "register"
	case KindScratchpad:
		return "scratchpad"
	case KindGraphEntry:
		return "graph-entry"
	default:
		return "unknown"
	}
}

// Parse decodes a hex string into an Address. It accepts both the
// lower-case and upper-case hex alphabets and rejects anything that
// does not decode to exactly Size bytes.
func Parse(s string) (Address, error) {
	var a Address

	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("addr: invalid hex: %w", err)
	}
	if len(b) != Size {
		return a, fmt.Errorf("addr: expected %d bytes, got %d", Size, len(b))
	}

	copy(a[:], b)
	return a, nil
}

// String renders the address as lower-case hex.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

func (a Address) IsZero() bool {
	return a == Address{}
}

// Key returns the composite cache/command key for an address under a
// given Kind, so that a pointer and a chunk sharing the same 32 bytes
// never collide in a shared keyspace.
func Key(k Kind, a Address) string {
	return k.String() + ":" + a.String()
}

// FromContent derives the content address of an immutable record's raw
// bytes. Self-addressing is done client-side rather than waiting on a
// network round trip, so a memory- or disk-tier write can hand back its
// final address before - or entirely without - reaching the network.
func FromContent(data []byte) Address {
	sum := sha256.Sum256(data)

	var a Address
	copy(a[:], sum[:])
	return a
}
