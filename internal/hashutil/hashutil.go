// Package hashutil computes the action hash used to deduplicate
// in-flight and recently-completed commands.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// ActionHash hashes the structural identifiers of a command (its kind
// plus its ordered argument strings) into a stable hex digest. Two
// commands that would perform the same network action produce the
// same action hash regardless of submission order of unrelated fields.
func ActionHash(kind string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(kind))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}

	return hex.EncodeToString(h.Sum(nil))
}
