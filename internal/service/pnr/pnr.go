// Package pnr implements the PNR (pointer name record) composite
// service described by the glossary: "a tree of mutable pointers that
// resolve a human-readable name to a target address, with a per-record
// TTL." A dotted name's labels are folded into a single deterministic
// pointer address within the zone's namespace; only that leaf address
// is ever actually read or published, so walking the tree costs no
// extra network round trips over a flat pointer lookup.
//
// Grounded on internal/client's MutableClient (the pointer-kind
// caching client) for reads and internal/command.Executor for writes,
// the same read-through-cache/write-through-queue split every other
// record kind uses. Zone satisfies internal/resolver.PNRResolver so
// the resolver can chain PNR lookups without importing this package.
package pnr

import (
	"context"
	"crypto/sha256"
	"strings"
	"time"

	"github.com/traktion/anttp/internal/addr"
	"github.com/traktion/anttp/internal/apperr"
	"github.com/traktion/anttp/internal/client"
	"github.com/traktion/anttp/internal/command"
)

// Zone is a PNR name zone rooted at a single pointer address.
type Zone struct {
	root     addr.Address
	pointers *client.MutableClient
	exec     *command.Executor
	ttl      time.Duration
}

// NewZone builds a PNR zone rooted at root, resolving and publishing
// names through pointers and queuing writes through exec. ttl is the
// duration ResolvePNR reports to callers chaining this zone into a
// longer resolution (internal/resolver.PNRResolver's contract).
func NewZone(root addr.Address, pointers *client.MutableClient, exec *command.Executor, ttl time.Duration) *Zone {
	return &Zone{root: root, pointers: pointers, exec: exec, ttl: ttl}
}

// DeriveChild computes the deterministic pointer address for a label
// beneath parent: sha256(parent || 0x00 || label). A SHA-256 digest is
// already exactly addr.Size bytes, so the hash is the address.
func DeriveChild(parent addr.Address, label string) addr.Address {
	h := sha256.New()
	h.Write(parent[:])
	h.Write([]byte{0})
	h.Write([]byte(label))
	sum := h.Sum(nil)

	var a addr.Address
	copy(a[:], sum)
	return a
}

// leafAddress folds every label of a dotted name into the zone's
// namespace, walking the derivation chain without touching the
// network - only the final address is ever read or written.
func (z *Zone) leafAddress(name string) addr.Address {
	cur := z.root
	for _, label := range strings.Split(name, ".") {
		cur = DeriveChild(cur, label)
	}
	return cur
}

// ResolvePNR resolves a dotted name to its target address string,
// satisfying internal/resolver.PNRResolver.
func (z *Zone) ResolvePNR(ctx context.Context, name string) (target string, ttl time.Duration, found bool) {
	if name == "" {
		return "", 0, false
	}

	m, ok, err := z.pointers.Get(ctx, z.leafAddress(name))
	if err != nil || !ok {
		return "", 0, false
	}

	a, ok := addrFromBytes(m.Data)
	if !ok {
		return "", 0, false
	}

	return a.String(), z.ttl, true
}

func addrFromBytes(b []byte) (addr.Address, bool) {
	if len(b) != addr.Size {
		return addr.Address{}, false
	}
	var a addr.Address
	copy(a[:], b)
	return a, true
}

// publishCommand is the queued write behind Put: publishing the
// resolved target bytes at a name's leaf pointer address.
type publishCommand struct {
	zone   *Zone
	leaf   addr.Address
	target addr.Address
}

func (c *publishCommand) Kind() string     { return "pnr.publish" }
func (c *publishCommand) Parts() []string  { return []string{c.leaf.String()} }
func (c *publishCommand) Run(ctx context.Context) error {
	// Always publish unconditionally (expectVersion 0): a name's
	// owner is expected to be the only writer of its own leaf, so PNR
	// trades pointer/register's normal optimistic-conflict check for
	// simple last-write-wins here.
	_, err := c.zone.pointers.Update(ctx, c.leaf, c.target[:], 0)
	return err
}

// Put queues name to resolve to target, returning the command ID a
// caller can poll on internal/command.Executor.
func (z *Zone) Put(name string, target addr.Address) (string, error) {
	if name == "" {
		return "", apperr.New(apperr.PhaseCreate, apperr.ReasonInvalidInput, "pnr.put", nil)
	}

	id, _ := z.exec.Submit(&publishCommand{zone: z, leaf: z.leafAddress(name), target: target})
	return id, nil
}
