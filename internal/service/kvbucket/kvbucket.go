// Package kvbucket implements the key/value bucket composite service:
// a named collection of string keys, each mapped to the address of an
// immutable value, whose index is itself held in a single mutable
// register record and mutated through the command queue like any
// other write.
//
// The in-memory working index is exposed through the teacher's
// generic KV abstraction (database/kvdriver, database/kvtable),
// adapted here from its original disk-table role to back a
// change-tracked view of one register's decoded contents - the same
// Get/List/Walk facade kept, a different backing store underneath.
package kvbucket

import (
	"context"
	"strings"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/traktion/anttp/database/kvdriver"
	"github.com/traktion/anttp/database/kvtable"
	"github.com/traktion/anttp/database/kvtypes"
	"github.com/traktion/anttp/internal/addr"
	"github.com/traktion/anttp/internal/apperr"
	"github.com/traktion/anttp/internal/client"
	"github.com/traktion/anttp/internal/command"
)

// Entry is one key/value bucket row: the address a key currently
// points to.
type Entry struct {
	Value addr.Address
}

// Bucket is one key/value bucket, rooted at a register address whose
// decoded payload is a key -> Entry index.
type Bucket struct {
	root      addr.Address
	registers *client.MutableClient
	exec      *command.Executor

	mu      sync.RWMutex
	idx     map[string]Entry
	version uint64
	table   kvtable.KVTable[string, Entry]
}

// Open loads a bucket's current index from its root register - an
// empty, not-yet-published bucket is not an error, it just starts with
// an empty index at version 0.
func Open(ctx context.Context, root addr.Address, registers *client.MutableClient, exec *command.Executor) (*Bucket, error) {
	b := &Bucket{root: root, registers: registers, exec: exec, idx: make(map[string]Entry)}
	b.table = kvtable.New[string, Entry](b.driver())

	m, found, err := registers.Get(ctx, root)
	if err != nil {
		return nil, apperr.New(apperr.PhaseGet, apperr.ReasonUpstreamUnavailable, "kvbucket.open", err)
	}
	if found {
		if err := cbor.Unmarshal(m.Data, &b.idx); err != nil {
			return nil, apperr.New(apperr.PhaseGet, apperr.ReasonCorrupt, "kvbucket.open", err)
		}
		b.version = m.Version
	}

	return b, nil
}

// driver adapts Bucket's in-memory index to kvtypes.KVDriver via the
// teacher's closure-based kvdriver.Driver, so Bucket's read paths can
// be expressed as kvtable.KVTable.Get/List/Walk instead of hand-rolled
// map access.
func (b *Bucket) driver() kvtypes.KVDriver[string, Entry] {
	cmp := kvtypes.NewCompare[string](
		func(ref, part string) bool { return ref == part },
		func(ref, part string) bool { return strings.Contains(ref, part) },
		func(part string) bool { return part == "" },
	)

	return kvdriver.New[string, Entry](
		cmp,
		func() kvtypes.KVDriver[string, Entry] { return b.driver() },
		b.getLocked,
		b.setLocked,
		b.delLocked,
		b.listLocked,
		b.searchLocked,
		nil,
	)
}

func (b *Bucket) getLocked(key string) (Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	// A missing key yields the zero Entry, not an error; Get below
	// treats a zero Entry.Value as absent.
	return b.idx[key], nil
}

func (b *Bucket) setLocked(key string, e Entry) error {
	b.mu.Lock()
	b.idx[key] = e
	b.mu.Unlock()
	return nil
}

func (b *Bucket) delLocked(key string) error {
	b.mu.Lock()
	delete(b.idx, key)
	b.mu.Unlock()
	return nil
}

func (b *Bucket) listLocked() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.idx))
	for k := range b.idx {
		out = append(out, k)
	}
	return out, nil
}

func (b *Bucket) searchLocked(pattern string) ([]string, error) {
	all, _ := b.listLocked()
	var out []string
	for _, k := range all {
		if strings.Contains(k, pattern) {
			out = append(out, k)
		}
	}
	return out, nil
}

// Get returns the entry for key and whether it was present. A zero
// Entry.Value (never a real chunk address, which is a content hash) is
// treated as absent.
func (b *Bucket) Get(key string) (Entry, bool, error) {
	item, err := b.table.Get(key)
	if err != nil {
		return Entry{}, false, err
	}
	e := item.Get()
	return e, !e.Value.IsZero(), nil
}

// List returns every key currently in the bucket's working index.
func (b *Bucket) List() ([]string, error) {
	items, err := b.table.List()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(items))
	for _, it := range items {
		keys = append(keys, it.Key())
	}
	return keys, nil
}

// Put sets key to value and queues the bucket's updated index for
// publication through the command queue, returning the command ID.
func (b *Bucket) Put(key string, value addr.Address) (string, error) {
	if key == "" {
		return "", apperr.New(apperr.PhaseCreate, apperr.ReasonInvalidInput, "kvbucket.put", nil)
	}
	b.mu.Lock()
	b.idx[key] = Entry{Value: value}
	b.mu.Unlock()
	return b.publish()
}

// Delete removes key from the bucket and queues the updated index.
func (b *Bucket) Delete(key string) (string, error) {
	b.mu.Lock()
	delete(b.idx, key)
	b.mu.Unlock()
	return b.publish()
}

func (b *Bucket) publish() (string, error) {
	b.mu.RLock()
	snapshot := make(map[string]Entry, len(b.idx))
	for k, v := range b.idx {
		snapshot[k] = v
	}
	expect := b.version
	b.mu.RUnlock()

	data, err := cbor.Marshal(snapshot)
	if err != nil {
		return "", apperr.New(apperr.PhaseUpdate, apperr.ReasonCorrupt, "kvbucket.publish", err)
	}

	id, _ := b.exec.Submit(&publishCommand{bucket: b, data: data, expectVersion: expect})
	return id, nil
}

// publishCommand is the queued write behind Put/Delete: publishing the
// whole index snapshot to the bucket's root register.
type publishCommand struct {
	bucket        *Bucket
	data          []byte
	expectVersion uint64
}

func (c *publishCommand) Kind() string    { return "kvbucket.publish" }
func (c *publishCommand) Parts() []string { return []string{c.bucket.root.String()} }

func (c *publishCommand) Run(ctx context.Context) error {
	newVersion, err := c.bucket.registers.Update(ctx, c.bucket.root, c.data, c.expectVersion)
	if err != nil {
		return err
	}
	c.bucket.mu.Lock()
	c.bucket.version = newVersion
	c.bucket.mu.Unlock()
	return nil
}
