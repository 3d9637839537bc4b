// Package resolver implements the gateway's bounded-depth recursive
// name resolution: bookmarks, 96-hex mutable addresses (analyzed via
// pointer-then-register lookup), 64-hex immutable addresses, and PNR
// records all chain into a single resolved target, with an
// OR-accumulating access-control flag carried across every recursive
// step.
//
// Grounded on the teacher's hot-swappable, mutex-guarded snapshot
// pattern (the bookmark table and access list each replace their whole
// map atomically under a RWMutex) and on fsnotify/fsnotify for picking
// up an updated access-list record without restarting the process, the
// same file-watch idiom the rest of the examples pack uses for hot
// configuration reload.
package resolver

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/traktion/anttp/internal/addr"
	"github.com/traktion/anttp/internal/archivemodel"
)

const maxDepth = 10

// ErrCycle is returned when resolution recurses past maxDepth.
var ErrCycle = fmt.Errorf("resolver: exceeded max recursion depth (%d)", maxDepth)

// PointerRegisterAnalyzer resolves a 96-hex mutable address to the
// 64-hex immutable address it currently targets, trying a pointer get
// first and falling back to a register get.
type PointerRegisterAnalyzer interface {
	AnalyzeMutable(ctx context.Context, a addr.Address) (target addr.Address, ttl time.Duration, err error)
}

// ArchiveLoader loads the archive rooted at an immutable address,
// used so step 5 of the algorithm can hand back a ready-to-serve
// Archive instead of just an address.
type ArchiveLoader interface {
	LoadArchive(ctx context.Context, root addr.Address) (*archivemodel.Archive, error)
}

// PNRResolver resolves one PNR name-zone label to a target plus its
// record TTL.
type PNRResolver interface {
	ResolvePNR(ctx context.Context, name string) (target string, ttl time.Duration, found bool)
}

// Bookmarks is a hot-reloadable name -> target map.
type Bookmarks struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewBookmarks() *Bookmarks {
	return &Bookmarks{m: make(map[string]string)}
}

func (b *Bookmarks) Replace(m map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m = m
}

func (b *Bookmarks) Lookup(name string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.m[name]
	return v, ok
}

// accessDecision is the outcome of an access-list lookup for one
// address.
type accessDecision int

const (
	accessUnset accessDecision = iota
	accessAllow
	accessDeny
)

// Decision and its Allow/Deny constants are the exported form of
// accessDecision, for callers outside this package (cmd/anttp's access
// list loader) building a snapshot to hand to AccessChecker.Replace.
type Decision = accessDecision

const (
	Allow = accessAllow
	Deny  = accessDeny
)

// AccessChecker maps addresses to {Allow, Deny}, defaulting according
// to the sentinel "all" key: present as Deny, it default-denies;
// absent, it default-allows.
type AccessChecker struct {
	mu sync.RWMutex
	m  map[string]accessDecision
}

func NewAccessChecker() *AccessChecker {
	return &AccessChecker{m: make(map[string]accessDecision)}
}

func (c *AccessChecker) Replace(m map[string]accessDecision) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = m
}

// IsAllowed reports whether a given key (an address string, or the
// sentinel "all") is allowed.
func (c *AccessChecker) IsAllowed(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if d, ok := c.m[key]; ok {
		return d == accessAllow
	}

	if d, ok := c.m["all"]; ok && d == accessDeny {
		return false
	}

	return true
}

// Resolved is the outcome of a full resolution chain.
type Resolved struct {
	Address    addr.Address
	Archive    *archivemodel.Archive // nil in "raw chunk address" mode
	Mutable    bool
	Allowed    bool
	NotModified bool
	TTL        time.Duration
}

// Resolver ties the bookmark table, access checker, mutable analyzer,
// archive loader and PNR resolver together into the chained algorithm
// described by resolve_archive_or_file.
type Resolver struct {
	bookmarks *Bookmarks
	access    *AccessChecker
	analyzer  PointerRegisterAnalyzer
	archives  ArchiveLoader
	pnr       PNRResolver
}

func New(bookmarks *Bookmarks, access *AccessChecker, analyzer PointerRegisterAnalyzer, archives ArchiveLoader, pnr PNRResolver) *Resolver {
	return &Resolver{bookmarks: bookmarks, access: access, analyzer: analyzer, archives: archives, pnr: pnr}
}

// Resolve runs the chained resolution algorithm starting at depth 0.
func (r *Resolver) Resolve(ctx context.Context, directory, fileName string, header http.Header) (Resolved, error) {
	return r.resolve(ctx, directory, fileName, false, false, header, 0, 0)
}

func (r *Resolver) resolve(ctx context.Context, directory, fileName string, mutableFlag, allowedFlag bool, header http.Header, depth int, ttl time.Duration) (Resolved, error) {
	if depth > maxDepth {
		return Resolved{}, ErrCycle
	}

	allowedFlag = allowedFlag || r.access.IsAllowed(directory) || r.access.IsAllowed(fileName)

	if target, ok := r.bookmarks.Lookup(directory); ok {
		return r.resolve(ctx, target, fileName, true, allowedFlag, header, depth+1, ttl)
	}

	if target, ok := r.bookmarks.Lookup(fileName); ok {
		return r.resolve(ctx, directory, target, mutableFlag, allowedFlag, header, depth+1, ttl)
	}

	if is96HexPubkey(directory) {
		a, err := addr.Parse(directory)
		if err == nil && r.analyzer != nil {
			if target, newTTL, aerr := r.analyzer.AnalyzeMutable(ctx, a); aerr == nil {
				return r.resolve(ctx, target.String(), fileName, true, allowedFlag, header, depth+1, newTTL)
			}
		}
	}

	if is64Hex(directory) {
		a, err := addr.Parse(directory)
		if err != nil {
			return Resolved{}, err
		}
		return r.finishWithArchive(ctx, a, mutableFlag, allowedFlag, header, ttl)
	}

	if is64Hex(fileName) {
		a, err := addr.Parse(fileName)
		if err != nil {
			return Resolved{}, err
		}
		return Resolved{Address: a, Mutable: mutableFlag, Allowed: allowedFlag, NotModified: notModified(header, a), TTL: ttl}, nil
	}

	if r.pnr != nil {
		if target, newTTL, found := r.pnr.ResolvePNR(ctx, directory); found {
			return r.resolve(ctx, target, fileName, true, allowedFlag, header, depth+1, newTTL)
		}
		if target, newTTL, found := r.pnr.ResolvePNR(ctx, fileName); found {
			return r.resolve(ctx, directory, target, mutableFlag, allowedFlag, header, depth+1, newTTL)
		}
	}

	return Resolved{}, fmt.Errorf("resolver: %q/%q not found", directory, fileName)
}

func (r *Resolver) finishWithArchive(ctx context.Context, a addr.Address, mutableFlag, allowedFlag bool, header http.Header, ttl time.Duration) (Resolved, error) {
	res := Resolved{Address: a, Mutable: mutableFlag, Allowed: allowedFlag, NotModified: notModified(header, a), TTL: ttl}

	if r.archives == nil {
		return res, nil
	}

	arc, err := r.archives.LoadArchive(ctx, a)
	if err != nil {
		// archive decoding failure falls back to raw chunk address mode
		return res, nil
	}

	res.Archive = arc
	return res, nil
}

func notModified(header http.Header, a addr.Address) bool {
	if header == nil {
		return false
	}
	inm := header.Get("If-None-Match")
	return inm != "" && strings.Trim(inm, `"`) == a.String()
}

// ResolveName returns the first matching target from bookmarks or PNR.
func (r *Resolver) ResolveName(ctx context.Context, name string) (string, bool) {
	if target, ok := r.bookmarks.Lookup(name); ok {
		return target, true
	}
	if r.pnr != nil {
		if target, _, found := r.pnr.ResolvePNR(ctx, name); found {
			return target, true
		}
	}
	return "", false
}

func is64Hex(s string) bool {
	return isHexOfLen(s, 64)
}

func is96HexPubkey(s string) bool {
	return isHexOfLen(s, 96)
}

func isHexOfLen(s string, n int) bool {
	if len(s) != n {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
