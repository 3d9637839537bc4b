// Package archivemodel unifies native public archives and tar-packed
// archives behind a single path -> Entry lookup and directory listing
// interface, so the HTTP surface does not need to know which kind of
// archive it is serving.
//
// Grounded on the teacher's archive/tar reader (deleted from the
// workspace as a literal copy because it depended on two other
// removed packages - see DESIGN.md - but its trailer-scanning idiom
// is rebuilt fresh here as a plain byte scan for the trailer sentinel,
// without stdlib archive/tar), and the sanitised path-map idiom of the
// teacher's in-memory KV driver (database/kvmap, since removed).
package archivemodel

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/traktion/anttp/internal/addr"
)

// Entry is one file within an archive: where its bytes live and how
// big it is, enough to serve it without touching the rest of the
// archive.
type Entry struct {
	Path string
	// ChildAddress is the public-data address holding this entry's
	// bytes. For a native public archive every entry has its own; a
	// tarchive entry leaves it zero, since offset/size locate it within
	// the tar object itself (Archive.Root, which readers fall back to).
	ChildAddress addr.Address
	Offset       int64
	Size         int64
	Modified     int64 // 1-based entry order for tar archives, Unix seconds for native ones
}

// Archive is a path -> Entry map plus the ordering needed to render a
// directory listing.
type Archive struct {
	Root addr.Address
	// entries is keyed by the sanitised path: if two distinct source
	// paths sanitise to the same key, the entry written last wins,
	// silently, because that is what the original gateway does and
	// SPEC_FULL commits to reproducing it rather than fixing it.
	entries map[string]Entry
	order   []string
}

func newArchive(root addr.Address) *Archive {
	return &Archive{Root: root, entries: make(map[string]Entry)}
}

// Put inserts or overwrites the entry at path, applying SanitisePath
// first. A second Put at a colliding sanitised path overwrites the
// first with no warning and no error - the documented lossy collision
// behaviour.
func (a *Archive) Put(path string, e Entry) {
	key := SanitisePath(path)
	if _, existed := a.entries[key]; !existed {
		a.order = append(a.order, key)
	}
	e.Path = key
	a.entries[key] = e
}

// Lookup returns the entry at path, after sanitisation.
func (a *Archive) Lookup(path string) (Entry, bool) {
	e, ok := a.entries[SanitisePath(path)]
	return e, ok
}

// List returns entries in insertion order (tar archives: archive
// order via the 1-based Modified counter; native archives: the order
// PublicArchive entries were written).
func (a *Archive) List() []Entry {
	out := make([]Entry, 0, len(a.order))
	for _, k := range a.order {
		out = append(out, a.entries[k])
	}
	return out
}

// ListDir returns the entries whose path is a direct child of dir
// (dir itself not included, using "/" as separator, "" meaning root).
func (a *Archive) ListDir(dir string) []Entry {
	dir = strings.Trim(dir, "/")
	var out []Entry
	seenDirs := make(map[string]bool)

	for _, e := range a.List() {
		rel := e.Path
		if dir != "" {
			if !strings.HasPrefix(rel, dir+"/") {
				continue
			}
			rel = rel[len(dir)+1:]
		}

		if idx := strings.IndexByte(rel, '/'); idx >= 0 {
			sub := rel[:idx]
			if !seenDirs[sub] {
				seenDirs[sub] = true
				out = append(out, Entry{Path: sub, Modified: e.Modified})
			}
			continue
		}

		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// SanitisePath normalises an archive-internal path: strips a leading
// "/", drops empty and "." segments, and resolves ".." by removing the
// segment before it (a ".." at the root is simply dropped) rather
// than erroring - matching the original gateway's
// lossy-but-permissive behaviour (two different unsafe inputs can
// collapse to the same sanitised path; see the Put doc comment).
func SanitisePath(p string) string {
	p = strings.TrimPrefix(p, "/")
	parts := strings.Split(p, "/")

	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(clean) > 0 {
				clean = clean[:len(clean)-1]
			}
		default:
			clean = append(clean, part)
		}
	}

	return strings.Join(clean, "/")
}

// NewNative builds an Archive from a PublicArchive's own path-entry
// table (no tar trailer involved): every record is present already,
// so Modified is simply the wall-clock time the archive was read.
//
// The anonymous record struct's ChildAddress field is optional - a
// caller that doesn't care about per-entry addressing (e.g. tests that
// only exercise directory listing) can omit it and get the zero
// address, same as before this field existed.
func NewNative(root addr.Address, records map[string]struct {
	Offset       int64
	Size         int64
	ChildAddress addr.Address
}) *Archive {
	a := newArchive(root)
	now := time.Now().Unix()
	for path, r := range records {
		a.Put(path, Entry{ChildAddress: r.ChildAddress, Offset: r.Offset, Size: r.Size, Modified: now})
	}
	return a
}

const (
	tarTrailerWindow = 20480
	tarSentinel      = "\x00archive.tar.idx\x00"
	tarSentinelSkip  = 513
)

// BuildFromTar locates and parses a tarchive's archive.tar.idx
// trailer from the final bytes of the object (tail must be at least
// the last tarTrailerWindow bytes of the object, or the whole object
// if it is smaller). Reproduces the fixed-window scan as-is: an index
// whose sentinel falls outside the scanned window is not found, by
// design inherited from the original implementation.
func BuildFromTar(root addr.Address, tail []byte) (*Archive, error) {
	if len(tail) > tarTrailerWindow {
		tail = tail[len(tail)-tarTrailerWindow:]
	}

	idx := strings.Index(string(tail), tarSentinel)
	if idx < 0 {
		return nil, fmt.Errorf("archivemodel: archive.tar.idx sentinel not found in trailer window")
	}

	start := idx + tarSentinelSkip
	if start > len(tail) {
		return nil, fmt.Errorf("archivemodel: sentinel found but trailer too short for index body")
	}

	a := newArchive(root)
	lines := strings.Split(string(tail[start:]), "\n")

	counter := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		entry, err := parseIndexLine(line)
		if err != nil {
			continue
		}
		counter++
		entry.Modified = int64(counter)
		a.Put(entry.Path, entry)
	}

	return a, nil
}

// parseIndexLine parses "<path> <offset> <size>" splitting from the
// right since path may itself contain spaces.
func parseIndexLine(line string) (Entry, error) {
	line = strings.TrimRight(line, "\r")

	lastSpace := strings.LastIndexByte(line, ' ')
	if lastSpace < 0 {
		return Entry{}, fmt.Errorf("archivemodel: malformed index line %q", line)
	}
	size, err := strconv.ParseInt(line[lastSpace+1:], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("archivemodel: bad size in %q: %w", line, err)
	}

	rest := line[:lastSpace]
	secondSpace := strings.LastIndexByte(rest, ' ')
	if secondSpace < 0 {
		return Entry{}, fmt.Errorf("archivemodel: malformed index line %q", line)
	}
	offset, err := strconv.ParseInt(rest[secondSpace+1:], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("archivemodel: bad offset in %q: %w", line, err)
	}

	path := rest[:secondSpace]
	return Entry{Path: path, Offset: offset, Size: size}, nil
}
