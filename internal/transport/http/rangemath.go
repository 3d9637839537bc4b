package http

import (
	"strconv"
	"strings"
)

// resolveRange turns an HTTP Range header's (from, to) pair - either
// side may be unset, and a negative value counts back from the end -
// into a concrete, inclusive [start, end] byte span against a known
// total length. The resolved span is always non-negative, so it can
// be handed straight to stream.NewRangeReader without another round of
// offset normalisation.
//
// from has no sentinel: an absent "from" is parsed as 0 by
// parseRangeHeader, meaning "start of content". to's sentinel is 0,
// meaning "unspecified - run to the last byte": a suffix-range request
// (`bytes=-100`) surfaces as from=-100, to=0.
func resolveRange(from, to, total int64) (start, end int64) {
	if from < 0 {
		start = total + from - 1
	} else {
		start = from
	}

	switch {
	case to == 0:
		end = total - 1
	case to < 0:
		end = total + to - 1
	default:
		end = to
	}

	if start < 0 {
		start = 0
	}
	if end < 0 {
		end = 0
	}

	return start, end
}

// parseRangeHeader parses a single-range `bytes=<from>-<to>` header
// value, matching the subset of RFC 7233 the gateway supports: exactly
// one range, no list. Either endpoint may be empty. A missing "to"
// parses as the resolveRange sentinel 0; a missing "from" with a
// present "to" is a suffix range and parses as a negative "from" count
// equal to -to, with "to" then reset to 0.
func parseRangeHeader(header string) (from, to int64, ok bool) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return 0, 0, false
	}
	spec := strings.TrimPrefix(header, prefix)
	if strings.Contains(spec, ",") {
		return 0, 0, false
	}

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}

	fromStr, toStr := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

	switch {
	case fromStr == "" && toStr == "":
		return 0, 0, false
	case fromStr == "":
		// Suffix range "bytes=-N": from=-N, which resolveRange turns
		// into a span starting N+1 bytes before the end.
		n, err := strconv.ParseInt(toStr, 10, 64)
		if err != nil {
			return 0, 0, false
		}
		return -n, 0, true
	case toStr == "":
		n, err := strconv.ParseInt(fromStr, 10, 64)
		if err != nil {
			return 0, 0, false
		}
		return n, 0, true
	default:
		f, err := strconv.ParseInt(fromStr, 10, 64)
		if err != nil {
			return 0, 0, false
		}
		t, err := strconv.ParseInt(toStr, 10, 64)
		if err != nil {
			return 0, 0, false
		}
		return f, t, true
	}
}
