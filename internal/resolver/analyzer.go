package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/traktion/anttp/internal/addr"
	"github.com/traktion/anttp/internal/client"
)

// mutableAnalyzer implements PointerRegisterAnalyzer by trying a
// pointer lookup first and falling back to a register lookup, the
// order the algorithm in resolve_archive_or_file always uses for a
// 96-hex address: a pointer's whole purpose is pointing at something
// else, so it is checked before the more general register record.
type mutableAnalyzer struct {
	pointers  *client.MutableClient
	registers *client.MutableClient
	ttl       time.Duration
}

// NewMutableAnalyzer builds a PointerRegisterAnalyzer over the
// gateway's pointer and register caching clients. ttl is the value
// reported back for chaining into the resolver's own TTL accumulation
// (internal/config's cached_mutable_ttl).
func NewMutableAnalyzer(pointers, registers *client.MutableClient, ttl time.Duration) PointerRegisterAnalyzer {
	return &mutableAnalyzer{pointers: pointers, registers: registers, ttl: ttl}
}

func (m *mutableAnalyzer) AnalyzeMutable(ctx context.Context, a addr.Address) (addr.Address, time.Duration, error) {
	if mut, ok, err := m.pointers.Get(ctx, a); err == nil && ok {
		if target, ok := addrFromBytes(mut.Data); ok {
			return target, m.ttl, nil
		}
	}

	if mut, ok, err := m.registers.Get(ctx, a); err == nil && ok {
		if target, ok := addrFromBytes(mut.Data); ok {
			return target, m.ttl, nil
		}
	}

	return addr.Address{}, 0, fmt.Errorf("resolver: %s resolves to neither a pointer nor a register", a)
}

func addrFromBytes(b []byte) (addr.Address, bool) {
	if len(b) != addr.Size {
		return addr.Address{}, false
	}
	var a addr.Address
	copy(a[:], b)
	return a, true
}
