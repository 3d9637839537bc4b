// Package netclient wraps a netface.Client with an idle-disconnect
// timer: the underlying network handle is torn down and recreated
// after a configurable idle period, the same "connect lazily, drop
// when quiet" lifecycle the teacher's atomic.Value-backed singletons
// use for lazily-held resources.
package netclient

import (
	"context"
	"sync"
	"time"

	"github.com/jpillora/backoff"

	"github.com/traktion/anttp/internal/addr"
	"github.com/traktion/anttp/internal/logger"
	"github.com/traktion/anttp/internal/netface"
)

// maxDialAttempts bounds the reconnect retry loop: a dial that still
// fails after this many jittered backoff waits is treated as a real
// outage and returned to the caller, rather than retried forever.
const maxDialAttempts = 5

// Dialer creates a fresh netface.Client connection on demand. The
// caller's concrete network stack implements this; Harness never
// constructs a Client itself.
type Dialer func(ctx context.Context) (netface.Client, error)

// Harness keeps a single live Client alive across calls and
// disconnects it after idleFor of inactivity, reconnecting
// transparently on the next call.
type Harness struct {
	mu       sync.Mutex
	dial     Dialer
	idleFor  time.Duration
	client   netface.Client
	timer    *time.Timer
	log      *logger.Logger
}

func New(dial Dialer, idleFor time.Duration) *Harness {
	return &Harness{dial: dial, idleFor: idleFor, log: logger.Named("netclient")}
}

// dialWithRetry retries h.dial on a jittered exponential schedule,
// distinct from the command package's fixed quadratic retry policy:
// reconnecting to the network harness is a transport-level concern
// that benefits from jitter to avoid every idle client reconnecting in
// lockstep after a shared outage.
func (h *Harness) dialWithRetry(ctx context.Context) (netface.Client, error) {
	b := &backoff.Backoff{Min: 100 * time.Millisecond, Max: 10 * time.Second, Factor: 2, Jitter: true}

	var lastErr error
	for attempt := 0; attempt < maxDialAttempts; attempt++ {
		c, err := h.dial(ctx)
		if err == nil {
			return c, nil
		}
		lastErr = err

		h.log.WithError(err).Warnf("dial attempt %d/%d failed", attempt+1, maxDialAttempts)

		select {
		case <-time.After(b.Duration()):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (h *Harness) acquire(ctx context.Context) (netface.Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.client == nil {
		c, err := h.dialWithRetry(ctx)
		if err != nil {
			return nil, err
		}
		h.client = c
		h.log.Infof("network connection established")
	}

	h.resetTimerLocked()
	return h.client, nil
}

func (h *Harness) resetTimerLocked() {
	if h.timer != nil {
		h.timer.Stop()
	}
	if h.idleFor <= 0 {
		return
	}
	h.timer = time.AfterFunc(h.idleFor, h.disconnect)
}

func (h *Harness) disconnect() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client != nil {
		h.log.Infof("network connection idle, disconnecting")
		h.client = nil
	}
}

// Client returns the live netface.Client, dialing if necessary, and
// resets the idle-disconnect window.
func (h *Harness) Client(ctx context.Context) (netface.Client, error) {
	return h.acquire(ctx)
}

func (h *Harness) FetchChunk(ctx context.Context, a addr.Address) ([]byte, error) {
	c, err := h.acquire(ctx)
	if err != nil {
		return nil, err
	}
	return c.FetchChunk(ctx, a)
}

func (h *Harness) FetchMutable(ctx context.Context, a addr.Address) ([]byte, uint64, error) {
	c, err := h.acquire(ctx)
	if err != nil {
		return nil, 0, err
	}
	return c.FetchMutable(ctx, a)
}

func (h *Harness) FetchGraphEntry(ctx context.Context, a addr.Address) ([]byte, []addr.Address, error) {
	c, err := h.acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	return c.FetchGraphEntry(ctx, a)
}

func (h *Harness) PutImmutable(ctx context.Context, kind addr.Kind, data []byte) (addr.Address, error) {
	c, err := h.acquire(ctx)
	if err != nil {
		return addr.Address{}, err
	}
	return c.PutImmutable(ctx, kind, data)
}

func (h *Harness) PutMutable(ctx context.Context, a addr.Address, data []byte, expectVersion uint64) (uint64, error) {
	c, err := h.acquire(ctx)
	if err != nil {
		return 0, err
	}
	return c.PutMutable(ctx, a, data, expectVersion)
}

func (h *Harness) Exists(ctx context.Context, kind addr.Kind, a addr.Address) (bool, error) {
	c, err := h.acquire(ctx)
	if err != nil {
		return false, err
	}
	return c.Exists(ctx, kind, a)
}

var _ netface.Client = (*Harness)(nil)
