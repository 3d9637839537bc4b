package netclient

import (
	"context"

	"github.com/traktion/anttp/internal/addr"
	"github.com/traktion/anttp/internal/apperr"
	"github.com/traktion/anttp/internal/netface"
)

// unconfigured is a netface.Client that fails every call with
// ReasonUpstreamUnavailable. It exists so cmd/anttp has a concrete
// Dialer to construct a Harness with in the absence of a real
// peer-to-peer network stack - the storage network itself is an
// external collaborator this module never implements, bootstrap_peers
// is read and validated (internal/config) but has nowhere real to
// dial until a network SDK is plugged in here.
//
// A real deployment replaces NewUnconfiguredDialer with a Dialer that
// builds a client over that SDK, seeded from cfg.BootstrapPeers; every
// other package in this module depends only on netface.Client, so
// nothing downstream changes when that swap happens.
type unconfigured struct {
	peers []string
}

func (u *unconfigured) err(op string) error {
	return apperr.Newf(apperr.PhaseGet, apperr.ReasonUpstreamUnavailable, op,
		"netclient: no network backend configured (bootstrap_peers=%v)", u.peers)
}

func (u *unconfigured) FetchChunk(ctx context.Context, a addr.Address) ([]byte, error) {
	return nil, u.err("netclient.fetchchunk")
}

func (u *unconfigured) FetchMutable(ctx context.Context, a addr.Address) ([]byte, uint64, error) {
	return nil, 0, u.err("netclient.fetchmutable")
}

func (u *unconfigured) FetchGraphEntry(ctx context.Context, a addr.Address) ([]byte, []addr.Address, error) {
	return nil, nil, u.err("netclient.fetchgraphentry")
}

func (u *unconfigured) PutImmutable(ctx context.Context, kind addr.Kind, data []byte) (addr.Address, error) {
	return addr.Address{}, u.err("netclient.putimmutable")
}

func (u *unconfigured) PutMutable(ctx context.Context, a addr.Address, data []byte, expectVersion uint64) (uint64, error) {
	return 0, u.err("netclient.putmutable")
}

func (u *unconfigured) Exists(ctx context.Context, kind addr.Kind, a addr.Address) (bool, error) {
	return false, u.err("netclient.exists")
}

var _ netface.Client = (*unconfigured)(nil)

// NewUnconfiguredDialer builds the placeholder Dialer described above,
// seeded with the bootstrap peer list purely for diagnostics - it
// never actually dials any of them.
func NewUnconfiguredDialer(peers []string) Dialer {
	return func(ctx context.Context) (netface.Client, error) {
		return &unconfigured{peers: peers}, nil
	}
}
