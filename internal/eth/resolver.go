// ENS resolution.
//
// This file wraps wealdtech/go-ens over an ethclient connection behind the
// narrow Resolver interface. Resolution is always performed lazily, once per
// need, and never cached: on-chain name ownership can change, and a stale
// cache would silently misdirect alerts.
package eth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	ens "github.com/wealdtech/go-ens/v3"
)

// ErrResolutionFailed is returned when a name does not resolve, resolves to
// the zero address, or the RPC endpoint is unreachable. Callers convert it
// to a user-visible message; it is never fatal.
var ErrResolutionFailed = errors.New("ens resolution failed")

// Resolver resolves an ENS name to a canonical lowercase hex address.
//
// Implementations must honor ctx cancellation; a stalled RPC call delays only
// the flow that issued it.
type Resolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, name string) (string, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, name string) (string, error) {
	return f(ctx, name)
}

// ENSResolver resolves names against a mainnet (or testnet) JSON-RPC
// endpoint using the canonical ENS registry.
type ENSResolver struct {
	client  *ethclient.Client
	timeout time.Duration
}

// NewENSResolver dials the JSON-RPC endpoint at rpcURL. Each Resolve call is
// bounded by timeout on top of whatever deadline the caller's context
// carries.
func NewENSResolver(rpcURL string, timeout time.Duration) (*ENSResolver, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial eth rpc: %w", err)
	}
	return &ENSResolver{client: client, timeout: timeout}, nil
}

// Resolve looks up name in the ENS registry and returns the lowercase
// resolved address. Unknown names, zero-address records, RPC failures and
// timeouts all collapse into ErrResolutionFailed.
func (r *ENSResolver) Resolve(ctx context.Context, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type outcome struct {
		addr common.Address
		err  error
	}
	// go-ens does not take a context; run the lookup in a goroutine so the
	// bounded deadline still applies to the caller.
	ch := make(chan outcome, 1)
	go func() {
		addr, err := ens.Resolve(r.client, name)
		ch <- outcome{addr: addr, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrResolutionFailed, ctx.Err())
	case out := <-ch:
		if out.err != nil {
			return "", fmt.Errorf("%w: %v", ErrResolutionFailed, out.err)
		}
		if out.addr == (common.Address{}) {
			return "", fmt.Errorf("%w: name has no address record", ErrResolutionFailed)
		}
		return strings.ToLower(out.addr.Hex()), nil
	}
}
