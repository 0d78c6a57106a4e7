package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/R3E-Network/session_layer/internal/host"
	"github.com/R3E-Network/session_layer/pkg/logger"
)

// Provider is the host-injected wallet provider surface, JSON-RPC shaped.
type Provider interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// Bridge unifies "read the established wallet state" and "request account
// access" over the injected provider and the connector registry. It is the
// only writer of the connection signal on the access path.
type Bridge struct {
	mu         sync.Mutex
	provider   Provider
	registry   *Registry
	signal     *Signal
	injectedID string
	log        *logger.Logger
}

// NewBridge creates a bridge. Provider may be nil when no host provider is
// injected; RequestAccess then reports no wallet available.
func NewBridge(provider Provider, registry *Registry, signal *Signal, injectedID string, log *logger.Logger) *Bridge {
	if log == nil {
		log = logger.New(logger.LoggingConfig{})
	}
	return &Bridge{
		provider:   provider,
		registry:   registry,
		signal:     signal,
		injectedID: injectedID,
		log:        log,
	}
}

// Signal returns the shared connection signal.
func (b *Bridge) Signal() *Signal {
	return b.signal
}

// GetConnected is a non-blocking read of whatever wallet state is already
// established.
func (b *Bridge) GetConnected() (string, bool) {
	st := b.signal.State()
	return st.Address, st.Connected
}

// RequestAccess asks the injected provider for account access. It returns
// ("", nil) when no wallet is available: no provider, zero accounts, or the
// user declined. Errors are reserved for transport faults. When already
// connected it returns the existing address without prompting again.
func (b *Bridge) RequestAccess(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if st := b.signal.State(); st.Connected {
		return st.Address, nil
	}
	if b.provider == nil {
		return "", nil
	}

	raw, err := b.provider.Request(ctx, "eth_requestAccounts")
	if err != nil {
		var rpcErr *host.RPCError
		if errors.As(err, &rpcErr) && rpcErr.Declined() {
			b.log.Debugf("wallet access declined: %v", rpcErr)
			return "", nil
		}
		if errors.Is(err, host.ErrNoBridge) {
			return "", nil
		}
		return "", fmt.Errorf("request accounts: %w", err)
	}

	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return "", fmt.Errorf("decode accounts: %w", err)
	}
	if len(accounts) == 0 {
		return "", nil
	}

	addr, err := NormalizeAddress(accounts[0])
	if err != nil {
		return "", fmt.Errorf("provider returned %w", err)
	}

	// Route downstream wallet operations through the registry regardless of
	// origin. Activation failure does not undo a successful access grant.
	if b.registry != nil {
		if _, ok := b.registry.Get(b.injectedID); ok {
			if _, err := b.registry.Connect(ctx, b.injectedID); err != nil {
				b.log.WithError(err).Warnf("activate connector %s", b.injectedID)
			}
		}
	}

	b.signal.Set(addr)
	return addr, nil
}
