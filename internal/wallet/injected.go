package wallet

import (
	"context"
	"encoding/json"
	"fmt"
)

// InjectedConnector exposes the host-injected provider as a registry entry so
// downstream wallet operations route uniformly whichever origin established
// the connection.
type InjectedConnector struct {
	id       string
	provider Provider
	signal   *Signal
}

// NewInjectedConnector wraps the injected provider under the given capability
// identifier.
func NewInjectedConnector(id string, provider Provider, signal *Signal) *InjectedConnector {
	return &InjectedConnector{id: id, provider: provider, signal: signal}
}

// ID returns the capability identifier.
func (c *InjectedConnector) ID() string {
	return c.id
}

// Connect reads the provider's already-authorized accounts. It deliberately
// uses eth_accounts, not eth_requestAccounts: activation must never prompt a
// second time after access was granted.
func (c *InjectedConnector) Connect(ctx context.Context) (string, error) {
	raw, err := c.provider.Request(ctx, "eth_accounts")
	if err != nil {
		return "", fmt.Errorf("read accounts: %w", err)
	}

	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return "", fmt.Errorf("decode accounts: %w", err)
	}
	if len(accounts) == 0 {
		return "", fmt.Errorf("no authorized accounts")
	}
	return NormalizeAddress(accounts[0])
}

// Connected reports the shared connection signal state.
func (c *InjectedConnector) Connected() bool {
	return c.signal.State().Connected
}
