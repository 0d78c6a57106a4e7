package wallet

import (
	"context"
	"fmt"
	"sync"
)

// Connector is one entry in the generic wallet connector registry. Identifiers
// are stable capability identifiers ("injected", "walletconnect", ...).
type Connector interface {
	ID() string
	// Connect activates the connector and returns the connected address.
	Connect(ctx context.Context) (string, error)
	// Connected reports whether the connector currently holds a connection.
	Connected() bool
}

// Registry is the enumerable set of wallet connectors.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]Connector
	order      []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{connectors: make(map[string]Connector)}
}

// Register adds a connector. Registering the same identifier twice is an
// error.
func (r *Registry) Register(c Connector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.connectors[c.ID()]; exists {
		return fmt.Errorf("connector already registered: %s", c.ID())
	}
	r.connectors[c.ID()] = c
	r.order = append(r.order, c.ID())
	return nil
}

// Get returns a connector by identifier.
func (r *Registry) Get(id string) (Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[id]
	return c, ok
}

// List returns all connectors in registration order.
func (r *Registry) List() []Connector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Connector, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.connectors[id])
	}
	return out
}

// Connect activates the connector with the given identifier.
func (r *Registry) Connect(ctx context.Context, id string) (string, error) {
	c, ok := r.Get(id)
	if !ok {
		return "", fmt.Errorf("connector not registered: %s", id)
	}
	addr, err := c.Connect(ctx)
	if err != nil {
		return "", fmt.Errorf("connect %s: %w", id, err)
	}
	return addr, nil
}
