// Package testutil provides common testing utilities and mock implementations.
package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/R3E-Network/session_layer/internal/identity"
)

// MockRuntimeCheck is a test implementation of the host runtime check.
type MockRuntimeCheck struct {
	Embedded bool
	Err      error
	calls    atomic.Int64
}

// IsEmbedded returns the configured result.
func (m *MockRuntimeCheck) IsEmbedded(_ context.Context) (bool, error) {
	m.calls.Add(1)
	return m.Embedded, m.Err
}

// Calls returns how many times the check ran.
func (m *MockRuntimeCheck) Calls() int64 {
	return m.calls.Load()
}

// MockIdentityResolver is a test implementation of the identity resolver.
type MockIdentityResolver struct {
	Resolution *identity.Resolution
	Err        error
}

// Resolve returns the configured resolution or error.
func (m *MockIdentityResolver) Resolve(_ context.Context) (*identity.Resolution, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Resolution, nil
}

// MockBridge is a test implementation of the wallet bridge. When Block is set,
// RequestAccess waits on it before returning, which lets tests exercise
// cancellation mid-request.
type MockBridge struct {
	mu        sync.Mutex
	Addr      string
	Err       error
	Connected bool
	Block     chan struct{}
	// IgnoreCancel makes a blocked request settle with its result even after
	// the attempt context is cancelled, mimicking a stale in-flight response.
	IgnoreCancel bool
	requests     atomic.Int64
}

// GetConnected reports the configured established state.
func (m *MockBridge) GetConnected() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.Connected {
		return "", false
	}
	return m.Addr, true
}

// RequestAccess returns the configured address or error, optionally blocking
// first.
func (m *MockBridge) RequestAccess(ctx context.Context) (string, error) {
	m.requests.Add(1)

	m.mu.Lock()
	block := m.Block
	m.mu.Unlock()

	if block != nil {
		if m.IgnoreCancel {
			<-block
		} else {
			select {
			case <-block:
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	if !m.IgnoreCancel && ctx.Err() != nil {
		return "", ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	return m.Addr, nil
}

// Requests returns how many access requests were issued.
func (m *MockBridge) Requests() int64 {
	return m.requests.Load()
}

// SetConnected updates the established-connection flag.
func (m *MockBridge) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Connected = connected
}

// SetBlock replaces the blocking channel for subsequent requests.
func (m *MockBridge) SetBlock(ch chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Block = ch
}

// SetResult updates the configured address and error.
func (m *MockBridge) SetResult(addr string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Addr = addr
	m.Err = err
}

// MockReadiness counts readiness signals.
type MockReadiness struct {
	count atomic.Int64
}

// Ready records the signal.
func (m *MockReadiness) Ready(_ context.Context) {
	m.count.Add(1)
}

// Signals returns how many readiness signals fired.
func (m *MockReadiness) Signals() int64 {
	return m.count.Load()
}
