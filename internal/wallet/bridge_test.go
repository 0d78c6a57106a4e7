package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/R3E-Network/session_layer/internal/host"
)

type fakeProvider struct {
	accounts []string
	err      error
	requests []string
}

func (p *fakeProvider) Request(_ context.Context, method string, _ ...any) (json.RawMessage, error) {
	p.requests = append(p.requests, method)
	if p.err != nil {
		return nil, p.err
	}
	raw, _ := json.Marshal(p.accounts)
	return raw, nil
}

func newTestBridge(p Provider) (*Bridge, *Registry, *Signal) {
	signal := NewSignal()
	registry := NewRegistry()
	if p != nil {
		_ = registry.Register(NewInjectedConnector("injected", p, signal))
	}
	return NewBridge(p, registry, signal, "injected", nil), registry, signal
}

func TestRequestAccess_GrantsAndPublishes(t *testing.T) {
	p := &fakeProvider{accounts: []string{"0xABCDEF0123456789ABCDEF0123456789ABCDEF01"}}
	b, _, signal := newTestBridge(p)

	addr, err := b.RequestAccess(context.Background())
	if err != nil {
		t.Fatalf("RequestAccess() error: %v", err)
	}
	if want := "0xabcdef0123456789abcdef0123456789abcdef01"; addr != want {
		t.Errorf("address = %s, want %s", addr, want)
	}

	st := signal.State()
	if !st.Connected || st.Address != addr {
		t.Errorf("signal state = %+v, want connected %s", st, addr)
	}
}

func TestRequestAccess_ShortCircuitsWhenConnected(t *testing.T) {
	p := &fakeProvider{accounts: []string{"0xabcdef0123456789abcdef0123456789abcdef01"}}
	b, _, _ := newTestBridge(p)

	first, err := b.RequestAccess(context.Background())
	if err != nil {
		t.Fatalf("first RequestAccess() error: %v", err)
	}
	issued := len(p.requests)

	second, err := b.RequestAccess(context.Background())
	if err != nil {
		t.Fatalf("second RequestAccess() error: %v", err)
	}
	if second != first {
		t.Errorf("second address = %s, want %s", second, first)
	}
	if len(p.requests) != issued {
		t.Errorf("second call issued a new access request, want short-circuit")
	}
}

func TestRequestAccess_NoWalletAvailable(t *testing.T) {
	cases := []struct {
		name string
		p    *fakeProvider
	}{
		{"zero accounts", &fakeProvider{accounts: []string{}}},
		{"user declined", &fakeProvider{err: &host.RPCError{Code: 4001, Message: "user rejected"}}},
		{"no bridge", &fakeProvider{err: host.ErrNoBridge}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, _, signal := newTestBridge(tc.p)
			addr, err := b.RequestAccess(context.Background())
			if err != nil {
				t.Fatalf("RequestAccess() error: %v, want nil (no wallet available)", err)
			}
			if addr != "" {
				t.Errorf("address = %q, want empty", addr)
			}
			if signal.State().Connected {
				t.Error("signal should stay disconnected")
			}
		})
	}
}

func TestRequestAccess_NilProvider(t *testing.T) {
	b, _, _ := newTestBridge(nil)
	addr, err := b.RequestAccess(context.Background())
	if err != nil || addr != "" {
		t.Errorf("RequestAccess() = (%q, %v), want empty, nil", addr, err)
	}
}

func TestRequestAccess_TransportFault(t *testing.T) {
	p := &fakeProvider{err: errors.New("connection refused")}
	b, _, signal := newTestBridge(p)

	_, err := b.RequestAccess(context.Background())
	if err == nil {
		t.Fatal("RequestAccess() should surface transport faults")
	}
	if signal.State().Connected {
		t.Error("signal must not move on a transport fault")
	}
}

func TestRequestAccess_ActivatesRegistryConnector(t *testing.T) {
	p := &fakeProvider{accounts: []string{"0xabcdef0123456789abcdef0123456789abcdef01"}}
	b, _, _ := newTestBridge(p)

	if _, err := b.RequestAccess(context.Background()); err != nil {
		t.Fatalf("RequestAccess() error: %v", err)
	}

	// eth_requestAccounts for access, then eth_accounts via the connector.
	want := []string{"eth_requestAccounts", "eth_accounts"}
	if len(p.requests) != len(want) {
		t.Fatalf("requests = %v, want %v", p.requests, want)
	}
	for i := range want {
		if p.requests[i] != want[i] {
			t.Errorf("requests[%d] = %s, want %s", i, p.requests[i], want[i])
		}
	}
}

func TestGetConnected_Idempotent(t *testing.T) {
	p := &fakeProvider{accounts: []string{"0xabcdef0123456789abcdef0123456789abcdef01"}}
	b, _, _ := newTestBridge(p)

	if _, err := b.RequestAccess(context.Background()); err != nil {
		t.Fatalf("RequestAccess() error: %v", err)
	}

	a1, c1 := b.GetConnected()
	a2, c2 := b.GetConnected()
	if a1 != a2 || c1 != c2 {
		t.Errorf("GetConnected() not idempotent: (%s,%v) then (%s,%v)", a1, c1, a2, c2)
	}
}
