package session

import (
	"errors"
	"fmt"
	"testing"
)

func TestFault_Terminal(t *testing.T) {
	terminal := []FaultKind{FaultIdentityUnavailable, FaultAuthentication, FaultInitialization}
	for _, kind := range terminal {
		if !(&Fault{Kind: kind}).Terminal() {
			t.Errorf("%s should be terminal", kind)
		}
	}

	nonTerminal := []FaultKind{FaultEnvironmentDetection, FaultBackendProfile, FaultWalletTransport}
	for _, kind := range nonTerminal {
		if (&Fault{Kind: kind}).Terminal() {
			t.Errorf("%s should not be terminal", kind)
		}
	}
}

func TestFault_UnwrapAndKindOf(t *testing.T) {
	inner := errors.New("boom")
	f := NewFault(FaultAuthentication, "identity fetch failed", inner)

	if !errors.Is(f, inner) {
		t.Error("fault should unwrap to the underlying error")
	}

	wrapped := fmt.Errorf("resolution: %w", f)
	if KindOf(wrapped) != FaultAuthentication {
		t.Errorf("KindOf = %s, want %s", KindOf(wrapped), FaultAuthentication)
	}
	if KindOf(inner) != "" {
		t.Errorf("KindOf(plain error) = %s, want empty", KindOf(inner))
	}
}
