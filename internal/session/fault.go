// Package session owns the session resolution state machine: it reconciles
// environment detection, identity resolution and wallet connection into one
// atomically committed session record per attempt.
package session

import (
	"errors"
	"fmt"
)

// FaultKind classifies a resolution fault. Terminal kinds stop the pipeline;
// non-terminal kinds are absorbed and resolution continues with degraded data.
type FaultKind string

const (
	// FaultEnvironmentDetection: the host runtime check itself failed.
	// Non-terminal; resolution degrades to standalone handling.
	FaultEnvironmentDetection FaultKind = "ENVIRONMENT_DETECTION"
	// FaultIdentityUnavailable: host mode, the host reported no user. Terminal.
	FaultIdentityUnavailable FaultKind = "IDENTITY_UNAVAILABLE"
	// FaultAuthentication: host mode, the identity call itself threw. Terminal.
	FaultAuthentication FaultKind = "AUTHENTICATION"
	// FaultBackendProfile: supplementary profile fetch failed. Non-terminal.
	FaultBackendProfile FaultKind = "BACKEND_PROFILE"
	// FaultWalletTransport: the wallet access request hit a transport fault.
	// Non-terminal; surfaced on the record without blocking readiness.
	FaultWalletTransport FaultKind = "WALLET_TRANSPORT"
	// FaultInitialization: unclassified failure anywhere in the pipeline.
	// Terminal catch-all.
	FaultInitialization FaultKind = "INITIALIZATION"
)

// Fault is a classified resolution error.
type Fault struct {
	Kind    FaultKind `json:"kind"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

// NewFault creates a classified fault wrapping an underlying error.
func NewFault(kind FaultKind, message string, err error) *Fault {
	return &Fault{Kind: kind, Message: message, Err: err}
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// Terminal reports whether the fault stops the resolution pipeline.
func (f *Fault) Terminal() bool {
	switch f.Kind {
	case FaultIdentityUnavailable, FaultAuthentication, FaultInitialization:
		return true
	}
	return false
}

// KindOf extracts the fault kind from an error chain, or "" if unclassified.
func KindOf(err error) FaultKind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}
