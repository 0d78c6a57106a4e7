package session

import (
	"github.com/R3E-Network/session_layer/internal/identity"
)

// Environment tags which of the two execution environments was detected.
type Environment string

const (
	EnvironmentHost       Environment = "HOST"
	EnvironmentStandalone Environment = "STANDALONE"
)

// State is the aggregator's position in the resolution state machine.
type State string

const (
	StateInit                State = "INIT"
	StateDetecting           State = "DETECTING"
	StateResolvingHost       State = "RESOLVING_HOST"
	StateResolvingStandalone State = "RESOLVING_STANDALONE"
	StateReady               State = "READY"
	StateFailed              State = "FAILED"
)

// Record is the unified session record for one resolution attempt. It is
// committed atomically: consumers never see fields from two attempts blended.
type Record struct {
	Environment     Environment       `json:"environment,omitempty"`
	Address         string            `json:"address,omitempty"`
	Identity        *identity.Profile `json:"identity,omitempty"`
	WalletConnected bool              `json:"wallet_connected"`
	Loading         bool              `json:"loading"`
	Err             *Fault            `json:"error,omitempty"`
}

// clone returns a deep-enough copy for read-only consumption. The identity
// profile is copied so consumers cannot mutate the committed record.
func (r Record) clone() Record {
	out := r
	if r.Identity != nil {
		p := *r.Identity
		if r.Identity.Location != nil {
			loc := *r.Identity.Location
			p.Location = &loc
		}
		out.Identity = &p
	}
	if r.Err != nil {
		f := *r.Err
		out.Err = &f
	}
	return out
}
