package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/R3E-Network/session_layer/internal/identity"
	"github.com/R3E-Network/session_layer/internal/metrics"
	"github.com/R3E-Network/session_layer/internal/wallet"
	"github.com/R3E-Network/session_layer/pkg/logger"
)

// RuntimeCheck is the host platform runtime check.
type RuntimeCheck interface {
	IsEmbedded(ctx context.Context) (bool, error)
}

// IdentityResolver resolves the host-mode identity.
type IdentityResolver interface {
	Resolve(ctx context.Context) (*identity.Resolution, error)
}

// WalletBridge is the wallet capability surface the aggregator consumes.
type WalletBridge interface {
	GetConnected() (string, bool)
	RequestAccess(ctx context.Context) (string, error)
}

// ReadinessSignaler notifies the host that the UI may be shown.
type ReadinessSignaler interface {
	Ready(ctx context.Context)
}

// ErrConnectRateLimited is returned by ConnectWallet when manual retries
// exceed the configured rate.
var ErrConnectRateLimited = errors.New("wallet connect rate limited")

// ErrConnectInProgress is returned when a manual connect is already running.
var ErrConnectInProgress = errors.New("wallet connect already in progress")

// Config configures a Manager.
type Config struct {
	Runtime   RuntimeCheck
	Resolver  IdentityResolver
	Bridge    WalletBridge
	Readiness ReadinessSignaler
	Signal    *wallet.Signal
	Logger    *logger.Logger
	// ConnectRatePerMin caps manual ConnectWallet calls. Zero means 12/min.
	ConnectRatePerMin int
}

// Manager owns the authoritative session record and drives the resolution
// state machine:
//
//	INIT → DETECTING → {RESOLVING_HOST | RESOLVING_STANDALONE} → {READY | FAILED}
//
// Each attempt carries a liveness token; a superseded attempt's in-flight
// results are discarded and can never touch the current record or fire the
// readiness signal.
type Manager struct {
	mu        sync.Mutex
	runtime   RuntimeCheck
	resolver  IdentityResolver
	bridge    WalletBridge
	readiness ReadinessSignaler
	signal    *wallet.Signal
	log       *logger.Logger

	record  Record
	state   State
	attempt uuid.UUID
	cancel  context.CancelFunc
	baseCtx context.Context

	watchCancel func()

	// manual connect sub-state, independent of the state machine
	connectMu  sync.Mutex
	connecting bool
	connectErr error
	limiter    *rate.Limiter
}

// NewManager creates a manager. Start must be called before snapshots carry
// meaningful data.
func NewManager(cfg Config) *Manager {
	log := cfg.Logger
	if log == nil {
		log = logger.New(logger.LoggingConfig{})
	}
	perMin := cfg.ConnectRatePerMin
	if perMin <= 0 {
		perMin = 12
	}
	return &Manager{
		runtime:   cfg.Runtime,
		resolver:  cfg.Resolver,
		bridge:    cfg.Bridge,
		readiness: cfg.Readiness,
		signal:    cfg.Signal,
		log:       log,
		state:     StateInit,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin),
	}
}

// Start launches the initial resolution attempt and re-resolves on every
// change of the wallet connection signal. It returns immediately.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	m.baseCtx = ctx
	m.mu.Unlock()

	attemptCtx, token := m.begin("initial")
	go m.run(attemptCtx, token)

	if m.signal != nil {
		ch, cancelSub := m.signal.Subscribe()
		m.mu.Lock()
		m.watchCancel = cancelSub
		m.mu.Unlock()

		// The subscription delivers the current state up front; that baseline
		// must not restart the attempt just started above.
		baseline := <-ch

		go func() {
			last := baseline
			for {
				select {
				case <-ctx.Done():
					return
				case st, ok := <-ch:
					if !ok {
						return
					}
					if st == last {
						continue
					}
					last = st
					m.log.Infof("wallet connection signal changed (connected=%v), re-resolving", st.Connected)
					attemptCtx, token := m.begin("signal")
					go m.run(attemptCtx, token)
				}
			}
		}()
	}
}

// Close cancels the current attempt and the signal watcher.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.watchCancel != nil {
		m.watchCancel()
		m.watchCancel = nil
	}
	// Invalidate the token so a settling attempt cannot commit.
	m.attempt = uuid.Nil
}

// Snapshot returns a read-only copy of the current session record.
func (m *Manager) Snapshot() Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record.clone()
}

// CurrentState returns the state machine position of the current attempt.
func (m *Manager) CurrentState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ResolveNow runs one resolution attempt synchronously and returns the
// resulting record. Any in-flight attempt is superseded.
func (m *Manager) ResolveNow(ctx context.Context, trigger string) Record {
	m.mu.Lock()
	if m.baseCtx == nil {
		m.baseCtx = ctx
	}
	m.mu.Unlock()

	attemptCtx, token := m.begin(trigger)
	m.run(attemptCtx, token)
	return m.Snapshot()
}

// begin supersedes any in-flight attempt: it cancels the previous context,
// issues a fresh liveness token, and resets the record to loading with the
// prior error cleared.
func (m *Manager) begin(trigger string) (context.Context, uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}

	base := m.baseCtx
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithCancel(base)
	m.cancel = cancel
	m.attempt = uuid.New()
	m.state = StateDetecting
	m.record = Record{Loading: true}

	metrics.ObserveAttempt(trigger)
	return ctx, m.attempt
}

// run drives one attempt to a terminal state.
func (m *Manager) run(ctx context.Context, token uuid.UUID) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			m.log.Errorf("session resolution panicked: %v", r)
			fault := NewFault(FaultInitialization, "session initialization failed", nil)
			if m.commit(token, StateFailed, Record{Err: fault}) {
				metrics.ObserveOutcome("unknown", string(StateFailed), string(FaultInitialization), time.Since(started))
			}
		}
	}()

	embedded, err := m.runtime.IsEmbedded(ctx)
	var envFault *Fault
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// Degrade to standalone handling but keep the fault visible.
		envFault = NewFault(FaultEnvironmentDetection, "host runtime check failed", err)
		m.log.WithError(err).Warn("environment detection failed, degrading to standalone resolution")
	}

	if err == nil && embedded {
		m.resolveHost(ctx, token, started)
		return
	}
	m.resolveStandalone(ctx, token, started, envFault)
}

func (m *Manager) resolveHost(ctx context.Context, token uuid.UUID, started time.Time) {
	if !m.setState(token, StateResolvingHost) {
		return
	}

	res, err := m.resolver.Resolve(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		var fault *Fault
		if errors.Is(err, identity.ErrIdentityUnavailable) {
			fault = NewFault(FaultIdentityUnavailable, "host supplied no identity", err)
		} else {
			fault = NewFault(FaultAuthentication, "host identity fetch failed", err)
		}
		if m.commit(token, StateFailed, Record{Environment: EnvironmentHost, Err: fault}) {
			m.log.WithError(fault).Error("host session resolution failed")
			metrics.ObserveOutcome(string(EnvironmentHost), string(StateFailed), string(fault.Kind), time.Since(started))
		}
		return
	}

	addr, werr := m.bridge.RequestAccess(ctx)
	var walletFault *Fault
	if werr != nil {
		if ctx.Err() != nil {
			return
		}
		// Transport faults do not block readiness; identity presence alone
		// is sufficient for READY.
		walletFault = NewFault(FaultWalletTransport, "wallet access request failed", werr)
		m.log.WithError(werr).Warn("wallet access request failed")
	}

	if res.AddressHint != "" && addr != "" && res.AddressHint != addr {
		m.log.Debugf("live wallet address %s supersedes host hint %s", addr, res.AddressHint)
	}

	rec := Record{
		Environment:     EnvironmentHost,
		Address:         addr,
		Identity:        res.Identity,
		WalletConnected: addr != "",
		Err:             walletFault,
	}
	if m.commit(token, StateReady, rec) {
		fault := FaultKind("")
		if walletFault != nil {
			fault = walletFault.Kind
		}
		metrics.ObserveOutcome(string(EnvironmentHost), string(StateReady), string(fault), time.Since(started))

		// Exactly once per successful host-mode attempt: the commit above
		// succeeds at most once per token.
		if m.readiness != nil {
			m.readiness.Ready(ctx)
			metrics.ObserveReadiness()
		}
	}
}

func (m *Manager) resolveStandalone(ctx context.Context, token uuid.UUID, started time.Time, envFault *Fault) {
	if !m.setState(token, StateResolvingStandalone) {
		return
	}
	if ctx.Err() != nil {
		return
	}

	addr, connected := m.bridge.GetConnected()
	rec := Record{
		Environment:     EnvironmentStandalone,
		Address:         addr,
		WalletConnected: connected,
		Err:             envFault,
	}
	if m.commit(token, StateReady, rec) {
		fault := FaultKind("")
		if envFault != nil {
			fault = envFault.Kind
		}
		metrics.ObserveOutcome(string(EnvironmentStandalone), string(StateReady), string(fault), time.Since(started))
	}
}

// setState advances the state machine if the attempt is still live.
func (m *Manager) setState(token uuid.UUID, state State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token != m.attempt {
		return false
	}
	m.state = state
	return true
}

// commit atomically installs the terminal record for a live attempt. A stale
// token commits nothing and reports false.
func (m *Manager) commit(token uuid.UUID, state State, rec Record) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token != m.attempt {
		return false
	}
	rec.Loading = false
	m.state = state
	m.record = rec
	return true
}

// ConnectWallet re-runs the wallet access request on demand. It carries its
// own connecting/error sub-state and never mutates the main record directly:
// a successful connect moves the shared signal, which re-triggers resolution.
func (m *Manager) ConnectWallet(ctx context.Context) (string, error) {
	if !m.limiter.Allow() {
		return "", ErrConnectRateLimited
	}

	m.connectMu.Lock()
	if m.connecting {
		m.connectMu.Unlock()
		return "", ErrConnectInProgress
	}
	m.connecting = true
	m.connectErr = nil
	m.connectMu.Unlock()

	addr, err := m.bridge.RequestAccess(ctx)

	m.connectMu.Lock()
	m.connecting = false
	m.connectErr = err
	m.connectMu.Unlock()

	switch {
	case err != nil:
		metrics.ObserveWalletConnect("fault")
	case addr == "":
		metrics.ObserveWalletConnect("unavailable")
	default:
		metrics.ObserveWalletConnect("connected")
	}
	return addr, err
}

// ConnectState returns the manual connect sub-state.
func (m *Manager) ConnectState() (connecting bool, err error) {
	m.connectMu.Lock()
	defer m.connectMu.Unlock()
	return m.connecting, m.connectErr
}
