// Package session owns the process-wide authentication state. The Manager
// is the single writer; every other component reads immutable snapshots or
// subscribes to transitions. The published snapshot never carries the
// credential itself: the transport reads it through Credential at dispatch
// time, so a logout takes effect on the very next outbound request.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/edumentor/edumentor-go/internal/api"
)

// ErrSuperseded reports that another session transition completed while
// this call was in flight, so its result was discarded instead of applied.
var ErrSuperseded = errors.New("session: superseded by a newer transition")

// Status is the authentication state of the process.
type Status int

const (
	StatusUninitialized Status = iota // before Initialize has started
	StatusResolving                   // stored credential being verified
	StatusAuthenticated               // identity known, credential live
	StatusAnonymous                   // no session; terminal until login
)

// String returns the status name for logs and display.
func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusResolving:
		return "resolving"
	case StatusAuthenticated:
		return "authenticated"
	case StatusAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of the session at one instant. Identity is
// non-nil exactly when Status is StatusAuthenticated. Generation increments
// on every completed transition; callers capture it when issuing work and
// compare it when applying results, discarding anything stale.
type Snapshot struct {
	Status     Status
	Identity   *api.Identity
	Generation uint64
}

// Authenticated reports whether the snapshot carries a live identity.
func (s Snapshot) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

// Store persists the credential across runs. Implemented by credfile.Store.
type Store interface {
	Load() (string, error)
	Save(credential string) error
	Clear() error
}

// Backend is the slice of the transport the session manager needs.
// Implemented by api.Client.
type Backend interface {
	Login(ctx context.Context, email, password string) (*api.LoginResult, error)
	Register(ctx context.Context, input api.RegisterInput) (*api.Identity, error)
	Resolve(ctx context.Context, credential string) (*api.Identity, error)
}

// Manager resolves, holds, and transitions the session. Safe for concurrent
// use; all writes go through its lock.
type Manager struct {
	store   Store
	backend Backend
	logger  *slog.Logger

	mu         sync.RWMutex
	status     Status
	identity   *api.Identity
	credential string
	generation uint64

	initOnce sync.Once

	subsMu sync.Mutex
	subs   []chan Snapshot
}

// NewManager creates a Manager in the Uninitialized state.
func NewManager(store Store, backend Backend, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		store:   store,
		backend: backend,
		logger:  logger,
		status:  StatusUninitialized,
	}
}

// Initialize resolves the stored credential into a session. It runs exactly
// once per Manager; later calls return the current snapshot without side
// effects. All failures are absorbed into the Anonymous terminal state;
// startup never halts on an auth problem.
func (m *Manager) Initialize(ctx context.Context) Snapshot {
	m.initOnce.Do(func() {
		m.resolve(ctx)
	})

	return m.Snapshot()
}

// resolve performs the one-time startup resolution.
func (m *Manager) resolve(ctx context.Context) {
	// Publish Resolving before anything else runs, so guarded reads
	// suspend instead of observing a stale Uninitialized state.
	m.mu.Lock()
	m.status = StatusResolving
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.publish(snap)

	cred, err := m.store.Load()
	if err != nil {
		m.logger.Warn("stored credential unreadable, discarding",
			slog.String("error", err.Error()),
		)
		m.purge()
		m.becomeAnonymous()

		return
	}

	if cred == "" {
		// First run or logged out: terminal Anonymous with zero
		// network calls.
		m.logger.Debug("no stored credential")
		m.becomeAnonymous()

		return
	}

	identity, err := m.backend.Resolve(ctx, cred)
	if err != nil {
		if ctx.Err() != nil {
			// Interrupted, not rejected: keep the stored credential
			// for the next run.
			m.logger.Warn("session resolution interrupted",
				slog.String("error", err.Error()),
			)
			m.becomeAnonymous()

			return
		}

		m.logger.Warn("stored credential rejected, discarding",
			slog.String("error", err.Error()),
		)
		m.purge()
		m.becomeAnonymous()

		return
	}

	m.logger.Info("session resolved",
		slog.String("user_id", identity.ID),
		slog.String("role", string(identity.Role)),
	)
	m.apply(identity, cred)
}

// Login exchanges credentials for a session. On success the session is
// replaced and the credential persisted; on failure nothing changes. A
// response arriving after another transition completed is discarded with
// ErrSuperseded.
func (m *Manager) Login(ctx context.Context, email, password string) (Snapshot, error) {
	issued := m.Snapshot().Generation

	result, err := m.backend.Login(ctx, email, password)
	if err != nil {
		return m.Snapshot(), err
	}

	m.mu.Lock()

	if m.generation != issued {
		m.mu.Unlock()
		m.logger.Warn("discarding stale login response")

		return m.Snapshot(), ErrSuperseded
	}

	m.status = StatusAuthenticated
	m.identity = &result.User
	m.credential = result.AccessToken
	m.generation++

	if saveErr := m.store.Save(result.AccessToken); saveErr != nil {
		// The in-memory session stands; it just will not survive a
		// restart.
		m.logger.Warn("failed to persist credential",
			slog.String("error", saveErr.Error()),
		)
	}

	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("logged in",
		slog.String("user_id", result.User.ID),
		slog.String("role", string(result.User.Role)),
	)
	m.publish(snap)

	return snap, nil
}

// Logout drops the session and clears the stored credential. It always
// succeeds locally; there is no server-side session to tear down.
func (m *Manager) Logout() Snapshot {
	m.mu.Lock()

	m.status = StatusAnonymous
	m.identity = nil
	m.credential = ""
	m.generation++

	if err := m.store.Clear(); err != nil {
		m.logger.Warn("failed to clear stored credential",
			slog.String("error", err.Error()),
		)
	}

	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("logged out")
	m.publish(snap)

	return snap
}

// Register creates an account. The session is never mutated: the new
// account starts logged out and the caller decides whether to log in.
func (m *Manager) Register(ctx context.Context, input api.RegisterInput) (*api.Identity, error) {
	return m.backend.Register(ctx, input)
}

// Refresh re-resolves the stored credential after it changed out of band
// (another process logged in or out). Unlike Initialize it never publishes
// Resolving: flapping every guarded surface on an external touch would be
// worse than a briefly stale snapshot. Transient failures leave the current
// session in place; only a definitive rejection purges it.
func (m *Manager) Refresh(ctx context.Context) Snapshot {
	issued := m.Snapshot().Generation

	cred, err := m.store.Load()
	if err != nil {
		m.logger.Warn("stored credential unreadable, discarding",
			slog.String("error", err.Error()),
		)
		m.purge()

		return m.dropTo(StatusAnonymous, issued)
	}

	m.mu.RLock()
	unchanged := m.credential == cred &&
		(m.status == StatusAuthenticated || m.status == StatusAnonymous)
	m.mu.RUnlock()

	if unchanged {
		// Our own save or clear echoed back through the watcher.
		return m.Snapshot()
	}

	if cred == "" {
		m.logger.Info("credential removed externally, logging out")

		return m.dropTo(StatusAnonymous, issued)
	}

	identity, err := m.backend.Resolve(ctx, cred)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, api.ErrUnauthorized) {
			m.logger.Warn("replacement credential rejected, discarding",
				slog.String("error", err.Error()),
			)
			m.purge()

			return m.dropTo(StatusAnonymous, issued)
		}

		// Transient: no verdict, keep whatever session we have.
		m.logger.Warn("session refresh failed",
			slog.String("error", err.Error()),
		)

		return m.Snapshot()
	}

	m.mu.Lock()

	if m.generation != issued {
		m.mu.Unlock()
		m.logger.Warn("discarding stale refresh result")

		return m.Snapshot()
	}

	m.status = StatusAuthenticated
	m.identity = identity
	m.credential = cred
	m.generation++
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("session refreshed",
		slog.String("user_id", identity.ID),
		slog.String("role", string(identity.Role)),
	)
	m.publish(snap)

	return snap
}

// Snapshot returns the current immutable view of the session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.snapshotLocked()
}

// Credential returns the live session credential. It satisfies the
// transport's credential source: read at dispatch time of every request,
// never cached, so the value is non-empty exactly while Authenticated.
func (m *Manager) Credential() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.credential, m.credential != ""
}

// Subscribe registers for transition notifications. The returned channel
// has capacity one and is latest-wins: when the receiver lags, stale
// snapshots are dropped so it always wakes to the newest state. The second
// return value detaches the subscription; the channel is never closed.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	m.subsMu.Lock()
	m.subs = append(m.subs, ch)
	m.subsMu.Unlock()

	unsubscribe := func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()

		for i, sub := range m.subs {
			if sub == ch {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)

				return
			}
		}
	}

	return ch, unsubscribe
}

// publish delivers a snapshot to every subscriber without blocking.
func (m *Manager) publish(snap Snapshot) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	for _, ch := range m.subs {
		select {
		case ch <- snap:
			continue
		default:
		}

		// Full: drop the stale value, then deliver the newer one.
		select {
		case <-ch:
		default:
		}

		select {
		case ch <- snap:
		default:
		}
	}
}

// snapshotLocked builds a Snapshot. Callers hold m.mu.
func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{
		Status:     m.status,
		Identity:   m.identity,
		Generation: m.generation,
	}
}

// becomeAnonymous completes a resolution with no session.
func (m *Manager) becomeAnonymous() {
	m.mu.Lock()
	m.status = StatusAnonymous
	m.identity = nil
	m.credential = ""
	m.generation++
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.publish(snap)
}

// apply completes a resolution with a verified identity.
func (m *Manager) apply(identity *api.Identity, credential string) {
	m.mu.Lock()
	m.status = StatusAuthenticated
	m.identity = identity
	m.credential = credential
	m.generation++
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.publish(snap)
}

// dropTo transitions to the given state unless another transition won the
// race since the caller captured issued.
func (m *Manager) dropTo(status Status, issued uint64) Snapshot {
	m.mu.Lock()

	if m.generation != issued {
		snap := m.snapshotLocked()
		m.mu.Unlock()

		return snap
	}

	m.status = status
	m.identity = nil
	m.credential = ""
	m.generation++
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.publish(snap)

	return snap
}

// purge clears the stored credential, warning instead of failing.
func (m *Manager) purge() {
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("failed to clear stored credential",
			slog.String("error", err.Error()),
		)
	}
}
