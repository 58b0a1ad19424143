// Package progress tracks playback progress locally and reconciles it with
// the backend. Records are monotonic high-water marks per course, owned by
// one user session: they are dropped whenever the session generation
// changes. A debounced loop pushes behind records upstream with at most one
// in-flight write per course; failed writes stay pending behind an
// exponential gate until the next qualifying event or a manual flush.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/edumentor/edumentor-go/internal/api"
	"github.com/edumentor/edumentor-go/internal/session"
)

// ErrNoSession reports an operation that needs an authenticated session.
var ErrNoSession = errors.New("progress: no authenticated session")

const (
	defaultDebounce = 2 * time.Second

	// Failure gate: base 5s, doubling, capped at 5 minutes. The gate only
	// throttles event-driven retries; nothing retries on its own clock.
	retryBase      = 5 * time.Second
	retryMax       = 5 * time.Minute
	retryFactor    = 2.0
	jitterFraction = 0.25

	shutdownFlushTimeout = 5 * time.Second
)

// SessionSource is the slice of the session manager the synchronizer reads.
type SessionSource interface {
	Snapshot() session.Snapshot
}

// Backend is the slice of the transport the synchronizer uses. Implemented
// by api.Client.
type Backend interface {
	WriteProgress(ctx context.Context, courseID string, percentage float64) error
	ListProgress(ctx context.Context) ([]api.Progress, error)
}

// Record is a read-only view of one course's sync state.
type Record struct {
	CourseID     string
	Local        float64   // local high-water mark, 0..100
	LastSynced   float64   // last value the server acknowledged
	LastSyncedAt time.Time // zero until the first acknowledged write
	Pending      bool      // Local is ahead of LastSynced
	InFlight     bool
	Failures     int       // consecutive write failures
	NextAttempt  time.Time // failure gate; zero means open
}

// record is the internal mutable state. Guarded by Synchronizer.mu.
type record struct {
	local        float64
	lastSynced   float64
	lastSyncedAt time.Time
	inFlight     bool
	failures     int
	nextAttempt  time.Time
}

// Synchronizer reconciles local progress with the backend. Safe for
// concurrent use: playback events, the Run loop, and manual flushes all
// coordinate through its lock.
type Synchronizer struct {
	sessions SessionSource
	backend  Backend
	logger   *slog.Logger
	debounce time.Duration

	// nowFunc returns the current time. Tests override it to step the
	// failure gate without sleeping.
	nowFunc func() time.Time

	mu         sync.Mutex
	generation uint64
	records    map[string]*record

	kick chan struct{} // wakes the Run loop; capacity 1, extra kicks merge
}

// NewSynchronizer creates a Synchronizer. debounce is the quiet window that
// coalesces event bursts; zero selects the default of 2s.
func NewSynchronizer(sessions SessionSource, backend Backend, debounce time.Duration, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}

	if debounce <= 0 {
		debounce = defaultDebounce
	}

	return &Synchronizer{
		sessions: sessions,
		backend:  backend,
		logger:   logger,
		debounce: debounce,
		nowFunc:  time.Now,
		records:  make(map[string]*record),
		kick:     make(chan struct{}, 1),
	}
}

// Enroll starts tracking a course for the current user. Idempotent: a
// course already tracked keeps its sync bookkeeping untouched. Without an
// authenticated session there is nobody to track for and the call reports
// false.
func (s *Synchronizer) Enroll(courseID string) bool {
	snap := s.sessions.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureGenerationLocked(snap)

	if !snap.Authenticated() {
		s.logger.Debug("ignoring enroll without a session",
			slog.String("course_id", courseID),
		)

		return false
	}

	if _, ok := s.records[courseID]; ok {
		return true
	}

	s.records[courseID] = &record{}
	s.logger.Info("tracking course progress",
		slog.String("course_id", courseID),
	)

	return true
}

// PlaybackEvent records an observed playback position as a completion
// percentage. Non-blocking. Events without an authenticated session or for
// an untracked course are discarded silently; progress reporting must never
// disturb playback. The local value only ever rises.
func (s *Synchronizer) PlaybackEvent(courseID string, percent float64) {
	snap := s.sessions.Snapshot()

	s.mu.Lock()
	s.ensureGenerationLocked(snap)

	if !snap.Authenticated() {
		s.mu.Unlock()
		s.logger.Debug("discarding playback event without a session",
			slog.String("course_id", courseID),
		)

		return
	}

	rec, ok := s.records[courseID]
	if !ok {
		s.mu.Unlock()
		s.logger.Debug("discarding playback event for untracked course",
			slog.String("course_id", courseID),
		)

		return
	}

	if v := clamp(percent); v > rec.local {
		rec.local = v
	}

	pending := rec.local > rec.lastSynced
	s.mu.Unlock()

	if pending {
		s.signal()
	}
}

// Percentage returns the local completion percentage for a course and
// whether the course is tracked. Never blocks on the network.
func (s *Synchronizer) Percentage(courseID string) (float64, bool) {
	snap := s.sessions.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureGenerationLocked(snap)

	rec, ok := s.records[courseID]
	if !ok {
		return 0, false
	}

	return rec.local, true
}

// Records returns a snapshot of every tracked course, sorted by course ID.
func (s *Synchronizer) Records() []Record {
	snap := s.sessions.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureGenerationLocked(snap)

	out := make([]Record, 0, len(s.records))
	for id, rec := range s.records {
		out = append(out, Record{
			CourseID:     id,
			Local:        rec.local,
			LastSynced:   rec.lastSynced,
			LastSyncedAt: rec.lastSyncedAt,
			Pending:      rec.local > rec.lastSynced,
			InFlight:     rec.inFlight,
			Failures:     rec.failures,
			NextAttempt:  rec.nextAttempt,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })

	return out
}

// Hydrate seeds records from the server's progress collection: the local
// value becomes the higher of the two sides, the acknowledged value becomes
// the server's. Courses the server knows about are tracked afterwards.
func (s *Synchronizer) Hydrate(ctx context.Context) error {
	snap := s.sessions.Snapshot()
	if !snap.Authenticated() {
		return ErrNoSession
	}

	remote, err := s.backend.ListProgress(ctx)
	if err != nil {
		return fmt.Errorf("progress: hydrating from server: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureGenerationLocked(s.sessions.Snapshot())

	if s.generation != snap.Generation {
		return fmt.Errorf("progress: hydrate: %w", session.ErrSuperseded)
	}

	for _, p := range remote {
		rec, ok := s.records[p.CourseID]
		if !ok {
			rec = &record{}
			s.records[p.CourseID] = rec
		}

		if v := clamp(p.CompletionPercentage); v > rec.local {
			rec.local = v
		}

		rec.lastSynced = p.CompletionPercentage
		rec.lastSyncedAt = p.LastAccessed.Time
	}

	s.logger.Info("hydrated progress records",
		slog.Int("count", len(remote)),
	)

	return nil
}

// Run is the debounced reconcile loop. Each kick waits out the quiet
// window, so a burst of playback events becomes one write per course. On
// cancellation it makes a final flush attempt under a fresh short-lived
// context, then returns nil.
func (s *Synchronizer) Run(ctx context.Context) error {
	s.logger.Info("progress synchronizer started",
		slog.Duration("debounce", s.debounce),
	)

	for {
		select {
		case <-ctx.Done():
			return s.shutdownFlush()
		case <-s.kick:
		}

		timer := time.NewTimer(s.debounce)
		select {
		case <-ctx.Done():
			timer.Stop()

			return s.shutdownFlush()
		case <-timer.C:
		}

		// Errors are already gated per record; the loop keeps going.
		_ = s.dispatch(ctx, false)
	}
}

// Flush pushes every behind record immediately, ignoring the debounce
// window and any failure gates, and waits for the writes to finish. Errors
// for individual courses are joined.
func (s *Synchronizer) Flush(ctx context.Context) error {
	return s.dispatch(ctx, true)
}

// dispatch writes every eligible record's current local value. force skips
// the failure gates.
func (s *Synchronizer) dispatch(ctx context.Context, force bool) error {
	jobs, generation := s.takeEligible(force)

	var errs []error

	for _, j := range jobs {
		if err := s.write(ctx, j, generation); err != nil {
			errs = append(errs, fmt.Errorf("progress: syncing %s: %w", j.courseID, err))
		}
	}

	return errors.Join(errs...)
}

type job struct {
	courseID  string
	valueSent float64
}

// takeEligible marks behind records in-flight and returns their dispatch
// values along with the session generation they belong to.
func (s *Synchronizer) takeEligible(force bool) ([]job, uint64) {
	snap := s.sessions.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureGenerationLocked(snap)

	if !snap.Authenticated() {
		return nil, s.generation
	}

	now := s.nowFunc()

	var jobs []job

	for id, rec := range s.records {
		if rec.inFlight || rec.local <= rec.lastSynced {
			continue
		}

		if !force && now.Before(rec.nextAttempt) {
			continue
		}

		rec.inFlight = true
		jobs = append(jobs, job{courseID: id, valueSent: rec.local})
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].courseID < jobs[j].courseID })

	return jobs, s.generation
}

// write performs one upstream write and applies its outcome. A result
// arriving after the session generation moved on is discarded entirely.
func (s *Synchronizer) write(ctx context.Context, j job, generation uint64) error {
	err := s.backend.WriteProgress(ctx, j.courseID, j.valueSent)

	snap := s.sessions.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureGenerationLocked(snap)

	rec, ok := s.records[j.courseID]
	if !ok || s.generation != generation {
		s.logger.Debug("discarding progress write result from replaced session",
			slog.String("course_id", j.courseID),
		)

		return nil
	}

	rec.inFlight = false

	if err != nil {
		if ctx.Err() != nil {
			// Shutdown, not a server verdict; leave the gate alone.
			return err
		}

		rec.failures++
		gate := retryGate(rec.failures)
		rec.nextAttempt = s.nowFunc().Add(gate)

		s.logger.Warn("progress write failed, will retry",
			slog.String("course_id", j.courseID),
			slog.Float64("value", j.valueSent),
			slog.Int("failures", rec.failures),
			slog.Duration("retry_gate", gate),
			slog.String("error", err.Error()),
		)

		return err
	}

	if j.valueSent > rec.lastSynced {
		rec.lastSynced = j.valueSent
	}

	rec.lastSyncedAt = s.nowFunc()
	rec.failures = 0
	rec.nextAttempt = time.Time{}

	s.logger.Debug("progress write acknowledged",
		slog.String("course_id", j.courseID),
		slog.Float64("value", j.valueSent),
	)

	if rec.local > rec.lastSynced {
		// Events merged while this write was in flight; send the newer
		// value through the debounce loop.
		s.signal()
	}

	return nil
}

// shutdownFlush is the best-effort final flush when Run's context ends.
func (s *Synchronizer) shutdownFlush() error {
	s.mu.Lock()
	behind := 0

	for _, rec := range s.records {
		if rec.local > rec.lastSynced {
			behind++
		}
	}
	s.mu.Unlock()

	if behind == 0 {
		return nil
	}

	s.logger.Info("flushing pending progress before shutdown",
		slog.Int("records", behind),
	)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
	defer cancel()

	if err := s.dispatch(ctx, true); err != nil {
		s.logger.Warn("shutdown flush incomplete",
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// ensureGenerationLocked drops all records when the session they belong to
// is gone. Callers hold s.mu.
func (s *Synchronizer) ensureGenerationLocked(snap session.Snapshot) {
	if snap.Generation == s.generation {
		return
	}

	if len(s.records) > 0 {
		s.logger.Info("session changed, dropping local progress records",
			slog.Int("count", len(s.records)),
		)
	}

	s.records = make(map[string]*record)
	s.generation = snap.Generation
}

// signal wakes the Run loop without blocking.
func (s *Synchronizer) signal() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// retryGate returns the backoff gate for the given consecutive failure
// count.
func retryGate(failures int) time.Duration {
	gate := float64(retryBase) * math.Pow(retryFactor, float64(failures-1))
	if gate > float64(retryMax) {
		gate = float64(retryMax)
	}

	gate += gate * jitterFraction * (rand.Float64()*2 - 1) //nolint:gosec // jitter does not need crypto rand

	return time.Duration(gate)
}

// clamp bounds a percentage to 0..100. Malformed values (NaN) become 0.
func clamp(pct float64) float64 {
	switch {
	case math.IsNaN(pct):
		return 0
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}
