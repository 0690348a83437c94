// Package wizard implements the crop analysis wizard: a session-scoped state
// machine over three input steps and a results step, the draft it edits and
// the submission of that draft to a recommendation service.
//
// Every transition returns a Snapshot and delivers it to subscribed
// observers, so renderers never read mutable state directly.
package wizard

import (
	"context"
	"fmt"
	"sync"

	"github.com/agrifair/agriwizard/internal/i18n"
	"github.com/agrifair/agriwizard/internal/logger"
	"github.com/oklog/ulid/v2"
)

// Observer receives snapshots in increasing Version order.
type Observer func(Snapshot)

// Option configures a Session.
type Option func(*Session)

// WithID sets the session id carried in snapshots.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithLanguage sets the initial language. Unsupported values are ignored.
func WithLanguage(lang i18n.Language) Option {
	return func(s *Session) {
		if lang.Valid() {
			s.initialLang = lang
		}
	}
}

// WithDraft prefills the draft, for example with the inputs of a previous
// run. Invalid fields keep their defaults. Reset still clears everything.
func WithDraft(d Draft) Option {
	return func(s *Session) {
		seed := d.Sanitized()
		s.seed = &seed
	}
}

// Session owns one wizard run. It is safe for concurrent use; the submission
// goroutine and UI events are serialized by mu.
type Session struct {
	mu          sync.Mutex
	id          string
	recommender Recommender
	initialLang i18n.Language

	version  uint64
	step     Step
	lang     i18n.Language
	status   Status
	lastErr  string
	rec      *Recommendation
	draft    Draft
	seed     *Draft
	closed   bool
	cancel   context.CancelFunc // cancels the in-flight submission
	inflight uint64             // generation of the in-flight submission

	observers map[int]Observer
	nextObs   int

	notifyMu      sync.Mutex
	lastDelivered uint64
}

// NewSession creates a session at step 1 with a default draft. Without
// WithID the session gets a fresh ULID.
func NewSession(rec Recommender, opts ...Option) *Session {
	s := &Session{
		recommender: rec,
		initialLang: i18n.English,
		observers:   make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = ulid.Make().String()
	}
	s.resetLocked()
	if s.seed != nil {
		s.draft = *s.seed
	}
	s.version = 1
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Subscribe registers an observer and returns a function that removes it.
// The observer is not called with the current snapshot; use Snapshot for that.
func (s *Session) Subscribe(fn Observer) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID: s.id,
		Version:   s.version,
		Step:      s.step,
		Language:  s.lang,
		Status:    s.status,
		LastError: s.lastErr,
		Draft:     s.draft,
	}
	if s.rec != nil {
		rec := *s.rec
		snap.Recommendation = &rec
	}
	return snap
}

// commitLocked bumps the version and returns the snapshot plus the observers
// to notify once mu is released.
func (s *Session) commitLocked() (Snapshot, []Observer) {
	s.version++
	snap := s.snapshotLocked()
	obs := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		obs = append(obs, fn)
	}
	return snap, obs
}

// notify delivers snap unless a newer snapshot was already delivered.
func (s *Session) notify(snap Snapshot, obs []Observer) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if snap.Version <= s.lastDelivered {
		return
	}
	s.lastDelivered = snap.Version
	for _, fn := range obs {
		fn(snap)
	}
}

// transition runs fn under the lock and, if it succeeds, commits and notifies.
func (s *Session) transition(name string, fn func() error) (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	if err := fn(); err != nil {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		logger.Debug("wizard %s: %s rejected at step %d: %v", s.id, name, snap.Step, err)
		return snap, err
	}
	snap, obs := s.commitLocked()
	s.mu.Unlock()

	logger.Debug("wizard %s: %s -> step=%d status=%s v%d", s.id, name, snap.Step, snap.Status, snap.Version)
	s.notify(snap, obs)
	return snap, nil
}

// SetField stores value in field. Only fields shown on the current step are
// editable, and nothing is editable while a submission is in flight or the
// result is shown.
func (s *Session) SetField(field Field, value any) (Snapshot, error) {
	return s.transition("set "+string(field), func() error {
		if s.status == StatusInFlight || s.step == StepResults {
			return ErrLocked
		}
		fieldStep := field.Step()
		if fieldStep == 0 {
			return fmt.Errorf("%w: %q", ErrUnknownField, field)
		}
		if fieldStep != s.step {
			return fmt.Errorf("%w: %s belongs to step %d", ErrFieldNotOnStep, field, fieldStep)
		}
		return s.draft.Set(field, value)
	})
}

// Advance moves from step 1 to 2 or 2 to 3. At step 3 it starts the
// submission and returns the in-flight snapshot without waiting for the
// result; use Submit to block until the response arrives.
func (s *Session) Advance(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	step := s.step
	s.mu.Unlock()

	if step == StepNutrients {
		snap, _, err := s.SubmitAsync(ctx)
		return snap, err
	}

	return s.transition("advance", func() error {
		switch s.step {
		case StepLocation:
			if missing := s.draft.Missing(StepLocation); len(missing) > 0 {
				return &IncompleteError{Fields: missing}
			}
			s.step = StepSoil
		case StepSoil:
			s.step = StepNutrients
		default:
			// step changed between the read above and the lock
			return ErrTransitionUnavailable
		}
		return nil
	})
}

// Retreat moves back one input step. It is unavailable at step 1, on the
// results step and while a submission is in flight.
func (s *Session) Retreat() (Snapshot, error) {
	return s.transition("retreat", func() error {
		if s.status == StatusInFlight {
			return ErrBusy
		}
		if s.step <= StepLocation || s.step >= StepResults {
			return ErrTransitionUnavailable
		}
		s.step--
		return nil
	})
}

// Restart leaves the results step and returns to step 1 with no
// recommendation and no error. The draft is kept so the next analysis starts
// from the previous inputs.
func (s *Session) Restart() (Snapshot, error) {
	return s.transition("restart", func() error {
		if s.step != StepResults {
			return ErrTransitionUnavailable
		}
		s.step = StepLocation
		s.status = StatusIdle
		s.lastErr = ""
		s.rec = nil
		return nil
	})
}

// ToggleLanguage switches between English and Hindi. It is available in every
// state and changes nothing else.
func (s *Session) ToggleLanguage() (Snapshot, error) {
	return s.transition("toggle language", func() error {
		s.lang = s.lang.Toggle()
		return nil
	})
}

// Reset returns the session to its initial lifecycle state: step 1, default
// draft, initial language. An in-flight submission is cancelled and its
// result discarded.
func (s *Session) Reset() (Snapshot, error) {
	return s.transition("reset", func() error {
		s.resetLocked()
		return nil
	})
}

// Close cancels any in-flight submission and drops all observers. Further
// operations return ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.abortLocked()
	s.closed = true
	s.observers = make(map[int]Observer)
	logger.Debug("wizard %s: closed", s.id)
}

func (s *Session) resetLocked() {
	s.abortLocked()
	s.step = StepLocation
	s.lang = s.initialLang
	s.status = StatusIdle
	s.lastErr = ""
	s.rec = nil
	s.draft = NewDraft()
}

// abortLocked cancels the in-flight request and invalidates its generation so
// a late response is discarded.
func (s *Session) abortLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.inflight++
}
