package wizard

import (
	"context"
	"errors"

	"github.com/agrifair/agriwizard/internal/logger"
)

var errNoRecommender = errors.New("no recommender configured")

// SubmitAsync validates the draft, marks the session in flight and dispatches
// one request on a new goroutine. It returns the in-flight snapshot and a
// channel that yields the snapshot after the response has been applied (or
// discarded) and is then closed.
//
// ctx bounds the request. Reset and Close cancel it as well; a response that
// arrives after either is discarded.
func (s *Session) SubmitAsync(ctx context.Context) (Snapshot, <-chan Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, nil, ErrClosed
	}
	if s.status == StatusInFlight {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		logger.Debug("wizard %s: submit ignored, already in flight", s.id)
		return snap, nil, ErrBusy
	}
	if s.step != StepNutrients {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, nil, ErrTransitionUnavailable
	}
	if missing := s.draft.Missing(StepLocation); len(missing) > 0 {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, nil, &IncompleteError{Fields: missing}
	}

	req := NewRequest(s.draft)
	if _, err := ParseDraft(s.draft); err != nil {
		// Forwarded unchanged; the service rejects malformed numbers.
		logger.Warn("wizard %s: submitting unparsed input: %v", s.id, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.inflight++
	gen := s.inflight
	s.cancel = cancel
	s.status = StatusInFlight
	s.lastErr = ""
	s.rec = nil
	rec := s.recommender
	snap, obs := s.commitLocked()
	s.mu.Unlock()

	logger.Info("wizard %s: submitting analysis for %q", s.id, req.Location)
	s.notify(snap, obs)

	done := make(chan Snapshot, 1)
	go func() {
		defer close(done)
		var (
			result Recommendation
			err    error
		)
		if rec == nil {
			err = errNoRecommender
		} else {
			result, err = rec.Recommend(runCtx, req)
		}
		done <- s.finishSubmit(gen, result, err)
	}()

	return snap, done, nil
}

// Submit runs the submission and blocks until the response has been applied.
// Remote failures are not returned: they leave the session failed with
// LastError set. The error is non-nil only when the submission could not start.
func (s *Session) Submit(ctx context.Context) (Snapshot, error) {
	snap, done, err := s.SubmitAsync(ctx)
	if err != nil {
		return snap, err
	}
	if final, ok := <-done; ok {
		return final, nil
	}
	return s.Snapshot(), nil
}

func (s *Session) finishSubmit(gen uint64, result Recommendation, err error) Snapshot {
	s.mu.Lock()
	if s.closed || gen != s.inflight || s.status != StatusInFlight {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		logger.Debug("wizard %s: discarding stale submission result", s.id)
		return snap
	}

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	if err != nil {
		s.status = StatusFailed
		s.lastErr = FailureMessage
		logger.Warn("wizard %s: recommendation failed: %v", s.id, err)
	} else {
		r := result
		s.rec = &r
		s.status = StatusSucceeded
		s.step = StepResults
		logger.Info("wizard %s: recommended crop=%s fertilizer=%s", s.id, r.RecommendedCrop, r.Fertilizer)
	}

	snap, obs := s.commitLocked()
	s.mu.Unlock()

	s.notify(snap, obs)
	return snap
}
