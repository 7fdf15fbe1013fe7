// Package pipeline drives the backend-facing operations around a correction
// session: committing a finished draft, ingesting a new file, and requesting
// a retraining cycle. Each operation guards against a duplicate dispatch
// while an identical one is still in flight.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/lbourdet/veridoc/internal/api"
	"github.com/lbourdet/veridoc/internal/session"
)

var (
	// ErrSubmissionFailed wraps a rejected or failed validation commit.
	// The session keeps its draft so the operator can retry or cancel.
	ErrSubmissionFailed = errors.New("submission failed")
	// ErrSubmitInFlight rejects a second commit while one is outstanding.
	ErrSubmitInFlight = errors.New("a submission is already in flight")
)

// Validator is the backend call that commits a validation event.
type Validator interface {
	Validate(ctx context.Context, event api.ValidationEvent) error
}

// Refresher resynchronizes the local registry view after a state-changing
// operation succeeds.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Receipt reports a successful commit. RefreshErr is set when the commit
// itself succeeded but the follow-up registry refresh did not; the local
// list is stale, not the backend.
type Receipt struct {
	Event      api.ValidationEvent
	RefreshErr error
}

// Submitter commits completed correction sessions.
type Submitter struct {
	validator Validator
	refresher Refresher
	clock     func() time.Time

	mu       sync.Mutex
	inFlight bool
}

// SubmitterOption customizes a Submitter.
type SubmitterOption func(*Submitter)

// WithSubmitClock lets tests control elapsed-time measurement.
func WithSubmitClock(clock func() time.Time) SubmitterOption {
	return func(s *Submitter) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewSubmitter wires a submitter to the backend and the registry.
func NewSubmitter(validator Validator, refresher Refresher, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		validator: validator,
		refresher: refresher,
		clock:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Submit commits the session's draft as a validation event.
//
// On backend acceptance the session is closed and the registry refreshed,
// so the document's new validated status becomes visible. On any failure
// the session is left exactly as it was: the draft survives and a retry
// re-sends the same payload with a larger time_taken.
func (s *Submitter) Submit(ctx context.Context, sess *session.Session) (Receipt, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return Receipt{}, ErrSubmitInFlight
	}
	s.inFlight = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	doc, open := sess.Document()
	if !open {
		return Receipt{}, session.ErrNoSession
	}

	event := api.ValidationEvent{
		DocumentID:    doc.ID,
		CorrectedData: sess.Draft(),
		TimeTaken:     elapsedSeconds(sess.StartedAt(), s.clock()),
	}
	if err := s.validator.Validate(ctx, event); err != nil {
		return Receipt{}, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	sess.Close()
	receipt := Receipt{Event: event}
	if err := s.refresher.Refresh(ctx); err != nil {
		receipt.RefreshErr = err
	}
	return receipt, nil
}

// elapsedSeconds rounds the review duration to whole seconds, clamped at
// zero so clock skew can never produce a negative metric.
func elapsedSeconds(start, now time.Time) int {
	secs := int(math.Round(now.Sub(start).Seconds()))
	if secs < 0 {
		return 0
	}
	return secs
}
