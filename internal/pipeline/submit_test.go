package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lbourdet/veridoc/internal/api"
	"github.com/lbourdet/veridoc/internal/document"
	"github.com/lbourdet/veridoc/internal/session"
)

type fakeValidator struct {
	events  []api.ValidationEvent
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeValidator) Validate(ctx context.Context, event api.ValidationEvent) error {
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(ctx context.Context) error {
	f.calls++
	return f.err
}

func openSession(t *testing.T, startedAt time.Time) *session.Session {
	t.Helper()
	s := session.New(session.WithClock(func() time.Time { return startedAt }))
	doc := document.Document{
		ID:         1,
		Filename:   "a.pdf",
		Status:     document.StatusPending,
		Extraction: map[string]string{"name": "Jon"},
	}
	if err := s.Open(doc); err != nil {
		t.Fatalf("open session: %v", err)
	}
	return s
}

func TestSubmitCommitsDraftAndClosesSession(t *testing.T) {
	start := time.Unix(1730000000, 0).UTC()
	sess := openSession(t, start)
	if err := sess.EditField("name", "John"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	validator := &fakeValidator{}
	refresher := &fakeRefresher{}
	sub := NewSubmitter(validator, refresher,
		WithSubmitClock(func() time.Time { return start.Add(12400 * time.Millisecond) }))

	receipt, err := sub.Submit(context.Background(), sess)
	if err != nil {
		t.Fatalf("submit returned error: %v", err)
	}
	if len(validator.events) != 1 {
		t.Fatalf("expected one validation event, got %d", len(validator.events))
	}
	event := validator.events[0]
	if event.DocumentID != 1 {
		t.Fatalf("expected document 1, got %d", event.DocumentID)
	}
	if event.CorrectedData["name"] != "John" {
		t.Fatalf("expected edited draft in payload, got %v", event.CorrectedData)
	}
	if event.TimeTaken != 12 {
		t.Fatalf("expected 12s review time, got %d", event.TimeTaken)
	}
	if sess.State() != session.StateIdle {
		t.Fatalf("successful submit must close the session")
	}
	if refresher.calls != 1 {
		t.Fatalf("expected one registry refresh, got %d", refresher.calls)
	}
	if receipt.RefreshErr != nil {
		t.Fatalf("unexpected refresh error: %v", receipt.RefreshErr)
	}
}

func TestSubmitWithoutSession(t *testing.T) {
	sub := NewSubmitter(&fakeValidator{}, &fakeRefresher{})
	if _, err := sub.Submit(context.Background(), session.New()); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestSubmitWithoutEditsSendsSnapshotExactly(t *testing.T) {
	start := time.Unix(1730000000, 0).UTC()
	sess := openSession(t, start)
	validator := &fakeValidator{}
	sub := NewSubmitter(validator, &fakeRefresher{},
		WithSubmitClock(func() time.Time { return start.Add(time.Second) }))

	if _, err := sub.Submit(context.Background(), sess); err != nil {
		t.Fatalf("submit returned error: %v", err)
	}
	data := validator.events[0].CorrectedData
	if len(data) != 1 || data["name"] != "Jon" {
		t.Fatalf("expected untouched snapshot, got %v", data)
	}
}

func TestSubmitFailureKeepsDraftAndRetries(t *testing.T) {
	start := time.Unix(1730000000, 0).UTC()
	sess := openSession(t, start)
	if err := sess.EditField("name", "John"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	validator := &fakeValidator{err: errors.New("connection reset")}
	refresher := &fakeRefresher{}
	now := start.Add(5 * time.Second)
	sub := NewSubmitter(validator, refresher,
		WithSubmitClock(func() time.Time { return now }))

	_, err := sub.Submit(context.Background(), sess)
	if !errors.Is(err, ErrSubmissionFailed) {
		t.Fatalf("expected ErrSubmissionFailed, got %v", err)
	}
	if sess.State() != session.StateReviewing {
		t.Fatalf("failed submit must keep the session reviewing")
	}
	if got := sess.Draft()["name"]; got != "John" {
		t.Fatalf("failed submit must keep the draft, got %q", got)
	}
	if refresher.calls != 0 {
		t.Fatalf("failed submit must not refresh the registry")
	}

	// Retry later: same payload, larger time_taken.
	validator.err = nil
	now = start.Add(9 * time.Second)
	if _, err := sub.Submit(context.Background(), sess); err != nil {
		t.Fatalf("retry returned error: %v", err)
	}
	event := validator.events[0]
	if event.CorrectedData["name"] != "John" {
		t.Fatalf("retry must re-send the same draft, got %v", event.CorrectedData)
	}
	if event.TimeTaken != 9 {
		t.Fatalf("retry must report the longer elapsed time, got %d", event.TimeTaken)
	}
	if sess.State() != session.StateIdle {
		t.Fatalf("successful retry must close the session")
	}
}

func TestSubmitClampsNegativeElapsed(t *testing.T) {
	start := time.Unix(1730000000, 0).UTC()
	sess := openSession(t, start)
	validator := &fakeValidator{}
	sub := NewSubmitter(validator, &fakeRefresher{},
		WithSubmitClock(func() time.Time { return start.Add(-30 * time.Second) }))

	if _, err := sub.Submit(context.Background(), sess); err != nil {
		t.Fatalf("submit returned error: %v", err)
	}
	if got := validator.events[0].TimeTaken; got != 0 {
		t.Fatalf("clock skew must clamp to 0, got %d", got)
	}
}

func TestSubmitReportsRefreshFailure(t *testing.T) {
	start := time.Unix(1730000000, 0).UTC()
	sess := openSession(t, start)
	refresher := &fakeRefresher{err: errors.New("registry down")}
	sub := NewSubmitter(&fakeValidator{}, refresher,
		WithSubmitClock(func() time.Time { return start.Add(time.Second) }))

	receipt, err := sub.Submit(context.Background(), sess)
	if err != nil {
		t.Fatalf("commit succeeded, submit must not fail: %v", err)
	}
	if receipt.RefreshErr == nil {
		t.Fatalf("expected refresh failure in receipt")
	}
	if sess.State() != session.StateIdle {
		t.Fatalf("session must close once the backend accepted the commit")
	}
}

func TestSubmitRejectsDuplicateInFlight(t *testing.T) {
	start := time.Unix(1730000000, 0).UTC()
	sess := openSession(t, start)
	validator := &fakeValidator{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	sub := NewSubmitter(validator, &fakeRefresher{},
		WithSubmitClock(func() time.Time { return start.Add(time.Second) }))

	done := make(chan error, 1)
	go func() {
		_, err := sub.Submit(context.Background(), sess)
		done <- err
	}()
	<-validator.started

	if _, err := sub.Submit(context.Background(), sess); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}
	close(validator.release)
	if err := <-done; err != nil {
		t.Fatalf("first submit returned error: %v", err)
	}
}
