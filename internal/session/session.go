// Package session holds the single correction session: which document is
// under review and the working draft of its extracted fields.
//
// The session is a two-state machine, Idle or Reviewing. Opening a document
// seeds the draft from a copy of its extraction snapshot and fixes the field
// set; edits only ever replace values for keys that existed at open time.
// Both the document reference and the draft are replaced together on every
// transition, so edits from one document can never leak into another.
package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lbourdet/veridoc/internal/document"
)

// State names the session's position in its lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateReviewing State = "reviewing"
)

var (
	// ErrNoSession rejects edits, cancels, and commits while Idle.
	ErrNoSession = errors.New("no correction session open")
	// ErrSessionActive rejects a second Open while Reviewing. An implicit
	// cancel would silently discard the operator's edits, so the caller
	// must cancel or commit first.
	ErrSessionActive = errors.New("a correction session is already open")
	// ErrDocumentValidated rejects opening a document that has already
	// been committed.
	ErrDocumentValidated = errors.New("document is already validated")
	// ErrUnknownField rejects edits to keys absent from the draft. The
	// field set is fixed when the session opens.
	ErrUnknownField = errors.New("field not present in draft")
)

// Option customizes session construction.
type Option func(*Session)

// WithClock lets tests control the session start timestamp.
func WithClock(clock func() time.Time) Option {
	return func(s *Session) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// Session is the process-wide correction session. At most one document is
// under review at a time.
type Session struct {
	clock func() time.Time

	mu        sync.Mutex
	doc       document.Document
	open      bool
	draft     map[string]string
	startedAt time.Time
}

// New returns an Idle session.
func New(opts ...Option) *Session {
	s := &Session{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// State reports Idle or Reviewing.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return StateReviewing
	}
	return StateIdle
}

// Open starts reviewing doc. Valid only while Idle, and only for documents
// not yet validated. The draft is seeded from a copy of the extraction
// snapshot; an absent snapshot yields an empty draft.
func (s *Session) Open(doc document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return fmt.Errorf("%w (document %d)", ErrSessionActive, s.doc.ID)
	}
	if doc.Validated() {
		return fmt.Errorf("%w: document %d", ErrDocumentValidated, doc.ID)
	}
	s.doc = doc
	s.draft = doc.CloneExtraction()
	s.startedAt = s.clock()
	s.open = true
	return nil
}

// EditField replaces the draft value for key. The key must have existed at
// open time; other keys are left untouched.
func (s *Session) EditField(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ErrNoSession
	}
	if _, ok := s.draft[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	s.draft[key] = value
	return nil
}

// Cancel discards the draft and returns to Idle. Local only; no backend
// call is made and the document record is unchanged.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ErrNoSession
	}
	s.reset()
	return nil
}

// Close tears the session down after a successful commit. Same local effect
// as Cancel; a separate name keeps commit teardown distinct in call sites.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *Session) reset() {
	s.doc = document.Document{}
	s.draft = nil
	s.startedAt = time.Time{}
	s.open = false
}

// Document returns the document under review, if any.
func (s *Session) Document() (document.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc, s.open
}

// Draft returns a copy of the current draft. Nil while Idle.
func (s *Session) Draft() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil
	}
	out := make(map[string]string, len(s.draft))
	for k, v := range s.draft {
		out[k] = v
	}
	return out
}

// Fields returns the draft's key set in sorted order, for a stable form
// layout. Nil while Idle.
func (s *Session) Fields() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil
	}
	keys := make([]string, 0, len(s.draft))
	for k := range s.draft {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StartedAt returns the session open timestamp. Zero while Idle.
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}
