package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lbourdet/veridoc/internal/document"
	"github.com/lbourdet/veridoc/internal/pipeline"
	"github.com/lbourdet/veridoc/internal/registry"
)

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

type stubLister struct {
	docs []document.Document
}

func (s *stubLister) ListDocuments(ctx context.Context) ([]document.Document, error) {
	return s.docs, nil
}

func newTestApp(t *testing.T, docs []document.Document) *App {
	t.Helper()
	reg := registry.New(&stubLister{docs: docs})
	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatalf("seed registry: %v", err)
	}
	app, err := NewApp(t.TempDir(), WithBackend(reg, nil, nil, nil))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	app.docList.SetSize(80, 40)
	app.rebuildDocList()
	return app
}

func TestOpenSelectedDocumentStartsReview(t *testing.T) {
	app := newTestApp(t, []document.Document{
		{ID: 1, Filename: "a.pdf", Status: document.StatusPending,
			Extraction: map[string]string{"name": "Jon"}},
	})
	model, _ := app.openSelectedDocument()
	app = model.(*App)
	if app.state != stateReview {
		t.Fatalf("expected review screen, got %d", app.state)
	}
	if app.review == nil {
		t.Fatalf("review view must be initialized")
	}
	if len(app.review.fields) != 1 || app.review.fields[0] != "name" {
		t.Fatalf("unexpected review fields %v", app.review.fields)
	}
	if got := app.review.inputs[0].Value(); got != "Jon" {
		t.Fatalf("input must be seeded from the draft, got %q", got)
	}
}

func TestOpenSelectedDocumentRejectsValidated(t *testing.T) {
	app := newTestApp(t, []document.Document{
		{ID: 2, Filename: "done.pdf", Status: document.StatusValidated},
	})
	model, _ := app.openSelectedDocument()
	app = model.(*App)
	if app.state != stateDocuments {
		t.Fatalf("validated document must not open a session")
	}
	if !app.statusErr {
		t.Fatalf("rejection must surface as an error status")
	}
}

func TestSubmitFailureKeepsReviewScreen(t *testing.T) {
	app := newTestApp(t, []document.Document{
		{ID: 1, Filename: "a.pdf", Status: document.StatusPending,
			Extraction: map[string]string{"name": "Jon"}},
	})
	model, _ := app.openSelectedDocument()
	app = model.(*App)

	model, _ = app.handleSubmitDone(submitDoneMsg{err: errors.New("network down")})
	app = model.(*App)
	if app.state != stateReview {
		t.Fatalf("failed submit must keep the review screen")
	}
	if app.review == nil {
		t.Fatalf("failed submit must keep the form")
	}
	if !app.statusErr {
		t.Fatalf("failure must surface in the status line")
	}
}

func TestSubmitSuccessReturnsToDocuments(t *testing.T) {
	app := newTestApp(t, []document.Document{
		{ID: 1, Filename: "a.pdf", Status: document.StatusPending,
			Extraction: map[string]string{"name": "Jon"}},
	})
	model, _ := app.openSelectedDocument()
	app = model.(*App)
	app.sess.Close() // the pipeline closes the session before the message arrives

	model, _ = app.handleSubmitDone(submitDoneMsg{receipt: pipeline.Receipt{}})
	app = model.(*App)
	if app.state != stateDocuments {
		t.Fatalf("successful submit must return to the document list")
	}
	if app.review != nil {
		t.Fatalf("successful submit must drop the form")
	}
}

func TestRetrainConfirmReturnsToOrigin(t *testing.T) {
	app := newTestApp(t, nil)
	app.retrainReturn = stateDocuments
	app.state = stateRetrainConfirm

	model, _ := app.Update(keyMsg("n"))
	app = model.(*App)
	if app.state != stateDocuments {
		t.Fatalf("declining the prompt must return to the origin screen")
	}
}
