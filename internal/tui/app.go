// internal/tui/app.go
//
// This is the main TUI for veridoc. It uses bubbletea, which follows The
// Elm Architecture: the App model holds all state, Update consumes
// messages, View renders. Backend requests run as tea.Cmds and come back
// as typed messages, so the model itself is only ever touched from the
// update loop.

package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lbourdet/veridoc/internal/api"
	"github.com/lbourdet/veridoc/internal/config"
	"github.com/lbourdet/veridoc/internal/document"
	"github.com/lbourdet/veridoc/internal/logging"
	"github.com/lbourdet/veridoc/internal/pipeline"
	"github.com/lbourdet/veridoc/internal/registry"
	"github.com/lbourdet/veridoc/internal/session"
)

// appState represents which "screen" we're on
type appState int

const (
	stateDocuments      appState = iota // Document list (the home screen)
	stateReview                         // Correction form for the open session
	stateUploadPrompt                   // Path prompt for ingesting a new file
	stateRetrainConfirm                 // Confirmation gate before retraining
)

var (
	statusOKStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	statusErrStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	statusBusyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))
	helpStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	promptTitle     = lipgloss.NewStyle().Bold(true)
)

// Messages produced by backend-facing commands.

type documentsRefreshedMsg struct {
	err error
}

type submitDoneMsg struct {
	receipt pipeline.Receipt
	err     error
}

type ingestDoneMsg struct {
	receipt pipeline.IngestReceipt
	err     error
}

type retrainDoneMsg struct {
	message string
	err     error
}

// AppOption customizes App construction for tests.
type AppOption func(*App)

// WithBackend replaces the pipeline collaborators, letting tests inject
// fakes instead of a live HTTP client.
func WithBackend(reg *registry.Registry, sub *pipeline.Submitter, ing *pipeline.Ingestor, ret *pipeline.Retrainer) AppOption {
	return func(a *App) {
		if reg != nil {
			a.registry = reg
		}
		if sub != nil {
			a.submitter = sub
		}
		if ing != nil {
			a.ingestor = ing
		}
		if ret != nil {
			a.retrainer = ret
		}
	}
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	state  appState
	config *config.Config
	logger *logging.Logger

	client    *api.Client
	registry  *registry.Registry
	sess      *session.Session
	submitter *pipeline.Submitter
	ingestor  *pipeline.Ingestor
	retrainer *pipeline.Retrainer

	// UI components
	docList     list.Model
	review      *reviewView
	uploadInput textinput.Model
	spin        spinner.Model

	statusMsg string
	statusErr bool
	busy      bool

	// Which screen the retrain confirmation should return to
	retrainReturn appState

	width  int
	height int
}

// docItem implements list.Item for one registry document.
type docItem struct {
	doc document.Document
}

func (i docItem) Title() string {
	marker := "○"
	if i.doc.Validated() {
		marker = "✓"
	}
	return fmt.Sprintf("%s #%d %s", marker, i.doc.ID, i.doc.Filename)
}

func (i docItem) Description() string {
	parts := []string{string(i.doc.Status)}
	if !i.doc.UploadDate.IsZero() {
		parts = append(parts, i.doc.UploadDate.Format("2006-01-02 15:04"))
	}
	parts = append(parts, fmt.Sprintf("%d extracted fields", len(i.doc.Extraction)))
	return strings.Join(parts, " · ")
}

func (i docItem) FilterValue() string { return i.doc.Filename }

// NewApp creates the application model and its backend collaborators.
func NewApp(workDir string, opts ...AppOption) (*App, error) {
	cfg, err := config.New(workDir)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(workDir)
	if err != nil {
		return nil, err
	}

	client := api.New(cfg.APIURL(), api.WithLogger(logger))
	reg := registry.New(client)

	docList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	docList.Title = "◆ VERIDOC — " + cfg.APIURL()
	docList.SetShowStatusBar(false)
	docList.SetFilteringEnabled(false)

	uploadInput := textinput.New()
	uploadInput.Placeholder = "path/to/document.pdf"
	uploadInput.CharLimit = 512

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))

	app := &App{
		state:       stateDocuments,
		config:      cfg,
		logger:      logger,
		client:      client,
		registry:    reg,
		sess:        session.New(),
		submitter:   pipeline.NewSubmitter(client, reg),
		ingestor:    pipeline.NewIngestor(client, reg),
		retrainer:   pipeline.NewRetrainer(client),
		docList:     docList,
		uploadInput: uploadInput,
		spin:        spin,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	return app, nil
}

func (a *App) Init() tea.Cmd {
	a.busy = true
	a.setStatus("Loading documents...", false)
	return tea.Batch(a.refreshDocuments(), a.spin.Tick)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.docList.SetSize(max(0, msg.Width-4), max(0, msg.Height-8))
		return a, nil

	case spinner.TickMsg:
		if !a.busy {
			return a, nil
		}
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case documentsRefreshedMsg:
		a.busy = false
		if msg.err != nil {
			a.setStatus(fmt.Sprintf("Registry unavailable: %v", msg.err), true)
			a.logger.Printf("tui: refresh failed: %v", msg.err)
		} else {
			a.rebuildDocList()
			a.setStatus(fmt.Sprintf("%d documents", len(a.registry.Documents())), false)
		}
		return a, nil

	case submitDoneMsg:
		return a.handleSubmitDone(msg)

	case ingestDoneMsg:
		return a.handleIngestDone(msg)

	case retrainDoneMsg:
		a.busy = false
		a.state = a.retrainReturn
		if msg.err != nil {
			a.setStatus(fmt.Sprintf("Retraining failed: %v", msg.err), true)
			a.logger.Printf("tui: retrain failed: %v", msg.err)
		} else {
			a.setStatus(msg.message, false)
		}
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, a.updateFocused(msg)
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// ctrl+c always quits; other keys depend on the screen
	if key == "ctrl+c" {
		return a, tea.Quit
	}
	if key == "ctrl+t" && (a.state == stateDocuments || a.state == stateReview) {
		a.retrainReturn = a.state
		a.state = stateRetrainConfirm
		return a, nil
	}

	switch a.state {
	case stateDocuments:
		switch key {
		case "q":
			return a, tea.Quit
		case "r":
			a.busy = true
			a.setStatus("Refreshing...", false)
			return a, tea.Batch(a.refreshDocuments(), a.spin.Tick)
		case "u":
			a.state = stateUploadPrompt
			a.uploadInput.SetValue("")
			a.uploadInput.Focus()
			return a, textinput.Blink
		case "enter":
			return a.openSelectedDocument()
		}

	case stateReview:
		if a.busy {
			return a, nil
		}
		switch key {
		case "esc":
			if err := a.sess.Cancel(); err == nil {
				a.review = nil
				a.state = stateDocuments
				a.setStatus("Review cancelled, draft discarded", false)
			}
			return a, nil
		case "ctrl+s":
			a.busy = true
			a.setStatus("Submitting...", false)
			return a, tea.Batch(a.submitSession(), a.spin.Tick)
		}

	case stateUploadPrompt:
		switch key {
		case "esc":
			a.state = stateDocuments
			a.uploadInput.Blur()
			return a, nil
		case "enter":
			path := strings.TrimSpace(a.uploadInput.Value())
			if path == "" {
				return a, nil
			}
			a.uploadInput.Blur()
			a.state = stateDocuments
			a.busy = true
			a.setStatus(fmt.Sprintf("Uploading %s...", path), false)
			return a, tea.Batch(a.ingestFile(path), a.spin.Tick)
		}

	case stateRetrainConfirm:
		switch key {
		case "y", "Y":
			a.state = a.retrainReturn
			a.busy = true
			a.setStatus("Retraining requested...", false)
			return a, tea.Batch(a.requestRetrain(), a.spin.Tick)
		case "n", "N", "esc":
			a.state = a.retrainReturn
			a.setStatus("Retraining cancelled", false)
			return a, nil
		}
		return a, nil
	}

	return a, a.updateFocused(msg)
}

// updateFocused forwards a message to whichever component owns the focus.
func (a *App) updateFocused(msg tea.Msg) tea.Cmd {
	switch a.state {
	case stateDocuments:
		var cmd tea.Cmd
		a.docList, cmd = a.docList.Update(msg)
		return cmd
	case stateReview:
		// Frozen while a submit is outstanding so late keystrokes cannot
		// race the pipeline's session teardown.
		if a.review != nil && !a.busy {
			return a.review.Update(msg)
		}
	case stateUploadPrompt:
		var cmd tea.Cmd
		a.uploadInput, cmd = a.uploadInput.Update(msg)
		return cmd
	}
	return nil
}

func (a *App) openSelectedDocument() (tea.Model, tea.Cmd) {
	item, ok := a.docList.SelectedItem().(docItem)
	if !ok {
		return a, nil
	}
	if err := a.sess.Open(item.doc); err != nil {
		a.setStatus(err.Error(), true)
		return a, nil
	}
	a.review = newReviewView(a, item.doc)
	a.state = stateReview
	a.setStatus(fmt.Sprintf("Reviewing #%d %s", item.doc.ID, item.doc.Filename), false)
	a.logger.Printf("tui: opened session for document %d", item.doc.ID)
	return a, a.review.Focus()
}

func (a *App) handleSubmitDone(msg submitDoneMsg) (tea.Model, tea.Cmd) {
	a.busy = false
	if msg.err != nil {
		// The session keeps its draft; the operator may retry or cancel.
		a.setStatus(fmt.Sprintf("Submission failed, draft kept: %v", msg.err), true)
		a.logger.Printf("tui: submit failed: %v", msg.err)
		return a, nil
	}
	a.review = nil
	a.state = stateDocuments
	a.rebuildDocList()
	if msg.receipt.RefreshErr != nil {
		a.setStatus(fmt.Sprintf("Document %d validated; list may be stale: %v",
			msg.receipt.Event.DocumentID, msg.receipt.RefreshErr), true)
	} else {
		a.setStatus(fmt.Sprintf("Document %d validated (%ds review)",
			msg.receipt.Event.DocumentID, msg.receipt.Event.TimeTaken), false)
	}
	return a, nil
}

func (a *App) handleIngestDone(msg ingestDoneMsg) (tea.Model, tea.Cmd) {
	a.busy = false
	if msg.err != nil {
		a.setStatus(fmt.Sprintf("Ingestion failed: %v", msg.err), true)
		a.logger.Printf("tui: ingest failed: %v", msg.err)
		return a, nil
	}
	a.rebuildDocList()
	if msg.receipt.RefreshErr != nil {
		a.setStatus(fmt.Sprintf("Uploaded as #%d; list may be stale: %v",
			msg.receipt.Ack.ID, msg.receipt.RefreshErr), true)
	} else {
		a.setStatus(fmt.Sprintf("Uploaded as #%d, pending review", msg.receipt.Ack.ID), false)
	}
	return a, nil
}

func (a *App) rebuildDocList() {
	docs := a.registry.Documents()
	items := make([]list.Item, len(docs))
	for i, d := range docs {
		items[i] = docItem{doc: d}
	}
	a.docList.SetItems(items)
}

func (a *App) setStatus(msg string, isErr bool) {
	a.statusMsg = msg
	a.statusErr = isErr
}

// Backend-facing commands. Each runs off the update loop and reports back
// through a typed message.

func (a *App) refreshDocuments() tea.Cmd {
	return func() tea.Msg {
		return documentsRefreshedMsg{err: a.registry.Refresh(context.Background())}
	}
}

func (a *App) submitSession() tea.Cmd {
	return func() tea.Msg {
		receipt, err := a.submitter.Submit(context.Background(), a.sess)
		return submitDoneMsg{receipt: receipt, err: err}
	}
}

func (a *App) ingestFile(path string) tea.Cmd {
	return func() tea.Msg {
		receipt, err := a.ingestor.Ingest(context.Background(), path)
		return ingestDoneMsg{receipt: receipt, err: err}
	}
}

func (a *App) requestRetrain() tea.Cmd {
	return func() tea.Msg {
		message, err := a.retrainer.Retrain(context.Background())
		return retrainDoneMsg{message: message, err: err}
	}
}

func (a *App) View() string {
	var body string
	switch a.state {
	case stateReview:
		if a.review != nil {
			body = a.review.View()
		}
	case stateUploadPrompt:
		body = lipgloss.JoinVertical(lipgloss.Left,
			promptTitle.Render("Ingest a new document"),
			"",
			a.uploadInput.View(),
			"",
			helpStyle.Render("enter: upload · esc: back"),
		)
	case stateRetrainConfirm:
		body = lipgloss.JoinVertical(lipgloss.Left,
			promptTitle.Render("Launch a retraining cycle?"),
			"",
			"The backend will retrain on all validated corrections.",
			"",
			helpStyle.Render("y: confirm · n/esc: cancel"),
		)
	default:
		body = lipgloss.JoinVertical(lipgloss.Left,
			a.docList.View(),
			helpStyle.Render("enter: review · u: upload · r: refresh · ctrl+t: retrain · q: quit"),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, "", a.renderStatusLine())
}

func (a *App) renderStatusLine() string {
	if a.busy {
		return statusBusyStyle.Render(a.spin.View() + " " + a.statusMsg)
	}
	if a.statusMsg == "" {
		return ""
	}
	if a.statusErr {
		return statusErrStyle.Render("✗ " + a.statusMsg)
	}
	return statusOKStyle.Render("· " + a.statusMsg)
}
