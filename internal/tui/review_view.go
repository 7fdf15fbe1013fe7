package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lbourdet/veridoc/internal/document"
)

var (
	fieldLabelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0")).Width(20)
	fieldFocusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Width(20).Bold(true)
	reviewTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	artifactStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999")).Italic(true)
)

// reviewView renders the correction form for the open session: one text
// input per draft field, in sorted key order fixed at session open. Every
// keystroke is pushed straight into the session draft, so the session is
// always the single source of truth for what would be committed.
type reviewView struct {
	app    *App
	doc    document.Document
	fields []string
	inputs []textinput.Model
	focus  int
}

func newReviewView(app *App, doc document.Document) *reviewView {
	fields := app.sess.Fields()
	draft := app.sess.Draft()
	inputs := make([]textinput.Model, len(fields))
	for i, key := range fields {
		ti := textinput.New()
		ti.SetValue(draft[key])
		ti.CharLimit = 1024
		ti.Width = 48
		inputs[i] = ti
	}
	return &reviewView{app: app, doc: doc, fields: fields, inputs: inputs}
}

// Focus gives keyboard focus to the first field.
func (v *reviewView) Focus() tea.Cmd {
	if len(v.inputs) == 0 {
		return nil
	}
	v.focus = 0
	return v.inputs[0].Focus()
}

func (v *reviewView) Update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "up", "shift+tab":
			v.moveFocus(-1)
			return textinput.Blink
		case "down", "tab", "enter":
			v.moveFocus(1)
			return textinput.Blink
		}
	}
	if len(v.inputs) == 0 {
		return nil
	}

	var cmd tea.Cmd
	v.inputs[v.focus], cmd = v.inputs[v.focus].Update(msg)

	// Mirror the input into the session draft. The key set is fixed at
	// open time, so an edit here can only ever replace a value.
	key := v.fields[v.focus]
	if err := v.app.sess.EditField(key, v.inputs[v.focus].Value()); err != nil {
		v.app.setStatus(err.Error(), true)
	}
	return cmd
}

func (v *reviewView) moveFocus(delta int) {
	if len(v.inputs) == 0 {
		return
	}
	v.inputs[v.focus].Blur()
	v.focus = (v.focus + delta + len(v.inputs)) % len(v.inputs)
	v.inputs[v.focus].Focus()
}

func (v *reviewView) View() string {
	lines := []string{
		reviewTitleStyle.Render(fmt.Sprintf("Correcting #%d %s", v.doc.ID, v.doc.Filename)),
		artifactStyle.Render("source: " + v.app.client.ArtifactURL(v.doc.Filename)),
		"",
	}
	if len(v.fields) == 0 {
		lines = append(lines, "Extraction produced no fields. Submit to validate as-is, or esc to cancel.")
	}
	for i, key := range v.fields {
		label := fieldLabelStyle
		if i == v.focus {
			label = fieldFocusedStyle
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			label.Render(key), " ", v.inputs[i].View()))
	}
	lines = append(lines, "", helpStyle.Render("tab/↑↓: move · ctrl+s: validate · esc: cancel · ctrl+t: retrain"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
