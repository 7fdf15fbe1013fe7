// cmd/veridoc/main.go
//
// Entry point for the veridoc correction client. Running `veridoc` in any
// directory initializes a .veridoc/ folder there (config + logs) and opens
// the TUI against the configured backend.

package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lbourdet/veridoc/internal/config"
	"github.com/lbourdet/veridoc/internal/tui"
)

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
		os.Exit(1)
	}

	if err := config.InitVeridocDir(cwd); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing .veridoc directory: %v\n", err)
		os.Exit(1)
	}

	app, err := tui.NewApp(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting veridoc: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
