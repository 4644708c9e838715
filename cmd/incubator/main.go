// cmd/incubator/main.go
//
// This is the entry point for the incubator TUI.
// Run `incubator` from a project folder to assess it, or `incubator -review`
// to open the mentor dashboard.
//
// Flow:
// 1. Initialize the .incubator folder in the project directory
// 2. Load config.yaml, .env and INCUBATOR_* overrides
// 3. Launch the TUI

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/digital-seeds-4/preincubation/internal/catalog"
	"github.com/digital-seeds-4/preincubation/internal/config"
	"github.com/digital-seeds-4/preincubation/internal/tui"
)

func main() {
	projectDir := flag.String("project", "", "path to the project directory (defaults to cwd)")
	review := flag.Bool("review", false, "open the mentor dashboard")
	catalogFile := flag.String("catalog", "", "questionnaire YAML overriding the configured catalog")
	flag.Parse()

	// The project folder holds .incubator/ with the config, logs and data
	project := *projectDir
	if project == "" {
		cwd, err := os.Getwd()
		if err != nil {
			die("determine working directory: %v", err)
		}
		project = cwd
	}
	absoluteProject, err := filepath.Abs(project)
	if err != nil {
		die("resolve project dir: %v", err)
	}
	if err := config.InitIncubatorDir(absoluteProject); err != nil {
		die("init %s: %v", config.IncubatorDir, err)
	}
	cfg, err := config.NewConfig(absoluteProject)
	if err != nil {
		die("load config: %v", err)
	}

	var opts []tui.AppOption
	if path := strings.TrimSpace(*catalogFile); path != "" {
		cat, err := catalog.Load(path)
		if err != nil {
			die("load catalog: %v", err)
		}
		opts = append(opts, tui.WithCatalog(cat))
	}
	if *review {
		opts = append(opts, tui.WithReviewMode())
	}

	app, err := tui.NewApp(cfg, opts...)
	if err != nil {
		die("start: %v", err)
	}
	defer app.Close()

	// tea.NewProgram creates a new bubbletea application
	p := tea.NewProgram(
		app,
		tea.WithAltScreen(), // Use alternate screen buffer (like vim does)
	)

	// Run blocks until the user quits
	if _, err := p.Run(); err != nil {
		app.Close()
		die("run TUI: %v", err)
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
