// internal/tui/app.go
//
// This is the main TUI (Terminal User Interface) for the incubator.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The flow is: User Input -> Message -> Update -> New Model -> View -> Screen

package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/digital-seeds-4/preincubation/internal/assessment"
	"github.com/digital-seeds-4/preincubation/internal/catalog"
	"github.com/digital-seeds-4/preincubation/internal/config"
	"github.com/digital-seeds-4/preincubation/internal/dossier"
	"github.com/digital-seeds-4/preincubation/internal/evaluation"
	"github.com/digital-seeds-4/preincubation/internal/logbook"
	"github.com/digital-seeds-4/preincubation/internal/store"
)

// appState represents which "screen" we're on
type appState int

const (
	stateMainMenu   appState = iota // Main menu
	stateAssessment                 // Identity form, questions and results
	stateReview                     // Mentor dashboard
)

const (
	menuStart  = "Nouvelle évaluation"
	menuResume = "Reprendre l'évaluation"
	menuReview = "Tableau de bord mentor"
	menuExit   = "Quitter"

	logPanelLines = 6
)

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithStore injects the submission store instead of opening the configured one.
func WithStore(st store.Store) AppOption {
	return func(a *App) {
		if st != nil {
			a.store = st
		}
	}
}

// WithCatalog overrides the configured questionnaire.
func WithCatalog(cat *catalog.Catalog) AppOption {
	return func(a *App) {
		if cat != nil {
			a.catalog = cat
		}
	}
}

// WithClock injects a deterministic clock into every component.
func WithClock(clock func() time.Time) AppOption {
	return func(a *App) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// WithIDGenerator overrides submission id generation.
func WithIDGenerator(next func() string) AppOption {
	return func(a *App) {
		if next != nil {
			a.newID = next
		}
	}
}

// WithReviewMode opens the mentor dashboard instead of the main menu.
func WithReviewMode() AppOption {
	return func(a *App) {
		a.startInReview = true
	}
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	state      appState
	config     *config.Config
	catalog    *catalog.Catalog
	store      store.Store
	ownsStore  bool
	logbook    *logbook.Logbook
	session    *assessment.Session
	evaluation *evaluation.Workflow
	exporter   *dossier.Exporter

	clock         func() time.Time
	newID         func() string
	startInReview bool

	game   *gameView
	review *reviewView

	// UI components
	mainMenu  list.Model // The main menu list
	statusMsg string     // Status message to display

	// Window size (we get this from bubbletea)
	width  int
	height int
}

// menuItem implements list.Item interface for our menu items
type menuItem struct {
	title string
	desc  string
}

func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }
func (i menuItem) FilterValue() string { return i.title }

// NewApp creates a new App for the configured project.
func NewApp(cfg *config.Config, opts ...AppOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("tui: config is required")
	}
	app := &App{
		state:  stateMainMenu,
		config: cfg,
		clock:  time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}

	if app.catalog == nil {
		cat, err := catalog.LoadOrDefault(cfg.CatalogPath())
		if err != nil {
			return nil, err
		}
		app.catalog = cat
	}
	lb, err := logbook.New(cfg.JourneyLogPath())
	if err == nil {
		app.logbook = lb
	}
	if app.store == nil {
		st, err := store.Open(context.Background(), cfg.StoreOptions())
		if err != nil {
			return nil, err
		}
		app.store = st
		app.ownsStore = true
	}

	session, err := assessment.NewSession(app.catalog,
		assessment.WithStore(app.store),
		assessment.WithLogbook(app.logbook),
		assessment.WithClock(app.clock),
		assessment.WithIDGenerator(app.newID),
	)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.session = session
	wf, err := evaluation.New(app.store, evaluation.WithClock(app.clock), evaluation.WithLogbook(app.logbook))
	if err != nil {
		app.Close()
		return nil, err
	}
	app.evaluation = wf
	exporter, err := dossier.New(app.catalog, dossier.WithClock(app.clock))
	if err != nil {
		app.Close()
		return nil, err
	}
	app.exporter = exporter

	mainMenu := list.New(buildMainMenu(session), list.NewDefaultDelegate(), 0, 0)
	mainMenu.Title = "🌱 PRÉ-INCUBATION"
	mainMenu.SetShowStatusBar(false)
	mainMenu.SetFilteringEnabled(false)
	app.mainMenu = mainMenu

	app.logInfo("Session opened · catalog %q (%d phases)", app.catalog.Name, app.catalog.PhaseCount())
	return app, nil
}

// Close releases the store when the app opened it.
func (a *App) Close() error {
	if a.ownsStore && a.store != nil {
		return a.store.Close()
	}
	return nil
}

// buildMainMenu creates the main menu items based on the session state
func buildMainMenu(session *assessment.Session) []list.Item {
	items := []list.Item{}

	// Offer to resume an assessment left half way
	if session != nil && session.State().Stage == assessment.StageInProgress {
		state := session.State()
		items = append(items, menuItem{
			title: menuResume,
			desc:  fmt.Sprintf("%s · %d%% complété", state.ProjectName, session.Progress()),
		})
	}

	items = append(items,
		menuItem{title: menuStart, desc: "Évaluer la maturité d'un projet"},
		menuItem{title: menuReview, desc: "Consulter et évaluer les soumissions"},
		menuItem{title: menuExit, desc: "Fermer l'application"},
	)
	return items
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
}

func (a *App) logWarn(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Warn(format, args...)
}

func (a *App) logError(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Error(format, args...)
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	if a.startInReview {
		return a.openReview()
	}
	return nil
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.mainMenu.SetSize(max(0, msg.Width-6), max(0, msg.Height-10))
		return a, nil

	case reviewLoadedMsg, evaluationDoneMsg:
		if a.review != nil {
			return a, a.review.Update(msg)
		}
		return a, nil

	case exportDoneMsg:
		if msg.err != nil {
			a.statusMsg = fmt.Sprintf("Export impossible: %v", msg.err)
			a.logError("Dossier export failed: %v", msg.err)
			return a, nil
		}
		a.statusMsg = fmt.Sprintf("Dossier exporté: %s", msg.path)
		a.logInfo("Dossier exported to %s", msg.path)
		return a, nil

	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" {
			return a, tea.Quit
		}
		if a.capturesInput() {
			break
		}
		switch key {
		case "q":
			if a.state == stateMainMenu {
				return a, tea.Quit
			}
		case "esc":
			if a.state != stateMainMenu {
				return a.returnToMainMenu()
			}
		case "enter":
			if a.state == stateMainMenu {
				return a.handleMainMenuSelection()
			}
		}
	}

	var cmds []tea.Cmd
	switch a.state {
	case stateMainMenu:
		var menuCmd tea.Cmd
		a.mainMenu, menuCmd = a.mainMenu.Update(msg)
		if menuCmd != nil {
			cmds = append(cmds, menuCmd)
		}
	case stateAssessment:
		if a.game != nil {
			if cmd := a.game.Update(msg); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
	case stateReview:
		if a.review != nil {
			if cmd := a.review.Update(msg); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
	}

	return a, tea.Batch(cmds...)
}

// capturesInput reports whether the active screen is editing text, in which
// case only ctrl+c is handled globally.
func (a *App) capturesInput() bool {
	switch a.state {
	case stateAssessment:
		return a.game != nil && a.game.capturesInput()
	case stateReview:
		return a.review != nil && a.review.capturesInput()
	}
	return false
}

// handleMainMenuSelection processes menu item selection
func (a *App) handleMainMenuSelection() (tea.Model, tea.Cmd) {
	item, ok := a.mainMenu.SelectedItem().(menuItem)
	if !ok {
		return a, nil
	}

	switch item.title {
	case menuStart:
		a.logInfo("Menu · %s selected", menuStart)
		a.session.Reset()
		return a.openAssessment()

	case menuResume:
		a.logInfo("Menu · %s selected", menuResume)
		return a.openAssessment()

	case menuReview:
		a.logInfo("Menu · %s selected", menuReview)
		return a, a.openReview()

	case menuExit:
		a.logInfo("Menu · %s selected", menuExit)
		return a, tea.Quit
	}

	return a, nil
}

func (a *App) openAssessment() (tea.Model, tea.Cmd) {
	a.state = stateAssessment
	a.game = newGameView(a)
	a.statusMsg = ""
	return a, a.game.Init()
}

func (a *App) openReview() tea.Cmd {
	a.state = stateReview
	a.review = newReviewView(a)
	a.statusMsg = "Chargement des soumissions…"
	return a.review.Init()
}

// returnToMainMenu transitions back to the main menu
func (a *App) returnToMainMenu() (tea.Model, tea.Cmd) {
	a.state = stateMainMenu
	a.game = nil
	a.review = nil
	a.statusMsg = ""

	// Refresh menu items (the session may now be resumable)
	a.mainMenu.SetItems(buildMainMenu(a.session))
	return a, nil
}

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	rightWidth := max(32, width/3)
	leftWidth := width - rightWidth - 4
	if leftWidth < 40 {
		leftWidth = width - 4
	}
	if leftWidth < 20 {
		leftWidth = width
		rightWidth = 0
	}
	if a.state == stateMainMenu {
		a.mainMenu.SetSize(max(20, leftWidth-4), max(10, a.height-10))
	}
	var content, side string
	switch a.state {
	case stateMainMenu:
		content = a.mainMenu.View()
		side = a.renderCatalogPanel()
	case stateAssessment:
		if a.game != nil {
			content = a.game.View()
			side = a.game.SidePanel()
		}
	case stateReview:
		if a.review != nil {
			content = a.review.View()
			side = a.review.SidePanel()
		}
	}
	return a.renderBoard(content, side, leftWidth, rightWidth)
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(logPanelLines)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("LOG · %s (%d)", fileName, total))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
	return box
}

func (a *App) renderBoard(mainContent, sideContent string, leftWidth, rightWidth int) string {
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#6C63FF")).
		MarginBottom(1).
		Render("🌱 DIGITAL SEEDS · PRÉ-INCUBATION")
	if strings.TrimSpace(mainContent) == "" {
		mainContent = "Prêt."
	}
	leftBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Width(max(20, leftWidth)).
		Render(mainContent)
	var body string
	if rightWidth > 0 && strings.TrimSpace(sideContent) != "" {
		rightBox := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1).
			Width(max(20, rightWidth)).
			Render(sideContent)
		body = lipgloss.JoinHorizontal(lipgloss.Top, leftBox, rightBox)
	} else {
		body = leftBox
	}
	sections := []string{header, body}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginTop(1).
		Render(a.statusMsg)
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

func (a *App) renderCatalogPanel() string {
	title := panelTitleStyle.Render(fmt.Sprintf("Parcours (%d phases)", a.catalog.PhaseCount()))
	var rows []string
	for _, phase := range a.catalog.Phases {
		rows = append(rows, fmt.Sprintf("%s %d. %s", phaseEmoji(phase), phase.ID, phase.Title))
	}
	hint := hintStyle.Render("Enter → choisir    q → quitter")
	return lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(rows, "\n"), hint)
}

var (
	panelTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).MarginTop(1)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	detailTextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	selectedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C63FF")).Bold(true)
)

func phaseEmoji(phase catalog.Phase) string {
	if phase.Emoji != "" {
		return phase.Emoji
	}
	return "•"
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
