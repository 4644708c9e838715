package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/digital-seeds-4/preincubation/internal/assessment"
	"github.com/digital-seeds-4/preincubation/internal/dossier"
	"github.com/digital-seeds-4/preincubation/internal/scoring"
)

const (
	inputUser = iota
	inputProject
)

const progressBarWidth = 20

var (
	consequenceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Italic(true)
	recordedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	scoreStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6C63FF"))
)

// gameView drives one assessment session: identity form, questions, results.
type gameView struct {
	app     *App
	session *assessment.Session
	inputs  []textinput.Model
	focus   int
	cursor  int
	err     error
}

type exportDoneMsg struct {
	path string
	err  error
}

func newGameView(app *App) *gameView {
	user := textinput.New()
	user.Placeholder = "Votre nom"
	user.Prompt = "Entrepreneur: "
	user.CharLimit = 80
	user.Cursor.SetMode(cursor.CursorStatic)
	project := textinput.New()
	project.Placeholder = "Nom du projet"
	project.Prompt = "Projet:       "
	project.CharLimit = 120
	project.Cursor.SetMode(cursor.CursorStatic)
	view := &gameView{
		app:     app,
		session: app.session,
		inputs:  []textinput.Model{user, project},
	}
	view.syncCursor()
	return view
}

func (v *gameView) Init() tea.Cmd {
	if v.stage() == assessment.StageIntro {
		return v.focusInput(inputUser)
	}
	return nil
}

func (v *gameView) stage() assessment.Stage {
	return v.session.State().Stage
}

func (v *gameView) capturesInput() bool {
	return v.stage() == assessment.StageIntro
}

func (v *gameView) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	switch v.stage() {
	case assessment.StageIntro:
		if ok {
			return v.handleIdentityKey(key)
		}
		return v.updateInputs(msg)
	case assessment.StageInProgress:
		if ok {
			return v.handleQuestionKey(key)
		}
	case assessment.StageComplete:
		if ok {
			return v.handleResultsKey(key)
		}
	}
	return nil
}

func (v *gameView) handleIdentityKey(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "esc":
		_, cmd := v.app.returnToMainMenu()
		return cmd
	case "tab", "down":
		return v.focusInput((v.focus + 1) % len(v.inputs))
	case "shift+tab", "up":
		return v.focusInput((v.focus + len(v.inputs) - 1) % len(v.inputs))
	case "enter":
		if v.focus == inputUser && strings.TrimSpace(v.inputs[inputProject].Value()) == "" {
			return v.focusInput(inputProject)
		}
		return v.start()
	}
	return v.updateInputs(key)
}

func (v *gameView) start() tea.Cmd {
	user := v.inputs[inputUser].Value()
	project := v.inputs[inputProject].Value()
	if err := v.session.Start(user, project); err != nil {
		v.err = err
		v.app.logWarn("Assessment start refused: %v", err)
		if errors.Is(err, assessment.ErrValidation) {
			v.app.statusMsg = "Merci de renseigner votre nom et celui du projet."
		} else {
			v.app.statusMsg = err.Error()
		}
		return nil
	}
	v.err = nil
	v.app.statusMsg = ""
	for i := range v.inputs {
		v.inputs[i].Blur()
	}
	v.syncCursor()
	return nil
}

func (v *gameView) focusInput(idx int) tea.Cmd {
	v.focus = idx
	var cmd tea.Cmd
	for i := range v.inputs {
		if i == idx {
			cmd = v.inputs[i].Focus()
		} else {
			v.inputs[i].Blur()
		}
	}
	return cmd
}

func (v *gameView) updateInputs(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	v.inputs[v.focus], cmd = v.inputs[v.focus].Update(msg)
	return cmd
}

func (v *gameView) handleQuestionKey(key tea.KeyMsg) tea.Cmd {
	question, ok := v.session.CurrentQuestion()
	if !ok {
		return nil
	}
	switch key.String() {
	case "up", "k":
		if v.cursor > 0 {
			v.cursor--
		}
	case "down", "j":
		if v.cursor < len(question.Options)-1 {
			v.cursor++
		}
	case "enter", " ":
		opt := question.Options[v.cursor]
		if pending, ok := v.session.PendingOption(); ok && pending.ID == opt.ID {
			return v.confirm()
		}
		if _, err := v.session.SelectAnswer(opt.ID); err != nil {
			v.fail(err)
		}
	case "right", "n":
		return v.confirm()
	case "left", "p", "backspace":
		if err := v.session.GoToPrevious(); err != nil {
			if errors.Is(err, assessment.ErrIllegalTransition) {
				v.app.statusMsg = "Vous êtes déjà sur la première question."
				return nil
			}
			v.fail(err)
			return nil
		}
		v.app.statusMsg = ""
		v.syncCursor()
	}
	return nil
}

func (v *gameView) confirm() tea.Cmd {
	if err := v.session.ConfirmAndAdvance(context.Background()); err != nil {
		if errors.Is(err, assessment.ErrIllegalTransition) {
			v.app.statusMsg = "Choisissez une réponse avant de continuer."
			return nil
		}
		v.fail(err)
		return nil
	}
	v.err = nil
	v.app.statusMsg = ""
	if sub, ok := v.session.Submission(); ok {
		v.app.statusMsg = fmt.Sprintf("Projet soumis (%s) · en attente d'évaluation", sub.ID)
		return nil
	}
	v.syncCursor()
	return nil
}

func (v *gameView) fail(err error) {
	v.err = err
	v.app.statusMsg = err.Error()
	v.app.logError("Assessment error: %v", err)
}

// syncCursor puts the cursor on the recorded answer when revisiting a question.
func (v *gameView) syncCursor() {
	v.cursor = 0
	question, ok := v.session.CurrentQuestion()
	if !ok {
		return
	}
	recorded, ok := v.session.RecordedAnswer()
	if !ok {
		return
	}
	for i, opt := range question.Options {
		if opt.ID == recorded.ID {
			v.cursor = i
			return
		}
	}
}

func (v *gameView) handleResultsKey(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "e":
		return v.export(dossier.FormatMarkdown)
	case "J":
		return v.export(dossier.FormatJSON)
	case "r":
		v.session.Reset()
		v.app.logInfo("Assessment restarted")
		v.inputs[inputUser].SetValue("")
		v.inputs[inputProject].SetValue("")
		v.app.statusMsg = ""
		return v.focusInput(inputUser)
	case "esc", "enter":
		_, cmd := v.app.returnToMainMenu()
		return cmd
	}
	return nil
}

func (v *gameView) export(format dossier.Format) tea.Cmd {
	sub, ok := v.session.Submission()
	if !ok {
		return nil
	}
	exporter := v.app.exporter
	dir := v.app.config.ExportsDir()
	return func() tea.Msg {
		path, err := exporter.Write(dir, sub, format)
		return exportDoneMsg{path: path, err: err}
	}
}

func (v *gameView) View() string {
	switch v.stage() {
	case assessment.StageInProgress:
		return v.renderQuestion()
	case assessment.StageComplete:
		return v.renderResults()
	default:
		return v.renderIdentity()
	}
}

func (v *gameView) renderIdentity() string {
	lines := []string{
		panelTitleStyle.Render(v.session.Catalog().Name),
		"",
		"Évaluez la maturité de votre projet en répondant à quelques questions par phase.",
		"",
	}
	for _, input := range v.inputs {
		lines = append(lines, input.View())
	}
	if v.err != nil {
		lines = append(lines, "", errorStyle.Render(v.err.Error()))
	}
	lines = append(lines, hintStyle.Render("Tab → champ suivant    Enter → commencer    Esc → menu"))
	return strings.Join(lines, "\n")
}

func (v *gameView) renderQuestion() string {
	phase, ok := v.session.CurrentPhase()
	if !ok {
		return "Aucune question."
	}
	question, _ := v.session.CurrentQuestion()
	state := v.session.State()
	lines := []string{
		panelTitleStyle.Render(fmt.Sprintf("%s Phase %d/%d · %s", phaseEmoji(phase), phase.ID, v.session.Catalog().PhaseCount(), phase.Title)),
	}
	if phase.Subtitle != "" {
		lines = append(lines, detailTextStyle.Render(phase.Subtitle))
	}
	lines = append(lines,
		"",
		fmt.Sprintf("Question %d/%d", state.Question+1, phase.QuestionCount()),
		lipgloss.NewStyle().Bold(true).Render(question.Text),
		"",
	)
	pending, hasPending := v.session.PendingOption()
	for i, opt := range question.Options {
		indicator := " "
		if i == v.cursor {
			indicator = ">"
		}
		mark := "○"
		if hasPending && pending.ID == opt.ID {
			mark = "●"
		}
		line := fmt.Sprintf("%s %s %s", indicator, mark, opt.Text)
		if i == v.cursor {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	if hasPending {
		lines = append(lines, "", consequenceStyle.Render("→ "+pending.Consequence))
		if question.Feedback != "" {
			lines = append(lines, detailTextStyle.Render(question.Feedback))
		}
	} else if recorded, ok := v.session.RecordedAnswer(); ok {
		lines = append(lines, "", recordedStyle.Render("Réponse enregistrée: "+recorded.Text))
	}
	lines = append(lines,
		"",
		hintStyle.Render("↑/↓ → choisir    Enter → sélectionner puis valider    ← → précédent    Esc → menu"),
	)
	return strings.Join(lines, "\n")
}

func (v *gameView) renderResults() string {
	sub, ok := v.session.Submission()
	if !ok {
		return "Résultats indisponibles."
	}
	cat := v.session.Catalog()
	lines := []string{
		panelTitleStyle.Render(fmt.Sprintf("🎯 Résultats · %s", sub.ProjectName)),
		"",
		scoreStyle.Render(fmt.Sprintf("Score de maturité: %d%%", sub.MaturityScore)) +
			fmt.Sprintf("  (%d / %d)", sub.TotalScore, sub.MaxScore),
		fmt.Sprintf("Niveau: %s", scoring.Level(sub.MaturityScore)),
		scoring.Verdict(sub.MaturityScore),
		"",
		panelTitleStyle.Render("📈 Scores par phase"),
	}
	for _, phase := range cat.Phases {
		score := sub.PhaseScores[phase.ID]
		percent := scoring.PhasePercent(score, cat.Scoring.PhaseCeiling)
		lines = append(lines, fmt.Sprintf("%s %-28s %s %3d%%", phaseEmoji(phase), truncate(phase.Title, 28), dossier.Bar(percent, progressBarWidth), percent))
	}
	lines = append(lines, "", panelTitleStyle.Render("⭐ Jalons"))
	lines = append(lines, sub.Milestones...)
	lines = append(lines, "", panelTitleStyle.Render("💡 Recommandations"))
	for _, rec := range sub.Recommendations {
		lines = append(lines, "→ "+rec)
	}
	lines = append(lines,
		"",
		hintStyle.Render("e → dossier Markdown    J → export JSON    r → nouvelle évaluation    Esc → menu"),
	)
	return strings.Join(lines, "\n")
}

// SidePanel shows overall progress and per-phase status.
func (v *gameView) SidePanel() string {
	state := v.session.State()
	progress := v.session.Progress()
	title := panelTitleStyle.Render(fmt.Sprintf("Progression %d%%", progress))
	rows := []string{dossier.Bar(progress, progressBarWidth)}
	if state.ProjectName != "" {
		rows = append(rows, detailTextStyle.Render(fmt.Sprintf("%s · %s", state.ProjectName, state.UserName)))
	}
	rows = append(rows, "")
	for _, phase := range v.session.Catalog().Phases {
		marker := "·"
		switch {
		case state.Stage == assessment.StageComplete || (state.Stage == assessment.StageInProgress && phase.ID < state.Phase):
			marker = "✓"
		case state.Stage == assessment.StageInProgress && phase.ID == state.Phase:
			marker = "▶"
		}
		rows = append(rows, fmt.Sprintf("%s %s %s", marker, phaseEmoji(phase), phase.Title))
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(rows, "\n"))
}

func truncate(value string, width int) string {
	runes := []rune(value)
	if len(runes) <= width {
		return value
	}
	return string(runes[:width-1]) + "…"
}
