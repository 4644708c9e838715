package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/digital-seeds-4/preincubation/internal/dossier"
	"github.com/digital-seeds-4/preincubation/internal/evaluation"
	"github.com/digital-seeds-4/preincubation/internal/scoring"
	"github.com/digital-seeds-4/preincubation/internal/submission"
)

var (
	labelStylePending   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	labelStyleApproved  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	labelStyleRejected  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	labelStyleEvaluated = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	labelStyleDefault   = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	tabStyleActive      = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("#6C63FF"))
	tabStyleIdle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// reviewView is the mentor dashboard: filter tabs, submission list, detail
// and the evaluation form.
type reviewView struct {
	app       *App
	filters   []evaluation.Filter
	filterIdx int
	all       []submission.Submission
	visible   []submission.Submission
	stats     evaluation.Stats
	selection int
	loaded    bool
	err       error

	notes    textarea.Model
	editing  bool
	decision evaluation.Decision
}

type reviewLoadedMsg struct {
	submissions []submission.Submission
	err         error
}

type evaluationDoneMsg struct {
	submission submission.Submission
	err        error
}

func newReviewView(app *App) *reviewView {
	notes := textarea.New()
	notes.Placeholder = "Notes d'évaluation (optionnel)"
	notes.ShowLineNumbers = false
	notes.SetHeight(4)
	notes.SetWidth(60)
	notes.Cursor.SetMode(cursor.CursorStatic)
	return &reviewView{
		app:     app,
		filters: evaluation.Filters(),
		notes:   notes,
	}
}

func (v *reviewView) Init() tea.Cmd {
	return v.load()
}

func (v *reviewView) load() tea.Cmd {
	st := v.app.store
	return func() tea.Msg {
		all, err := st.List(context.Background())
		return reviewLoadedMsg{submissions: all, err: err}
	}
}

func (v *reviewView) capturesInput() bool {
	return v.editing
}

func (v *reviewView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case reviewLoadedMsg:
		if m.err != nil {
			v.err = m.err
			v.app.statusMsg = fmt.Sprintf("Chargement impossible: %v", m.err)
			return nil
		}
		v.err = nil
		v.loaded = true
		v.all = m.submissions
		v.stats = evaluation.Summarize(v.all)
		v.applyFilter()
		v.app.statusMsg = fmt.Sprintf("%d soumission(s)", v.stats.Total)
		return nil
	case evaluationDoneMsg:
		if m.err != nil {
			var already *evaluation.AlreadyEvaluatedError
			if errors.As(m.err, &already) {
				v.app.statusMsg = fmt.Sprintf("Déjà évalué (%s)", already.Status.Label())
			} else {
				v.app.statusMsg = fmt.Sprintf("Évaluation impossible: %v", m.err)
			}
			return v.load()
		}
		v.app.statusMsg = fmt.Sprintf("%s · %s", m.submission.ProjectName, m.submission.Status.Label())
		return v.load()
	case tea.KeyMsg:
		if v.editing {
			return v.handleEditingKey(m)
		}
		return v.handleKey(m)
	}
	return nil
}

func (v *reviewView) handleKey(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "tab", "right", "l":
		v.filterIdx = (v.filterIdx + 1) % len(v.filters)
		v.applyFilter()
	case "shift+tab", "left", "h":
		v.filterIdx = (v.filterIdx + len(v.filters) - 1) % len(v.filters)
		v.applyFilter()
	case "up", "k":
		if v.selection > 0 {
			v.selection--
		}
	case "down", "j":
		if v.selection < len(v.visible)-1 {
			v.selection++
		}
	case "r":
		v.app.statusMsg = "Actualisation…"
		return v.load()
	case "a":
		return v.beginEvaluation(evaluation.Approve)
	case "x":
		return v.beginEvaluation(evaluation.Reject)
	case "e":
		return v.export(dossier.FormatMarkdown)
	case "J":
		return v.export(dossier.FormatJSON)
	}
	return nil
}

func (v *reviewView) beginEvaluation(decision evaluation.Decision) tea.Cmd {
	sub, ok := v.selected()
	if !ok {
		return nil
	}
	if sub.Status != submission.StatusPending {
		v.app.statusMsg = fmt.Sprintf("Déjà évalué (%s)", sub.Status.Label())
		return nil
	}
	v.decision = decision
	v.editing = true
	v.notes.Reset()
	v.app.statusMsg = fmt.Sprintf("%s · ctrl+s → enregistrer    esc → annuler", decisionLabel(decision))
	return v.notes.Focus()
}

func (v *reviewView) handleEditingKey(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "esc":
		v.editing = false
		v.notes.Blur()
		v.app.statusMsg = "Évaluation annulée"
		return nil
	case "ctrl+s":
		return v.submitEvaluation()
	}
	var cmd tea.Cmd
	v.notes, cmd = v.notes.Update(key)
	return cmd
}

func (v *reviewView) submitEvaluation() tea.Cmd {
	sub, ok := v.selected()
	v.editing = false
	v.notes.Blur()
	if !ok {
		return nil
	}
	wf := v.app.evaluation
	id := sub.ID
	decision := v.decision
	notes := strings.TrimSpace(v.notes.Value())
	evaluator := v.app.config.Reviewer()
	return func() tea.Msg {
		updated, err := wf.Evaluate(context.Background(), id, decision, notes, evaluator)
		return evaluationDoneMsg{submission: updated, err: err}
	}
}

func (v *reviewView) export(format dossier.Format) tea.Cmd {
	sub, ok := v.selected()
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

func (v *reviewView) applyFilter() {
	v.visible = evaluation.Select(v.all, v.currentFilter())
	if v.selection >= len(v.visible) {
		v.selection = max(0, len(v.visible)-1)
	}
}

func (v *reviewView) currentFilter() evaluation.Filter {
	if len(v.filters) == 0 {
		return evaluation.FilterAll
	}
	return v.filters[v.filterIdx]
}

func (v *reviewView) selected() (submission.Submission, bool) {
	if v.selection < 0 || v.selection >= len(v.visible) {
		return submission.Submission{}, false
	}
	return v.visible[v.selection], true
}

func (v *reviewView) View() string {
	if v.err != nil {
		return errorStyle.Render(fmt.Sprintf("Erreur: %v", v.err))
	}
	if !v.loaded {
		return "Chargement des soumissions…"
	}
	lines := []string{panelTitleStyle.Render("🧑‍⚖️ Tableau de bord mentor"), v.renderTabs(), ""}
	if len(v.visible) == 0 {
		lines = append(lines, detailTextStyle.Render("Aucune soumission pour ce filtre."))
	}
	for i, sub := range v.visible {
		lines = append(lines, v.renderRow(i, sub))
	}
	if sub, ok := v.selected(); ok {
		lines = append(lines, "", v.renderDetail(sub))
	}
	if v.editing {
		lines = append(lines, "", decisionLabel(v.decision), v.notes.View())
	}
	lines = append(lines,
		"",
		hintStyle.Render("tab → filtre    a → approuver    x → rejeter    e/J → exporter    r → actualiser    esc → menu"),
	)
	return strings.Join(lines, "\n")
}

func (v *reviewView) renderTabs() string {
	tabs := make([]string, 0, len(v.filters))
	for i, filter := range v.filters {
		label := filterLabel(filter)
		if i == v.filterIdx {
			tabs = append(tabs, tabStyleActive.Render(label))
		} else {
			tabs = append(tabs, tabStyleIdle.Render(label))
		}
	}
	return strings.Join(tabs, "  ")
}

func (v *reviewView) renderRow(idx int, sub submission.Submission) string {
	indicator := " "
	if idx == v.selection {
		indicator = ">"
	}
	status := labelStyleForStatus(sub.Status).Render(sub.Status.Label())
	line := fmt.Sprintf("%s %-24s %3d%%  %s  %s", indicator, truncate(sub.ProjectName, 24), sub.MaturityScore, status, sub.SubmittedAt.Format("02/01/2006"))
	if idx == v.selection {
		return selectedStyle.Render(line)
	}
	return line
}

func (v *reviewView) renderDetail(sub submission.Submission) string {
	details := []string{
		fmt.Sprintf("%s · %s", sub.ProjectName, sub.UserName),
		fmt.Sprintf("Maturité %d%% (%d / %d) · %s · %s", sub.MaturityScore, sub.TotalScore, sub.MaxScore, scoring.Level(sub.MaturityScore), scoring.BandFor(sub.MaturityScore).Label()),
	}
	cat := v.app.catalog
	for _, id := range sub.PhaseIDs() {
		score := sub.PhaseScores[id]
		percent := scoring.PhasePercent(score, cat.Scoring.PhaseCeiling)
		title := fmt.Sprintf("Phase %d", id)
		if phase, ok := cat.Phase(id); ok {
			title = fmt.Sprintf("%s %s", phaseEmoji(phase), phase.Title)
		}
		details = append(details, fmt.Sprintf("%-30s %s %3d%%", truncate(title, 30), dossier.Bar(percent, 10), percent))
	}
	if len(sub.Milestones) > 0 {
		details = append(details, "Jalons: "+strings.Join(sub.Milestones, ", "))
	}
	for _, rec := range sub.Recommendations {
		details = append(details, "→ "+rec)
	}
	if sub.Status.IsTerminal() && sub.EvaluatedBy != nil {
		line := fmt.Sprintf("Évalué par %s", sub.Evaluator())
		if sub.EvaluatedAt != nil {
			line += " le " + sub.EvaluatedAt.Format("02/01/2006 15:04")
		}
		details = append(details, line)
		if notes := strings.TrimSpace(sub.EvaluationNotes); notes != "" {
			details = append(details, "Notes: "+notes)
		}
	}
	return detailTextStyle.Render("  " + strings.Join(details, "\n  "))
}

// SidePanel shows collection statistics.
func (v *reviewView) SidePanel() string {
	title := panelTitleStyle.Render("Statistiques")
	rows := []string{
		fmt.Sprintf("Total: %d", v.stats.Total),
		fmt.Sprintf("Score moyen: %d%%", v.stats.AverageScore),
	}
	for _, status := range submission.Statuses {
		rows = append(rows, labelStyleForStatus(status).Render(fmt.Sprintf("%s: %d", status.Label(), v.stats.Count(status))))
	}
	rows = append(rows, "", detailTextStyle.Render("Mentor: "+v.app.config.Reviewer()))
	return lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(rows, "\n"))
}

func labelStyleForStatus(status submission.Status) lipgloss.Style {
	switch status {
	case submission.StatusPending:
		return labelStylePending
	case submission.StatusApproved:
		return labelStyleApproved
	case submission.StatusRejected:
		return labelStyleRejected
	case submission.StatusEvaluated:
		return labelStyleEvaluated
	default:
		return labelStyleDefault
	}
}

func filterLabel(filter evaluation.Filter) string {
	if filter == evaluation.FilterAll {
		return "Tous"
	}
	return submission.Status(filter).Label()
}

func decisionLabel(decision evaluation.Decision) string {
	if decision == evaluation.Approve {
		return "✅ Approuver"
	}
	return "❌ Rejeter"
}
