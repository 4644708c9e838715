// Package dossier renders submissions for people outside the program: a
// Markdown dossier with YAML front matter for humans and a JSON export for
// other tools. Rendering never touches the submission store.
package dossier

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/digital-seeds-4/preincubation/internal/catalog"
	"github.com/digital-seeds-4/preincubation/internal/scoring"
	"github.com/digital-seeds-4/preincubation/internal/submission"
)

const (
	// FormatVersion is written into every export.
	FormatVersion = "1.0"

	barWidth       = 10
	dateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006 15:04"
)

//go:embed dossier.md.tmpl
var dossierTemplate string

// Format selects the export encoding.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat accepts "markdown", "md" or "json".
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("dossier: unknown format %q", value)
	}
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	if f == FormatJSON {
		return ".json"
	}
	return ".md"
}

// MediaType returns the MIME type recorded in JSON export metadata.
func (f Format) MediaType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/markdown"
}

// Metadata describes an export.
type Metadata struct {
	Version    string    `json:"version"`
	Format     string    `json:"format"`
	ExportedAt time.Time `json:"exportedAt"`
}

// Exported is a single submission with its export metadata, flattened the
// way the submission JSON shape is read by other tools.
type Exported struct {
	submission.Submission
	ProjectMetadata Metadata `json:"projectMetadata"`
}

// Collection is the JSON export of several submissions.
type Collection struct {
	ProjectMetadata Metadata                `json:"projectMetadata"`
	Submissions     []submission.Submission `json:"submissions"`
}

// Exporter renders submissions against the catalog they were scored with.
type Exporter struct {
	catalog *catalog.Catalog
	now     func() time.Time
	tmpl    *template.Template
}

// Option customizes an Exporter.
type Option func(*Exporter)

// WithClock overrides the clock used for export timestamps.
func WithClock(clock func() time.Time) Option {
	return func(e *Exporter) {
		if clock != nil {
			e.now = clock
		}
	}
}

// New builds an exporter. A nil catalog falls back to "Phase N" titles.
func New(cat *catalog.Catalog, opts ...Option) (*Exporter, error) {
	tmpl, err := template.New("dossier").Parse(dossierTemplate)
	if err != nil {
		return nil, fmt.Errorf("dossier: parse template: %w", err)
	}
	exp := &Exporter{catalog: cat, now: time.Now, tmpl: tmpl}
	for _, opt := range opts {
		opt(exp)
	}
	return exp, nil
}

// Render encodes sub in the requested format.
func (e *Exporter) Render(sub submission.Submission, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return e.JSON(sub)
	case FormatMarkdown, "":
		return e.Markdown(sub)
	default:
		return nil, fmt.Errorf("dossier: unknown format %q", format)
	}
}

// Markdown renders the human dossier with its front matter header.
func (e *Exporter) Markdown(sub submission.Submission) ([]byte, error) {
	now := e.now()
	var body bytes.Buffer
	if err := e.tmpl.Execute(&body, e.view(sub, now)); err != nil {
		return nil, fmt.Errorf("dossier: render %s: %w", sub.ID, err)
	}
	return WriteFrontMatter(HeaderFor(sub, now), body.Bytes())
}

// JSON renders one submission with projectMetadata attached.
func (e *Exporter) JSON(sub submission.Submission) ([]byte, error) {
	payload := Exported{Submission: sub, ProjectMetadata: e.metadata(FormatJSON)}
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("dossier: encode %s: %w", sub.ID, err)
	}
	return encoded, nil
}

// Collection renders several submissions as one JSON document.
func (e *Exporter) Collection(subs []submission.Submission) ([]byte, error) {
	if subs == nil {
		subs = []submission.Submission{}
	}
	payload := Collection{ProjectMetadata: e.metadata(FormatJSON), Submissions: subs}
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("dossier: encode collection: %w", err)
	}
	return encoded, nil
}

// ReadCollection decodes a Collection document, validating every submission.
func ReadCollection(data []byte) (Collection, error) {
	var payload Collection
	if err := json.Unmarshal(data, &payload); err != nil {
		return Collection{}, fmt.Errorf("dossier: parse collection: %w", err)
	}
	for _, sub := range payload.Submissions {
		if err := sub.Validate(); err != nil {
			return Collection{}, fmt.Errorf("dossier: %w", err)
		}
	}
	return payload, nil
}

// Write renders sub into dir and returns the written path.
func (e *Exporter) Write(dir string, sub submission.Submission, format Format) (string, error) {
	content, err := e.Render(sub, format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("dossier: create %s: %w", dir, err)
	}
	path := filepath.Join(dir, FileName(sub, format))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("dossier: write %s: %w", path, err)
	}
	return path, nil
}

// FileName returns "projet_<name>" with whitespace runs folded to underscores.
func FileName(sub submission.Submission, format Format) string {
	name := strings.Join(strings.Fields(sub.ProjectName), "_")
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = sub.ID
	}
	return "projet_" + name + format.Extension()
}

func (e *Exporter) metadata(format Format) Metadata {
	return Metadata{Version: FormatVersion, Format: format.MediaType(), ExportedAt: e.now().UTC()}
}

type phaseView struct {
	Heading string
	Score   int
	Ceiling int
	Percent int
	Bar     string
}

type dossierView struct {
	Sub         submission.Submission
	Created     string
	Submitted   string
	Exported    string
	Level       string
	Verdict     string
	Band        string
	Phases      []phaseView
	Status      string
	Evaluated   bool
	EvaluatedBy string
	EvaluatedAt string
	Notes       string
}

func (e *Exporter) view(sub submission.Submission, now time.Time) dossierView {
	v := dossierView{
		Sub:       sub,
		Created:   sub.CreatedAt.Format(dateLayout),
		Submitted: sub.SubmittedAt.Format(dateTimeLayout),
		Exported:  now.Format(dateTimeLayout),
		Level:     scoring.Level(sub.MaturityScore),
		Verdict:   scoring.Verdict(sub.MaturityScore),
		Band:      scoring.BandFor(sub.MaturityScore).Label(),
		Status:    sub.Status.Label(),
		Evaluated: sub.Status.IsTerminal() && sub.EvaluatedBy != nil,
		Notes:     strings.ReplaceAll(strings.TrimSpace(sub.EvaluationNotes), "\n", "\n> "),
	}
	if v.Evaluated {
		v.EvaluatedBy = sub.Evaluator()
		if sub.EvaluatedAt != nil {
			v.EvaluatedAt = sub.EvaluatedAt.Format(dateTimeLayout)
		}
	}
	ceiling := e.ceiling()
	for _, id := range sub.PhaseIDs() {
		score := sub.PhaseScores[id]
		percent := scoring.PhasePercent(score, ceiling)
		v.Phases = append(v.Phases, phaseView{
			Heading: e.phaseHeading(id),
			Score:   score,
			Ceiling: ceiling,
			Percent: percent,
			Bar:     Bar(percent, barWidth),
		})
	}
	return v
}

func (e *Exporter) ceiling() int {
	if e.catalog != nil && e.catalog.Scoring.PhaseCeiling > 0 {
		return e.catalog.Scoring.PhaseCeiling
	}
	return catalog.Default().Scoring.PhaseCeiling
}

func (e *Exporter) phaseHeading(id int) string {
	if phase, ok := e.catalog.Phase(id); ok {
		if phase.Emoji != "" {
			return fmt.Sprintf("%s Phase %d · %s", phase.Emoji, id, phase.Title)
		}
		return fmt.Sprintf("Phase %d · %s", id, phase.Title)
	}
	return fmt.Sprintf("Phase %d", id)
}

// Bar draws a fixed-width progress bar for a percentage.
func Bar(percent, width int) string {
	if width <= 0 {
		return ""
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := (percent*width + 50) / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
