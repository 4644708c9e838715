// Package catalog defines the static questionnaire an assessment walks
// through: ordered phases, their questions, the scored options of each
// question and the scoring policy applied once the last answer is confirmed.
//
// A Catalog is read-only once loaded. Callers share a single instance between
// sessions and must not mutate it.
package catalog

import (
	"fmt"
	"sort"
	"strings"
)

const (
	defaultPointsPerQuestion         = 100
	defaultMilestonePlaceholder      = "📌 À développer"
	defaultRecommendationPlaceholder = "Bravo! Continuer sur cette lancée."
	defaultSufficiencyNumerator      = 3
	defaultSufficiencyDenominator    = 4
	defaultCatalogVersion            = 1
)

// Option is one selectable answer of a question.
type Option struct {
	ID          string `yaml:"id" json:"id"`
	Text        string `yaml:"text" json:"text"`
	Value       int    `yaml:"value" json:"value"`
	Consequence string `yaml:"consequence" json:"consequence"`
}

// Question is a single prompt with a closed set of options.
type Question struct {
	ID       string   `yaml:"id" json:"id"`
	Text     string   `yaml:"text" json:"text"`
	Options  []Option `yaml:"options" json:"options"`
	Feedback string   `yaml:"feedback" json:"feedback"`
}

// Option returns the option with the given identifier.
func (q Question) Option(id string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

// Phase is one thematic stage of the assessment.
type Phase struct {
	ID          int    `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Subtitle    string `yaml:"subtitle" json:"subtitle"`
	Description string `yaml:"description" json:"description"`
	Emoji       string `yaml:"emoji,omitempty" json:"emoji,omitempty"`
	// Recommendation is suggested when the phase score stays below the
	// sufficiency threshold.
	Recommendation string     `yaml:"recommendation" json:"recommendation"`
	Questions      []Question `yaml:"questions" json:"questions"`
}

// QuestionCount returns the number of questions in the phase.
func (p Phase) QuestionCount() int {
	return len(p.Questions)
}

// Question returns the question at the zero-based index.
func (p Phase) Question(idx int) (Question, bool) {
	if idx < 0 || idx >= len(p.Questions) {
		return Question{}, false
	}
	return p.Questions[idx], true
}

// MilestoneRule appends Label to the milestone list when the maturity score
// reaches Threshold.
type MilestoneRule struct {
	Threshold int    `yaml:"threshold" json:"threshold"`
	Label     string `yaml:"label" json:"label"`
}

// ScoringPolicy holds the fixed constants used to turn phase scores into a
// maturity percentage and the derived artifact lists.
type ScoringPolicy struct {
	// PhaseCeiling is the maximum raw score one phase is measured against. It
	// is configured, not derived from option values.
	PhaseCeiling              int             `yaml:"phase_ceiling" json:"phaseCeiling"`
	SufficiencyThreshold      int             `yaml:"sufficiency_threshold" json:"sufficiencyThreshold"`
	Milestones                []MilestoneRule `yaml:"milestones" json:"milestones"`
	MilestonePlaceholder      string          `yaml:"milestone_placeholder" json:"milestonePlaceholder"`
	RecommendationPlaceholder string          `yaml:"recommendation_placeholder" json:"recommendationPlaceholder"`

	// sufficiencySet is true when the YAML named sufficiency_threshold, so an
	// explicit 0 is kept.
	sufficiencySet bool
}

// Catalog is the ordered list of phases plus the scoring policy.
type Catalog struct {
	Version int           `yaml:"version" json:"version"`
	Name    string        `yaml:"name" json:"name"`
	Scoring ScoringPolicy `yaml:"scoring" json:"scoring"`
	Phases  []Phase       `yaml:"phases" json:"phases"`
}

// PhaseCount returns the number of phases.
func (c *Catalog) PhaseCount() int {
	if c == nil {
		return 0
	}
	return len(c.Phases)
}

// Phase returns the phase with the given 1-based identifier.
func (c *Catalog) Phase(id int) (Phase, bool) {
	if c == nil || id < 1 || id > len(c.Phases) {
		return Phase{}, false
	}
	phase := c.Phases[id-1]
	if phase.ID != id {
		// ids are contiguous after validation; fall back to a scan otherwise
		for _, candidate := range c.Phases {
			if candidate.ID == id {
				return candidate, true
			}
		}
		return Phase{}, false
	}
	return phase, true
}

// Questions returns the ordered questions of a phase.
func (c *Catalog) Questions(phaseID int) []Question {
	phase, ok := c.Phase(phaseID)
	if !ok {
		return nil
	}
	return phase.Questions
}

// MaxQuestionsPerPhase returns the largest question count across phases.
func (c *Catalog) MaxQuestionsPerPhase() int {
	if c == nil {
		return 0
	}
	maxCount := 0
	for _, phase := range c.Phases {
		if n := len(phase.Questions); n > maxCount {
			maxCount = n
		}
	}
	return maxCount
}

// MaxPossible returns the raw score ceiling for a full assessment.
func (c *Catalog) MaxPossible() int {
	if c == nil {
		return 0
	}
	return len(c.Phases) * c.Scoring.PhaseCeiling
}

// QuestionCount returns the total number of questions in the catalog.
func (c *Catalog) QuestionCount() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, phase := range c.Phases {
		total += len(phase.Questions)
	}
	return total
}

// Validate checks the structural invariants of the catalog: contiguous phase
// ids, globally unique question ids, at least one option per question and
// unique option ids within a question.
func (c *Catalog) Validate() error {
	if c == nil {
		return fmt.Errorf("catalog: nil catalog")
	}
	if len(c.Phases) == 0 {
		return fmt.Errorf("catalog: at least one phase is required")
	}
	if c.Scoring.PhaseCeiling <= 0 {
		return fmt.Errorf("catalog: scoring.phase_ceiling must be > 0")
	}
	if c.Scoring.SufficiencyThreshold < 0 {
		return fmt.Errorf("catalog: scoring.sufficiency_threshold must be >= 0")
	}
	seenQuestions := map[string]int{}
	for idx, phase := range c.Phases {
		want := idx + 1
		if phase.ID != want {
			return fmt.Errorf("catalog: phase[%d]: id %d breaks the 1..N sequence (want %d)", idx, phase.ID, want)
		}
		if phase.Title == "" {
			return fmt.Errorf("catalog: phase %d: title is required", phase.ID)
		}
		if len(phase.Questions) == 0 {
			return fmt.Errorf("catalog: phase %d: at least one question is required", phase.ID)
		}
		for qIdx, question := range phase.Questions {
			if err := question.validate(); err != nil {
				return fmt.Errorf("catalog: phase %d question[%d]: %w", phase.ID, qIdx, err)
			}
			if owner, exists := seenQuestions[question.ID]; exists {
				return fmt.Errorf("catalog: question id %s is used by phase %d and phase %d", question.ID, owner, phase.ID)
			}
			seenQuestions[question.ID] = phase.ID
		}
	}
	for idx, rule := range c.Scoring.Milestones {
		if strings.TrimSpace(rule.Label) == "" {
			return fmt.Errorf("catalog: scoring.milestones[%d]: label is required", idx)
		}
		if idx > 0 && rule.Threshold < c.Scoring.Milestones[idx-1].Threshold {
			return fmt.Errorf("catalog: scoring.milestones must be in ascending threshold order")
		}
	}
	return nil
}

func (q Question) validate() error {
	if q.ID == "" {
		return fmt.Errorf("id is required")
	}
	if q.Text == "" {
		return fmt.Errorf("%s: text is required", q.ID)
	}
	if len(q.Options) == 0 {
		return fmt.Errorf("%s: at least one option is required", q.ID)
	}
	seen := map[string]struct{}{}
	for idx, opt := range q.Options {
		if opt.ID == "" {
			return fmt.Errorf("%s option[%d]: id is required", q.ID, idx)
		}
		if _, exists := seen[opt.ID]; exists {
			return fmt.Errorf("%s: duplicate option id %s", q.ID, opt.ID)
		}
		seen[opt.ID] = struct{}{}
		if opt.Value < 0 {
			return fmt.Errorf("%s option %s: value must be >= 0", q.ID, opt.ID)
		}
	}
	return nil
}

func (c *Catalog) applyDefaults() {
	if c.Version == 0 {
		c.Version = defaultCatalogVersion
	}
	if c.Scoring.PhaseCeiling == 0 {
		c.Scoring.PhaseCeiling = defaultPointsPerQuestion * c.MaxQuestionsPerPhase()
	}
	if c.Scoring.SufficiencyThreshold == 0 && !c.Scoring.sufficiencySet {
		c.Scoring.SufficiencyThreshold = c.Scoring.PhaseCeiling * defaultSufficiencyNumerator / defaultSufficiencyDenominator
	}
	if c.Scoring.MilestonePlaceholder == "" {
		c.Scoring.MilestonePlaceholder = defaultMilestonePlaceholder
	}
	if c.Scoring.RecommendationPlaceholder == "" {
		c.Scoring.RecommendationPlaceholder = defaultRecommendationPlaceholder
	}
}

func (c *Catalog) normalize() {
	c.Name = strings.TrimSpace(c.Name)
	for pIdx := range c.Phases {
		phase := &c.Phases[pIdx]
		phase.Title = strings.TrimSpace(phase.Title)
		phase.Subtitle = strings.TrimSpace(phase.Subtitle)
		phase.Description = strings.TrimSpace(phase.Description)
		phase.Recommendation = strings.TrimSpace(phase.Recommendation)
		for qIdx := range phase.Questions {
			question := &phase.Questions[qIdx]
			question.ID = strings.TrimSpace(question.ID)
			question.Text = strings.TrimSpace(question.Text)
			question.Feedback = strings.TrimSpace(question.Feedback)
			for oIdx := range question.Options {
				opt := &question.Options[oIdx]
				opt.ID = strings.TrimSpace(opt.ID)
				opt.Text = strings.TrimSpace(opt.Text)
				opt.Consequence = strings.TrimSpace(opt.Consequence)
			}
		}
	}
	c.Scoring.MilestonePlaceholder = strings.TrimSpace(c.Scoring.MilestonePlaceholder)
	c.Scoring.RecommendationPlaceholder = strings.TrimSpace(c.Scoring.RecommendationPlaceholder)
	sort.SliceStable(c.Scoring.Milestones, func(i, j int) bool {
		return c.Scoring.Milestones[i].Threshold < c.Scoring.Milestones[j].Threshold
	})
}
