// Package submission defines the persisted result of a completed assessment
// and its evaluation lifecycle states.
package submission

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Status enumerates the evaluation lifecycle of a Submission.
type Status string

const (
	StatusPending   Status = "pending"
	StatusEvaluated Status = "evaluated"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// Statuses lists every known status in display order.
var Statuses = []Status{StatusPending, StatusEvaluated, StatusApproved, StatusRejected}

// ParseStatus maps a case-insensitive label to a Status.
func ParseStatus(value string) (Status, error) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range Statuses {
		if status == normalized {
			return status, nil
		}
	}
	return "", fmt.Errorf("submission: unknown status %q", value)
}

// Label returns the French caption shown on dashboards and dossiers.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "⏳ En attente"
	case StatusEvaluated:
		return "📋 Évalué"
	case StatusApproved:
		return "✅ Approuvé"
	case StatusRejected:
		return "❌ Rejeté"
	default:
		return string(s)
	}
}

// IsTerminal reports whether the status can no longer change.
func (s Status) IsTerminal() bool {
	return s != StatusPending
}

// Submission is the record produced once per completed assessment session.
// After creation only the evaluation fields change, exactly once.
type Submission struct {
	ID              string      `json:"id"`
	ProjectName     string      `json:"projectName"`
	UserName        string      `json:"userName"`
	CreatedAt       time.Time   `json:"createdAt"`
	SubmittedAt     time.Time   `json:"submittedAt"`
	MaturityScore   int         `json:"maturityScore"`
	PhaseScores     map[int]int `json:"phaseScores"`
	TotalScore      int         `json:"totalScore"`
	MaxScore        int         `json:"maxScore"`
	Milestones      []string    `json:"milestones"`
	Recommendations []string    `json:"recommendations"`
	Status          Status      `json:"evaluationStatus"`
	EvaluationNotes string      `json:"evaluationNotes"`
	EvaluatedBy     *string     `json:"evaluatedBy"`
	EvaluatedAt     *time.Time  `json:"evaluatedAt"`
}

// Clone returns a deep copy so callers cannot alias stored maps or slices.
func (s Submission) Clone() Submission {
	clone := s
	if s.PhaseScores != nil {
		clone.PhaseScores = make(map[int]int, len(s.PhaseScores))
		for id, score := range s.PhaseScores {
			clone.PhaseScores[id] = score
		}
	}
	clone.Milestones = cloneStrings(s.Milestones)
	clone.Recommendations = cloneStrings(s.Recommendations)
	if s.EvaluatedBy != nil {
		by := *s.EvaluatedBy
		clone.EvaluatedBy = &by
	}
	if s.EvaluatedAt != nil {
		at := *s.EvaluatedAt
		clone.EvaluatedAt = &at
	}
	return clone
}

// Evaluator returns the evaluator identity or an empty string.
func (s Submission) Evaluator() string {
	if s.EvaluatedBy == nil {
		return ""
	}
	return *s.EvaluatedBy
}

// PhaseIDs returns the phase ids present in PhaseScores in ascending order.
func (s Submission) PhaseIDs() []int {
	ids := make([]int, 0, len(s.PhaseScores))
	for id := range s.PhaseScores {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Validate checks the fields every persisted submission must carry.
func (s Submission) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("submission: id is required")
	}
	if strings.TrimSpace(s.ProjectName) == "" {
		return fmt.Errorf("submission %s: project name is required", s.ID)
	}
	if _, err := ParseStatus(string(s.Status)); err != nil {
		return fmt.Errorf("submission %s: %w", s.ID, err)
	}
	if s.MaturityScore < 0 || s.MaturityScore > 100 {
		return fmt.Errorf("submission %s: maturity score %d outside [0, 100]", s.ID, s.MaturityScore)
	}
	return nil
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
