// Package scoring reduces the per-phase scores of a finished assessment into
// a maturity percentage, milestone and recommendation lists, and packages
// them into a pending Submission.
//
// Every function here is pure: the same catalog and scores always yield the
// same result, which is what lets a stored Submission be re-derived later.
package scoring

import (
	"strings"
	"time"

	"github.com/digital-seeds-4/preincubation/internal/catalog"
	"github.com/digital-seeds-4/preincubation/internal/submission"
)

// Result holds the values derived from a set of phase scores.
type Result struct {
	TotalScore      int
	MaxScore        int
	MaturityScore   int
	Milestones      []string
	Recommendations []string
}

// Input carries everything Generate needs besides the catalog.
type Input struct {
	ID          string
	UserName    string
	ProjectName string
	PhaseScores map[int]int
	CreatedAt   time.Time
	SubmittedAt time.Time
}

// Compute derives totals and artifact lists from per-phase scores. Scores for
// phase ids the catalog does not define contribute nothing.
func Compute(cat *catalog.Catalog, phaseScores map[int]int) Result {
	total := 0
	for _, phase := range cat.Phases {
		total += phaseScores[phase.ID]
	}
	maxScore := cat.MaxPossible()
	maturity := Maturity(total, maxScore)
	return Result{
		TotalScore:      total,
		MaxScore:        maxScore,
		MaturityScore:   maturity,
		Milestones:      Milestones(cat.Scoring, maturity),
		Recommendations: Recommendations(cat, phaseScores),
	}
}

// Generate builds the pending Submission for a completed session.
func Generate(cat *catalog.Catalog, in Input) submission.Submission {
	result := Compute(cat, in.PhaseScores)
	submitted := in.SubmittedAt
	if submitted.IsZero() {
		submitted = time.Now()
	}
	created := in.CreatedAt
	if created.IsZero() {
		created = submitted
	}
	scores := make(map[int]int, len(in.PhaseScores))
	for id, score := range in.PhaseScores {
		scores[id] = score
	}
	return submission.Submission{
		ID:              in.ID,
		ProjectName:     strings.TrimSpace(in.ProjectName),
		UserName:        strings.TrimSpace(in.UserName),
		CreatedAt:       created,
		SubmittedAt:     submitted,
		MaturityScore:   result.MaturityScore,
		PhaseScores:     scores,
		TotalScore:      result.TotalScore,
		MaxScore:        result.MaxScore,
		Milestones:      result.Milestones,
		Recommendations: result.Recommendations,
		Status:          submission.StatusPending,
	}
}

// Recompute re-derives the scoring result from a stored submission's phase
// scores.
func Recompute(cat *catalog.Catalog, sub submission.Submission) Result {
	return Compute(cat, sub.PhaseScores)
}

// Maturity returns round(total/maxScore*100) clamped to [0, 100], rounding
// halves up.
func Maturity(total, maxScore int) int {
	if maxScore <= 0 || total <= 0 {
		return 0
	}
	score := (200*total + maxScore) / (2 * maxScore)
	if score > 100 {
		return 100
	}
	return score
}

// Milestones lists the label of every rule whose threshold the score meets,
// in ascending threshold order. The result is never empty.
func Milestones(policy catalog.ScoringPolicy, score int) []string {
	var out []string
	for _, rule := range policy.Milestones {
		if score >= rule.Threshold {
			out = append(out, rule.Label)
		}
	}
	if len(out) == 0 {
		return []string{policy.MilestonePlaceholder}
	}
	return out
}

// Recommendations lists, in phase order, the recommendation of every phase
// scoring below the sufficiency threshold. The result is never empty.
func Recommendations(cat *catalog.Catalog, phaseScores map[int]int) []string {
	var out []string
	for _, phase := range cat.Phases {
		if phaseScores[phase.ID] < cat.Scoring.SufficiencyThreshold {
			text := phase.Recommendation
			if text == "" {
				text = "Renforcer la phase « " + phase.Title + " »"
			}
			out = append(out, text)
		}
	}
	if len(out) == 0 {
		return []string{cat.Scoring.RecommendationPlaceholder}
	}
	return out
}

// PhasePercent expresses a phase score against the ceiling, clamped to [0, 100].
func PhasePercent(score, ceiling int) int {
	return Maturity(score, ceiling)
}
