package scoring

import (
	"reflect"
	"testing"
	"time"

	"github.com/digital-seeds-4/preincubation/internal/catalog"
	"github.com/digital-seeds-4/preincubation/internal/submission"
)

func twoPhaseCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Parse([]byte(`
scoring:
  phase_ceiling: 200
  sufficiency_threshold: 150
  milestones:
    - {threshold: 60, label: concept}
    - {threshold: 70, label: market}
    - {threshold: 80, label: prototype}
    - {threshold: 90, label: funding}
  milestone_placeholder: todo
  recommendation_placeholder: bravo
phases:
  - id: 1
    title: Idea
    recommendation: clarify the idea
    questions:
      - id: p1_q1
        text: Problem?
        options:
          - {id: a, text: Validated, value: 100}
          - {id: b, text: Assumed, value: 70}
      - id: p1_q2
        text: Target?
        options:
          - {id: a, text: Narrow, value: 100}
          - {id: b, text: Broad, value: 60}
  - id: 2
    title: Market
    recommendation: validate the market
    questions:
      - id: p2_q1
        text: Demand?
        options:
          - {id: a, text: Growing, value: 100}
          - {id: b, text: Stable, value: 70}
      - id: p2_q2
        text: Edge?
        options:
          - {id: a, text: Clear, value: 100}
          - {id: b, text: Thin, value: 60}
`))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return cat
}

func TestComputeScenarioEightyFive(t *testing.T) {
	cat := twoPhaseCatalog(t)
	result := Compute(cat, map[int]int{1: 170, 2: 170})
	if result.TotalScore != 340 {
		t.Fatalf("total = %d, want 340", result.TotalScore)
	}
	if result.MaxScore != 400 {
		t.Fatalf("max = %d, want 400", result.MaxScore)
	}
	if result.MaturityScore != 85 {
		t.Fatalf("maturity = %d, want 85", result.MaturityScore)
	}
	if want := []string{"concept", "market", "prototype"}; !reflect.DeepEqual(result.Milestones, want) {
		t.Fatalf("milestones = %v, want %v", result.Milestones, want)
	}
	if want := []string{"bravo"}; !reflect.DeepEqual(result.Recommendations, want) {
		t.Fatalf("recommendations = %v, want %v", result.Recommendations, want)
	}
}

func TestComputeLowScoresUsePlaceholdersAndPhaseAdvice(t *testing.T) {
	cat := twoPhaseCatalog(t)
	result := Compute(cat, map[int]int{1: 100, 2: 160})
	if result.MaturityScore != 65 {
		t.Fatalf("maturity = %d, want 65", result.MaturityScore)
	}
	if want := []string{"clarify the idea"}; !reflect.DeepEqual(result.Recommendations, want) {
		t.Fatalf("recommendations = %v, want %v", result.Recommendations, want)
	}
	empty := Compute(cat, nil)
	if want := []string{"todo"}; !reflect.DeepEqual(empty.Milestones, want) {
		t.Fatalf("milestones = %v, want placeholder", empty.Milestones)
	}
	if want := []string{"clarify the idea", "validate the market"}; !reflect.DeepEqual(empty.Recommendations, want) {
		t.Fatalf("recommendations = %v, want %v", empty.Recommendations, want)
	}
}

func TestComputeIgnoresUnknownPhases(t *testing.T) {
	cat := twoPhaseCatalog(t)
	result := Compute(cat, map[int]int{1: 200, 2: 200, 9: 500})
	if result.TotalScore != 400 || result.MaturityScore != 100 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestMaturityRoundsHalfUpAndClamps(t *testing.T) {
	cases := []struct {
		total, max, want int
	}{
		{0, 400, 0},
		{1, 8, 13},
		{1, 3, 33},
		{2, 3, 67},
		{340, 400, 85},
		{900, 400, 100},
		{-20, 400, 0},
		{10, 0, 0},
	}
	for _, tc := range cases {
		if got := Maturity(tc.total, tc.max); got != tc.want {
			t.Fatalf("Maturity(%d, %d) = %d, want %d", tc.total, tc.max, got, tc.want)
		}
	}
}

func TestGenerateBuildsPendingSubmission(t *testing.T) {
	cat := twoPhaseCatalog(t)
	started := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	finished := started.Add(10 * time.Minute)
	scores := map[int]int{1: 200, 2: 160}
	sub := Generate(cat, Input{
		ID:          "seed-1",
		UserName:    " Marie ",
		ProjectName: "MyStartup ",
		PhaseScores: scores,
		CreatedAt:   started,
		SubmittedAt: finished,
	})
	if sub.Status != submission.StatusPending {
		t.Fatalf("status = %s, want pending", sub.Status)
	}
	if sub.UserName != "Marie" || sub.ProjectName != "MyStartup" {
		t.Fatalf("identity not trimmed: %q / %q", sub.UserName, sub.ProjectName)
	}
	if !sub.CreatedAt.Equal(started) || !sub.SubmittedAt.Equal(finished) {
		t.Fatalf("unexpected timestamps %v / %v", sub.CreatedAt, sub.SubmittedAt)
	}
	if sub.EvaluatedBy != nil || sub.EvaluatedAt != nil || sub.EvaluationNotes != "" {
		t.Fatalf("evaluation fields must be unset: %+v", sub)
	}
	if sub.MaturityScore != 90 || sub.TotalScore != 360 || sub.MaxScore != 400 {
		t.Fatalf("unexpected scores %+v", sub)
	}
	scores[1] = 0
	if sub.PhaseScores[1] != 200 {
		t.Fatalf("submission must not alias the input scores")
	}
	again := Recompute(cat, sub)
	if again.MaturityScore != sub.MaturityScore || !reflect.DeepEqual(again.Milestones, sub.Milestones) {
		t.Fatalf("recompute drifted: %+v vs %+v", again, sub)
	}
}

func TestGenerateDefaultsCreatedAtToSubmittedAt(t *testing.T) {
	cat := twoPhaseCatalog(t)
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	sub := Generate(cat, Input{ID: "x", ProjectName: "p", SubmittedAt: at})
	if !sub.CreatedAt.Equal(at) {
		t.Fatalf("createdAt = %v, want %v", sub.CreatedAt, at)
	}
}

func TestLevelsAndBands(t *testing.T) {
	if Level(80) != "Excellent" || Level(79) != "Bon" || Level(40) != "Acceptable" || Level(39) != "À améliorer" {
		t.Fatalf("unexpected level mapping")
	}
	if BandFor(30) != BandFragile || BandFor(31) != BandImprove || BandFor(70) != BandImprove || BandFor(71) != BandReady {
		t.Fatalf("unexpected band mapping")
	}
	if BandReady.Label() == "" || Verdict(10) == "" {
		t.Fatalf("labels must not be empty")
	}
	if PhasePercent(150, 200) != 75 {
		t.Fatalf("phase percent = %d, want 75", PhasePercent(150, 200))
	}
}
