package submission

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestJSONShapeMatchesExportFormat(t *testing.T) {
	created := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	sub := Submission{
		ID:              "seed-1",
		ProjectName:     "MyStartup",
		UserName:        "Marie Dupont",
		CreatedAt:       created,
		SubmittedAt:     created,
		MaturityScore:   85,
		PhaseScores:     map[int]int{1: 170, 2: 170},
		TotalScore:      340,
		MaxScore:        400,
		Milestones:      []string{"✓ Concept validé"},
		Recommendations: []string{"Bravo! Continuer sur cette lancée."},
		Status:          StatusPending,
	}
	data, err := json.Marshal(sub)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{
		"id", "projectName", "userName", "createdAt", "submittedAt", "maturityScore",
		"phaseScores", "totalScore", "maxScore", "milestones", "recommendations",
		"evaluationStatus", "evaluationNotes", "evaluatedBy", "evaluatedAt",
	} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("missing key %s in %s", key, data)
		}
	}
	if len(raw) != 15 {
		t.Fatalf("expected exactly 15 fields, got %d", len(raw))
	}
	if raw["evaluatedBy"] != nil || raw["evaluatedAt"] != nil {
		t.Fatalf("expected null evaluator fields, got %v / %v", raw["evaluatedBy"], raw["evaluatedAt"])
	}
	if raw["createdAt"] != "2026-03-04T10:00:00Z" {
		t.Fatalf("expected ISO-8601 timestamp, got %v", raw["createdAt"])
	}
	scores, ok := raw["phaseScores"].(map[string]any)
	if !ok || scores["1"] != float64(170) {
		t.Fatalf("unexpected phaseScores encoding: %v", raw["phaseScores"])
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	by := "mentor1"
	at := time.Now()
	sub := Submission{
		PhaseScores:     map[int]int{1: 100},
		Milestones:      []string{"a"},
		Recommendations: []string{"b"},
		EvaluatedBy:     &by,
		EvaluatedAt:     &at,
	}
	clone := sub.Clone()
	clone.PhaseScores[1] = 0
	clone.Milestones[0] = "changed"
	*clone.EvaluatedBy = "other"
	if sub.PhaseScores[1] != 100 || sub.Milestones[0] != "a" || *sub.EvaluatedBy != "mentor1" {
		t.Fatalf("clone aliases original: %+v", sub)
	}
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus("  Approved ")
	if err != nil || status != StatusApproved {
		t.Fatalf("ParseStatus = %q, %v", status, err)
	}
	if _, err := ParseStatus("archived"); err == nil || !strings.Contains(err.Error(), "archived") {
		t.Fatalf("expected unknown status error, got %v", err)
	}
	if StatusPending.IsTerminal() {
		t.Fatalf("pending must not be terminal")
	}
	for _, s := range []Status{StatusEvaluated, StatusApproved, StatusRejected} {
		if !s.IsTerminal() {
			t.Fatalf("%s must be terminal", s)
		}
	}
}

func TestValidate(t *testing.T) {
	sub := Submission{ID: "x", ProjectName: "p", Status: StatusPending, MaturityScore: 50}
	if err := sub.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	sub.MaturityScore = 101
	if err := sub.Validate(); err == nil {
		t.Fatalf("expected score bound error")
	}
	sub.MaturityScore = 10
	sub.Status = "archived"
	if err := sub.Validate(); err == nil {
		t.Fatalf("expected status error")
	}
}
