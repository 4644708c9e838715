package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digital-seeds-4/preincubation/internal/catalog"
	"github.com/digital-seeds-4/preincubation/internal/dossier"
	"github.com/digital-seeds-4/preincubation/internal/evaluation"
	"github.com/digital-seeds-4/preincubation/internal/submission"
)

func newProject(t *testing.T) string {
	t.Helper()
	for _, key := range []string{"INCUBATOR_STORE_DSN", "INCUBATOR_STORE_PATH", "INCUBATOR_CATALOG", "INCUBATOR_REVIEWER"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("INCUBATOR_STORE_DRIVER", "file")
	return t.TempDir()
}

func pending(id, project string, score int) submission.Submission {
	at := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	return submission.Submission{
		ID:            id,
		ProjectName:   project,
		UserName:      "Marie",
		CreatedAt:     at,
		SubmittedAt:   at,
		MaturityScore: score,
		PhaseScores:   map[int]int{1: 120},
		TotalScore:    120,
		MaxScore:      200,
		Status:        submission.StatusPending,
	}
}

// seed imports subs through the import command.
func seed(t *testing.T, project string, subs ...submission.Submission) {
	t.Helper()
	exporter, err := dossier.New(catalog.Default())
	require.NoError(t, err)
	data, err := exporter.Collection(subs)
	require.NoError(t, err)
	file := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(file, data, 0o644))
	out := invoke(t, project, "import", "-file", file)
	require.Contains(t, out, "imported")
}

func invoke(t *testing.T, project string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), append([]string{"-project", project}, args...), &out)
	require.NoError(t, err, "output: %s", out.String())
	return out.String()
}

func TestListAndStats(t *testing.T) {
	project := newProject(t)
	seed(t, project, pending("a", "Alpha", 60), pending("b", "Beta", 55))

	out := invoke(t, project, "list")
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "Beta")
	assert.Contains(t, out, "60%")

	invoke(t, project, "evaluate", "-id", "a", "-decision", "approve", "-notes", "solide")

	out = invoke(t, project, "list", "-status", "pending")
	assert.NotContains(t, out, "Alpha")
	assert.Contains(t, out, "Beta")

	out = invoke(t, project, "stats")
	assert.Contains(t, out, "total: 2")
	assert.Contains(t, out, "approved: 1")
	assert.Contains(t, out, "pending: 1")
	assert.Contains(t, out, "average maturity: 58%")
}

func TestEvaluateUsesConfiguredReviewerAndRefusesTwice(t *testing.T) {
	project := newProject(t)
	t.Setenv("INCUBATOR_REVIEWER", "coach")
	seed(t, project, pending("a", "Alpha", 60))

	out := invoke(t, project, "evaluate", "-id", "a", "-decision", "reject")
	assert.Equal(t, "a (Alpha) rejected by coach\n", out)

	var buf bytes.Buffer
	err := run(context.Background(), []string{"-project", project, "evaluate", "-id", "a", "-decision", "approve"}, &buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, evaluation.ErrAlreadyEvaluated)

	err = run(context.Background(), []string{"-project", project, "evaluate", "-id", "missing", "-decision", "approve"}, &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	err = run(context.Background(), []string{"-project", project, "evaluate", "-id", "a", "-decision", "maybe"}, &buf)
	require.Error(t, err)
}

func TestExportWritesDossiers(t *testing.T) {
	project := newProject(t)
	seed(t, project, pending("a", "Mon projet", 60), pending("b", "Beta", 55))
	outDir := t.TempDir()

	out := invoke(t, project, "export", "-id", "a", "-out", outDir)
	path := strings.TrimSpace(out)
	assert.Equal(t, filepath.Join(outDir, "projet_Mon_projet.md"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "DOSSIER PROJET")

	out = invoke(t, project, "export", "-all", "-format", "json", "-out", outDir)
	data, err = os.ReadFile(strings.TrimSpace(out))
	require.NoError(t, err)
	collection, err := dossier.ReadCollection(data)
	require.NoError(t, err)
	assert.Len(t, collection.Submissions, 2)
}

func TestUsageErrors(t *testing.T) {
	project := newProject(t)
	var buf bytes.Buffer
	assert.Error(t, run(context.Background(), []string{"-project", project}, &buf))
	assert.Error(t, run(context.Background(), []string{"-project", project, "frobnicate"}, &buf))
	assert.Error(t, run(context.Background(), []string{"-project", project, "export"}, &buf))
	assert.Error(t, run(context.Background(), []string{"-project", project, "import"}, &buf))
}

func TestReimportKeepsFinalEvaluation(t *testing.T) {
	project := newProject(t)
	stale := pending("a", "Alpha", 60)
	fresh := pending("b", "Beta", 55)
	seed(t, project, stale, fresh)

	invoke(t, project, "evaluate", "-id", "a", "-decision", "reject", "-notes", "revoir le pitch", "-by", "mentor1")

	fresh.MaturityScore = 70
	exporter, err := dossier.New(catalog.Default())
	require.NoError(t, err)
	data, err := exporter.Collection([]submission.Submission{stale, fresh})
	require.NoError(t, err)
	file := filepath.Join(t.TempDir(), "stale.json")
	require.NoError(t, os.WriteFile(file, data, 0o644))

	out := invoke(t, project, "import", "-file", file)
	assert.Contains(t, out, "skipped a: already rejected")
	assert.Contains(t, out, "imported 1 submission(s), skipped 1")

	out = invoke(t, project, "list", "-status", "rejected")
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "mentor1")
	out = invoke(t, project, "list", "-status", "pending")
	assert.Contains(t, out, "70%")

	var buf bytes.Buffer
	err = run(context.Background(), []string{"-project", project, "evaluate", "-id", "a", "-decision", "approve", "-by", "mentor2"}, &buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, evaluation.ErrAlreadyEvaluated)
}
