// Package store persists submissions. Every implementation keeps insertion
// order for List, replaces a record in place when Save sees a known id, and
// runs Update as a single read-check-write step.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/digital-seeds-4/preincubation/internal/submission"
)

// ErrNotFound is returned when no submission carries the requested id.
var ErrNotFound = errors.New("store: submission not found")

// Store is the submission persistence capability shared by the assessment
// session and the evaluation workflow.
type Store interface {
	List(ctx context.Context) ([]submission.Submission, error)
	Get(ctx context.Context, id string) (submission.Submission, error)
	// Save creates the submission when its id is unknown and replaces it
	// otherwise.
	Save(ctx context.Context, sub submission.Submission) error
	// FindByProjectName returns the most recently submitted record whose
	// normalized project name matches.
	FindByProjectName(ctx context.Context, name string) (submission.Submission, bool, error)
	// Update loads the record, lets fn mutate it and writes it back without
	// another writer interleaving. When fn fails nothing is written and its
	// error is returned unchanged.
	Update(ctx context.Context, id string, fn func(*submission.Submission) error) (submission.Submission, error)
	Close() error
}

// NormalizeName folds a project name to the form used for lookups: trimmed,
// inner whitespace collapsed and Unicode NFC composed, so "Café" typed with a
// combining accent matches the precomposed spelling.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.Join(strings.Fields(name), " "))
}

func checkSubmission(sub submission.Submission) error {
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

// newer reports whether candidate should win a project-name lookup over
// current. Later submissions win; ties go to the later stored record.
func newer(candidate, current submission.Submission) bool {
	return !candidate.SubmittedAt.Before(current.SubmittedAt)
}
