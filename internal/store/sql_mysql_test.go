package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digital-seeds-4/preincubation/internal/submission"
)

var mysqlColumns = []string{
	"id", "project_name", "project_key", "user_name", "created_at", "submitted_at",
	"maturity_score", "phase_scores", "total_score", "max_score", "milestones", "recommendations",
	"evaluation_status", "evaluation_notes", "evaluated_by", "evaluated_at",
}

func newMySQLMock(t *testing.T) (*SQL, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS submissions \(`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := NewSQL(context.Background(), db, MySQLDialect)
	require.NoError(t, err)
	return s, mock
}

func pendingRow() *sqlmock.Rows {
	return sqlmock.NewRows(mysqlColumns).AddRow(
		"x", "Café Lumière", "Café Lumière", "Marie",
		"2026-03-01T09:45:00.000000000Z", "2026-03-01T10:00:00.000000000Z",
		85, `{"1":170,"2":170}`, 340, 400,
		`["✓ Concept validé"]`, `["Bravo! Continuer sur cette lancée."]`,
		"pending", "", nil, nil,
	)
}

func TestMySQLSaveUsesDuplicateKeyUpsert(t *testing.T) {
	s, mock := newMySQLMock(t)
	mock.ExpectExec(`(?s)INSERT INTO submissions \(.*\) VALUES \(.*\) ON DUPLICATE KEY UPDATE project_name = VALUES\(project_name\)`).
		WithArgs(
			"x", "Café Lumière", "Café Lumière", "Marie",
			sqlmock.AnyArg(), sqlmock.AnyArg(),
			85, `{"1":170,"2":170}`, 340, 400,
			sqlmock.AnyArg(), sqlmock.AnyArg(),
			"pending", "", sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sub := sample("x", "Café Lumière", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, s.Save(context.Background(), sub))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLGetDecodesRow(t *testing.T) {
	s, mock := newMySQLMock(t)
	mock.ExpectQuery(`(?s)SELECT .* FROM submissions WHERE id = \?`).
		WithArgs("x").
		WillReturnRows(pendingRow())

	got, err := s.Get(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "Café Lumière", got.ProjectName)
	assert.Equal(t, map[int]int{1: 170, 2: 170}, got.PhaseScores)
	assert.Equal(t, []string{"✓ Concept validé"}, got.Milestones)
	assert.Equal(t, submission.StatusPending, got.Status)
	assert.Nil(t, got.EvaluatedBy)
	assert.Equal(t, 10, got.SubmittedAt.Hour())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLGetMissingRow(t *testing.T) {
	s, mock := newMySQLMock(t)
	mock.ExpectQuery(`(?s)SELECT .* FROM submissions WHERE id = \?`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(mysqlColumns))

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLFindByProjectNameQueriesNormalizedKey(t *testing.T) {
	s, mock := newMySQLMock(t)
	mock.ExpectQuery(`(?s)SELECT .* FROM submissions WHERE project_key = \? ORDER BY submitted_at DESC, seq DESC LIMIT 1`).
		WithArgs("Café Lumière").
		WillReturnRows(pendingRow())

	found, ok, err := s.FindByProjectName(context.Background(), "  Café   Lumière ")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "x", found.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLUpdateLocksRowInsideTransaction(t *testing.T) {
	s, mock := newMySQLMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)SELECT .* FROM submissions WHERE id = \? FOR UPDATE`).
		WithArgs("x").
		WillReturnRows(pendingRow())
	mock.ExpectExec(`(?s)INSERT INTO submissions .* ON DUPLICATE KEY UPDATE`).
		WithArgs(
			"x", "Café Lumière", "Café Lumière", "Marie",
			sqlmock.AnyArg(), sqlmock.AnyArg(),
			85, sqlmock.AnyArg(), 340, 400,
			sqlmock.AnyArg(), sqlmock.AnyArg(),
			"approved", "solid", sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	updated, err := s.Update(context.Background(), "x", func(sub *submission.Submission) error {
		by := "mentor1"
		at := sub.SubmittedAt
		sub.Status = submission.StatusApproved
		sub.EvaluationNotes = "solid"
		sub.EvaluatedBy = &by
		sub.EvaluatedAt = &at
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, submission.StatusApproved, updated.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLUpdateRollsBackWhenCallbackFails(t *testing.T) {
	s, mock := newMySQLMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)SELECT .* FOR UPDATE`).
		WithArgs("x").
		WillReturnRows(pendingRow())
	mock.ExpectRollback()

	veto := errors.New("already decided")
	_, err := s.Update(context.Background(), "x", func(*submission.Submission) error { return veto })
	assert.ErrorIs(t, err, veto)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenMySQLRejectsMalformedDSN(t *testing.T) {
	_, err := OpenMySQL(context.Background(), "not a dsn")
	assert.ErrorContains(t, err, "parse mysql dsn")
}
