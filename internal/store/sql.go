package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/digital-seeds-4/preincubation/internal/submission"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const submissionColumns = `id, project_name, project_key, user_name, created_at, submitted_at,
	maturity_score, phase_scores, total_score, max_score, milestones, recommendations,
	evaluation_status, evaluation_notes, evaluated_by, evaluated_at`

var updatableColumns = []string{
	"project_name", "project_key", "user_name", "created_at", "submitted_at",
	"maturity_score", "phase_scores", "total_score", "max_score", "milestones", "recommendations",
	"evaluation_status", "evaluation_notes", "evaluated_by", "evaluated_at",
}

// Dialect captures the statements that differ between SQL engines.
type Dialect struct {
	Name   string
	schema []string
	// lock is appended to the SELECT that opens an Update transaction.
	lock   string
	upsert func(columns []string) string
}

// SQLiteDialect targets modernc.org/sqlite.
var SQLiteDialect = Dialect{
	Name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS submissions (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	project_name TEXT NOT NULL,
	project_key TEXT NOT NULL,
	user_name TEXT NOT NULL,
	created_at TEXT NOT NULL,
	submitted_at TEXT NOT NULL,
	maturity_score INTEGER NOT NULL,
	phase_scores TEXT NOT NULL,
	total_score INTEGER NOT NULL,
	max_score INTEGER NOT NULL,
	milestones TEXT NOT NULL,
	recommendations TEXT NOT NULL,
	evaluation_status TEXT NOT NULL,
	evaluation_notes TEXT NOT NULL DEFAULT '',
	evaluated_by TEXT,
	evaluated_at TEXT
)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_project_key ON submissions (project_key)`,
	},
	upsert: func(columns []string) string {
		sets := make([]string, len(columns))
		for idx, col := range columns {
			sets[idx] = col + " = excluded." + col
		}
		return "ON CONFLICT(id) DO UPDATE SET " + strings.Join(sets, ", ")
	},
}

// MySQLDialect targets github.com/go-sql-driver/mysql.
var MySQLDialect = Dialect{
	Name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS submissions (
	seq BIGINT AUTO_INCREMENT PRIMARY KEY,
	id VARCHAR(64) NOT NULL,
	project_name VARCHAR(255) NOT NULL,
	project_key VARCHAR(255) NOT NULL,
	user_name VARCHAR(255) NOT NULL,
	created_at VARCHAR(40) NOT NULL,
	submitted_at VARCHAR(40) NOT NULL,
	maturity_score INT NOT NULL,
	phase_scores TEXT NOT NULL,
	total_score INT NOT NULL,
	max_score INT NOT NULL,
	milestones TEXT NOT NULL,
	recommendations TEXT NOT NULL,
	evaluation_status VARCHAR(16) NOT NULL,
	evaluation_notes TEXT NOT NULL,
	evaluated_by VARCHAR(255) NULL,
	evaluated_at VARCHAR(40) NULL,
	UNIQUE KEY unique_submission_id (id),
	INDEX idx_submissions_project_key (project_key)
) DEFAULT CHARSET=utf8mb4`,
	},
	lock: " FOR UPDATE",
	upsert: func(columns []string) string {
		sets := make([]string, len(columns))
		for idx, col := range columns {
			sets[idx] = col + " = VALUES(" + col + ")"
		}
		return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	},
}

// SQL stores submissions in a single relational table.
type SQL struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLite opens (creating if needed) a SQLite database file.
func OpenSQLite(ctx context.Context, path string) (*SQL, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store: sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite db: %w", err)
	}
	// one connection serializes writers, which Update relies on
	db.SetMaxOpenConns(1)
	store, err := NewSQL(ctx, db, SQLiteDialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// OpenMySQL connects to MySQL using a go-sql-driver DSN.
func OpenMySQL(ctx context.Context, dsn string) (*SQL, error) {
	cfg, err := mysql.ParseDSN(strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("store: parse mysql dsn: %w", err)
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("store: mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	store, err := NewSQL(ctx, db, MySQLDialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQL wraps an open database and ensures the schema exists.
func NewSQL(ctx context.Context, db *sql.DB, dialect Dialect) (*SQL, error) {
	if db == nil {
		return nil, fmt.Errorf("store: database handle is required")
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("store: ping %s db: %w", dialect.Name, err)
	}
	for _, stmt := range dialect.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("store: apply %s schema: %w", dialect.Name, err)
		}
	}
	return &SQL{db: db, dialect: dialect}, nil
}

// List returns every submission in insertion order.
func (s *SQL) List(ctx context.Context) ([]submission.Submission, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+submissionColumns+" FROM submissions ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("store: list submissions: %w", err)
	}
	defer rows.Close()
	var out []submission.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list submissions: %w", err)
	}
	return out, nil
}

// Get returns the submission with the given id.
func (s *SQL) Get(ctx context.Context, id string) (submission.Submission, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+submissionColumns+" FROM submissions WHERE id = ?", id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return submission.Submission{}, ErrNotFound
	}
	return sub, err
}

// Save upserts the submission by id. Replacing keeps the original row
// position.
func (s *SQL) Save(ctx context.Context, sub submission.Submission) error {
	if err := checkSubmission(sub); err != nil {
		return err
	}
	if err := s.upsert(ctx, s.db, sub); err != nil {
		return fmt.Errorf("store: save %s: %w", sub.ID, err)
	}
	return nil
}

// FindByProjectName returns the latest submission for the project.
func (s *SQL) FindByProjectName(ctx context.Context, name string) (submission.Submission, bool, error) {
	key := NormalizeName(name)
	if key == "" {
		return submission.Submission{}, false, nil
	}
	row := s.db.QueryRowContext(ctx,
		"SELECT "+submissionColumns+" FROM submissions WHERE project_key = ? ORDER BY submitted_at DESC, seq DESC LIMIT 1",
		key,
	)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return submission.Submission{}, false, nil
	}
	if err != nil {
		return submission.Submission{}, false, err
	}
	return sub, true, nil
}

// Update runs the read-check-write inside one transaction.
func (s *SQL) Update(ctx context.Context, id string, fn func(*submission.Submission) error) (submission.Submission, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return submission.Submission{}, fmt.Errorf("store: begin update %s: %w", id, err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, "SELECT "+submissionColumns+" FROM submissions WHERE id = ?"+s.dialect.lock, id)
	current, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return submission.Submission{}, ErrNotFound
	}
	if err != nil {
		return submission.Submission{}, err
	}
	if err := fn(&current); err != nil {
		return submission.Submission{}, err
	}
	current.ID = id
	if err := checkSubmission(current); err != nil {
		return submission.Submission{}, err
	}
	if err := s.upsert(ctx, tx, current); err != nil {
		return submission.Submission{}, fmt.Errorf("store: update %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return submission.Submission{}, fmt.Errorf("store: commit update %s: %w", id, err)
	}
	return current, nil
}

// Close releases the database handle.
func (s *SQL) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQL) upsert(ctx context.Context, exec execer, sub submission.Submission) error {
	args, err := submissionArgs(sub)
	if err != nil {
		return err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	query := "INSERT INTO submissions (" + submissionColumns + ") VALUES (" + placeholders + ") " +
		s.dialect.upsert(updatableColumns)
	_, err = exec.ExecContext(ctx, query, args...)
	return err
}

func submissionArgs(sub submission.Submission) ([]any, error) {
	scores, err := json.Marshal(nonNilScores(sub.PhaseScores))
	if err != nil {
		return nil, fmt.Errorf("encode phase scores: %w", err)
	}
	milestones, err := json.Marshal(nonNilStrings(sub.Milestones))
	if err != nil {
		return nil, fmt.Errorf("encode milestones: %w", err)
	}
	recommendations, err := json.Marshal(nonNilStrings(sub.Recommendations))
	if err != nil {
		return nil, fmt.Errorf("encode recommendations: %w", err)
	}
	var evaluatedBy, evaluatedAt sql.NullString
	if sub.EvaluatedBy != nil {
		evaluatedBy = sql.NullString{String: *sub.EvaluatedBy, Valid: true}
	}
	if sub.EvaluatedAt != nil {
		evaluatedAt = sql.NullString{String: formatTime(*sub.EvaluatedAt), Valid: true}
	}
	return []any{
		sub.ID,
		sub.ProjectName,
		NormalizeName(sub.ProjectName),
		sub.UserName,
		formatTime(sub.CreatedAt),
		formatTime(sub.SubmittedAt),
		sub.MaturityScore,
		string(scores),
		sub.TotalScore,
		sub.MaxScore,
		string(milestones),
		string(recommendations),
		string(sub.Status),
		sub.EvaluationNotes,
		evaluatedBy,
		evaluatedAt,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (submission.Submission, error) {
	var (
		sub                    submission.Submission
		projectKey, status     string
		createdAt, submittedAt string
		scores, milestones     string
		recommendations        string
		evaluatedBy            sql.NullString
		evaluatedAt            sql.NullString
	)
	err := row.Scan(
		&sub.ID,
		&sub.ProjectName,
		&projectKey,
		&sub.UserName,
		&createdAt,
		&submittedAt,
		&sub.MaturityScore,
		&scores,
		&sub.TotalScore,
		&sub.MaxScore,
		&milestones,
		&recommendations,
		&status,
		&sub.EvaluationNotes,
		&evaluatedBy,
		&evaluatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return submission.Submission{}, err
		}
		return submission.Submission{}, fmt.Errorf("store: scan submission: %w", err)
	}
	sub.Status = submission.Status(status)
	if sub.CreatedAt, err = parseTime(createdAt); err != nil {
		return submission.Submission{}, fmt.Errorf("store: submission %s created_at: %w", sub.ID, err)
	}
	if sub.SubmittedAt, err = parseTime(submittedAt); err != nil {
		return submission.Submission{}, fmt.Errorf("store: submission %s submitted_at: %w", sub.ID, err)
	}
	if err := json.Unmarshal([]byte(scores), &sub.PhaseScores); err != nil {
		return submission.Submission{}, fmt.Errorf("store: submission %s phase_scores: %w", sub.ID, err)
	}
	if err := json.Unmarshal([]byte(milestones), &sub.Milestones); err != nil {
		return submission.Submission{}, fmt.Errorf("store: submission %s milestones: %w", sub.ID, err)
	}
	if err := json.Unmarshal([]byte(recommendations), &sub.Recommendations); err != nil {
		return submission.Submission{}, fmt.Errorf("store: submission %s recommendations: %w", sub.ID, err)
	}
	if evaluatedBy.Valid {
		by := evaluatedBy.String
		sub.EvaluatedBy = &by
	}
	if evaluatedAt.Valid {
		at, err := parseTime(evaluatedAt.String)
		if err != nil {
			return submission.Submission{}, fmt.Errorf("store: submission %s evaluated_at: %w", sub.ID, err)
		}
		sub.EvaluatedAt = &at
	}
	return sub, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(timeLayout, value)
}

func nonNilScores(scores map[int]int) map[int]int {
	if scores == nil {
		return map[int]int{}
	}
	return scores
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
