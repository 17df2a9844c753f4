package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/Nomankaif/debtprotection-quiz/internal/models"
)

// SQLiteSubmissionRepo keeps the same JSON documents as SubmissionRepo in a
// single SQLite table, for running the service without an OxiDB server.
type SQLiteSubmissionRepo struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite database at dsn.
func OpenSQLite(dsn string) (*SQLiteSubmissionRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single connection for SQLite to avoid locking issues.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}
	return &SQLiteSubmissionRepo{db: db}, nil
}

func (r *SQLiteSubmissionRepo) EnsureIndexes(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS quiz_submissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			doc TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quiz_submissions_created_at ON quiz_submissions (created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_quiz_submissions_debt_amount ON quiz_submissions (json_extract(doc, '$.debtAmount'))`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite schema: %w", err)
		}
	}
	return nil
}

func (r *SQLiteSubmissionRepo) Create(ctx context.Context, sub *models.Submission) (string, error) {
	doc, err := submissionToDoc(sub)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal submission doc: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO quiz_submissions (doc, created_at) VALUES (?, ?)`,
		string(data), sub.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert submission: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("insert submission: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (r *SQLiteSubmissionRepo) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, nil
	}
	var raw string
	err = r.db.QueryRowContext(ctx, `SELECT doc FROM quiz_submissions WHERE id = ?`, n).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find submission %s: %w", id, err)
	}
	return rowToSubmission(n, raw)
}

func (r *SQLiteSubmissionRepo) List(ctx context.Context, skip, limit int) ([]models.Submission, int, error) {
	total, err := r.CountBy(ctx, "", "")
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, doc FROM quiz_submissions ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, skip)
	if err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	subs := make([]models.Submission, 0, limit)
	for rows.Next() {
		var (
			id  int64
			raw string
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, 0, fmt.Errorf("scan submission: %w", err)
		}
		s, err := rowToSubmission(id, raw)
		if err != nil {
			continue
		}
		subs = append(subs, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}
	return subs, total, nil
}

func (r *SQLiteSubmissionRepo) CountBy(ctx context.Context, field, value string) (int, error) {
	var (
		n   int
		err error
	)
	if field == "" {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quiz_submissions`).Scan(&n)
	} else {
		if !countableFields[field] {
			return 0, fmt.Errorf("count by %q: unsupported field", field)
		}
		err = r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM quiz_submissions WHERE json_extract(doc, ?) = ?`,
			"$."+field, value).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}

func (r *SQLiteSubmissionRepo) Indexes(ctx context.Context) ([]map[string]any, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, sql FROM sqlite_master WHERE type = 'index' AND tbl_name = ? ORDER BY name`,
		SubmissionsCollection)
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	defer rows.Close()
	out := []map[string]any{}
	for rows.Next() {
		var name string
		var def sql.NullString
		if err := rows.Scan(&name, &def); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		out = append(out, map[string]any{"name": name, "sql": def.String})
	}
	return out, rows.Err()
}

func (r *SQLiteSubmissionRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteSubmissionRepo) Close() error {
	return r.db.Close()
}

func rowToSubmission(id int64, raw string) (*models.Submission, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal submission doc: %w", err)
	}
	doc["_id"] = strconv.FormatInt(id, 10)
	return docToSubmission(doc)
}
