package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"feedback_agent/feedback"
)

// DefaultSQLitePath is used when no database path is configured.
const DefaultSQLitePath = "feedback.db"

// SQLiteStore persists runs in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) and migrates the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: ping: %w", err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// NewSQLite wraps an existing, already migrated handle.
func NewSQLite(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store: db is nil")
	}
	return &SQLiteStore{db: db}, nil
}

// SaveRun upserts the run record.
func (s *SQLiteStore) SaveRun(ctx context.Context, rec feedback.RunRecord) error {
	if err := checkID(rec.ID); err != nil {
		return fmt.Errorf("sqlite store: save run: %w", err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sqlite store: save run: marshal: %w", err)
	}
	sum := summarize(rec)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, status, topic, iterations, overall_score, started_at, finished_at, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			topic = excluded.topic,
			iterations = excluded.iterations,
			overall_score = excluded.overall_score,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			record = excluded.record`,
		sum.ID, string(sum.Status), sum.Topic, sum.Iterations, sum.OverallScore,
		sum.StartedAt.UTC().Format(time.RFC3339Nano), sum.FinishedAt.UTC().Format(time.RFC3339Nano), string(data))
	if err != nil {
		return fmt.Errorf("sqlite store: save run: %w", err)
	}
	return nil
}

// SaveFinal upserts the final result.
func (s *SQLiteStore) SaveFinal(ctx context.Context, res feedback.RunResult) error {
	if err := checkID(res.RunID); err != nil {
		return fmt.Errorf("sqlite store: save final: %w", err)
	}
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("sqlite store: save final: marshal: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO finals (run_id, status, result, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			status = excluded.status,
			result = excluded.result,
			saved_at = excluded.saved_at`,
		res.RunID, string(res.Status), string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("sqlite store: save final: %w", err)
	}
	return nil
}

// ListRuns returns summaries, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, topic, iterations, overall_score, started_at, finished_at
		FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: list: %w", err)
	}
	defer rows.Close()

	out := []RunSummary{}
	for rows.Next() {
		var (
			sum               RunSummary
			status            string
			started, finished string
		)
		if err := rows.Scan(&sum.ID, &status, &sum.Topic, &sum.Iterations, &sum.OverallScore, &started, &finished); err != nil {
			return nil, fmt.Errorf("sqlite store: list: scan: %w", err)
		}
		sum.Status = feedback.Status(status)
		sum.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		sum.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite store: list: %w", err)
	}
	return out, nil
}

// LoadRun reads one run record.
func (s *SQLiteStore) LoadRun(ctx context.Context, id string) (feedback.RunRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM runs WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return feedback.RunRecord{}, ErrRunNotFound
	}
	if err != nil {
		return feedback.RunRecord{}, fmt.Errorf("sqlite store: load: %w", err)
	}
	var rec feedback.RunRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return feedback.RunRecord{}, fmt.Errorf("sqlite store: decode %s: %w", id, err)
	}
	return rec, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close(context.Context) error {
	return s.db.Close()
}
