// Package storage persists run records and final results. The pipeline only
// writes; the CLI and HTTP server read back through ListRuns and LoadRun.
package storage

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"feedback_agent/feedback"
)

// Driver names accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config selects and configures a store.
type Config struct {
	Driver        string `yaml:"driver" json:"driver" env:"FEEDBACK_STORE" validate:"oneof=file sqlite mongo"`
	Dir           string `yaml:"dir" json:"dir" env:"FEEDBACK_STORE_DIR"`
	SQLitePath    string `yaml:"sqlite_path" json:"sqlite_path" env:"FEEDBACK_SQLITE_PATH"`
	MongoURI      string `yaml:"mongo_uri" json:"mongo_uri" env:"FEEDBACK_MONGO_URI"`
	MongoDatabase string `yaml:"mongo_database" json:"mongo_database" env:"FEEDBACK_MONGO_DATABASE"`
}

// RunSummary is the listing view of a stored run.
type RunSummary struct {
	ID           string          `json:"id"`
	Status       feedback.Status `json:"status"`
	Topic        string          `json:"topic"`
	Iterations   int             `json:"iterations"`
	OverallScore int             `json:"overall_score"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
}

// Store is the full persistence surface. It satisfies pipeline.Store.
type Store interface {
	SaveRun(ctx context.Context, rec feedback.RunRecord) error
	SaveFinal(ctx context.Context, res feedback.RunResult) error
	// ListRuns returns summaries, newest first.
	ListRuns(ctx context.Context) ([]RunSummary, error)
	LoadRun(ctx context.Context, id string) (feedback.RunRecord, error)
	Close(ctx context.Context) error
}

// Open builds the store named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverFile, "":
		return NewFileStore(cfg.Dir)
	case DriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	case DriverMongo:
		return OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	}
	return nil, fmt.Errorf("open store: %w: %q", ErrUnknownDriver, cfg.Driver)
}

var runIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

func checkID(id string) error {
	if !runIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidRunID, id)
	}
	return nil
}

func summarize(rec feedback.RunRecord) RunSummary {
	return RunSummary{
		ID:           rec.ID,
		Status:       rec.Status,
		Topic:        rec.Request.Topic,
		Iterations:   rec.Iterations,
		OverallScore: rec.Final.Review.OverallScore,
		StartedAt:    rec.StartedAt,
		FinishedAt:   rec.FinishedAt,
	}
}
