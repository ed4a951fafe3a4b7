package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"feedback_agent/feedback"
)

// DefaultDir is where FileStore writes when no directory is configured.
const DefaultDir = "runs"

// FileStore keeps one JSON document per run under dir and one per final
// result under dir/final.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the directory layout if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(filepath.Join(dir, "final"), 0o755); err != nil {
		return nil, fmt.Errorf("file store: create dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir reports the root directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) runPath(id string) string {
	return filepath.Join(s.dir, "run_"+id+".json")
}

func (s *FileStore) finalPath(id string) string {
	return filepath.Join(s.dir, "final", "final_"+id+".json")
}

// SaveRun writes the run record, replacing any earlier write for the same ID.
func (s *FileStore) SaveRun(_ context.Context, rec feedback.RunRecord) error {
	if err := checkID(rec.ID); err != nil {
		return fmt.Errorf("file store: save run: %w", err)
	}
	return s.writeJSON(s.runPath(rec.ID), rec)
}

// SaveFinal writes the final result, replacing any earlier write for the same ID.
func (s *FileStore) SaveFinal(_ context.Context, res feedback.RunResult) error {
	if err := checkID(res.RunID); err != nil {
		return fmt.Errorf("file store: save final: %w", err)
	}
	return s.writeJSON(s.finalPath(res.RunID), res)
}

func (s *FileStore) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("file store: marshal: %w", err)
	}
	data, err = sjson.SetBytes(data, "saved_at", time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("file store: stamp saved_at: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("file store: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("file store: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file store: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("file store: rename: %w", err)
	}
	return nil
}

// ListRuns reads the summary fields of every run file. Unreadable files are skipped.
func (s *FileStore) ListRuns(_ context.Context) ([]RunSummary, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "run_*.json"))
	if err != nil {
		return nil, fmt.Errorf("file store: list: %w", err)
	}
	out := make([]RunSummary, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil || !gjson.ValidBytes(data) {
			continue
		}
		f := gjson.GetManyBytes(data,
			"id", "status", "input_packet.topic", "iteration",
			"final.final_review.overall_score", "started_at", "finished_at")
		out = append(out, RunSummary{
			ID:           f[0].String(),
			Status:       feedback.Status(f[1].String()),
			Topic:        f[2].String(),
			Iterations:   int(f[3].Int()),
			OverallScore: int(f[4].Int()),
			StartedAt:    f[5].Time(),
			FinishedAt:   f[6].Time(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

// LoadRun reads one run record.
func (s *FileStore) LoadRun(_ context.Context, id string) (feedback.RunRecord, error) {
	if checkID(id) != nil {
		return feedback.RunRecord{}, ErrRunNotFound
	}
	data, err := os.ReadFile(s.runPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return feedback.RunRecord{}, ErrRunNotFound
	}
	if err != nil {
		return feedback.RunRecord{}, fmt.Errorf("file store: read: %w", err)
	}
	var rec feedback.RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return feedback.RunRecord{}, fmt.Errorf("file store: decode %s: %w", id, err)
	}
	return rec, nil
}

// Close is a no-op.
func (s *FileStore) Close(context.Context) error { return nil }
