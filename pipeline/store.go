package pipeline

import (
	"context"

	"feedback_agent/feedback"
)

// Store persists finished runs. Both calls are made once per run and must be
// safe to repeat for the same run ID.
type Store interface {
	SaveRun(ctx context.Context, record feedback.RunRecord) error
	SaveFinal(ctx context.Context, result feedback.RunResult) error
}

type nopStore struct{}

func (nopStore) SaveRun(context.Context, feedback.RunRecord) error { return nil }
func (nopStore) SaveFinal(context.Context, feedback.RunResult) error { return nil }
