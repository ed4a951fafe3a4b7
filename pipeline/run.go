package pipeline

import (
	"time"

	"feedback_agent/feedback"
)

// run holds the state of one pipeline execution. It is owned by a single
// Run call and never shared.
type run struct {
	id        string
	req       feedback.RequestContext
	iteration int
	history   []feedback.IterationRecord
	startedAt time.Time
}

func newRun(id string, req feedback.RequestContext, startedAt time.Time) *run {
	return &run{
		id:        id,
		req:       req,
		startedAt: startedAt,
	}
}

// appendIteration records an evaluated draft under the current iteration index.
func (r *run) appendIteration(d feedback.Draft, review feedback.Review) {
	r.history = append(r.history, feedback.IterationRecord{
		Iteration: r.iteration,
		Draft:     d,
		Review:    review,
	})
}

// finish builds the result from the last recorded iteration.
func (r *run) finish(state State, finishedAt time.Time) (feedback.RunResult, feedback.RunRecord) {
	last := r.history[len(r.history)-1]
	result := feedback.RunResult{
		RunID:  r.id,
		Status: state.Status(),
		Draft:  last.Draft,
		Review: last.Review,
	}
	record := feedback.RunRecord{
		ID:         r.id,
		Status:     result.Status,
		Request:    r.req,
		Iterations: r.iteration,
		History:    r.history,
		Final:      result,
		StartedAt:  r.startedAt,
		FinishedAt: finishedAt,
	}
	return result, record
}
