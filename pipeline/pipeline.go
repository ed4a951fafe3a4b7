// Package pipeline drives the generate -> evaluate -> revise loop for one
// request until a draft passes review or the iteration budget runs out.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"feedback_agent/feedback"
)

// DefaultMaxIterations is the revision budget used when none is configured.
const DefaultMaxIterations = 4

// Generator produces and revises drafts. Implementations absorb their own
// backend failures and always return a valid draft.
type Generator interface {
	Generate(ctx context.Context, req feedback.RequestContext) feedback.Draft
	Revise(ctx context.Context, prev feedback.Draft, instructions []string, req feedback.RequestContext) feedback.Draft
}

// Evaluator reviews drafts and never fails.
type Evaluator interface {
	Evaluate(ctx context.Context, d feedback.Draft, req feedback.RequestContext) feedback.Review
}

// Config bounds a run.
type Config struct {
	// MaxIterations is the number of revision cycles allowed; 0 means DefaultMaxIterations.
	MaxIterations int `yaml:"max_iterations" json:"max_iterations" env:"FEEDBACK_MAX_ITERATIONS"`
}

// Pipeline runs the self-evaluation loop. It keeps no per-run state, so one
// Pipeline may serve concurrent runs.
type Pipeline struct {
	gen   Generator
	eval  Evaluator
	store Store
	cfg   Config
	log   logrus.FieldLogger
	newID func() string
	now   func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger for run progress and persistence failures.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithIDFunc overrides run ID generation.
func WithIDFunc(fn func() string) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.newID = fn
		}
	}
}

// WithClock overrides the time source used for run timestamps.
func WithClock(fn func() time.Time) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.now = fn
		}
	}
}

// New wires a pipeline. A nil store disables persistence.
func New(gen Generator, eval Evaluator, store Store, cfg Config, opts ...Option) (*Pipeline, error) {
	if gen == nil {
		return nil, errors.New("pipeline: generator is required")
	}
	if eval == nil {
		return nil, errors.New("pipeline: evaluator is required")
	}
	if cfg.MaxIterations < 0 {
		return nil, fmt.Errorf("pipeline: max iterations must be positive, got %d", cfg.MaxIterations)
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if store == nil {
		store = nopStore{}
	}

	p := &Pipeline{
		gen:   gen,
		eval:  eval,
		store: store,
		cfg:   cfg,
		log:   logrus.StandardLogger(),
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.WithField("component", "pipeline")
	return p, nil
}

// MaxIterations reports the effective revision budget.
func (p *Pipeline) MaxIterations() int {
	return p.cfg.MaxIterations
}

// Run executes one request to completion. The only error is a request that
// fails validation; every other failure degrades inside the loop.
func (p *Pipeline) Run(ctx context.Context, req feedback.RequestContext) (feedback.RunResult, error) {
	if err := req.Validate(); err != nil {
		return feedback.RunResult{}, err
	}
	r := newRun(p.newID(), req.Clone(), p.now())
	log := p.log.WithField("run_id", r.id)

	log.WithField("state", StateGenerating).Debug("generating first draft")
	draft := p.gen.Generate(ctx, r.req)

	var state State
	for {
		review := p.eval.Evaluate(ctx, draft, r.req)
		r.appendIteration(draft, review)
		state = Next(review, r.iteration, p.cfg.MaxIterations)

		log.WithFields(logrus.Fields{
			"state":     StateEvaluating,
			"iteration": r.iteration,
			"score":     review.OverallScore,
			"pass":      review.Pass,
			"next":      state,
		}).Info("draft evaluated")

		if state.Terminal() {
			break
		}
		draft = p.gen.Revise(ctx, draft, review.RevisionInstructions, r.req)
		r.iteration++
	}

	result, record := r.finish(state, p.now())
	p.persist(ctx, log, record, result)
	log.WithFields(logrus.Fields{
		"status":     result.Status,
		"iterations": record.Iterations,
	}).Info("run finished")
	return result, nil
}

// persist hands copies to the store so it cannot alter the returned result.
// Store failures are logged and otherwise ignored.
func (p *Pipeline) persist(ctx context.Context, log logrus.FieldLogger, record feedback.RunRecord, result feedback.RunResult) {
	if err := p.store.SaveRun(ctx, record.Clone()); err != nil {
		log.WithError(err).Warn("save run failed")
	}
	if err := p.store.SaveFinal(ctx, result.Clone()); err != nil {
		log.WithError(err).Warn("save final failed")
	}
}
