package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedback_agent/evaluator"
	"feedback_agent/feedback"
	"feedback_agent/generator"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func confidenceRequest() feedback.RequestContext {
	return feedback.RequestContext{
		Topic: "Improve confidence at work",
		Persona: feedback.Persona{
			Goals:       []string{"Speak up in meetings"},
			Preferences: feedback.Preferences{Tone: feedback.ToneSupportive, Format: feedback.FormatHybrid},
		},
		Guidelines:     feedback.Guidelines{MustInclude: feedback.DefaultMustInclude},
		QualityTargets: feedback.QualityTargets{MinActionItems: 3, RequiresMetrics: true, PassThreshold: 80},
		Confidence:     0.9,
	}
}

type recordingStore struct {
	runs   []feedback.RunRecord
	finals []feedback.RunResult
	runErr error
	tamper bool
}

func (s *recordingStore) SaveRun(_ context.Context, rec feedback.RunRecord) error {
	s.runs = append(s.runs, rec)
	if s.tamper && len(rec.History) > 0 {
		rec.History[0].Draft.Summary = "tampered"
		rec.Final.Draft.Strengths[0] = "tampered"
	}
	return s.runErr
}

func (s *recordingStore) SaveFinal(_ context.Context, res feedback.RunResult) error {
	s.finals = append(s.finals, res)
	if s.tamper {
		res.Draft.ActionPlan[0].Action = "tampered"
		res.Review.MajorIssues = append(res.Review.MajorIssues[:0], "tampered")
	}
	return nil
}

// failingEvaluator wraps the rubric but never lets a draft pass.
type failingEvaluator struct {
	calls int
}

func (f *failingEvaluator) Evaluate(_ context.Context, d feedback.Draft, req feedback.RequestContext) feedback.Review {
	f.calls++
	review := evaluator.Assess(d, req)
	review.Pass = false
	review.MajorIssues = append(review.MajorIssues, "Forced failure")
	review.RevisionInstructions = append(review.RevisionInstructions, "Add more detail")
	return review
}

type countingGenerator struct {
	inner     *generator.Generator
	generates int
	revisions int
	firstPlan []feedback.ActionItem
}

func (c *countingGenerator) Generate(ctx context.Context, req feedback.RequestContext) feedback.Draft {
	c.generates++
	d := c.inner.Generate(ctx, req)
	if c.firstPlan != nil {
		d.ActionPlan = c.firstPlan
	}
	return d
}

func (c *countingGenerator) Revise(ctx context.Context, prev feedback.Draft, instructions []string, req feedback.RequestContext) feedback.Draft {
	c.revisions++
	return c.inner.Revise(ctx, prev, instructions, req)
}

func newPipeline(t *testing.T, gen Generator, eval Evaluator, store Store, budget int) *Pipeline {
	t.Helper()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p, err := New(gen, eval, store, Config{MaxIterations: budget},
		WithLogger(quietLogger()),
		WithIDFunc(func() string { return "run-1" }),
		WithClock(func() time.Time { return fixed }),
	)
	require.NoError(t, err)
	return p
}

func TestRun_ValidatesOnFirstIteration(t *testing.T) {
	store := &recordingStore{}
	gen := &countingGenerator{inner: generator.New(nil)}
	p := newPipeline(t, gen, evaluator.New(nil), store, 4)

	result, err := p.Run(context.Background(), confidenceRequest())
	require.NoError(t, err)

	assert.Equal(t, feedback.StatusValidated, result.Status)
	assert.Equal(t, "run-1", result.RunID)
	require.Len(t, result.Draft.ActionPlan, 1)
	assert.Equal(t, "Time-blocking improves consistency and follow-through.", result.Draft.ActionPlan[0].Rationale)
	assert.GreaterOrEqual(t, result.Review.OverallScore, 80)
	assert.Equal(t, 0, gen.revisions)

	require.Len(t, store.runs, 1)
	require.Len(t, store.finals, 1)
	rec := store.runs[0]
	assert.Equal(t, feedback.StatusValidated, rec.Status)
	require.Len(t, rec.History, 1)
	assert.Equal(t, 0, rec.History[0].Iteration)
	assert.Equal(t, 0, rec.Iterations)
	assert.Equal(t, result, store.finals[0])
}

func TestRun_ExhaustsBudgetWhenEveryEvaluationFails(t *testing.T) {
	for _, budget := range []int{1, 2, 4} {
		store := &recordingStore{}
		eval := &failingEvaluator{}
		gen := &countingGenerator{inner: generator.New(nil)}
		p := newPipeline(t, gen, eval, store, budget)

		result, err := p.Run(context.Background(), confidenceRequest())
		require.NoError(t, err)

		assert.Equal(t, feedback.StatusMaxIterationsReached, result.Status)
		assert.Equal(t, budget+1, eval.calls)
		assert.Equal(t, budget, gen.revisions)
		assert.Equal(t, 1, gen.generates)

		require.Len(t, store.runs, 1)
		history := store.runs[0].History
		require.Len(t, history, budget+1)
		for i, rec := range history {
			assert.Equal(t, i, rec.Iteration)
		}
		last := history[len(history)-1]
		assert.Equal(t, last.Draft, result.Draft, "exhaustion returns the last attempt")
		assert.Equal(t, last.Review, result.Review)
		assert.Equal(t, budget, store.runs[0].Iterations)
	}
}

func TestRun_CrisisFlagNeverClears(t *testing.T) {
	req := confidenceRequest()
	req.RiskFlags = []string{feedback.RiskCrisisLanguage}
	store := &recordingStore{}
	p := newPipeline(t, generator.New(nil), evaluator.New(nil), store, 3)

	result, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, feedback.StatusMaxIterationsReached, result.Status)

	history := store.runs[0].History
	require.Len(t, history, 4)
	first := history[0].Review
	assert.False(t, first.Pass)
	assert.Contains(t, first.MajorIssues, evaluator.IssueCrisisEscalation)
	for _, rec := range history[1:] {
		assert.False(t, rec.Review.Pass)
		summary := strings.ToLower(rec.Draft.Summary)
		assert.Contains(t, summary, "improve")
		assert.Contains(t, summary, "confidence")
	}
	assert.Contains(t, result.Draft.Summary, generator.CrisisNote)
}

func TestRun_RevisionRepairsMissingMetrics(t *testing.T) {
	gen := &countingGenerator{
		inner:     generator.New(nil),
		firstPlan: []feedback.ActionItem{{Action: "Schedule a focused block for: Speak up in meetings"}},
	}
	store := &recordingStore{}
	p := newPipeline(t, gen, evaluator.New(nil), store, 4)

	result, err := p.Run(context.Background(), confidenceRequest())
	require.NoError(t, err)

	assert.Equal(t, feedback.StatusValidated, result.Status)
	assert.Equal(t, 1, gen.revisions)
	history := store.runs[0].History
	require.Len(t, history, 2)
	assert.Contains(t, history[0].Review.RevisionInstructions, evaluator.InstructionMetrics)
	assert.Equal(t, generator.DefaultSuccessMetric, result.Draft.ActionPlan[0].SuccessMetric)
	assert.Empty(t, history[0].Draft.ActionPlan[0].SuccessMetric, "history keeps the original draft")
}

func TestRun_InvalidRequestFailsBeforeLoop(t *testing.T) {
	store := &recordingStore{}
	gen := &countingGenerator{inner: generator.New(nil)}
	p := newPipeline(t, gen, evaluator.New(nil), store, 4)

	req := confidenceRequest()
	req.Topic = ""
	_, err := p.Run(context.Background(), req)

	require.Error(t, err)
	assert.ErrorIs(t, err, feedback.ErrInvalidRequest)
	assert.Zero(t, gen.generates)
	assert.Empty(t, store.runs)
}

func TestRun_StoreFailureDoesNotCorruptResult(t *testing.T) {
	store := &recordingStore{runErr: errors.New("disk full"), tamper: true}
	p := newPipeline(t, generator.New(nil), evaluator.New(nil), store, 4)

	result, err := p.Run(context.Background(), confidenceRequest())
	require.NoError(t, err)

	assert.Equal(t, feedback.StatusValidated, result.Status)
	assert.Equal(t, "Schedule a focused block for: Speak up in meetings", result.Draft.ActionPlan[0].Action)
	assert.NotEqual(t, "tampered", result.Draft.Strengths[0])
	assert.Empty(t, result.Review.MajorIssues)
	assert.Len(t, store.finals, 1, "save final still runs after save run fails")
}

func TestRun_DoesNotMutateCallerRequest(t *testing.T) {
	req := confidenceRequest()
	req.RiskFlags = nil
	p := newPipeline(t, generator.New(nil), evaluator.New(nil), nil, 4)

	_, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, req.RiskFlags)
}

func TestNew(t *testing.T) {
	gen, eval := generator.New(nil), evaluator.New(nil)

	_, err := New(nil, eval, nil, Config{})
	assert.Error(t, err)
	_, err = New(gen, nil, nil, Config{})
	assert.Error(t, err)
	_, err = New(gen, eval, nil, Config{MaxIterations: -1})
	assert.Error(t, err)

	p, err := New(gen, eval, nil, Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxIterations, p.MaxIterations())
}

func TestNext(t *testing.T) {
	pass := feedback.Review{Pass: true}
	fail := feedback.Review{Pass: false}
	tests := []struct {
		name      string
		review    feedback.Review
		iteration int
		budget    int
		want      State
	}{
		{"pass first try", pass, 0, 4, StateValidated},
		{"pass on last allowed", pass, 4, 4, StateValidated},
		{"fail with budget", fail, 0, 4, StateRevising},
		{"fail one before budget", fail, 3, 4, StateRevising},
		{"fail at budget", fail, 4, 4, StateExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Next(tt.review, tt.iteration, tt.budget)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.True(t, StateValidated.Terminal())
	assert.True(t, StateExhausted.Terminal())
	assert.False(t, StateRevising.Terminal())
	assert.Equal(t, feedback.StatusMaxIterationsReached, StateExhausted.Status())
}
