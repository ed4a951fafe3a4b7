// Package evaluator scores drafts against the quality rubric and turns the
// scores into pass/fail decisions and revision instructions.
package evaluator

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"feedback_agent/feedback"
	"feedback_agent/llm"
)

// RubricConfidence is the confidence reported for rubric-based reviews.
const RubricConfidence = 0.82

// Issues and the instructions that address them.
const (
	IssueMeasurableSteps   = "Action plan lacks enough measurable steps"
	IssuePersonalization   = "Draft could be more personalized to user context"
	IssueCrisisEscalation  = "Safety escalation required for crisis language"
	InstructionMetrics     = "add measurable success criteria to every action"
	InstructionPersonalize = "personalize using persona context"
	InstructionCrisis      = "add crisis-support escalation language; avoid overconfident coaching"
)

const (
	actionabilityFloor   = 75
	personalizationFloor = 70
)

// Evaluator reviews drafts. With a backend configured it asks the external
// judge first and silently falls back to the rubric on any failure.
type Evaluator struct {
	llm llm.Client
	log logrus.FieldLogger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger used for fallback diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.log = l
		}
	}
}

// New returns an Evaluator. A nil client means rubric-only evaluation.
func New(client llm.Client, opts ...Option) *Evaluator {
	e := &Evaluator{llm: client, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithField("component", "evaluator")
	return e
}

// Evaluate always returns a structurally valid review.
func (e *Evaluator) Evaluate(ctx context.Context, d feedback.Draft, req feedback.RequestContext) feedback.Review {
	if e.llm != nil {
		review, err := e.judge(ctx, d, req)
		if err == nil {
			return review
		}
		e.log.WithError(err).Debug("judge failed, falling back to rubric")
	}
	return Assess(d, req)
}

// Assess is the local evaluation path: rubric scores plus issue derivation.
func Assess(d feedback.Draft, req feedback.RequestContext) feedback.Review {
	scores := Score(d, req)
	review := feedback.Review{
		CriterionScores:      scores,
		OverallScore:         Overall(scores),
		MajorIssues:          []string{},
		MinorIssues:          []string{},
		RevisionInstructions: []string{},
		Confidence:           RubricConfidence,
		Source:               feedback.SourceRubric,
	}

	if scores[feedback.Actionability] < actionabilityFloor {
		review.MajorIssues = append(review.MajorIssues, IssueMeasurableSteps)
		review.RevisionInstructions = append(review.RevisionInstructions, InstructionMetrics)
	}
	if scores[feedback.Personalization] < personalizationFloor {
		review.MinorIssues = append(review.MinorIssues, IssuePersonalization)
		review.RevisionInstructions = append(review.RevisionInstructions, InstructionPersonalize)
	}
	applyCrisisGuard(&review, req)
	review.Pass = passes(review, req)
	return review
}

func (e *Evaluator) judge(ctx context.Context, d feedback.Draft, req feedback.RequestContext) (feedback.Review, error) {
	prompt, err := BuildEvaluationPrompt(d, req)
	if err != nil {
		return feedback.Review{}, err
	}
	raw, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		return feedback.Review{}, err
	}
	obj, err := llm.ParseObject(raw)
	if err != nil {
		return feedback.Review{}, err
	}
	return reviewFromJudge(obj, req)
}

// reviewFromJudge maps a judge response onto a Review. Unknown fields are
// ignored; a missing criterion score makes the response unusable.
func reviewFromJudge(obj gjson.Result, req feedback.RequestContext) (feedback.Review, error) {
	raw := obj.Get("criterion_scores")
	if !raw.IsObject() {
		return feedback.Review{}, fmt.Errorf("%w: criterion_scores missing", llm.ErrMalformedResponse)
	}
	scores := make(map[feedback.Criterion]int, len(feedback.Criteria))
	for _, c := range feedback.Criteria {
		v := raw.Get(string(c))
		if v.Type != gjson.Number {
			return feedback.Review{}, fmt.Errorf("%w: criterion %s missing", llm.ErrMalformedResponse, c)
		}
		scores[c] = clamp(int(math.Round(v.Num)))
	}

	confidence := RubricConfidence
	if c := obj.Get("confidence"); c.Type == gjson.Number {
		confidence = max(0, min(1, c.Num))
	}

	review := feedback.Review{
		CriterionScores:      scores,
		OverallScore:         Overall(scores),
		MajorIssues:          stringList(obj.Get("major_issues")),
		MinorIssues:          stringList(obj.Get("minor_issues")),
		RevisionInstructions: stringList(obj.Get("revision_instructions")),
		Confidence:           confidence,
		Source:               feedback.SourceJudge,
	}
	applyCrisisGuard(&review, req)
	review.Pass = passes(review, req)
	return review, nil
}

// applyCrisisGuard makes sure a crisis-flagged request can never pass.
func applyCrisisGuard(review *feedback.Review, req feedback.RequestContext) {
	if !req.HasRiskFlag(feedback.RiskCrisisLanguage) {
		return
	}
	for _, issue := range review.MajorIssues {
		if issue == IssueCrisisEscalation {
			return
		}
	}
	review.MajorIssues = append(review.MajorIssues, IssueCrisisEscalation)
	review.RevisionInstructions = append(review.RevisionInstructions, InstructionCrisis)
}

func passes(review feedback.Review, req feedback.RequestContext) bool {
	return review.OverallScore >= req.QualityTargets.PassThreshold && len(review.MajorIssues) == 0
}

func stringList(v gjson.Result) []string {
	out := []string{}
	if !v.IsArray() {
		return out
	}
	for _, item := range v.Array() {
		if s := item.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}
