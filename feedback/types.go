package feedback

import (
	"maps"
	"slices"
	"time"
)

// ActionItem is one step of a draft's action plan. An empty SuccessMetric is a
// quality gap the evaluator penalizes.
type ActionItem struct {
	Action        string `json:"action"`
	Rationale     string `json:"rationale"`
	TimeHorizon   string `json:"time_horizon"`
	SuccessMetric string `json:"success_metric"`
}

// Draft is a structured feedback document. Revision always produces a new
// Draft; existing drafts are never edited in place.
type Draft struct {
	Topic               string       `json:"topic"`
	Summary             string       `json:"summary"`
	Strengths           []string     `json:"strengths"`
	GrowthAreas         []string     `json:"growth_areas"`
	ActionPlan          []ActionItem `json:"action_plan"`
	ReflectionQuestions []string     `json:"reflection_questions"`
	ToneCheck           string       `json:"tone_check"`
}

// Clone returns a deep copy of the draft.
func (d Draft) Clone() Draft {
	out := d
	out.Strengths = slices.Clone(d.Strengths)
	out.GrowthAreas = slices.Clone(d.GrowthAreas)
	out.ActionPlan = slices.Clone(d.ActionPlan)
	out.ReflectionQuestions = slices.Clone(d.ReflectionQuestions)
	return out
}

// HasField reports whether the named section exists on a draft and is non-empty.
func (d Draft) HasField(name string) bool {
	switch name {
	case "topic":
		return d.Topic != ""
	case "summary":
		return d.Summary != ""
	case "strengths":
		return len(d.Strengths) > 0
	case "growth_areas":
		return len(d.GrowthAreas) > 0
	case "action_plan":
		return len(d.ActionPlan) > 0
	case "reflection_questions":
		return len(d.ReflectionQuestions) > 0
	case "tone_check":
		return d.ToneCheck != ""
	}
	return false
}

// Texts flattens every text value of the draft, in field order.
func (d Draft) Texts() []string {
	out := []string{d.Topic, d.Summary}
	out = append(out, d.Strengths...)
	out = append(out, d.GrowthAreas...)
	for _, item := range d.ActionPlan {
		out = append(out, item.Action, item.Rationale, item.TimeHorizon, item.SuccessMetric)
	}
	out = append(out, d.ReflectionQuestions...)
	return append(out, d.ToneCheck)
}

// Criterion names one rubric dimension.
type Criterion string

const (
	Relevance          Criterion = "relevance"
	Personalization    Criterion = "personalization"
	Actionability      Criterion = "actionability"
	Safety             Criterion = "safety"
	GuidelineAdherence Criterion = "guideline_adherence"
)

// Criteria is the fixed criterion set in reporting order.
var Criteria = []Criterion{Relevance, Personalization, Actionability, Safety, GuidelineAdherence}

// ReviewSource records which path produced a review.
type ReviewSource string

const (
	SourceRubric ReviewSource = "rubric"
	SourceJudge  ReviewSource = "judge"
)

// Review is the evaluator's assessment of one draft.
type Review struct {
	CriterionScores      map[Criterion]int `json:"criterion_scores"`
	OverallScore         int               `json:"overall_score"`
	Pass                 bool              `json:"pass"`
	MajorIssues          []string          `json:"major_issues"`
	MinorIssues          []string          `json:"minor_issues"`
	RevisionInstructions []string          `json:"revision_instructions"`
	Confidence           float64           `json:"confidence"`
	Source               ReviewSource      `json:"source,omitempty"`
}

// Clone returns a deep copy of the review.
func (r Review) Clone() Review {
	out := r
	out.CriterionScores = maps.Clone(r.CriterionScores)
	out.MajorIssues = slices.Clone(r.MajorIssues)
	out.MinorIssues = slices.Clone(r.MinorIssues)
	out.RevisionInstructions = slices.Clone(r.RevisionInstructions)
	return out
}

// IterationRecord pairs a draft with the review it received.
type IterationRecord struct {
	Iteration int    `json:"iteration"`
	Draft     Draft  `json:"draft"`
	Review    Review `json:"review"`
}

// Status is the terminal state of a run.
type Status string

const (
	StatusValidated            Status = "validated"
	StatusMaxIterationsReached Status = "max_iterations_reached"
)

// RunResult is the single output of a run.
type RunResult struct {
	RunID  string `json:"run_id"`
	Status Status `json:"status"`
	Draft  Draft  `json:"final_output"`
	Review Review `json:"final_review"`
}

// Clone returns a deep copy of the result.
func (r RunResult) Clone() RunResult {
	out := r
	out.Draft = r.Draft.Clone()
	out.Review = r.Review.Clone()
	return out
}

// RunRecord is the audit trail handed to the run store when a run ends.
type RunRecord struct {
	ID         string            `json:"id"`
	Status     Status            `json:"status"`
	Request    RequestContext    `json:"input_packet"`
	Iterations int               `json:"iteration"`
	History    []IterationRecord `json:"history"`
	Final      RunResult         `json:"final"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Clone returns a deep copy of the record.
func (r RunRecord) Clone() RunRecord {
	out := r
	out.Request = r.Request.Clone()
	out.History = make([]IterationRecord, len(r.History))
	for i, rec := range r.History {
		out.History[i] = IterationRecord{Iteration: rec.Iteration, Draft: rec.Draft.Clone(), Review: rec.Review.Clone()}
	}
	out.Final = r.Final.Clone()
	return out
}
