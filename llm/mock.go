package llm

import (
	"context"
	"errors"
	"fmt"
)

// MockLLM answers every task with a fixed, well-formed JSON payload so the
// delegated code paths can be exercised locally without a network call.
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	switch prompt.Task {
	case TaskGenerate, TaskRevise:
		return "```json\n" + mockDraft + "\n```", nil
	case TaskEvaluate:
		return mockReview, nil
	case TaskIntake:
		return mockIntake, nil
	}
	return "", fmt.Errorf("mock llm: unsupported task %q", prompt.Task)
}

// Unavailable fails every call, standing in for an unreachable backend.
type Unavailable struct{}

func (Unavailable) Complete(context.Context, Prompt) (string, error) {
	return "", errors.New("llm backend unavailable")
}

const mockDraft = `{
  "topic": "Improve confidence at work",
  "summary": "A supportive plan to improve confidence at work through small, visible wins.",
  "strengths": ["Motivated to grow", "Open to feedback"],
  "growth_areas": ["Communication confidence"],
  "action_plan": [{
    "action": "Practice concise updates before standup",
    "rationale": "Build confidence with repetition",
    "time_horizon": "this week",
    "success_metric": "Deliver 3 concise updates"
  }],
  "reflection_questions": ["What improved this week?"],
  "tone_check": "supportive"
}`

const mockReview = `{
  "overall_score": 88,
  "pass": true,
  "criterion_scores": {
    "relevance": 90,
    "personalization": 85,
    "actionability": 87,
    "safety": 90,
    "guideline_adherence": 88
  },
  "major_issues": [],
  "minor_issues": [],
  "revision_instructions": [],
  "confidence": 0.9
}`

const mockIntake = `{
  "topic": "Improve confidence at work",
  "user_intent": "Get structured personal development feedback",
  "persona_profile": {
    "goals": ["Speak up in two meetings weekly"],
    "context": "Early-career engineer",
    "preferences": {"tone": "supportive", "format": "bullet"}
  },
  "guidelines": {
    "must_include": ["summary", "strengths", "growth_areas", "action_plan", "reflection_questions"],
    "style_rules": ["specific", "actionable"],
    "safety_rules": ["no diagnosis"]
  },
  "quality_targets": {"min_action_items": 3, "requires_metrics": true, "pass_threshold": 80},
  "risk_flags": ["none"],
  "clarification_needed": false,
  "intake_confidence": 0.92
}`
