package generator

import (
	"fmt"
	"strings"

	"feedback_agent/feedback"
)

const (
	maxPlanGoals = 3

	PlanRationale     = "Time-blocking improves consistency and follow-through."
	PlanTimeHorizon   = "this week"
	PlanSuccessMetric = "Complete at least 3 focused sessions this week"

	// Defaults for delegated action items that arrive as bare text.
	DefaultRationale     = "Supports steady progress on your stated goals."
	DefaultTimeHorizon   = "this week"
	DefaultSuccessMetric = "Track progress weekly using a 1-10 self-rating"

	RevisionMarker = " (revised using reviewer feedback)"
	CrisisNote     = " If you are in crisis or thinking about harming yourself, please contact local emergency services or a crisis line right away; this plan is not a substitute for professional support."
)

var (
	templateStrengths = []string{
		"You are actively seeking structured feedback",
		"You are willing to translate feedback into action",
	}
	templateGrowthAreas = []string{
		"Improve consistency through smaller repeatable habits",
		"Track outcomes with clear weekly metrics",
	}
	templateReflectionQuestions = []string{
		"What was one small win this week and why did it work?",
		"What obstacle repeated most often and how can you reduce its impact?",
		"Which next action feels realistic enough to start today?",
	}
)

// LocalDraft is the deterministic first draft used when no backend answers.
func LocalDraft(req feedback.RequestContext) feedback.Draft {
	tone := string(req.Persona.Preferences.Tone)
	return feedback.Draft{
		Topic:               req.Topic,
		Summary:             fmt.Sprintf("Here is a %s personal development plan for: %s", tone, req.Topic),
		Strengths:           append([]string(nil), templateStrengths...),
		GrowthAreas:         append([]string(nil), templateGrowthAreas...),
		ActionPlan:          BuildActionPlan(req.Topic, req.Persona.Goals),
		ReflectionQuestions: append([]string(nil), templateReflectionQuestions...),
		ToneCheck:           tone,
	}
}

// BuildActionPlan turns up to three goals into time-blocked action items. A
// request without goals gets one generic goal derived from the topic.
func BuildActionPlan(topic string, goals []string) []feedback.ActionItem {
	base := make([]string, 0, maxPlanGoals)
	for _, g := range goals {
		if g = strings.TrimSpace(g); g != "" {
			base = append(base, g)
		}
	}
	if len(base) == 0 {
		base = []string{"Make steady progress on " + topic}
	}
	if len(base) > maxPlanGoals {
		base = base[:maxPlanGoals]
	}

	plan := make([]feedback.ActionItem, 0, len(base))
	for _, goal := range base {
		plan = append(plan, feedback.ActionItem{
			Action:        "Schedule a focused block for: " + goal,
			Rationale:     PlanRationale,
			TimeHorizon:   PlanTimeHorizon,
			SuccessMetric: PlanSuccessMetric,
		})
	}
	return plan
}

// LocalRevise merges reviewer instructions into a copy of prev. Applying the
// same instructions again leaves the draft unchanged.
func LocalRevise(prev feedback.Draft, instructions []string, req feedback.RequestContext) feedback.Draft {
	revised := prev.Clone()
	if !strings.Contains(revised.Summary, RevisionMarker) {
		revised.Summary += RevisionMarker
	}

	for _, instruction := range instructions {
		lowered := strings.ToLower(instruction)
		if strings.Contains(lowered, "metric") || strings.Contains(lowered, "measurable") {
			for i := range revised.ActionPlan {
				if strings.TrimSpace(revised.ActionPlan[i].SuccessMetric) == "" {
					revised.ActionPlan[i].SuccessMetric = DefaultSuccessMetric
				}
			}
		}
		if strings.Contains(lowered, "personal") {
			personaContext := strings.TrimSpace(req.Persona.Context)
			if personaContext != "" && !strings.Contains(revised.Summary, personaContext) {
				revised.Summary += fmt.Sprintf(" Context considered: %s.", personaContext)
			}
		}
		if strings.Contains(lowered, "crisis") && !strings.Contains(revised.Summary, CrisisNote) {
			revised.Summary += CrisisNote
		}
	}
	return revised
}
