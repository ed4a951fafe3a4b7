package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"feedback_agent/feedback"
	"feedback_agent/llm"
)

const draftShape = "topic, summary, strengths, growth_areas, action_plan " +
	"(list of {action, rationale, time_horizon, success_metric}), reflection_questions, tone_check"

// BuildInitialPrompt asks the backend for a first draft.
func BuildInitialPrompt(req feedback.RequestContext) (llm.Prompt, error) {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return llm.Prompt{}, fmt.Errorf("initial prompt: marshal request: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Generate personal development feedback JSON.\n")
	sb.WriteString("Requirements:\n")
	fmt.Fprintf(&sb, "- Tone: %s.\n", req.Persona.Preferences.Tone)
	fmt.Fprintf(&sb, "- At least %d action items", req.QualityTargets.MinActionItems)
	if req.QualityTargets.RequiresMetrics {
		sb.WriteString(", each with a measurable success_metric")
	}
	sb.WriteString(".\n")
	for _, r := range req.Guidelines.StyleRules {
		fmt.Fprintf(&sb, "- Style: %s\n", r)
	}
	for _, r := range req.Guidelines.SafetyRules {
		fmt.Fprintf(&sb, "- Safety: %s\n", r)
	}
	fmt.Fprintf(&sb, "Return JSON with keys: %s.\n", draftShape)
	fmt.Fprintf(&sb, "Input packet:\n%s\n", reqJSON)
	sb.WriteString("Return only valid JSON.")

	return llm.Prompt{Task: llm.TaskGenerate, User: sb.String()}, nil
}

// BuildRevisionPrompt asks the backend to apply reviewer instructions with
// the smallest necessary change.
func BuildRevisionPrompt(prev feedback.Draft, instructions []string, req feedback.RequestContext) (llm.Prompt, error) {
	prevJSON, err := json.Marshal(prev)
	if err != nil {
		return llm.Prompt{}, fmt.Errorf("revision prompt: marshal draft: %w", err)
	}
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return llm.Prompt{}, fmt.Errorf("revision prompt: marshal request: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Revise personal development feedback JSON using reviewer instructions.\n")
	sb.WriteString("- Keep the structure and every section.\n")
	sb.WriteString("- Make the smallest change that satisfies each instruction.\n")
	sb.WriteString("Instructions:\n")
	for i, in := range instructions {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, in)
	}
	fmt.Fprintf(&sb, "Return JSON with keys: %s.\n", draftShape)
	fmt.Fprintf(&sb, "Input packet:\n%s\n", reqJSON)
	fmt.Fprintf(&sb, "Previous draft:\n%s\n", prevJSON)
	sb.WriteString("Return only valid JSON.")

	return llm.Prompt{Task: llm.TaskRevise, User: sb.String()}, nil
}
