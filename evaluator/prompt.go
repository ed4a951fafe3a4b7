package evaluator

import (
	"encoding/json"
	"fmt"
	"strings"

	"feedback_agent/feedback"
	"feedback_agent/llm"
)

// BuildEvaluationPrompt asks the judge for a structured review of a draft.
func BuildEvaluationPrompt(d feedback.Draft, req feedback.RequestContext) (llm.Prompt, error) {
	draftJSON, err := json.Marshal(d)
	if err != nil {
		return llm.Prompt{}, fmt.Errorf("evaluation prompt: marshal draft: %w", err)
	}
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return llm.Prompt{}, fmt.Errorf("evaluation prompt: marshal request: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Evaluate draft quality for a personal development feedback document.\n")
	sb.WriteString("Score each criterion from 0 to 100: ")
	for i, c := range feedback.Criteria {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(string(c))
	}
	sb.WriteString(".\n")
	sb.WriteString("Return JSON with keys: overall_score, pass, criterion_scores, major_issues, ")
	sb.WriteString("minor_issues, revision_instructions, confidence.\n")
	fmt.Fprintf(&sb, "Pass threshold: %d.\n", req.QualityTargets.PassThreshold)
	fmt.Fprintf(&sb, "Input packet:\n%s\n", reqJSON)
	fmt.Fprintf(&sb, "Draft:\n%s\n", draftJSON)
	sb.WriteString("Return only valid JSON.")

	return llm.Prompt{Task: llm.TaskEvaluate, User: sb.String()}, nil
}
