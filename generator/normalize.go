package generator

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"feedback_agent/feedback"
	"feedback_agent/llm"
)

// Normalize validates a delegated draft and coerces it into the canonical
// Draft shape. Only a missing summary is treated as unusable; every other gap
// is filled from the request or from defaults. Unknown fields are ignored.
func Normalize(obj gjson.Result, req feedback.RequestContext) (feedback.Draft, error) {
	if !obj.IsObject() {
		return feedback.Draft{}, fmt.Errorf("%w: draft is not an object", llm.ErrMalformedResponse)
	}
	summary := strings.TrimSpace(obj.Get("summary").String())
	if summary == "" {
		return feedback.Draft{}, fmt.Errorf("%w: summary missing", llm.ErrMalformedResponse)
	}

	d := feedback.Draft{
		Topic:               textOr(obj.Get("topic"), req.Topic),
		Summary:             summary,
		Strengths:           textList(obj.Get("strengths")),
		GrowthAreas:         textList(obj.Get("growth_areas")),
		ActionPlan:          normalizePlan(obj.Get("action_plan")),
		ReflectionQuestions: textList(obj.Get("reflection_questions")),
		ToneCheck:           textOr(obj.Get("tone_check"), string(req.Persona.Preferences.Tone)),
	}
	if len(d.ActionPlan) == 0 {
		d.ActionPlan = BuildActionPlan(req.Topic, req.Persona.Goals)
	}
	return d, nil
}

// normalizePlan coerces a non-list plan into a one-element list and every
// entry into an ActionItem.
func normalizePlan(v gjson.Result) []feedback.ActionItem {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	entries := []gjson.Result{v}
	if v.IsArray() {
		entries = v.Array()
	}

	plan := make([]feedback.ActionItem, 0, len(entries))
	for _, entry := range entries {
		if item, ok := normalizeItem(entry); ok {
			plan = append(plan, item)
		}
	}
	return plan
}

// actionKeys are tried in order for the text of a structured plan entry.
var actionKeys = []string{"action", "task", "title", "step", "description"}

func normalizeItem(v gjson.Result) (feedback.ActionItem, bool) {
	if !v.IsObject() {
		text := strings.TrimSpace(v.String())
		if text == "" || v.IsArray() {
			return feedback.ActionItem{}, false
		}
		return feedback.ActionItem{
			Action:        text,
			Rationale:     DefaultRationale,
			TimeHorizon:   DefaultTimeHorizon,
			SuccessMetric: DefaultSuccessMetric,
		}, true
	}

	var action string
	for _, key := range actionKeys {
		if action = textOr(v.Get(key), ""); action != "" {
			break
		}
	}
	if action == "" {
		return feedback.ActionItem{}, false
	}
	// an empty success metric is kept so the evaluator can flag it
	return feedback.ActionItem{
		Action:        action,
		Rationale:     textOr(v.Get("rationale"), DefaultRationale),
		TimeHorizon:   textOr(v.Get("time_horizon"), DefaultTimeHorizon),
		SuccessMetric: strings.TrimSpace(v.Get("success_metric").String()),
	}, true
}

func textOr(v gjson.Result, fallback string) string {
	if s := strings.TrimSpace(v.String()); s != "" && !v.IsObject() && !v.IsArray() {
		return s
	}
	return fallback
}

func textList(v gjson.Result) []string {
	if !v.Exists() || v.Type == gjson.Null {
		return []string{}
	}
	entries := []gjson.Result{v}
	if v.IsArray() {
		entries = v.Array()
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsObject() || e.IsArray() {
			continue
		}
		if s := strings.TrimSpace(e.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}
