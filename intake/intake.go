// Package intake turns a free-text request into a validated RequestContext.
// The backend is asked first; when it is absent, fails or returns something
// unusable, deterministic heuristics take over.
package intake

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"feedback_agent/feedback"
	"feedback_agent/llm"
)

const (
	defaultTopic            = "General personal development"
	defaultGoal             = "Build consistent personal growth habits"
	maxTopicLength          = 120
	clarificationConfidence = 0.65
)

var (
	crisisKeywords = []string{"suicide", "self-harm", "kill myself", "hurt myself", "end my life"}
	negativeWords  = []string{"worthless", "hopeless"}
	broadTopics    = map[string]bool{
		"improve my life":  true,
		"self improvement": true,
		"be better":        true,
		"help me improve":  true,
	}

	sentenceSplit = regexp.MustCompile(`[.!?]\s+`)
	toPhrase      = regexp.MustCompile(`\bto\s+([a-zA-Z][^,.!?]{3,60})`)
)

// Request is the raw user input before normalization.
type Request struct {
	RawText      string   `json:"raw_text"`
	Topic        string   `json:"topic,omitempty"`
	Goals        []string `json:"goals,omitempty"`
	Context      string   `json:"context,omitempty"`
	Tone         string   `json:"tone,omitempty"`
	OutputFormat string   `json:"output_format,omitempty"`
	Constraints  []string `json:"constraints,omitempty"`
}

// Crew normalizes requests.
type Crew struct {
	llm llm.Client
	log logrus.FieldLogger
}

// New returns a Crew. A nil client means heuristics only.
func New(client llm.Client, log logrus.FieldLogger) *Crew {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Crew{llm: client, log: log.WithField("component", "intake")}
}

// Process returns a validated RequestContext for req.
func (c *Crew) Process(ctx context.Context, req Request) (feedback.RequestContext, error) {
	if c.llm != nil {
		packet, err := c.fromBackend(ctx, req)
		if err == nil {
			return packet, nil
		}
		c.log.WithError(err).Debug("backend intake failed, using heuristics")
	}
	packet := Heuristic(req)
	if err := packet.Validate(); err != nil {
		return feedback.RequestContext{}, fmt.Errorf("intake: %w", err)
	}
	return packet, nil
}

func (c *Crew) fromBackend(ctx context.Context, req Request) (feedback.RequestContext, error) {
	raw, err := c.llm.Complete(ctx, buildPrompt(req))
	if err != nil {
		return feedback.RequestContext{}, err
	}
	obj, err := llm.ParseObject(raw)
	if err != nil {
		return feedback.RequestContext{}, err
	}
	packet := fromJSON(obj, req)
	if err := packet.Validate(); err != nil {
		return feedback.RequestContext{}, err
	}
	return packet, nil
}

func buildPrompt(req Request) llm.Prompt {
	var sb strings.Builder
	sb.WriteString("Normalize this personal-development user request into JSON with keys: ")
	sb.WriteString("topic,user_intent,persona_profile,guidelines,quality_targets,risk_flags,")
	sb.WriteString("clarification_needed,intake_confidence.\n")
	fmt.Fprintf(&sb, "Raw request: %s\n", req.RawText)
	fmt.Fprintf(&sb, "Given topic: %s\nGiven goals: %s\n", req.Topic, strings.Join(req.Goals, "; "))
	fmt.Fprintf(&sb, "Context: %s\nTone: %s\nFormat: %s\n", req.Context, req.Tone, req.OutputFormat)
	sb.WriteString("Return only valid JSON.")
	return llm.Prompt{Task: llm.TaskIntake, User: sb.String()}
}

// fromJSON maps a backend packet onto a RequestContext, defaulting anything
// the backend left out.
func fromJSON(obj gjson.Result, req Request) feedback.RequestContext {
	persona := obj.Get("persona_profile")
	prefs := persona.Get("preferences")
	guidelines := obj.Get("guidelines")
	targets := obj.Get("quality_targets")

	packet := feedback.RequestContext{
		Topic:      strings.TrimSpace(obj.Get("topic").String()),
		UserIntent: strings.TrimSpace(obj.Get("user_intent").String()),
		Persona: feedback.Persona{
			Goals:   stringsOr(persona.Get("goals"), nil),
			Context: persona.Get("context").String(),
			Preferences: feedback.Preferences{
				Tone:   sanitizeTone(stringOr(prefs.Get("tone"), req.Tone)),
				Format: sanitizeFormat(stringOr(prefs.Get("format"), req.OutputFormat)),
			},
		},
		Guidelines: feedback.Guidelines{
			MustInclude: stringsOr(guidelines.Get("must_include"), feedback.DefaultMustInclude),
			StyleRules:  stringsOr(guidelines.Get("style_rules"), feedback.DefaultStyleRules),
			SafetyRules: stringsOr(guidelines.Get("safety_rules"), feedback.DefaultSafetyRules),
		},
		QualityTargets: feedback.QualityTargets{
			MinActionItems:  int(intOr(targets.Get("min_action_items"), 3)),
			RequiresMetrics: boolOr(targets.Get("requires_metrics"), true),
			PassThreshold:   int(intOr(targets.Get("pass_threshold"), 80)),
		},
		RiskFlags:           stringsOr(obj.Get("risk_flags"), []string{feedback.RiskNone}),
		ClarificationNeeded: obj.Get("clarification_needed").Bool(),
		Confidence:          0.75,
	}
	if c := obj.Get("intake_confidence"); c.Type == gjson.Number {
		packet.Confidence = c.Num
	}
	return packet
}

// Heuristic builds a RequestContext without any backend.
func Heuristic(req Request) feedback.RequestContext {
	topic := extractTopic(req)
	goals := cleanList(req.Goals)
	if len(goals) == 0 {
		goals = extractGoals(req.RawText)
	}
	risks := detectRisks(req.RawText)
	confidence := scoreConfidence(topic, goals, len(risks) > 0)
	if len(risks) == 0 {
		risks = []string{feedback.RiskNone}
	}

	return feedback.RequestContext{
		Topic:      topic,
		UserIntent: extractIntent(req.RawText),
		Persona: feedback.Persona{
			Goals:   goals,
			Context: strings.TrimSpace(req.Context),
			Preferences: feedback.Preferences{
				Tone:   sanitizeTone(req.Tone),
				Format: sanitizeFormat(req.OutputFormat),
			},
		},
		Guidelines: feedback.Guidelines{
			MustInclude: append([]string(nil), feedback.DefaultMustInclude...),
			StyleRules:  dedupe(append(append([]string(nil), feedback.DefaultStyleRules...), req.Constraints...)),
			SafetyRules: append([]string(nil), feedback.DefaultSafetyRules...),
		},
		QualityTargets: feedback.QualityTargets{
			MinActionItems:  3,
			RequiresMetrics: true,
			PassThreshold:   80,
		},
		RiskFlags:           risks,
		ClarificationNeeded: broadTopics[strings.ToLower(topic)] || confidence < clarificationConfidence,
		Confidence:          confidence,
	}
}

func extractTopic(req Request) string {
	if t := strings.TrimSpace(req.Topic); t != "" {
		return t
	}
	for _, sentence := range sentenceSplit.Split(strings.TrimSpace(req.RawText), -1) {
		if s := strings.TrimSpace(sentence); s != "" {
			if r := []rune(s); len(r) > maxTopicLength {
				s = string(r[:maxTopicLength])
			}
			return s
		}
	}
	return defaultTopic
}

func extractIntent(text string) string {
	lowered := strings.ToLower(text)
	switch {
	case strings.Contains(lowered, "feedback"):
		return "Get feedback on personal development"
	case strings.Contains(lowered, "plan"):
		return "Create an actionable personal development plan"
	}
	return "Improve personal development outcomes"
}

func extractGoals(text string) []string {
	var bullets []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "-") {
			if b := strings.Trim(strings.TrimSpace(line), " -"); b != "" {
				bullets = append(bullets, b)
			}
		}
	}
	if len(bullets) > 0 {
		if len(bullets) > 5 {
			bullets = bullets[:5]
		}
		return bullets
	}

	var goals []string
	for _, m := range toPhrase.FindAllStringSubmatch(text, 3) {
		goals = append(goals, strings.TrimSpace(m[1]))
	}
	if len(goals) == 0 {
		return []string{defaultGoal}
	}
	return goals
}

func detectRisks(text string) []string {
	lowered := strings.ToLower(text)
	var flags []string
	for _, kw := range crisisKeywords {
		if strings.Contains(lowered, kw) {
			flags = append(flags, feedback.RiskCrisisLanguage)
			break
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lowered, w) {
			flags = append(flags, feedback.RiskNegativeSelfTalk)
			break
		}
	}
	return flags
}

func scoreConfidence(topic string, goals []string, hasRisk bool) float64 {
	score := 0.9
	if len(strings.Fields(topic)) <= 2 {
		score -= 0.2
	}
	if broadTopics[strings.ToLower(topic)] {
		score -= 0.25
	}
	if len(goals) == 0 {
		score -= 0.2
	}
	if hasRisk {
		score -= 0.15
	}
	score = math.Round(score*100) / 100
	return max(0, min(1, score))
}

func sanitizeTone(tone string) feedback.Tone {
	if feedback.IsValidTone(tone) {
		return feedback.Tone(tone)
	}
	return feedback.ToneSupportive
}

func sanitizeFormat(format string) feedback.Format {
	if feedback.IsValidFormat(format) {
		return feedback.Format(format)
	}
	return feedback.FormatHybrid
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func stringOr(v gjson.Result, fallback string) string {
	if v.Type == gjson.String && v.Str != "" {
		return v.Str
	}
	return fallback
}

func stringsOr(v gjson.Result, fallback []string) []string {
	if !v.IsArray() {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, item := range v.Array() {
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func intOr(v gjson.Result, fallback int64) int64 {
	if v.Type == gjson.Number {
		return v.Int()
	}
	return fallback
}

func boolOr(v gjson.Result, fallback bool) bool {
	if v.Type == gjson.True || v.Type == gjson.False {
		return v.Bool()
	}
	return fallback
}
