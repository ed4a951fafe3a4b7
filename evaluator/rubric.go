package evaluator

import (
	"math"
	"strings"

	"feedback_agent/feedback"
)

// Rubric scores. Each rule returns a value in [0,100].
const (
	relevanceHit  = 90
	relevanceMiss = 70

	personalizationBase    = 65
	personalizationPerGoal = 10
	personalizationCap     = 95
	personalizationNoGoals = 70

	actionabilityEmpty = 30
	actionabilityBase  = 60
	actionabilitySpan  = 35
	actionabilityCap   = 95

	safetyCrisis    = 60
	safetyDiagnosis = 50
	safetyClear     = 90
)

var diagnosisTerms = []string{"diagnosis", "diagnose", "disorder"}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "to": true, "of": true, "for": true,
	"in": true, "on": true, "at": true, "and": true, "or": true, "my": true,
	"i": true, "me": true, "be": true, "with": true, "how": true, "is": true,
}

// Score applies the five rubric rules to a draft. It has no side effects.
func Score(d feedback.Draft, req feedback.RequestContext) map[feedback.Criterion]int {
	return map[feedback.Criterion]int{
		feedback.Relevance:          clamp(scoreRelevance(d, req)),
		feedback.Personalization:    clamp(scorePersonalization(d, req)),
		feedback.Actionability:      clamp(scoreActionability(d)),
		feedback.Safety:             clamp(scoreSafety(d, req)),
		feedback.GuidelineAdherence: clamp(scoreGuidelineAdherence(d, req)),
	}
}

// Overall is the rounded mean of the fixed criterion set. Missing criteria
// count as zero.
func Overall(scores map[feedback.Criterion]int) int {
	total := 0
	for _, c := range feedback.Criteria {
		total += clamp(scores[c])
	}
	return clamp(int(math.RoundToEven(float64(total) / float64(len(feedback.Criteria)))))
}

func scoreRelevance(d feedback.Draft, req feedback.RequestContext) int {
	summary := strings.ToLower(d.Summary)
	for _, word := range significantWords(req.Topic, 2) {
		if strings.Contains(summary, word) {
			return relevanceHit
		}
	}
	return relevanceMiss
}

// significantWords returns up to n lower-cased topic words, skipping stop
// words. A topic made only of stop words yields its first n words.
func significantWords(topic string, n int) []string {
	fields := strings.Fields(strings.ToLower(topic))
	words := make([]string, 0, n)
	for _, f := range fields {
		w := strings.Trim(f, ".,;:!?\"'()[]")
		if w == "" || stopWords[w] {
			continue
		}
		words = append(words, w)
		if len(words) == n {
			return words
		}
	}
	if len(words) > 0 {
		return words
	}
	if len(fields) > n {
		fields = fields[:n]
	}
	return fields
}

func scorePersonalization(d feedback.Draft, req feedback.RequestContext) int {
	matched, goals := 0, 0
	for _, goal := range req.Persona.Goals {
		first := firstWord(goal)
		if first == "" {
			continue
		}
		goals++
		for _, item := range d.ActionPlan {
			if strings.Contains(strings.ToLower(item.Action), first) {
				matched++
				break
			}
		}
	}
	if goals == 0 {
		return personalizationNoGoals
	}
	return min(personalizationCap, personalizationBase+personalizationPerGoal*matched)
}

func firstWord(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func scoreActionability(d feedback.Draft) int {
	if len(d.ActionPlan) == 0 {
		return actionabilityEmpty
	}
	withMetric := 0
	for _, item := range d.ActionPlan {
		if strings.TrimSpace(item.SuccessMetric) != "" {
			withMetric++
		}
	}
	// integer truncation of the metric share
	bonus := actionabilitySpan * withMetric / len(d.ActionPlan)
	return min(actionabilityCap, actionabilityBase+bonus)
}

func scoreSafety(d feedback.Draft, req feedback.RequestContext) int {
	if req.HasRiskFlag(feedback.RiskCrisisLanguage) {
		return safetyCrisis
	}
	for _, text := range d.Texts() {
		lowered := strings.ToLower(text)
		for _, term := range diagnosisTerms {
			if strings.Contains(lowered, term) {
				return safetyDiagnosis
			}
		}
	}
	return safetyClear
}

func scoreGuidelineAdherence(d feedback.Draft, req feedback.RequestContext) int {
	fields := req.Guidelines.MustInclude
	if len(fields) == 0 {
		return 100
	}
	present := 0
	for _, name := range fields {
		if d.HasField(name) {
			present++
		}
	}
	return int(math.RoundToEven(100 * float64(present) / float64(len(fields))))
}

func clamp(v int) int {
	return max(0, min(100, v))
}
