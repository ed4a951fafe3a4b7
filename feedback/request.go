package feedback

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Tone is the voice requested for the feedback document.
type Tone string

const (
	ToneSupportive Tone = "supportive"
	ToneDirect     Tone = "direct"
	ToneBalanced   Tone = "balanced"
)

// Format is the preferred layout of the rendered document.
type Format string

const (
	FormatBullet    Format = "bullet"
	FormatNarrative Format = "narrative"
	FormatHybrid    Format = "hybrid"
)

const (
	// RiskCrisisLanguage marks requests that need crisis-support escalation.
	RiskCrisisLanguage = "crisis_language"
	// RiskNegativeSelfTalk marks requests with self-deprecating language.
	RiskNegativeSelfTalk = "negative_self_talk"
	// RiskNone is the explicit "no risk detected" flag.
	RiskNone = "none"
)

// Preferences holds the persona's tone and format choices.
type Preferences struct {
	Tone   Tone   `json:"tone" yaml:"tone" validate:"oneof=supportive direct balanced"`
	Format Format `json:"format" yaml:"format" validate:"oneof=bullet narrative hybrid"`
}

// Persona describes who the feedback is for.
type Persona struct {
	Goals       []string    `json:"goals" yaml:"goals"`
	Context     string      `json:"context" yaml:"context"`
	Preferences Preferences `json:"preferences" yaml:"preferences"`
}

// Guidelines constrain the shape and style of a draft.
type Guidelines struct {
	MustInclude []string `json:"must_include" yaml:"must_include" validate:"min=1,dive,required"`
	StyleRules  []string `json:"style_rules" yaml:"style_rules"`
	SafetyRules []string `json:"safety_rules" yaml:"safety_rules"`
}

// QualityTargets is the bar a draft has to clear.
type QualityTargets struct {
	MinActionItems  int  `json:"min_action_items" yaml:"min_action_items" validate:"gt=0"`
	RequiresMetrics bool `json:"requires_metrics" yaml:"requires_metrics"`
	PassThreshold   int  `json:"pass_threshold" yaml:"pass_threshold" validate:"min=0,max=100"`
}

// RequestContext is the normalized input of one pipeline run. It is validated
// once and never mutated afterwards.
type RequestContext struct {
	Topic               string         `json:"topic" yaml:"topic"`
	UserIntent          string         `json:"user_intent,omitempty" yaml:"user_intent"`
	Persona             Persona        `json:"persona_profile" yaml:"persona_profile"`
	Guidelines          Guidelines     `json:"guidelines" yaml:"guidelines"`
	QualityTargets      QualityTargets `json:"quality_targets" yaml:"quality_targets"`
	RiskFlags           []string       `json:"risk_flags" yaml:"risk_flags"`
	ClarificationNeeded bool           `json:"clarification_needed" yaml:"clarification_needed"`
	Confidence          float64        `json:"intake_confidence" yaml:"intake_confidence" validate:"min=0,max=1"`
}

var validate = validator.New()

// Validate reports the first structural problem with the request. Every
// returned error wraps ErrInvalidRequest.
func (r RequestContext) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return fmt.Errorf("%w: topic must not be empty", ErrInvalidRequest)
	}
	if err := validate.Struct(r); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%w: %s failed %q (value %v)", ErrInvalidRequest, fe.Namespace(), fe.ActualTag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// HasRiskFlag reports whether tag is among the request's risk flags.
func (r RequestContext) HasRiskFlag(tag string) bool {
	return slices.Contains(r.RiskFlags, tag)
}

// Clone returns a deep copy so a run can own its context exclusively.
func (r RequestContext) Clone() RequestContext {
	out := r
	out.Persona.Goals = slices.Clone(r.Persona.Goals)
	out.Guidelines.MustInclude = slices.Clone(r.Guidelines.MustInclude)
	out.Guidelines.StyleRules = slices.Clone(r.Guidelines.StyleRules)
	out.Guidelines.SafetyRules = slices.Clone(r.Guidelines.SafetyRules)
	out.RiskFlags = slices.Clone(r.RiskFlags)
	if len(out.RiskFlags) == 0 {
		out.RiskFlags = []string{RiskNone}
	}
	return out
}

// DefaultMustInclude lists the draft sections required unless the request says otherwise.
var DefaultMustInclude = []string{
	"summary",
	"strengths",
	"growth_areas",
	"action_plan",
	"reflection_questions",
}

var (
	DefaultStyleRules  = []string{"non-judgmental", "specific", "actionable"}
	DefaultSafetyRules = []string{"no diagnosis", "no shaming language"}
)

// IsValidTone reports whether t is one of the supported tones.
func IsValidTone(t string) bool {
	switch Tone(t) {
	case ToneSupportive, ToneDirect, ToneBalanced:
		return true
	}
	return false
}

// IsValidFormat reports whether f is one of the supported formats.
func IsValidFormat(f string) bool {
	switch Format(f) {
	case FormatBullet, FormatNarrative, FormatHybrid:
		return true
	}
	return false
}
