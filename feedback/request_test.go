package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() RequestContext {
	return RequestContext{
		Topic: "Improve confidence at work",
		Persona: Persona{
			Goals:       []string{"Speak up in meetings"},
			Preferences: Preferences{Tone: ToneSupportive, Format: FormatHybrid},
		},
		Guidelines: Guidelines{
			MustInclude: append([]string(nil), DefaultMustInclude...),
		},
		QualityTargets: QualityTargets{MinActionItems: 3, RequiresMetrics: true, PassThreshold: 80},
		RiskFlags:      []string{RiskNone},
		Confidence:     0.9,
	}
}

func TestRequestContext_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RequestContext)
		ok     bool
	}{
		{"valid", func(*RequestContext) {}, true},
		{"blank topic", func(r *RequestContext) { r.Topic = "   " }, false},
		{"bad tone", func(r *RequestContext) { r.Persona.Preferences.Tone = "harsh" }, false},
		{"bad format", func(r *RequestContext) { r.Persona.Preferences.Format = "poem" }, false},
		{"empty must include", func(r *RequestContext) { r.Guidelines.MustInclude = nil }, false},
		{"threshold above range", func(r *RequestContext) { r.QualityTargets.PassThreshold = 101 }, false},
		{"threshold below range", func(r *RequestContext) { r.QualityTargets.PassThreshold = -1 }, false},
		{"threshold bounds", func(r *RequestContext) { r.QualityTargets.PassThreshold = 100 }, true},
		{"zero action items", func(r *RequestContext) { r.QualityTargets.MinActionItems = 0 }, false},
		{"confidence too high", func(r *RequestContext) { r.Confidence = 1.5 }, false},
		{"confidence negative", func(r *RequestContext) { r.Confidence = -0.1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			err := req.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestRequestContext_CloneIsDeep(t *testing.T) {
	req := validRequest()
	clone := req.Clone()
	clone.Persona.Goals[0] = "changed"
	clone.Guidelines.MustInclude[0] = "changed"

	assert.Equal(t, "Speak up in meetings", req.Persona.Goals[0])
	assert.Equal(t, "summary", req.Guidelines.MustInclude[0])
}

func TestRequestContext_CloneDefaultsRiskFlags(t *testing.T) {
	req := validRequest()
	req.RiskFlags = nil
	assert.Equal(t, []string{RiskNone}, req.Clone().RiskFlags)
	assert.False(t, req.Clone().HasRiskFlag(RiskCrisisLanguage))
}

func TestDraft_HasField(t *testing.T) {
	d := Draft{Summary: "s", Strengths: []string{"a"}}
	assert.True(t, d.HasField("summary"))
	assert.True(t, d.HasField("strengths"))
	assert.False(t, d.HasField("growth_areas"))
	assert.False(t, d.HasField("action_plan"))
	assert.False(t, d.HasField("unknown_section"))
}

func TestDraft_CloneIsDeep(t *testing.T) {
	d := Draft{ActionPlan: []ActionItem{{Action: "a"}}}
	c := d.Clone()
	c.ActionPlan[0].SuccessMetric = "filled"
	assert.Empty(t, d.ActionPlan[0].SuccessMetric)
}
