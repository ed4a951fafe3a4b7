package publisher

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedback_agent/feedback"
)

func sampleResult() feedback.RunResult {
	return feedback.RunResult{
		RunID:  "run-1",
		Status: feedback.StatusValidated,
		Draft: feedback.Draft{
			Topic:       "Improve confidence at work",
			Summary:     "You are building steady confidence through small wins.",
			Strengths:   []string{"Motivated to grow", "Clear goals"},
			GrowthAreas: []string{"Speaking up early"},
			ActionPlan: []feedback.ActionItem{{
				Action:        "Share one update in standup",
				Rationale:     "Visible progress builds confidence",
				TimeHorizon:   "this week",
				SuccessMetric: "3 updates shared",
			}},
			ReflectionQuestions: []string{"What went well?"},
			ToneCheck:           "supportive",
		},
		Review: feedback.Review{OverallScore: 88, Pass: true},
	}
}

func quiet() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestMarkdown_Formats(t *testing.T) {
	res := sampleResult()

	hybrid := Markdown(res, feedback.FormatHybrid)
	assert.True(t, strings.HasPrefix(hybrid, "# Personal development feedback: Improve confidence at work\n"))
	assert.Contains(t, hybrid, "overall score 88/100")
	assert.Contains(t, hybrid, "## Summary\n\nYou are building")
	assert.Contains(t, hybrid, "- Motivated to grow\n")
	assert.Contains(t, hybrid, "1. **Share one update in standup**\n")
	assert.Contains(t, hybrid, "   - Success metric: 3 updates shared\n")

	bullet := Markdown(res, feedback.FormatBullet)
	assert.Contains(t, bullet, "## Summary\n\n- You are building")

	narrative := Markdown(res, feedback.FormatNarrative)
	assert.Contains(t, narrative, "Motivated to grow. Clear goals.")
	assert.Contains(t, narrative, "1. Share one update in standup Visible progress builds confidence. Aim to do this this week.")
	assert.Contains(t, narrative, "You will know it worked when: 3 updates shared.")
	assert.NotContains(t, narrative, "- Motivated")
}

func TestMarkdown_SkipsEmptySections(t *testing.T) {
	res := sampleResult()
	res.Draft.GrowthAreas = nil
	res.Draft.ReflectionQuestions = nil
	out := Markdown(res, feedback.FormatHybrid)
	assert.NotContains(t, out, "## Growth areas")
	assert.NotContains(t, out, "## Reflection questions")
}

func TestHTMLAndInline(t *testing.T) {
	html, err := HTML(Markdown(sampleResult(), feedback.FormatHybrid))
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Personal development feedback: Improve confidence at work</h1>")
	assert.Contains(t, html, "<li>Motivated to grow</li>")

	inline := Inline(html)
	assert.NotContains(t, inline, "<h1>")
	assert.NotContains(t, inline, "<ul>")
	assert.NotContains(t, inline, "<ol>")
	assert.Contains(t, inline, `<p style="font-size:24px;font-weight:700;margin:1em 0 0.6em;">Personal development feedback: Improve confidence at work</p>`)
	assert.Contains(t, inline, "<p>• Motivated to grow</p>")
	assert.Contains(t, inline, "<p>1. <strong>Share one update in standup</strong>")
}

func TestDigest(t *testing.T) {
	assert.Equal(t, "a b c", Digest("  a\n b\t c ", 10))
	assert.Equal(t, "abc", Digest("abcdef", 3))
	assert.Equal(t, "a", Digest("aé", 2), "never splits a rune")
}

func TestPublish_WritesFilesAndPostsWebhook(t *testing.T) {
	var got Document
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	dir := t.TempDir()
	p := New(Config{Dir: dir, WebhookURL: srv.URL}, srv.Client(), quiet())
	doc, err := p.Publish(context.Background(), sampleResult(), feedback.FormatHybrid)
	require.NoError(t, err)

	require.Len(t, doc.Files, 2)
	data, err := os.ReadFile(filepath.Join(dir, "run-1.md"))
	require.NoError(t, err)
	assert.Equal(t, doc.Markdown, string(data))
	_, err = os.Stat(filepath.Join(dir, "run-1.html"))
	require.NoError(t, err)

	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, feedback.StatusValidated, got.Status)
	assert.Equal(t, doc.HTML, got.HTML)
	assert.Equal(t, "You are building steady confidence through small wins.", got.Digest)
}

func TestPublish_WebhookFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := New(Config{WebhookURL: srv.URL}, nil, quiet())
	_, err := p.Publish(context.Background(), sampleResult(), feedback.FormatBullet)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestRender_NoDestinations(t *testing.T) {
	p := New(Config{Inline: true}, nil, quiet())
	doc, err := p.Publish(context.Background(), sampleResult(), feedback.FormatHybrid)
	require.NoError(t, err)
	assert.Empty(t, doc.Files)
	assert.NotContains(t, doc.HTML, "<ul>")
}
