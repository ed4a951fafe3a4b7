package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedback_agent/evaluator"
	"feedback_agent/feedback"
	"feedback_agent/generator"
	"feedback_agent/intake"
	"feedback_agent/pipeline"
	"feedback_agent/publisher"
	"feedback_agent/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, *storage.FileStore) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	p, err := pipeline.New(generator.New(nil), evaluator.New(nil), store, pipeline.Config{}, pipeline.WithLogger(log))
	require.NoError(t, err)
	pub := publisher.New(publisher.Config{Dir: t.TempDir()}, nil, log)

	srv, err := New(intake.New(nil, log), p, store, pub, DefaultConfig(), log)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts, store
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func TestCreateRun_FromRawText(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/runs", map[string]any{
		"raw_text": "Improve confidence at work.\n- Speak up in meetings",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		RunID  string                  `json:"run_id"`
		Status feedback.Status         `json:"status"`
		Review feedback.Review         `json:"final_review"`
		Input  feedback.RequestContext `json:"input_packet"`
		Files  []string                `json:"files"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, feedback.StatusValidated, out.Status)
	assert.Equal(t, "Improve confidence at work", out.Input.Topic)
	assert.Len(t, out.Files, 2)

	get, err := http.Get(ts.URL + "/api/runs/" + out.RunID)
	require.NoError(t, err)
	defer get.Body.Close()
	assert.Equal(t, http.StatusOK, get.StatusCode)
	var rec feedback.RunRecord
	require.NoError(t, json.NewDecoder(get.Body).Decode(&rec))
	assert.Equal(t, out.RunID, rec.ID)
	assert.NotEmpty(t, rec.History)

	list, err := http.Get(ts.URL + "/api/runs")
	require.NoError(t, err)
	defer list.Body.Close()
	var runs struct {
		Runs []storage.RunSummary `json:"runs"`
	}
	require.NoError(t, json.NewDecoder(list.Body).Decode(&runs))
	require.Len(t, runs.Runs, 1)
	assert.Equal(t, out.RunID, runs.Runs[0].ID)

	doc, err := http.Get(ts.URL + "/api/runs/" + out.RunID + "/document?format=html&layout=bullet")
	require.NoError(t, err)
	defer doc.Body.Close()
	body, _ := io.ReadAll(doc.Body)
	assert.Equal(t, http.StatusOK, doc.StatusCode)
	assert.True(t, strings.HasPrefix(doc.Header.Get("Content-Type"), "text/html"))
	assert.Contains(t, string(body), "<h1>Personal development feedback: Improve confidence at work</h1>")
}

func TestCreateRun_WithNormalizedRequest(t *testing.T) {
	ts, _ := newTestServer(t)
	packet := feedback.RequestContext{
		Topic:          "Improve confidence at work",
		Persona:        feedback.Persona{Goals: []string{"Speak up in meetings"}, Preferences: feedback.Preferences{Tone: feedback.ToneSupportive, Format: feedback.FormatBullet}},
		Guidelines:     feedback.Guidelines{MustInclude: feedback.DefaultMustInclude},
		QualityTargets: feedback.QualityTargets{MinActionItems: 3, RequiresMetrics: true, PassThreshold: 80},
		RiskFlags:      []string{feedback.RiskCrisisLanguage},
		Confidence:     0.9,
	}
	resp := postJSON(t, ts.URL+"/api/runs", map[string]any{"request": packet})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out feedback.RunResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, feedback.StatusMaxIterationsReached, out.Status)
	assert.False(t, out.Review.Pass)
}

func TestCreateRun_BadRequests(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/runs", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/runs", map[string]any{})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/runs", map[string]any{"request": map[string]any{"topic": "  "}})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "invalid request")
}

func TestGetRun_NotFound(t *testing.T) {
	ts, _ := newTestServer(t)
	for _, path := range []string{"/api/runs/nope", "/api/runs/nope/document"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}

	resp, err := http.Get(ts.URL + "/api/runs")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(nil, nil, nil, nil, Config{}, nil)
	assert.Error(t, err)
}
