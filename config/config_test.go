package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedback_agent/llm"
	"feedback_agent/storage"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Pipeline.MaxIterations)
	assert.Equal(t, storage.DriverFile, cfg.Store.Driver)
	assert.Equal(t, llm.DefaultTimeout, cfg.LLM.Timeout)
	assert.Equal(t, "documents", cfg.Publish.Dir)
}

func TestLoad_Layers(t *testing.T) {
	path := writeFile(t, "config.yaml", `
llm:
  model: gpt-4o-mini
  timeout: 45s
pipeline:
  max_iterations: 2
store:
  driver: sqlite
  sqlite_path: /tmp/runs.db
log:
  level: debug
`)
	envFile := writeFile(t, "test.env", "FEEDBACK_MAX_ITERATIONS=3\nOPENROUTER_X_TITLE=from-dotenv\n")
	t.Cleanup(func() { _ = os.Unsetenv("OPENROUTER_X_TITLE") })
	t.Setenv("OPENAI_MODEL", "openrouter/auto")
	t.Setenv("FEEDBACK_MAX_ITERATIONS", "6")

	cfg, err := Load(path, envFile)
	require.NoError(t, err)

	assert.Equal(t, "openrouter/auto", cfg.LLM.Model, "environment beats file")
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 6, cfg.Pipeline.MaxIterations, "real environment beats .env")
	assert.Equal(t, "from-dotenv", cfg.LLM.XTitle)
	assert.Equal(t, storage.DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/runs.db", cfg.Store.SQLitePath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, storage.DefaultDir, cfg.Store.Dir, "unset fields keep defaults")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown driver", "store:\n  driver: postgres\n"},
		{"negative iterations", "pipeline:\n  max_iterations: -1\n"},
		{"mongo without uri", "store:\n  driver: mongo\n"},
		{"bad log level", "log:\n  level: loud\n"},
		{"malformed yaml", "llm: [unclosed\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.yaml", tt.body), "none.env")
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLLMConfig_Client(t *testing.T) {
	client, err := LLMConfig{Mock: true}.Client()
	require.NoError(t, err)
	assert.IsType(t, llm.MockLLM{}, client)

	client, err = LLMConfig{}.Client()
	require.NoError(t, err)
	assert.Nil(t, client)

	client, err = LLMConfig{APIKey: "k", Model: "m", BaseURL: llm.DefaultBaseURL}.Client()
	require.NoError(t, err)
	assert.NotNil(t, client)
}
