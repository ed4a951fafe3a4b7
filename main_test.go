package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI_RunThenList(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
store:
  driver: file
  dir: `+filepath.Join(dir, "runs")+`
publish:
  dir: `+filepath.Join(dir, "docs")+`
log:
  level: error
`), 0o644))
	envFile := filepath.Join(dir, "none.env")

	out, err := execute(t, "run", "--config", cfgPath, "--env-file", envFile, "--mock",
		"--text", "Improve confidence at work", "--goal", "Speak up in meetings",
		"--output", "markdown", "--publish")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Personal development feedback: Improve confidence at work"))

	docs, err := filepath.Glob(filepath.Join(dir, "docs", "*.md"))
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	out, err = execute(t, "runs", "list", "--config", cfgPath, "--env-file", envFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Improve confidence at work")
	assert.Contains(t, out, "validated")
}

func TestCLI_RunRequiresInput(t *testing.T) {
	runText, runTopic = "", ""
	_, err := execute(t, "run", "--env-file", filepath.Join(t.TempDir(), "none.env"), "--text", "")
	assert.Error(t, err)
}
