package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dhosearch/internal/config"
	"dhosearch/internal/orchestrator"
)

func configWithProvider(provider, openaiModel, ollamaModel string) config.Config {
	cfg := config.Config{Provider: config.ProviderName(provider)}
	cfg.OpenAI.Model = openaiModel
	cfg.Ollama.Model = ollamaModel
	return cfg
}

func TestReadURLList_SkipsBlankLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte("http://a.example/x.pdf\n\n  \nhttp://b.example/y.pdf\n"), 0o644))

	urls, err := readURLList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.example/x.pdf", "http://b.example/y.pdf"}, urls)
}

func TestReadURLList_MissingFileIsError(t *testing.T) {
	_, err := readURLList(filepath.Join(t.TempDir(), "does-not-exist.txt"))
	assert.Error(t, err)
}

func TestStatusTracker_WritesRunningThenDone(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "status.json")

	tracker := newStatusTracker(path, "run-1", 3, "dummy", "dummy")
	tracker.writeRunning()

	var running processingStatus
	readStatus(t, path, &running)
	assert.Equal(t, "running", running.Status)
	assert.Equal(t, 3, running.TotalBooks)
	assert.Equal(t, "run-1", running.RunID)

	tracker.update(1, 0)
	var midway processingStatus
	readStatus(t, path, &midway)
	assert.Equal(t, 1, midway.Processed)

	tracker.writeDone(orchestrator.Result{Total: 3, Successful: 2, Failed: 1})
	var done processingStatus
	readStatus(t, path, &done)
	assert.Equal(t, "done", done.Status)
	assert.Equal(t, 3, done.Processed)
	assert.Equal(t, 1, done.Failed)
}

func TestProviderModel_SelectsFieldByProvider(t *testing.T) {
	assert.Equal(t, "dummy", providerModel(configWithProvider("dummy", "", "")))
	assert.Equal(t, "text-embedding-3-small", providerModel(configWithProvider("openai", "text-embedding-3-small", "")))
	assert.Equal(t, "nomic-embed-text", providerModel(configWithProvider("ollama", "", "nomic-embed-text")))
}

func readStatus(t *testing.T, path string, v *processingStatus) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}
