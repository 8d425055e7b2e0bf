package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"charforge/internal/config"
)

func TestProductionModeIsNoOp(t *testing.T) {
	t.Cleanup(CloseAll)
	dir := t.TempDir()

	require.NoError(t, Initialize(dir, config.LoggingConfig{DebugMode: false}))

	Pipeline("should not be written")
	_, err := os.Stat(filepath.Join(dir, "logs"))
	assert.True(t, os.IsNotExist(err), "logs directory must not be created in production mode")
}

func TestDebugModeWritesCategoryFile(t *testing.T) {
	t.Cleanup(CloseAll)
	dir := t.TempDir()

	require.NoError(t, Initialize(dir, config.LoggingConfig{DebugMode: true, Level: "debug"}))

	Generation("call completed")

	entries, err := os.ReadDir(filepath.Join(dir, "logs"))
	require.NoError(t, err)

	var found bool
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".log" {
			found = true
		}
	}
	assert.True(t, found, "expected at least one log file")
}

func TestCategoryDisable(t *testing.T) {
	t.Cleanup(CloseAll)
	dir := t.TempDir()

	cfg := config.LoggingConfig{
		DebugMode:  true,
		Level:      "info",
		Categories: map[string]bool{"dialogue": false},
	}
	require.NoError(t, Initialize(dir, cfg))

	assert.False(t, IsCategoryEnabled(CategoryDialogue))
	assert.True(t, IsCategoryEnabled(CategoryPipeline))

	// Disabled category logging must not panic
	Dialogue("dropped")
}

func TestLevelFiltering(t *testing.T) {
	t.Cleanup(CloseAll)
	dir := t.TempDir()

	require.NoError(t, Initialize(dir, config.LoggingConfig{DebugMode: true, Level: "error"}))

	l := Get(CategoryPipeline)
	l.Info("filtered out")
	l.Error("kept")

	logs, err := os.ReadDir(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	require.NotEmpty(t, logs)

	data, err := os.ReadFile(filepath.Join(dir, "logs", logs[0].Name()))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "filtered out")
	assert.Contains(t, string(data), "kept")
}

func TestRunLoggerPrefix(t *testing.T) {
	t.Cleanup(CloseAll)
	dir := t.TempDir()

	require.NoError(t, Initialize(dir, config.LoggingConfig{DebugMode: true, Level: "info"}))

	rl := WithRunID(CategoryPipeline, "abc123")
	rl.Info("stage started")

	logs, err := os.ReadDir(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	require.NotEmpty(t, logs)

	data, err := os.ReadFile(filepath.Join(dir, "logs", logs[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[run:abc123]")
}
