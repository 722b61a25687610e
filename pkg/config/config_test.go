package config_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberlang/ember/pkg/config"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const sample = `
[log]
level = "debug"
format = "json"

[modules]
allow = ["math", "string"]
deny = ["fs"]

[imports]
cache_size = 8
base_dir = "lib"

[repl]
history_file = "/tmp/ember_history"
prompt = ">> "

[output]
color = "never"
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ember.toml")
	write(t, path, sample)

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"math", "string"}, cfg.Modules.Allow)
	assert.Equal(t, []string{"fs"}, cfg.Modules.Deny)
	assert.Equal(t, 8, cfg.Imports.CacheSize)
	assert.Equal(t, "lib", cfg.Imports.BaseDir)
	assert.Equal(t, "/tmp/ember_history", cfg.HistoryPath())
	assert.Equal(t, ">> ", cfg.Repl.Prompt)
	assert.Equal(t, "never", cfg.Output.Color)
}

func TestLoadFile_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ember.toml")
	write(t, path, "[log]\nlevel = \"info\"\n")

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 64, cfg.Imports.CacheSize)
	assert.Equal(t, "ember> ", cfg.Repl.Prompt)
}

func TestLoadFile_UnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ember.toml")
	write(t, path, "[log]\nverbosity = 3\n")

	_, err := config.LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verbosity")
}

func TestLoadFile_InvalidValues(t *testing.T) {
	tests := map[string]string{
		"level":  "[log]\nlevel = \"loud\"\n",
		"format": "[log]\nformat = \"xml\"\n",
		"color":  "[output]\ncolor = \"sometimes\"\n",
		"cache":  "[imports]\ncache_size = -1\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ember.toml")
			write(t, path, content)
			_, err := config.LoadFile(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_Precedence(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	project := t.TempDir()

	// Nothing on disk: defaults.
	cfg, path, err := config.Load("", project)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, config.Defaults(), cfg)

	// User file.
	userPath := filepath.Join(home, ".ember", "config.toml")
	write(t, userPath, "[log]\nlevel = \"error\"\n")
	cfg, path, err = config.Load("", project)
	require.NoError(t, err)
	assert.Equal(t, userPath, path)
	assert.Equal(t, "error", cfg.Log.Level)

	// Project file beats user file.
	projectPath := filepath.Join(project, config.ProjectFile)
	write(t, projectPath, "[log]\nlevel = \"info\"\n")
	cfg, path, err = config.Load("", project)
	require.NoError(t, err)
	assert.Equal(t, projectPath, path)
	assert.Equal(t, "info", cfg.Log.Level)

	// Explicit file beats both.
	explicit := filepath.Join(t.TempDir(), "custom.toml")
	write(t, explicit, "[log]\nlevel = \"debug\"\n")
	cfg, path, err = config.Load(explicit, project)
	require.NoError(t, err)
	assert.Equal(t, explicit, path)
	assert.Equal(t, "debug", cfg.Log.Level)

	// A missing explicit file is an error.
	_, _, err = config.Load(filepath.Join(project, "nope.toml"), project)
	assert.Error(t, err)
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := config.Defaults()
	cfg.Modules.Allow = []string{"*"}
	cfg.Modules.Deny = []string{"fs"}
	cfg.Log.Level = "debug"

	var buf bytes.Buffer
	require.NoError(t, config.Encode(&buf, cfg))
	assert.Contains(t, buf.String(), "cache_size")

	decoded := &config.Config{}
	require.NoError(t, config.Decode(&buf, decoded))
	assert.Equal(t, cfg.Log, decoded.Log)
	assert.Equal(t, cfg.Modules, decoded.Modules)
	assert.Equal(t, 64, decoded.Imports.CacheSize)
}

func TestNewLogger(t *testing.T) {
	cfg := config.Defaults()
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"

	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf)
	logger.Debug("hidden")
	logger.Info("shown", "k", 1)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
}

func TestHistoryPathDefault(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	assert.Equal(t, filepath.Join(home, ".ember", "history"), config.Defaults().HistoryPath())
}
