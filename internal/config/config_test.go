package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
[compare]
collaborator_endpoint = "http://127.0.0.1:5210"
fallback = "always"

[tolerance]
numeric_epsilon = 0.5
string_trim = true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:5210", cfg.Compare.CollaboratorEndpoint)
	assert.Equal(t, FallbackAlways, cfg.Compare.Fallback)
	assert.Equal(t, 0.5, cfg.Tolerance.NumericEpsilon)
	assert.True(t, cfg.Tolerance.StringTrim)
	assert.Equal(t, 100, cfg.Tolerance.MaxDiffs, "untouched keys keep defaults")
	assert.Equal(t, "list_views", cfg.Methods.ListViews)
	assert.Equal(t, 90, cfg.Remote.SnapshotTimeoutSeconds)
}

func TestLoad_RejectsUnknownFallback(t *testing.T) {
	path := writeConfig(t, "[compare]\nfallback = \"sometimes\"\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "compare.fallback")
}

func TestLoad_BadTOML(t *testing.T) {
	path := writeConfig(t, "[server\nport = ")

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse TOML")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":                  "6000",
		"SNAPDIFF_FALLBACK":     "NEVER",
		"SNAPDIFF_COLLABORATOR": "http://collab:1",
		"MEMGRAPH_URI":          "bolt://memgraph:7687",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, 6000, cfg.Server.Port)
	assert.Equal(t, FallbackNever, cfg.Compare.Fallback)
	assert.Equal(t, "http://collab:1", cfg.Compare.CollaboratorEndpoint)
	assert.Equal(t, "bolt://memgraph:7687", cfg.Memgraph.URI)
	assert.NoError(t, cfg.Validate())
}

func TestRepositoryConfigParses(t *testing.T) {
	cfg, err := Load("../../config/config.toml")
	require.NoError(t, err)
	assert.Equal(t, 5300, cfg.Server.Port)
}
