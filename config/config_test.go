package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, TransportStdio, cfg.Transport)
	assert.Equal(t, DefaultHTTPHost, cfg.HTTPHost)
	assert.Equal(t, DefaultHTTPPort, cfg.HTTPPort)
	assert.Equal(t, DefaultQueryTimeoutSecs, cfg.QueryTimeoutSecs)
	assert.Empty(t, cfg.Databases)
	assert.Empty(t, cfg.AuthTokens)
	assert.Equal(t, DefaultRateLimitPerSecond, cfg.RateLimitPerSecond)
	assert.Equal(t, DefaultRateLimitBurst, cfg.RateLimitBurst)
}

func TestLoadEnvironmentOverridesDefaults(t *testing.T) {
	os.Setenv("DBMCP_HTTP_PORT", "9090")
	os.Setenv("DBMCP_TRANSPORT", "http")
	defer os.Unsetenv("DBMCP_HTTP_PORT")
	defer os.Unsetenv("DBMCP_TRANSPORT")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, TransportHTTP, cfg.Transport)
}

func TestLoadRejectsEmptyAuthToken(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("auth_tokens = [\"\", \"nonempty\"]\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadReadsAuthTokensFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("auth_tokens = [\"tok-a\", \"tok-b\"]\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"tok-a", "tok-b"}, cfg.AuthTokens)
}

func TestLoadRejectsUnknownTransport(t *testing.T) {
	os.Setenv("DBMCP_TRANSPORT", "carrier-pigeon")
	defer os.Unsetenv("DBMCP_TRANSPORT")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoadMissingConfigFileIsNotAnError(t *testing.T) {
	_, err := Load("/nonexistent/path/to/config.toml")
	require.NoError(t, err)
}
