package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlbridge/dbmcp/dberr"
	"github.com/sqlbridge/dbmcp/dbtype"
)

func TestParseConnectionEntryWritableFlagStripped(t *testing.T) {
	cfg, err := ParseConnectionEntry("mydb=mysql://u:p@h:3306/mydb?writable=true&charset=utf8")
	require.NoError(t, err)
	assert.Equal(t, "mydb", cfg.ID)
	assert.True(t, cfg.Writable)
	assert.False(t, cfg.ServerLevel)
	assert.Equal(t, "mydb", cfg.Database)
	assert.Equal(t, "mysql://u:p@h:3306/mydb?charset=utf8", cfg.ConnectionString)
}

func TestParseConnectionEntryDefaultsReadOnlyAndDerivesIDFromPath(t *testing.T) {
	cfg, err := ParseConnectionEntry("postgres://u:p@h/analytics")
	require.NoError(t, err)
	assert.Equal(t, "analytics", cfg.ID)
	assert.False(t, cfg.Writable)
	assert.Equal(t, dbtype.BackendPostgres, cfg.Backend)
}

func TestParseConnectionEntryServerLevelWhenNoPath(t *testing.T) {
	cfg, err := ParseConnectionEntry("postgres://u:p@h:5432/")
	require.NoError(t, err)
	assert.True(t, cfg.ServerLevel)
	assert.Equal(t, "default", cfg.ID)
}

func TestParseConnectionEntryRejectsSQLiteServerLevel(t *testing.T) {
	_, err := ParseConnectionEntry("sqlite://")
	require.Error(t, err)
	de, ok := dberr.As(err)
	require.True(t, ok)
	assert.Equal(t, dberr.KindInvalidInput, de.Kind)
}

func TestParseConnectionEntryTrimsSQLiteFileExtension(t *testing.T) {
	cfg, err := ParseConnectionEntry("sqlite:///var/data/app.db")
	require.NoError(t, err)
	assert.Equal(t, "app", cfg.ID)
	assert.Equal(t, "app", cfg.Database)
	assert.False(t, cfg.ServerLevel)
}

func TestParseConnectionEntryRejectsExplicitDefaultID(t *testing.T) {
	_, err := ParseConnectionEntry("default=mysql://u:p@h/mydb")
	require.Error(t, err)
}

func TestParseConnectionEntryPoolOptionsParsedAndStripped(t *testing.T) {
	cfg, err := ParseConnectionEntry("mydb=mysql://u:p@h/mydb?max_connections=20&min_connections=2&idle_timeout=30&acquire_timeout=5&test_before_acquire=false&database_pool_idle_timeout=120&database_pool_cleanup_interval=15")
	require.NoError(t, err)
	require.NotNil(t, cfg.PoolOptions.MaxConnections)
	assert.EqualValues(t, 20, *cfg.PoolOptions.MaxConnections)
	require.NotNil(t, cfg.PoolOptions.MinConnections)
	assert.EqualValues(t, 2, *cfg.PoolOptions.MinConnections)
	require.NotNil(t, cfg.PoolOptions.IdleTimeoutSecs)
	assert.EqualValues(t, 30, *cfg.PoolOptions.IdleTimeoutSecs)
	require.NotNil(t, cfg.PoolOptions.TestBeforeAcquire)
	assert.False(t, *cfg.PoolOptions.TestBeforeAcquire)
	assert.NotContains(t, cfg.ConnectionString, "max_connections")
}

func TestParseConnectionEntryInvalidPoolOptionValueSilentlyIgnored(t *testing.T) {
	cfg, err := ParseConnectionEntry("mydb=mysql://u:p@h/mydb?max_connections=invalid")
	require.NoError(t, err)
	assert.Nil(t, cfg.PoolOptions.MaxConnections)
	assert.NotContains(t, cfg.ConnectionString, "max_connections")
}

func TestParseConnectionEntryZeroPoolOptionRejected(t *testing.T) {
	_, err := ParseConnectionEntry("mydb=mysql://u:p@h/mydb?max_connections=0")
	require.Error(t, err)
}

func TestParseConnectionEntryUnknownQueryParamPreserved(t *testing.T) {
	cfg, err := ParseConnectionEntry("mydb=postgres://u:p@h/mydb?sslmode=disable")
	require.NoError(t, err)
	assert.Contains(t, cfg.ConnectionString, "sslmode=disable")
}

func TestParseConnectionEntryUnrecognizedSchemeRejected(t *testing.T) {
	_, err := ParseConnectionEntry("mongodb://u:p@h/mydb")
	require.Error(t, err)
}
