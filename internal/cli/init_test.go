package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtstats/internal/config"
	applog "courtstats/internal/log"
	"courtstats/internal/sheets/local"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LogLevel:   "debug",
		LogFormat:  "json",
		Timezone:   "Asia/Shanghai",
		DataSource: config.SourceLocal,
		DataDir:    t.TempDir(),
	}
}

func TestSetupLogger(t *testing.T) {
	cfg := testConfig(t)
	logger := SetupLogger(cfg, applog.ComponentWorker)
	assert.Equal(t, applog.ComponentWorker, logger.Component())
	assert.True(t, logger.Enabled(context.Background(), -4), "debug enabled")

	cfg.LogLevel = "loud"
	logger = SetupLogger(cfg, applog.ComponentApp)
	assert.False(t, logger.Enabled(context.Background(), -4), "falls back to info")
}

func TestNewAnalyzer(t *testing.T) {
	cfg := testConfig(t)
	a, err := NewAnalyzer(cfg, applog.Discard())
	require.NoError(t, err)
	assert.NotNil(t, a.Classifier())

	bad := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("venues: [[["), 0o600))
	cfg.CatalogFile = bad
	_, err = NewAnalyzer(cfg, applog.Discard())
	assert.Error(t, err)
}

func TestOpenSource(t *testing.T) {
	cfg := testConfig(t)
	res, err := OpenSource(context.Background(), cfg, applog.Discard())
	require.NoError(t, err)
	assert.IsType(t, &local.Store{}, res.Source)

	cfg.DataSource = "ftp"
	_, err = OpenSource(context.Background(), cfg, applog.Discard())
	assert.Error(t, err)
}
