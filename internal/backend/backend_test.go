package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtstats/internal/config"
	"courtstats/internal/sheets"
	"courtstats/internal/sheets/local"
)

func TestBackendType_IsValid(t *testing.T) {
	for _, bt := range GetBackendTypes() {
		assert.True(t, bt.IsValid(), bt.String())
	}
	assert.False(t, BackendType("sqlite").IsValid())
	assert.False(t, BackendType("").IsValid())
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataSource: "ftp"})
	assert.ErrorContains(t, err, "invalid backend type")

	cfg, err := FromAppConfig(&config.Config{DataSource: config.SourceLocal, DataDir: "/srv/data"})
	require.NoError(t, err)
	assert.Equal(t, LocalBackend, cfg.Type)
	assert.Equal(t, "/srv/data", cfg.DataDirectory)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"local ok", Config{Type: LocalBackend, DataDirectory: "data"}, false},
		{"local without dir", Config{Type: LocalBackend}, true},
		{"sheets without id", Config{Type: SheetsBackend, GoogleServiceAccountJSON: "{}"}, true},
		{"sheets without creds", Config{Type: SheetsBackend, GoogleSpreadsheetID: "x"}, true},
		{"sheets ok", Config{Type: SheetsBackend, GoogleSpreadsheetID: "x", GoogleServiceAccountJSON: "{}"}, false},
		{"unknown", Config{Type: "memory"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateLocalBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: LocalBackend, DataDirectory: t.TempDir()})
	require.NoError(t, err)
	assert.Nil(t, res.Cleanup)
	assert.IsType(t, &local.Store{}, res.Source)
	_, ok := res.Source.(sheets.Uploader)
	assert.True(t, ok, "local source should accept uploads")
}

func TestCreateSheetsBackendBadCredentials(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:                     SheetsBackend,
		GoogleSpreadsheetID:      "x",
		GoogleServiceAccountFile: "/non/existent.json",
	})
	assert.ErrorContains(t, err, "failed to initialize Google Sheets client")
}
