package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, StoreMongoDB, cfg.MongoDB.Backend)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	assert.Equal(t, 3, cfg.Ledger.RetryAttempts)
	assert.False(t, cfg.WhatsApp.Enabled())
	assert.False(t, cfg.Sheets.Enabled())
	assert.Equal(t, "0 20 * * 0", cfg.Reporting.CronSchedule)
}

func TestLoad_FromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "JWT_SECRET=from-file\nAPP_PORT=9090\nLEDGER_RETRY_ATTEMPTS=5\nSTORE_BACKEND=memory\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// godotenv does not override variables that are already set
	for _, key := range []string{"JWT_SECRET", "APP_PORT", "LEDGER_RETRY_ATTEMPTS", "STORE_BACKEND"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5, cfg.Ledger.RetryAttempts)
	assert.Equal(t, StoreMemory, cfg.MongoDB.Backend)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing jwt secret", map[string]string{"JWT_SECRET": ""}},
		{"bad retry attempts", map[string]string{"LEDGER_RETRY_ATTEMPTS": "many"}},
		{"zero retry attempts", map[string]string{"LEDGER_RETRY_ATTEMPTS": "0"}},
		{"bad timeout", map[string]string{"SERVER_READ_TIMEOUT": "soon"}},
		{"unknown backend", map[string]string{"STORE_BACKEND": "sqlite"}},
		{"bad timezone", map[string]string{"TIMEZONE": "Mars/Olympus"}},
		{"half sheets config", map[string]string{"GOOGLE_SHEET_DATABASE_ID": "sheet"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}

func TestOptionalSections(t *testing.T) {
	setRequired(t)
	t.Setenv("WHATSAPP_TOKEN", "token")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "123")
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS_PATH", "/tmp/creds.json")
	t.Setenv("GOOGLE_SHEET_DATABASE_ID", "sheet-id")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.True(t, cfg.WhatsApp.Enabled())
	assert.True(t, cfg.Sheets.Enabled())
	assert.Equal(t, "LoanSummary", cfg.Sheets.SummarySheet)
}
