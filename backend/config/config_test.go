package config

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.ServerPort)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, ProviderGemini, cfg.Oracle.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.Oracle.Model)
	assert.Equal(t, "test-key", cfg.Oracle.APIKey)
	assert.Equal(t, 4, cfg.DefaultWeeks)
	assert.Equal(t, 10, cfg.ListLimit)
	assert.Equal(t, 120*time.Second, cfg.Oracle.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigOpenAIProvider(t *testing.T) {
	t.Setenv("ORACLE_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:9999/")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.Oracle.Provider)
	assert.Equal(t, "sk-test", cfg.Oracle.APIKey)
	assert.Equal(t, "http://localhost:9999", cfg.Oracle.BaseURL)
}

func TestLoadConfigFileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roadmap.yaml")
	body := []byte("server_port: \"9100\"\nlist_limit: 25\noracle:\n  model: gemini-custom\n")
	require.NoError(t, os.WriteFile(path, body, 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("ROADMAP_LIST_LIMIT", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.ServerPort)
	assert.Equal(t, 25, cfg.ListLimit)
	assert.Equal(t, "gemini-custom", cfg.Oracle.Model)

	t.Setenv("SERVER_PORT", "7000")
	cfg, err = LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.ServerPort, "environment wins over the file")
}

func TestValidate(t *testing.T) {
	base := Config{
		DBDriver:     DriverSQLite,
		Oracle:       OracleConfig{Provider: ProviderGemini, APIKey: "k"},
		DefaultWeeks: 4,
		MaxWeeks:     12,
		ListLimit:    10,
	}
	assert.NoError(t, base.Validate())

	bad := base
	bad.DBDriver = "mysql"
	assert.Error(t, bad.Validate())

	bad = base
	bad.Oracle.APIKey = ""
	assert.Error(t, bad.Validate())

	bad = base
	bad.Oracle.Provider = "claude"
	assert.Error(t, bad.Validate())

	bad = base
	bad.DefaultWeeks = 20
	assert.Error(t, bad.Validate())
}

func TestLoadConfigWarnsOnMalformedNumbers(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("ROADMAP_LIST_LIMIT", "abc")
	t.Setenv("ORACLE_BREAKER_FAILURE_THRESHOLD", "most")

	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.ListLimit)
	assert.Equal(t, 0.6, cfg.Oracle.BreakerFailureThreshold)
	assert.Contains(t, buf.String(), `Invalid ROADMAP_LIST_LIMIT="abc"`)
	assert.Contains(t, buf.String(), `Invalid ORACLE_BREAKER_FAILURE_THRESHOLD="most"`)
}
