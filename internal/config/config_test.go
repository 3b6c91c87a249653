package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/orderdesk/internal/config"
	"github.com/aretw0/orderdesk/pkg/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := config.Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.Model.Name)
	assert.Equal(t, 200, cfg.Model.MaxTokens)
	assert.Equal(t, float32(0), cfg.Model.IntroTemperature)
	assert.Equal(t, float32(0.5), cfg.Model.TurnTemperature)
	assert.Equal(t, 30*time.Second, cfg.Model.Timeout)
	assert.Equal(t, config.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, time.Duration(0), cfg.Store.TTL)
	assert.Equal(t, []string{config.SinkLog}, cfg.Audit.Sinks)
	assert.Equal(t, "experiment", cfg.Audit.Group)
	assert.Equal(t, "conversation-logs-experiment", cfg.Audit.GCS.Bucket)
	assert.Equal(t, "Lily", cfg.Script.CustomerName)
	assert.Equal(t, "12.9.2024", cfg.Script.ReferenceDate)
	assert.Equal(t, 4096, cfg.MaxInputSize)
	assert.Empty(t, cfg.Encryption.Keys)

	err = cfg.Validate(true)
	assert.ErrorIs(t, err, domain.ErrConfigurationMissing)
	assert.NoError(t, cfg.Validate(false))
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ORDERDESK_SERVER_PORT", "8080")
	t.Setenv("ORDERDESK_STORE_BACKEND", "Redis")
	t.Setenv("ORDERDESK_AUDIT_SINKS", "log, File,gcs")
	t.Setenv("ORDERDESK_MODEL_TIMEOUT", "5s")
	t.Setenv("GCLOUD_KEY_BASE64", "e30=")

	cfg, err := config.Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.Model.APIKey)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, config.BackendRedis, cfg.Store.Backend)
	assert.Equal(t, []string{"log", "file", "gcs"}, cfg.Audit.Sinks)
	assert.True(t, cfg.HasSink(config.SinkGCS))
	assert.Equal(t, 5*time.Second, cfg.Model.Timeout)
	assert.Equal(t, "e30=", cfg.Audit.GCS.CredentialsBase64)
	assert.NoError(t, cfg.Validate(true))
}

func TestLoad_File(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := filepath.Join(t.TempDir(), "orderdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 4000
model:
  api_key: sk-file
  turn_temperature: 0.2
audit:
  sinks: [file]
  redact_patterns: ['\d{3}-\d{3}']
encryption:
  keys: [AbC=, dEf=]
`), 0644))

	v := viper.New()
	v.SetConfigFile(path)
	cfg, err := config.Load(v)
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "sk-file", cfg.Model.APIKey)
	assert.Equal(t, float32(0.2), cfg.Model.TurnTemperature)
	assert.Equal(t, []string{"file"}, cfg.Audit.Sinks)
	assert.Equal(t, []string{`\d{3}-\d{3}`}, cfg.Audit.RedactPatterns)
	assert.Equal(t, []string{"AbC=", "dEf="}, cfg.Encryption.Keys, "keys keep their case")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := config.Load(v)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *config.Config {
		cfg, err := config.Load(viper.New())
		require.NoError(t, err)
		cfg.Model.APIKey = "sk"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"Unknown Store", func(c *config.Config) { c.Store.Backend = "sqlite" }},
		{"Unknown Cache", func(c *config.Config) { c.Cache.Backend = "file" }},
		{"Unknown Sink", func(c *config.Config) { c.Audit.Sinks = []string{"s3"} }},
		{"GCS Without Bucket", func(c *config.Config) {
			c.Audit.Sinks = []string{config.SinkGCS}
			c.Audit.GCS.Bucket = ""
		}},
		{"Bad Port", func(c *config.Config) { c.Server.Port = 0 }},
		{"Bad Timeout", func(c *config.Config) { c.Model.Timeout = 0 }},
	}

	assert.NoError(t, base().Validate(true))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate(true))
		})
	}
}
