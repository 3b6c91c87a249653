// Package config loads service settings from defaults, an optional
// orderdesk.yaml, ORDERDESK_* environment variables and bound flags.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/orderdesk/pkg/domain"
	"github.com/spf13/viper"
)

const EnvPrefix = "ORDERDESK"

// Backends and sinks.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendFile   = "file"

	SinkLog  = "log"
	SinkFile = "file"
	SinkGCS  = "gcs"
)

type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Model      ModelConfig
	Store      StoreConfig
	Redis      RedisConfig
	Cache      CacheConfig
	Audit      AuditConfig
	Script     ScriptConfig
	Encryption EncryptionConfig

	CatalogFile  string
	DetectorFile string
	PromptFile   string
	MaxInputSize int
}

type ServerConfig struct {
	Port        int
	CORSOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

type ModelConfig struct {
	Name             string
	BaseURL          string
	APIKey           string
	MaxTokens        int
	IntroTemperature float32
	TurnTemperature  float32
	Timeout          time.Duration
	MaxAttempts      int
	RatePerSecond    float64
	Burst            int
}

type StoreConfig struct {
	Backend string
	Dir     string
	TTL     time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type CacheConfig struct {
	Backend string
}

type AuditConfig struct {
	Sinks          []string
	Group          string
	Dir            string
	RedactPatterns []string
	GCS            GCSConfig
}

type GCSConfig struct {
	Bucket            string
	CredentialsFile   string
	CredentialsBase64 string
}

type ScriptConfig struct {
	CustomerName          string
	CustomerNumberPattern string
	ReferenceDate         string
}

// EncryptionConfig lists base64 AES-256 keys for sessions at rest.
// The first key encrypts, the rest only decrypt.
type EncryptionConfig struct {
	Keys []string
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("model.name", "gpt-4o-mini")
	v.SetDefault("model.base_url", "")
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.max_tokens", 200)
	v.SetDefault("model.intro_temperature", 0.0)
	v.SetDefault("model.turn_temperature", 0.5)
	v.SetDefault("model.timeout", 30*time.Second)
	v.SetDefault("model.max_attempts", 1)
	v.SetDefault("model.rate_per_second", 0.0)
	v.SetDefault("model.burst", 1)

	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.dir", ".orderdesk/sessions")
	v.SetDefault("store.ttl", time.Duration(0))

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "orderdesk:")

	v.SetDefault("cache.backend", BackendMemory)

	v.SetDefault("audit.sinks", []string{SinkLog})
	v.SetDefault("audit.group", "experiment")
	v.SetDefault("audit.dir", ".orderdesk/conversation_logs")
	v.SetDefault("audit.redact_patterns", []string{})
	v.SetDefault("audit.gcs.bucket", "conversation-logs-experiment")
	v.SetDefault("audit.gcs.credentials_file", "")
	v.SetDefault("audit.gcs.credentials_base64", "")

	v.SetDefault("script.customer_name", "Lily")
	v.SetDefault("script.customer_number_pattern", `123-456(-\d{4})?`)
	v.SetDefault("prompt.reference_date", "12.9.2024")
	v.SetDefault("prompt.file", "")

	v.SetDefault("catalog.file", "")
	v.SetDefault("detector.file", "")
	v.SetDefault("input.max_size", 4096)
	v.SetDefault("encryption.keys", []string{})
}

// Load reads the configuration into a Config. A missing config file is not an error.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	if v.ConfigFileUsed() == "" {
		v.SetConfigName("orderdesk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/orderdesk/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys shared with other tools keep their usual names.
	if err := v.BindEnv("model.api_key", EnvPrefix+"_MODEL_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("audit.gcs.credentials_base64", EnvPrefix+"_AUDIT_GCS_CREDENTIALS_BASE64", "GCLOUD_KEY_BASE64"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}

	cfg.Server.Port = v.GetInt("server.port")
	cfg.Server.CORSOrigins = list(v, "server.cors_origins")

	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.Format = v.GetString("log.format")

	cfg.Model.Name = v.GetString("model.name")
	cfg.Model.BaseURL = v.GetString("model.base_url")
	cfg.Model.APIKey = v.GetString("model.api_key")
	cfg.Model.MaxTokens = v.GetInt("model.max_tokens")
	cfg.Model.IntroTemperature = float32(v.GetFloat64("model.intro_temperature"))
	cfg.Model.TurnTemperature = float32(v.GetFloat64("model.turn_temperature"))
	cfg.Model.Timeout = v.GetDuration("model.timeout")
	cfg.Model.MaxAttempts = v.GetInt("model.max_attempts")
	cfg.Model.RatePerSecond = v.GetFloat64("model.rate_per_second")
	cfg.Model.Burst = v.GetInt("model.burst")

	cfg.Store.Backend = strings.ToLower(v.GetString("store.backend"))
	cfg.Store.Dir = v.GetString("store.dir")
	cfg.Store.TTL = v.GetDuration("store.ttl")

	cfg.Redis.Addr = v.GetString("redis.addr")
	cfg.Redis.Password = v.GetString("redis.password")
	cfg.Redis.DB = v.GetInt("redis.db")
	cfg.Redis.Prefix = v.GetString("redis.prefix")

	cfg.Cache.Backend = strings.ToLower(v.GetString("cache.backend"))

	for _, sink := range list(v, "audit.sinks") {
		cfg.Audit.Sinks = append(cfg.Audit.Sinks, strings.ToLower(sink))
	}
	cfg.Audit.Group = v.GetString("audit.group")
	cfg.Audit.Dir = v.GetString("audit.dir")
	cfg.Audit.RedactPatterns = list(v, "audit.redact_patterns")
	cfg.Audit.GCS.Bucket = v.GetString("audit.gcs.bucket")
	cfg.Audit.GCS.CredentialsFile = v.GetString("audit.gcs.credentials_file")
	cfg.Audit.GCS.CredentialsBase64 = v.GetString("audit.gcs.credentials_base64")

	cfg.Script.CustomerName = v.GetString("script.customer_name")
	cfg.Script.CustomerNumberPattern = v.GetString("script.customer_number_pattern")
	cfg.Script.ReferenceDate = v.GetString("prompt.reference_date")
	cfg.PromptFile = v.GetString("prompt.file")

	cfg.CatalogFile = v.GetString("catalog.file")
	cfg.DetectorFile = v.GetString("detector.file")
	cfg.MaxInputSize = v.GetInt("input.max_size")
	cfg.Encryption.Keys = list(v, "encryption.keys")

	return cfg, nil
}

// list reads a string list that may also be given as one comma separated value.
func list(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks settings that every command needs.
// requireModel is false for commands that never call the model.
func (c *Config) Validate(requireModel bool) error {
	var errs []error
	if requireModel && c.Model.APIKey == "" {
		errs = append(errs, fmt.Errorf("%w: model.api_key (or OPENAI_API_KEY)", domain.ErrConfigurationMissing))
	}
	if !slices.Contains([]string{BackendMemory, BackendRedis, BackendFile}, c.Store.Backend) {
		errs = append(errs, fmt.Errorf("unknown store.backend %q", c.Store.Backend))
	}
	if !slices.Contains([]string{BackendMemory, BackendRedis}, c.Cache.Backend) {
		errs = append(errs, fmt.Errorf("unknown cache.backend %q", c.Cache.Backend))
	}
	for _, sink := range c.Audit.Sinks {
		if !slices.Contains([]string{SinkLog, SinkFile, SinkGCS}, sink) {
			errs = append(errs, fmt.Errorf("unknown audit sink %q", sink))
		}
	}
	if c.HasSink(SinkGCS) && c.Audit.GCS.Bucket == "" {
		errs = append(errs, fmt.Errorf("%w: audit.gcs.bucket", domain.ErrConfigurationMissing))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server.port %d", c.Server.Port))
	}
	if c.Model.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("invalid model.timeout %s", c.Model.Timeout))
	}
	return errors.Join(errs...)
}

// HasSink reports whether the named audit sink is enabled.
func (c *Config) HasSink(name string) bool {
	return slices.Contains(c.Audit.Sinks, name)
}
