package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"github.com/aretw0/orderdesk"
	"github.com/aretw0/orderdesk/internal/config"
	"github.com/aretw0/orderdesk/pkg/adapters/audit"
	"github.com/aretw0/orderdesk/pkg/adapters/file"
	"github.com/aretw0/orderdesk/pkg/adapters/memory"
	"github.com/aretw0/orderdesk/pkg/adapters/openai"
	"github.com/aretw0/orderdesk/pkg/adapters/redis"
	"github.com/aretw0/orderdesk/pkg/catalog"
	"github.com/aretw0/orderdesk/pkg/detector"
	"github.com/aretw0/orderdesk/pkg/domain"
	"github.com/aretw0/orderdesk/pkg/observability"
	"github.com/aretw0/orderdesk/pkg/persistence/middleware"
	"github.com/aretw0/orderdesk/pkg/ports"
	goredis "github.com/redis/go-redis/v9"
)

// builder turns a Config into adapters and tracks what must be closed.
type builder struct {
	cfg    *config.Config
	logger *slog.Logger

	client  *goredis.Client
	closers []func() error
}

func newBuilder(cfg *config.Config, logger *slog.Logger) *builder {
	return &builder{cfg: cfg, logger: logger}
}

// Close releases everything opened by the builder, last opened first.
func (b *builder) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// redisClient is shared by the store, the locker and the reply cache.
func (b *builder) redisClient() *goredis.Client {
	if b.client == nil {
		b.client = redis.NewClient(b.cfg.Redis.Addr, b.cfg.Redis.Password, b.cfg.Redis.DB)
		b.closers = append(b.closers, b.client.Close)
	}
	return b.client
}

// sessionStore opens the configured store, encrypted when keys are set.
// The locker is nil unless sessions live in Redis.
func (b *builder) sessionStore() (ports.SessionStore, ports.DistributedLocker, error) {
	var (
		store  ports.SessionStore
		locker ports.DistributedLocker
	)
	switch b.cfg.Store.Backend {
	case config.BackendRedis:
		client := b.redisClient()
		store = redis.NewFromClient(client,
			redis.WithTTL(b.cfg.Store.TTL),
			redis.WithPrefix(b.cfg.Redis.Prefix+"session:"),
		)
		locker = redis.NewLocker(client, b.cfg.Redis.Prefix)
	case config.BackendFile:
		store = file.New(b.cfg.Store.Dir)
	default:
		store = memory.NewStore()
	}

	if len(b.cfg.Encryption.Keys) > 0 {
		keys, err := middleware.ParseKeys(b.cfg.Encryption.Keys...)
		if err != nil {
			return nil, nil, fmt.Errorf("encryption.keys: %w", err)
		}
		store = middleware.Chain(store, middleware.NewEncryptionMiddleware(keys))
	}
	return store, locker, nil
}

func (b *builder) replyCache() ports.ReplyCache {
	if b.cfg.Cache.Backend == config.BackendRedis {
		return redis.NewCache(b.redisClient(), redis.WithCachePrefix(b.cfg.Redis.Prefix+"reply:"))
	}
	return memory.NewCache()
}

// auditLogger fans out to every configured sink. Redaction applies to all of them.
func (b *builder) auditLogger(ctx context.Context) (ports.AuditLogger, error) {
	var sinks audit.Multi
	for _, name := range b.cfg.Audit.Sinks {
		switch name {
		case config.SinkLog:
			sinks = append(sinks, audit.NewLogSink(b.logger))
		case config.SinkFile:
			sinks = append(sinks, audit.NewFileSink(b.cfg.Audit.Dir))
		case config.SinkGCS:
			gcsCfg := b.cfg.Audit.GCS
			opts, err := audit.CredentialOptions(gcsCfg.CredentialsFile, gcsCfg.CredentialsBase64)
			if err != nil {
				return nil, err
			}
			bucket, err := audit.NewGCS(ctx, gcsCfg.Bucket, opts...)
			if err != nil {
				return nil, err
			}
			b.closers = append(b.closers, bucket.Close)
			sinks = append(sinks, audit.NewObjectSink(bucket, ""))
		}
	}

	var out ports.AuditLogger = sinks
	if len(b.cfg.Audit.RedactPatterns) > 0 {
		redactor, err := audit.NewRedactor(sinks, b.cfg.Audit.RedactPatterns)
		if err != nil {
			return nil, fmt.Errorf("audit.redact_patterns: %w", err)
		}
		out = redactor
	}
	return out, nil
}

func (b *builder) model() (*openai.Client, error) {
	m := b.cfg.Model
	return openai.New(openai.Config{
		APIKey:            m.APIKey,
		BaseURL:           m.BaseURL,
		Model:             m.Name,
		MaxAttempts:       m.MaxAttempts,
		Backoff:           time.Second,
		RequestsPerSecond: m.RatePerSecond,
		Burst:             m.Burst,
	}, openai.WithLogger(b.logger))
}

// desk wires a Desk from the configuration. metrics may be unregistered.
func (b *builder) desk(ctx context.Context, metrics *observability.Metrics) (*orderdesk.Desk, error) {
	cfg := b.cfg

	model, err := b.model()
	if err != nil {
		return nil, err
	}
	store, locker, err := b.sessionStore()
	if err != nil {
		return nil, err
	}
	auditLogger, err := b.auditLogger(ctx)
	if err != nil {
		return nil, err
	}
	number, err := regexp.Compile(cfg.Script.CustomerNumberPattern)
	if err != nil {
		return nil, fmt.Errorf("script.customer_number_pattern: %w", err)
	}

	opts := []orderdesk.Option{
		orderdesk.WithLogger(b.logger),
		orderdesk.WithSessionStore(store),
		orderdesk.WithReplyCache(b.replyCache()),
		orderdesk.WithAuditLogger(auditLogger),
		orderdesk.WithLifecycleHooks(observability.Hooks(metrics, b.logger)),
		orderdesk.WithCustomer(cfg.Script.CustomerName, number),
		orderdesk.WithGroup(cfg.Audit.Group),
		orderdesk.WithReferenceDate(cfg.Script.ReferenceDate),
		orderdesk.WithSampling(
			domain.Sampling{Temperature: cfg.Model.IntroTemperature, MaxTokens: cfg.Model.MaxTokens},
			domain.Sampling{Temperature: cfg.Model.TurnTemperature, MaxTokens: cfg.Model.MaxTokens},
		),
		orderdesk.WithModelTimeout(cfg.Model.Timeout),
		orderdesk.WithMaxInputSize(cfg.MaxInputSize),
	}
	if locker != nil {
		opts = append(opts, orderdesk.WithLocker(locker))
	}
	if cfg.CatalogFile != "" {
		c, err := catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, orderdesk.WithCatalog(c))
	}
	if cfg.DetectorFile != "" {
		d, err := detector.LoadFile(cfg.DetectorFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, orderdesk.WithDetector(d))
	}
	if cfg.PromptFile != "" {
		data, err := os.ReadFile(cfg.PromptFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt template: %w", err)
		}
		opts = append(opts, orderdesk.WithPromptTemplate(string(data)))
	}

	return orderdesk.New(model, opts...)
}

// buildDesk is the entry point used by the serving commands. The returned
// cleanup must be called once the desk is no longer used.
func buildDesk(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*orderdesk.Desk, func(), error) {
	if err := cfg.Validate(true); err != nil {
		return nil, nil, err
	}
	b := newBuilder(cfg, logger)
	cleanup := func() {
		if err := b.Close(); err != nil {
			logger.Warn("Failed to release resources", "error", err)
		}
	}
	desk, err := b.desk(ctx, metrics)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	logger.Info("Order desk ready",
		"store", cfg.Store.Backend,
		"cache", cfg.Cache.Backend,
		"audit", cfg.Audit.Sinks,
		"encrypted", len(cfg.Encryption.Keys) > 0,
		"model", cfg.Model.Name,
	)
	return desk, cleanup, nil
}
