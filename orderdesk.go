package orderdesk

import (
	"context"
	_ "embed"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/orderdesk/internal/logging"
	"github.com/aretw0/orderdesk/internal/runtime"
	"github.com/aretw0/orderdesk/pkg/adapters/memory"
	"github.com/aretw0/orderdesk/pkg/catalog"
	"github.com/aretw0/orderdesk/pkg/detector"
	"github.com/aretw0/orderdesk/pkg/domain"
	"github.com/aretw0/orderdesk/pkg/input"
	"github.com/aretw0/orderdesk/pkg/ports"
	"github.com/aretw0/orderdesk/pkg/replycache"
	"github.com/aretw0/orderdesk/pkg/session"
)

//go:embed VERSION
var version string

// Version is the release of this module.
var Version = strings.TrimSpace(version)

// Desk is the high-level entry point: it owns the sessions and drives the
// scripted support conversation for every user.
type Desk struct {
	runtime  *runtime.Engine
	sessions *session.Manager
	catalog  *catalog.Catalog
	logger   *slog.Logger
	maxInput int

	store      ports.SessionStore
	locker     ports.DistributedLocker
	cacheStore ports.ReplyCache
	runtimeOpt []runtime.EngineOption
	script     runtime.Script
}

// Option defines a functional option for configuring the Desk.
type Option func(*Desk)

// WithSessionStore persists sessions in store. Defaults to memory.
func WithSessionStore(store ports.SessionStore) Option {
	return func(d *Desk) {
		d.store = store
	}
}

// WithLocker serializes turns across processes sharing a store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(d *Desk) {
		d.locker = locker
	}
}

// WithReplyCache stores model replies in cache. Defaults to memory.
func WithReplyCache(cache ports.ReplyCache) Option {
	return func(d *Desk) {
		d.cacheStore = cache
	}
}

// WithAuditLogger writes the conversation log to a.
func WithAuditLogger(a ports.AuditLogger) Option {
	return func(d *Desk) {
		d.runtimeOpt = append(d.runtimeOpt, runtime.WithAuditLogger(a))
	}
}

// WithCatalog replaces the built-in orders.
func WithCatalog(c *catalog.Catalog) Option {
	return func(d *Desk) {
		d.catalog = c
	}
}

// WithDetector replaces the built-in task rules.
func WithDetector(det *detector.Detector) Option {
	return func(d *Desk) {
		d.runtimeOpt = append(d.runtimeOpt, runtime.WithDetector(det))
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(d *Desk) {
		d.runtimeOpt = append(d.runtimeOpt, runtime.WithLifecycleHooks(hooks))
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Desk) {
		d.logger = logger
	}
}

// WithCustomer sets the name used in the welcome message and the pattern a
// customer number must contain. A nil pattern keeps the default.
func WithCustomer(name string, number *regexp.Regexp) Option {
	return func(d *Desk) {
		if name != "" {
			d.script.CustomerName = name
		}
		if number != nil {
			d.script.CustomerNumber = number
		}
	}
}

// WithGroup sets the experiment group written to the conversation log.
func WithGroup(group string) Option {
	return func(d *Desk) {
		d.script.Group = group
	}
}

// WithSystemPrompt replaces the rendered system prompt.
func WithSystemPrompt(text string) Option {
	return func(d *Desk) {
		d.script.SystemPrompt = text
	}
}

// WithPromptTemplate renders the system prompt from a text/template
// instead of the built-in one. The template sees the catalog orders.
func WithPromptTemplate(tmpl string) Option {
	return func(d *Desk) {
		d.script.PromptTemplate = tmpl
	}
}

// WithReferenceDate sets the date the assistant treats as today.
func WithReferenceDate(date string) Option {
	return func(d *Desk) {
		d.script.ReferenceDate = date
	}
}

// WithSampling sets the parameters of the introduction and menu calls.
func WithSampling(intro, turn domain.Sampling) Option {
	return func(d *Desk) {
		d.script.IntroSampling = intro
		d.script.TurnSampling = turn
	}
}

// WithModelTimeout bounds each model call.
func WithModelTimeout(timeout time.Duration) Option {
	return func(d *Desk) {
		d.script.ModelTimeout = timeout
	}
}

// WithMaxInputSize caps the size of a user message in bytes.
func WithMaxInputSize(n int) Option {
	return func(d *Desk) {
		d.maxInput = n
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(d *Desk) {
		d.runtimeOpt = append(d.runtimeOpt, runtime.WithClock(now))
	}
}

// New creates a Desk that asks model for replies. Unset collaborators fall
// back to in-memory stores, the built-in catalog and rules, and no audit log.
func New(model ports.ModelCaller, opts ...Option) (*Desk, error) {
	d := &Desk{script: runtime.DefaultScript()}
	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = logging.NewNop()
	}
	if d.store == nil {
		d.store = memory.NewStore()
	}
	if d.cacheStore == nil {
		d.cacheStore = memory.NewCache()
	}
	if d.catalog == nil {
		d.catalog = catalog.Default()
	}

	sessionOpts := []session.Option{session.WithLogger(d.logger)}
	if d.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(d.locker))
	}
	d.sessions = session.NewManager(d.store, sessionOpts...)

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLogger(d.logger),
		runtime.WithScript(d.script),
		runtime.WithCatalog(d.catalog),
		runtime.WithReplyCache(replycache.New(d.cacheStore, replycache.WithLogger(d.logger))),
	}
	runtimeOpts = append(runtimeOpts, d.runtimeOpt...)

	eng, err := runtime.NewEngine(d.sessions, model, runtimeOpts...)
	if err != nil {
		return nil, err
	}
	d.runtime = eng
	return d, nil
}

// HandleTurn applies one user message to the user's session. Messages that
// are too large or not valid UTF-8 fail with domain.ErrInvalidInput. A failed
// model call returns domain.ErrModelCall and leaves the session unchanged.
func (d *Desk) HandleTurn(ctx context.Context, userID, message string) (domain.TurnResult, error) {
	clean, err := input.Sanitize(message, d.maxInput)
	if err != nil {
		d.logger.Warn("Input rejected", "user_id", userID, "error", err, "size", len(message))
		return domain.TurnResult{}, err
	}
	return d.runtime.HandleTurn(ctx, userID, clean)
}

// Resume returns the last prompt of the user's stored session without
// advancing it. It returns domain.ErrSessionNotFound for unknown users.
func (d *Desk) Resume(ctx context.Context, userID string) (domain.TurnResult, error) {
	return d.runtime.Resume(ctx, userID)
}

// EndSession logs the end of the user's session.
// It returns domain.ErrSessionNotFound for unknown users.
func (d *Desk) EndSession(ctx context.Context, userID string) (domain.EndSummary, error) {
	return d.runtime.EndSession(ctx, userID)
}

// Orders lists the catalog.
func (d *Desk) Orders() []domain.Order {
	return d.catalog.Orders()
}

// SystemPrompt returns the prompt every conversation starts with.
func (d *Desk) SystemPrompt() string {
	return d.runtime.SystemPrompt()
}

// Sessions gives access to stored sessions.
func (d *Desk) Sessions() *session.Manager {
	return d.sessions
}
