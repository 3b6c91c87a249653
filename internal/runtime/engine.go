package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/aretw0/orderdesk/internal/logging"
	"github.com/aretw0/orderdesk/internal/prompt"
	"github.com/aretw0/orderdesk/pkg/adapters/memory"
	"github.com/aretw0/orderdesk/pkg/catalog"
	"github.com/aretw0/orderdesk/pkg/detector"
	"github.com/aretw0/orderdesk/pkg/domain"
	"github.com/aretw0/orderdesk/pkg/options"
	"github.com/aretw0/orderdesk/pkg/ports"
	"github.com/aretw0/orderdesk/pkg/replycache"
	"github.com/aretw0/orderdesk/pkg/session"
)

// IntroFallback is shown when the introduction cannot be generated.
const IntroFallback = "It seems we are encountering some connectivity issues. Please try again in a few minutes."

// Script holds the fixed parameters of the scripted conversation.
type Script struct {
	// SystemPrompt seeds every history. Rendered from the catalog when empty,
	// using PromptTemplate if set.
	SystemPrompt   string
	PromptTemplate string
	ReferenceDate  string

	CustomerName   string
	CustomerNumber *regexp.Regexp
	Group          string

	IntroSampling domain.Sampling
	TurnSampling  domain.Sampling
	ModelTimeout  time.Duration
}

// DefaultScript returns the parameters of the reference scenario.
func DefaultScript() Script {
	return Script{
		ReferenceDate:  prompt.DefaultReferenceDate,
		CustomerName:   "Lily",
		CustomerNumber: regexp.MustCompile(`123-456(-\d{4})?`),
		Group:          "experiment",
		IntroSampling:  domain.Sampling{Temperature: 0.0, MaxTokens: 200},
		TurnSampling:   domain.Sampling{Temperature: 0.5, MaxTokens: 200},
		ModelTimeout:   30 * time.Second,
	}
}

// Engine drives sessions through the conversation phases.
type Engine struct {
	sessions  *session.Manager
	model     ports.ModelCaller
	catalog   *catalog.Catalog
	detector  *detector.Detector
	annotator *options.Annotator
	cache     *replycache.Cache
	audit     ports.AuditLogger
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	script    Script
	now       func() time.Time
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithCatalog replaces the default order catalog.
func WithCatalog(c *catalog.Catalog) EngineOption {
	return func(e *Engine) {
		e.catalog = c
	}
}

// WithDetector replaces the default task rules.
func WithDetector(d *detector.Detector) EngineOption {
	return func(e *Engine) {
		e.detector = d
	}
}

// WithReplyCache sets the response cache.
func WithReplyCache(c *replycache.Cache) EngineOption {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithAuditLogger sets the conversation log sink.
func WithAuditLogger(a ports.AuditLogger) EngineOption {
	return func(e *Engine) {
		e.audit = a
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithScript overrides the scenario parameters.
func WithScript(s Script) EngineOption {
	return func(e *Engine) {
		e.script = s
	}
}

// WithClock overrides the time source used for session timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine. Unset collaborators fall back to the scripted
// defaults with an in-memory reply cache.
func NewEngine(sessions *session.Manager, model ports.ModelCaller, opts ...EngineOption) (*Engine, error) {
	if sessions == nil || model == nil {
		return nil, errors.New("runtime: session manager and model are required")
	}
	e := &Engine{
		sessions: sessions,
		model:    model,
		logger:   logging.NewNop(),
		script:   DefaultScript(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.catalog == nil {
		e.catalog = catalog.Default()
	}
	if e.detector == nil {
		e.detector = detector.Default()
	}
	if e.cache == nil {
		e.cache = replycache.New(memory.NewCache(), replycache.WithLogger(e.logger))
	}
	if e.script.CustomerNumber == nil {
		e.script.CustomerNumber = DefaultScript().CustomerNumber
	}
	if e.script.ModelTimeout <= 0 {
		e.script.ModelTimeout = DefaultScript().ModelTimeout
	}
	e.annotator = options.NewAnnotator(options.DefaultExemptions(e.catalog.Labels())...)

	if e.script.SystemPrompt == "" {
		params := prompt.Params{
			ReferenceDate:   e.script.ReferenceDate,
			Orders:          e.catalog.Orders(),
			EscalationOrder: e.escalationOrder(),
		}
		var text string
		var err error
		if e.script.PromptTemplate != "" {
			text, err = prompt.RenderText(e.script.PromptTemplate, params)
		} else {
			text, err = prompt.Render(params)
		}
		if err != nil {
			return nil, err
		}
		e.script.SystemPrompt = text
	}
	return e, nil
}

// escalationOrder is the order whose return ends in a human hand-off.
func (e *Engine) escalationOrder() string {
	for _, r := range e.detector.Rules() {
		if r.Task == domain.TaskReturnC {
			return r.OrderID
		}
	}
	return ""
}

// SystemPrompt returns the prompt every history starts with.
func (e *Engine) SystemPrompt() string {
	return e.script.SystemPrompt
}

// HandleTurn applies one user message to the user's session.
// The first message of an unknown user starts a session and is otherwise ignored.
// On error the stored session is unchanged and the message may be retried.
func (e *Engine) HandleTurn(ctx context.Context, userID, message string) (domain.TurnResult, error) {
	if userID == "" {
		userID = domain.DefaultUserID
	}

	var result domain.TurnResult
	err := e.sessions.Transact(ctx, userID, func(ctx context.Context, s *domain.Session) (*domain.Session, error) {
		if s == nil {
			s, result = e.start(ctx, userID)
			return s, nil
		}

		e.record(ctx, s, domain.RoleUser, message)
		s.Append(domain.RoleUser, message)

		from := s.Phase
		res, err := e.dispatch(ctx, s, message)
		if err != nil {
			return nil, err
		}
		res.Phase = s.Phase
		res.TaskFlags = s.TaskFlags
		result = res

		e.emitTurn(ctx, s.UserID, from, s.Phase, res.Cached)
		return s, nil
	})
	if err != nil {
		return domain.TurnResult{}, err
	}
	return result, nil
}

// EndSession writes the completion summary for userID.
// The session itself is kept.
func (e *Engine) EndSession(ctx context.Context, userID string) (domain.EndSummary, error) {
	var summary domain.EndSummary
	err := e.sessions.Transact(ctx, userID, func(ctx context.Context, s *domain.Session) (*domain.Session, error) {
		if s == nil {
			return nil, domain.ErrSessionNotFound
		}
		summary = domain.NewEndSummary(s, e.now())
		e.appendAudit(ctx, domain.AuditRecord{
			UserID:     s.UserID,
			Group:      s.Group,
			Role:       domain.RoleSystem,
			Text:       summary.Message(),
			SessionEnd: true,
		})
		e.logger.Info("Session ended",
			"user_id", s.UserID,
			"elapsed", summary.Elapsed.Round(time.Second),
			"tasks_completed", s.TaskFlags.All(),
		)
		if e.hooks.OnSessionEnd != nil {
			e.hooks.OnSessionEnd(ctx, &domain.SessionEvent{
				EventBase: e.event(domain.EventSessionEnd, s.UserID),
				Elapsed:   summary.Elapsed,
			})
		}
		return nil, nil
	})
	return summary, err
}

// start creates the session and its introduction. A failed introduction still
// creates the session, with an apology in place of the greeting.
func (e *Engine) start(ctx context.Context, userID string) (*domain.Session, domain.TurnResult) {
	s := domain.NewSession(userID, e.script.Group, e.now())

	intro, err := e.complete(ctx, userID, "intro", []domain.Message{
		{Role: domain.RoleSystem, Content: e.script.SystemPrompt},
		{Role: domain.RoleUser, Content: "Start"},
	}, e.script.IntroSampling)
	if err != nil {
		e.logger.Warn("Failed to generate introduction", "user_id", userID, "err", err)
		intro = IntroFallback
	}

	s.Append(domain.RoleSystem, e.script.SystemPrompt)
	s.Append(domain.RoleAssistant, intro)

	e.appendAudit(ctx, domain.AuditRecord{
		UserID:       userID,
		Group:        s.Group,
		Role:         domain.RoleAssistant,
		Text:         intro,
		SessionStart: true,
	})
	e.logger.Info("Session started", "user_id", userID, "group", s.Group)
	if e.hooks.OnSessionStart != nil {
		e.hooks.OnSessionStart(ctx, &domain.SessionEvent{EventBase: e.event(domain.EventSessionStart, userID)})
	}

	return s, domain.TurnResult{
		Reply:   intro,
		Options: []string{"Understood"},
		Phase:   s.Phase,
	}
}

// complete calls the model under the configured timeout.
// Every failure, including the timeout, is reported as domain.ErrModelCall.
func (e *Engine) complete(ctx context.Context, userID, purpose string, messages []domain.Message, sampling domain.Sampling) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.script.ModelTimeout)
	defer cancel()

	start := time.Now()
	reply, err := e.model.Complete(ctx, messages, sampling)
	elapsed := time.Since(start)

	if e.hooks.OnModelCall != nil {
		e.hooks.OnModelCall(ctx, &domain.ModelEvent{
			EventBase: e.event(domain.EventModelCall, userID),
			Purpose:   purpose,
			Duration:  elapsed,
			IsError:   err != nil,
		})
	}
	if err != nil {
		if !errors.Is(err, domain.ErrModelCall) {
			err = fmt.Errorf("%w: %w", domain.ErrModelCall, err)
		}
		return "", err
	}
	e.logger.Debug("Model replied", "user_id", userID, "purpose", purpose, "duration", elapsed)
	return reply, nil
}
