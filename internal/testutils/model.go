package testutils

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/orderdesk/pkg/domain"
)

// ErrScriptExhausted is returned by a strict ScriptedModel with nothing left to say.
var ErrScriptExhausted = errors.New("scripted model: no reply left")

// Step is one scripted model outcome.
type Step struct {
	Reply string
	Err   error
	Delay time.Duration
}

// ModelCall captures the arguments of a Complete call.
type ModelCall struct {
	Messages []domain.Message
	Sampling domain.Sampling
}

// ScriptedModel implements ports.ModelCaller by replaying Steps in order.
// When the script runs out it returns the fallback reply, or ErrScriptExhausted in strict mode.
type ScriptedModel struct {
	mu       sync.Mutex
	steps    []Step
	calls    []ModelCall
	fallback string
	strict   bool
}

// ModelOption configures a ScriptedModel.
type ModelOption func(*ScriptedModel)

// WithFallbackReply sets the reply used once the script is exhausted.
func WithFallbackReply(reply string) ModelOption {
	return func(m *ScriptedModel) {
		m.fallback = reply
	}
}

// WithStrictMode makes an exhausted script an error.
func WithStrictMode() ModelOption {
	return func(m *ScriptedModel) {
		m.strict = true
	}
}

// NewScriptedModel creates a model that answers with replies in order.
func NewScriptedModel(opts ...ModelOption) *ScriptedModel {
	m := &ScriptedModel{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Reply queues a successful reply.
func (m *ScriptedModel) Reply(replies ...string) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range replies {
		m.steps = append(m.steps, Step{Reply: r})
	}
	return m
}

// Fail queues a failed call.
func (m *ScriptedModel) Fail(err error) *ScriptedModel {
	return m.Then(Step{Err: err})
}

// Then queues an arbitrary step.
func (m *ScriptedModel) Then(step Step) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, step)
	return m
}

// Complete implements ports.ModelCaller.
func (m *ScriptedModel) Complete(ctx context.Context, messages []domain.Message, sampling domain.Sampling) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, ModelCall{Messages: slices.Clone(messages), Sampling: sampling})
	var step Step
	switch {
	case len(m.steps) > 0:
		step = m.steps[0]
		m.steps = m.steps[1:]
	case m.strict:
		m.mu.Unlock()
		return "", ErrScriptExhausted
	default:
		step = Step{Reply: m.fallback}
	}
	m.mu.Unlock()

	if step.Delay > 0 {
		select {
		case <-time.After(step.Delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %w", domain.ErrModelCall, ctx.Err())
		}
	}
	if step.Err != nil {
		return "", step.Err
	}
	return step.Reply, nil
}

// Calls returns every recorded call.
func (m *ScriptedModel) Calls() []ModelCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// CallCount returns the number of Complete calls so far.
func (m *ScriptedModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
