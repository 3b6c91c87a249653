package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/orderdesk/internal/runtime"
	"github.com/aretw0/orderdesk/internal/testutils"
	"github.com/aretw0/orderdesk/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestEngine_LifecycleHooks(t *testing.T) {
	var (
		started, ended int
		turns          []domain.TurnEvent
		models         []domain.ModelEvent
		lookups        []bool
		tasks          []domain.Task
	)

	hooks := domain.LifecycleHooks{
		OnSessionStart: func(ctx context.Context, e *domain.SessionEvent) { started++ },
		OnSessionEnd:   func(ctx context.Context, e *domain.SessionEvent) { ended++ },
		OnTurn:         func(ctx context.Context, e *domain.TurnEvent) { turns = append(turns, *e) },
		OnModelCall:    func(ctx context.Context, e *domain.ModelEvent) { models = append(models, *e) },
		OnCacheLookup:  func(ctx context.Context, e *domain.CacheEvent) { lookups = append(lookups, e.Hit) },
		OnTaskCompleted: func(ctx context.Context, e *domain.TaskEvent) {
			tasks = append(tasks, e.Task)
		},
	}

	model := testutils.NewScriptedModel().Reply(intro, trackA).Fail(errors.New("boom"))
	f := newFixture(t, model, runtime.WithLifecycleHooks(hooks))
	f.toOrderMenu(t, "lily", "A")
	f.turn(t, "lily", "Track")
	_, err := f.engine.HandleTurn(context.Background(), "lily", "Modify")
	assert.Error(t, err)
	_, err = f.engine.EndSession(context.Background(), "lily")
	assert.NoError(t, err)

	assert.Equal(t, 1, started)
	assert.Equal(t, 1, ended)

	// ack, customer, order, track; the failed turn emits nothing
	if assert.Len(t, turns, 4) {
		assert.Equal(t, domain.PhaseAwaitingIntroAck, turns[0].From)
		assert.Equal(t, domain.PhaseAwaitingCustomerNumber, turns[0].To)
		assert.Equal(t, domain.PhaseOrderMenu, turns[3].From)
		assert.Equal(t, domain.PhaseOrderMenu, turns[3].To)
	}

	if assert.Len(t, models, 3) {
		assert.Equal(t, "intro", models[0].Purpose)
		assert.Equal(t, "turn", models[1].Purpose)
		assert.True(t, models[2].IsError)
	}
	assert.Equal(t, []bool{false, false}, lookups)
	assert.Equal(t, []domain.Task{domain.TaskTrackA}, tasks)
}
