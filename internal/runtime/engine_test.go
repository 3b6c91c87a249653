package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/orderdesk/internal/runtime"
	"github.com/aretw0/orderdesk/internal/testutils"
	"github.com/aretw0/orderdesk/pkg/adapters/memory"
	"github.com/aretw0/orderdesk/pkg/domain"
	"github.com/aretw0/orderdesk/pkg/replycache"
	"github.com/aretw0/orderdesk/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	intro     = "Welcome! I am your virtual assistant."
	trackA    = "Your Order A is currently in transit and is expected to arrive on September 16th, 2024. What would you like to do next? Options: Track, Modify, Cancel, Return, Back to Order Selection"
	modifyB   = "Done! I have updated the delivery address for Order B. Options: Modify Delivery Address, Add Gift Message, Back to Order Operations, Back to Order Selection"
	returnC   = "It seems there was an issue generating the return label due to a temporary system error. Options: Contact Human Representative, Back to Order Operations, Back to Order Selection"
	smallTalk = "Happy to help! Options: Track, Modify"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	engine *runtime.Engine
	model  *testutils.ScriptedModel
	store  *memory.Store
	audit  *testutils.AuditRecorder
	clock  *clock
}

func newFixture(t *testing.T, model *testutils.ScriptedModel, opts ...runtime.EngineOption) *fixture {
	t.Helper()
	f := &fixture{
		model: model,
		store: memory.NewStore(),
		audit: &testutils.AuditRecorder{},
		clock: &clock{now: time.Date(2024, 9, 12, 10, 0, 0, 0, time.UTC)},
	}
	opts = append([]runtime.EngineOption{
		runtime.WithAuditLogger(f.audit),
		runtime.WithClock(f.clock.Now),
	}, opts...)
	engine, err := runtime.NewEngine(session.NewManager(f.store), model, opts...)
	require.NoError(t, err)
	f.engine = engine
	return f
}

func (f *fixture) turn(t *testing.T, user, message string) domain.TurnResult {
	t.Helper()
	res, err := f.engine.HandleTurn(context.Background(), user, message)
	require.NoError(t, err)
	return res
}

func (f *fixture) load(t *testing.T, user string) *domain.Session {
	t.Helper()
	s, err := f.store.Load(context.Background(), user)
	require.NoError(t, err)
	return s
}

// toOrderMenu walks a new user through the scripted phases and selects order.
func (f *fixture) toOrderMenu(t *testing.T, user, order string) {
	t.Helper()
	f.turn(t, user, "hi")
	f.turn(t, user, "Understood")
	f.turn(t, user, "123-456")
	res := f.turn(t, user, "Order "+order)
	require.Equal(t, domain.PhaseOrderMenu, res.Phase)
}

func TestEngine_FirstContact(t *testing.T) {
	f := newFixture(t, testutils.NewScriptedModel().Reply(intro))

	res := f.turn(t, "lily", "hello there")

	assert.Equal(t, intro, res.Reply)
	assert.Equal(t, []string{"Understood"}, res.Options)
	assert.Equal(t, domain.PhaseAwaitingIntroAck, res.Phase)

	// One model call with the prompt and a synthetic "Start"
	calls := f.model.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Messages, 2)
	assert.Equal(t, domain.RoleSystem, calls[0].Messages[0].Role)
	assert.Equal(t, f.engine.SystemPrompt(), calls[0].Messages[0].Content)
	assert.Equal(t, domain.Message{Role: domain.RoleUser, Content: "Start"}, calls[0].Messages[1])
	assert.Equal(t, float32(0), calls[0].Sampling.Temperature)
	assert.Equal(t, 200, calls[0].Sampling.MaxTokens)

	// The first message itself is not recorded
	s := f.load(t, "lily")
	assert.Equal(t, []domain.Message{
		{Role: domain.RoleSystem, Content: f.engine.SystemPrompt()},
		{Role: domain.RoleAssistant, Content: intro},
	}, s.History)
	assert.Equal(t, "experiment", s.Group)
	assert.True(t, f.clock.Now().Equal(s.StartedAt))

	records := f.audit.Records()
	require.Len(t, records, 1)
	assert.True(t, records[0].SessionStart)
	assert.Equal(t, intro, records[0].Text)
	assert.NotEmpty(t, records[0].ID)
}

func TestEngine_IntroFailureStillCreatesSession(t *testing.T) {
	f := newFixture(t, testutils.NewScriptedModel().Fail(errors.New("connection reset")))

	res := f.turn(t, "lily", "hi")
	assert.Equal(t, runtime.IntroFallback, res.Reply)
	assert.Equal(t, []string{"Understood"}, res.Options)

	s := f.load(t, "lily")
	assert.Equal(t, domain.PhaseAwaitingIntroAck, s.Phase)
	assert.Equal(t, runtime.IntroFallback, s.History[1].Content)
}

func TestEngine_ScriptedPhases(t *testing.T) {
	f := newFixture(t, testutils.NewScriptedModel().Reply(intro))
	f.turn(t, "lily", "hi")

	// 1. Any message acknowledges the intro
	res := f.turn(t, "lily", "whatever")
	assert.Equal(t, "Thanks for confirming! Whenever you’re ready, please provide your customer number to proceed.", res.Reply)
	assert.Empty(t, res.Options)
	assert.False(t, res.ShowProgressBar)
	assert.Equal(t, domain.PhaseAwaitingCustomerNumber, res.Phase)

	// 2. Wrong customer number
	res = f.turn(t, "lily", "999-999")
	assert.Contains(t, res.Reply, "customer number you entered is incorrect")
	assert.Empty(t, res.Options)
	assert.True(t, res.ShowProgressBar)
	assert.Equal(t, domain.PhaseAwaitingCustomerNumber, res.Phase)

	// 3. Correct customer number inside a sentence
	res = f.turn(t, "lily", "sure, it is 123-456-7890 I think")
	assert.Equal(t, "Welcome back Lily! I'm ready to assist you with your orders. Which one would you like to manage?", res.Reply)
	assert.Equal(t, []string{"Order A", "Order B", "Order C"}, res.Options)
	assert.True(t, res.ShowProgressBar)
	assert.Equal(t, "123-456-7890", f.load(t, "lily").CustomerNumber)

	// 4. Unrecognized order
	res = f.turn(t, "lily", "the blue one")
	assert.Equal(t, "Please select an order to manage.", res.Reply)
	assert.Equal(t, []string{"Order A", "Order B", "Order C"}, res.Options)
	assert.Equal(t, domain.PhaseAwaitingOrderSelection, res.Phase)

	// 5. Order selected
	res = f.turn(t, "lily", "order b")
	assert.Equal(t, "Got it! You've selected Order B. How can I assist you with this order?", res.Reply)
	assert.Equal(t, []string{"Track", "Modify", "Cancel", "Return", "Back to Order Selection"}, res.Options)
	assert.False(t, res.ShowProgressBar)
	assert.Equal(t, domain.PhaseOrderMenu, res.Phase)

	// 6. Back to selection never reaches the model
	res = f.turn(t, "lily", "Back to Order Selection")
	assert.Equal(t, "Sure! Which order can I help you with?", res.Reply)
	assert.Equal(t, []string{"Order A", "Order B", "Order C"}, res.Options)
	assert.Equal(t, domain.PhaseAwaitingOrderSelection, res.Phase)

	s := f.load(t, "lily")
	assert.Empty(t, s.SelectedOrder)
	assert.Equal(t, 1, f.model.CallCount(), "only the intro used the model")

	// User messages are recorded, canned replies are not
	require.Len(t, s.History, 2+6)
	for _, m := range s.History[2:] {
		assert.Equal(t, domain.RoleUser, m.Role)
	}
}

func TestEngine_OrderMenuUsesModel(t *testing.T) {
	f := newFixture(t, testutils.NewScriptedModel().Reply(intro, trackA, trackA))
	f.toOrderMenu(t, "lily", "A")

	// 1. First Track
	res := f.turn(t, "lily", "Track")
	assert.Equal(t, trackA, res.Reply)
	assert.Equal(t, []string{"Track (Previously Selected)", "Modify", "Cancel", "Return", "Back to Order Selection"}, res.Options)
	assert.True(t, res.TaskFlags.TrackOrderA)
	assert.False(t, res.TasksCompleted)
	assert.False(t, res.Cached)

	calls := f.model.Calls()
	require.Len(t, calls, 2)
	last := calls[1].Messages[len(calls[1].Messages)-1]
	assert.Equal(t, domain.Message{Role: domain.RoleUser, Content: "Track"}, last)
	assert.Equal(t, float32(0.5), calls[1].Sampling.Temperature)

	s := f.load(t, "lily")
	assert.Equal(t, domain.Message{Role: domain.RoleAssistant, Content: trackA}, s.History[len(s.History)-1])
	assert.Equal(t, []string{"Track"}, s.Interactions.For("A"))

	texts := f.audit.Texts()
	assert.Contains(t, texts, "Track Order A Completed")
	assert.Contains(t, texts, `Task Flags: {"trackOrderACompleted":true,"modifyOrderBCompleted":false,"returnOrderCCompleted":false}`)

	// 2. Clicking the annotated label counts as the same interaction
	res = f.turn(t, "lily", "Track (Previously Selected)")
	assert.Equal(t, "Track (Previously Selected)", res.Options[0])
	assert.Equal(t, []string{"Track"}, f.load(t, "lily").Interactions.For("A"))

	// Completion message is only written once
	count := 0
	for _, text := range f.audit.Texts() {
		if text == "Track Order A Completed" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestEngine_DetectorScopedToSelectedOrder(t *testing.T) {
	f := newFixture(t, testutils.NewScriptedModel().Reply(intro, trackA))
	f.toOrderMenu(t, "lily", "B")

	res := f.turn(t, "lily", "Track")
	assert.False(t, res.TaskFlags.TrackOrderA, "a tracking reply for order B must not complete task A")
}

func TestEngine_ModelFailureLeavesSessionUntouched(t *testing.T) {
	f := newFixture(t, testutils.NewScriptedModel().Reply(intro).Fail(errors.New("503 from provider")).Reply(trackA))
	f.toOrderMenu(t, "lily", "A")
	before := f.load(t, "lily")

	// 1. Failure
	_, err := f.engine.HandleTurn(context.Background(), "lily", "Track")
	assert.ErrorIs(t, err, domain.ErrModelCall)

	after := f.load(t, "lily")
	assert.Equal(t, before.History, after.History)
	assert.Empty(t, after.Interactions.For("A"))
	assert.Equal(t, before.TaskFlags, after.TaskFlags)

	// 2. Retry succeeds and does not hit a cached failure
	res := f.turn(t, "lily", "Track")
	assert.Equal(t, trackA, res.Reply)
	assert.Len(t, f.load(t, "lily").History, len(before.History)+2)
}

func TestEngine_ModelTimeout(t *testing.T) {
	model := testutils.NewScriptedModel().Reply(intro).Then(testutils.Step{Reply: trackA, Delay: time.Second})
	script := runtime.DefaultScript()
	script.ModelTimeout = 20 * time.Millisecond
	f := newFixture(t, model, runtime.WithScript(script))
	f.toOrderMenu(t, "lily", "A")

	_, err := f.engine.HandleTurn(context.Background(), "lily", "Track")
	assert.ErrorIs(t, err, domain.ErrModelCall)
}

func TestEngine_CacheSharedAcrossUsers(t *testing.T) {
	cache := replycache.New(memory.NewCache())
	f := newFixture(t, testutils.NewScriptedModel().Reply(intro, trackA, intro), runtime.WithReplyCache(cache))

	f.toOrderMenu(t, "u1", "A")
	first := f.turn(t, "u1", "Track")
	assert.False(t, first.Cached)

	f.toOrderMenu(t, "u2", "A")
	second := f.turn(t, "u2", "Track")
	assert.True(t, second.Cached)
	assert.Equal(t, first.Reply, second.Reply)
	assert.Equal(t, first.Options, second.Options)
	assert.True(t, second.TaskFlags.TrackOrderA, "detector runs on cached replies too")
	assert.Equal(t, 3, f.model.CallCount())

	// The cached reply is part of the second user's history
	s := f.load(t, "u2")
	assert.Equal(t, trackA, s.History[len(s.History)-1].Content)
}

func TestEngine_AllTasksCompleted(t *testing.T) {
	f := newFixture(t, testutils.NewScriptedModel().Reply(intro, trackA, modifyB, returnC))
	f.toOrderMenu(t, "lily", "A")

	res := f.turn(t, "lily", "Track")
	assert.False(t, res.TasksCompleted)

	f.turn(t, "lily", "Back to Order Selection")
	f.turn(t, "lily", "Order B")
	res = f.turn(t, "lily", "Modify Delivery Address to Musterstraße 1, 12345 Berlin")
	assert.True(t, res.TaskFlags.ModifyOrderB)
	assert.False(t, res.TasksCompleted)

	f.turn(t, "lily", "back to order selection")
	f.turn(t, "lily", "c")
	res = f.turn(t, "lily", "Return")
	assert.True(t, res.TasksCompleted)
	assert.Equal(t, []string{"Contact Human Representative", "Back to Order Operations", "Back to Order Selection"}, res.Options)

	assert.Contains(t, f.audit.Texts(), "All tasks completed, prompt for questionnaire")
}

func TestEngine_EndSession(t *testing.T) {
	f := newFixture(t, testutils.NewScriptedModel().Reply(intro))
	ctx := context.Background()

	// 1. Unknown user
	_, err := f.engine.EndSession(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// 2. Known user
	f.turn(t, "lily", "hi")
	f.clock.Advance(3*time.Minute + 25*time.Second)

	summary, err := f.engine.EndSession(ctx, "lily")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Minutes())
	assert.Equal(t, 25, summary.Seconds())

	records := f.audit.Records()
	last := records[len(records)-1]
	assert.True(t, last.SessionEnd)
	assert.Equal(t, domain.RoleSystem, last.Role)
	assert.Contains(t, last.Text, "Total time to complete tasks: 3 minutes and 25 seconds")

	// 3. Session survives
	_, err = f.store.Load(ctx, "lily")
	assert.NoError(t, err)
}

func TestEngine_DefaultUser(t *testing.T) {
	f := newFixture(t, testutils.NewScriptedModel().Reply(intro))
	f.turn(t, "", "hi")

	s := f.load(t, domain.DefaultUserID)
	assert.Equal(t, domain.DefaultUserID, s.UserID)
}

func TestEngine_AuditFailureDoesNotFailTurn(t *testing.T) {
	f := newFixture(t, testutils.NewScriptedModel().Reply(intro))
	f.audit.Err = errors.New("bucket unavailable")

	res := f.turn(t, "lily", "hi")
	assert.Equal(t, intro, res.Reply)
}

func TestEngine_ConcurrentTurnsAreSerialized(t *testing.T) {
	f := newFixture(t, testutils.NewScriptedModel(testutils.WithFallbackReply(smallTalk)).Reply(intro))
	f.toOrderMenu(t, "lily", "A")
	before := len(f.load(t, "lily").History)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.HandleTurn(context.Background(), "lily", "tell me more")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, f.load(t, "lily").History, before+16, "every turn adds its user message and reply")
}

func TestEngine_Resume(t *testing.T) {
	f := newFixture(t, testutils.NewScriptedModel().Reply(intro, trackA))
	ctx := context.Background()

	resume := func(t *testing.T) domain.TurnResult {
		t.Helper()
		before := f.load(t, "lily")
		res, err := f.engine.Resume(ctx, "lily")
		require.NoError(t, err)
		after := f.load(t, "lily")
		assert.Equal(t, before.Phase, after.Phase, "resume does not advance the session")
		assert.Equal(t, before.History, after.History, "resume does not touch the history")
		return res
	}

	// 1. Unknown users have nothing to resume
	_, err := f.engine.Resume(ctx, "lily")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// 2. Waiting for the intro acknowledgement
	f.turn(t, "lily", "hi")
	res := resume(t)
	assert.Equal(t, intro, res.Reply)
	assert.Equal(t, []string{"Understood"}, res.Options)
	assert.Equal(t, domain.PhaseAwaitingIntroAck, res.Phase)

	// 3. Waiting for the customer number
	f.turn(t, "lily", "Understood")
	res = resume(t)
	assert.Contains(t, res.Reply, "provide your customer number")
	assert.Empty(t, res.Options)

	// 4. Waiting for an order
	f.turn(t, "lily", "123-456")
	res = resume(t)
	assert.Equal(t, "Please select an order to manage.", res.Reply)
	assert.Equal(t, []string{"Order A", "Order B", "Order C"}, res.Options)

	// 5. Order just selected
	f.turn(t, "lily", "Order A")
	res = resume(t)
	assert.Contains(t, res.Reply, "You've selected Order A")
	assert.Equal(t, []string{"Track", "Modify", "Cancel", "Return", "Back to Order Selection"}, res.Options)

	// 6. After a model reply the reply is shown again with annotated options
	f.turn(t, "lily", "Track")
	res = resume(t)
	assert.Equal(t, trackA, res.Reply)
	require.NotEmpty(t, res.Options)
	assert.Equal(t, "Track (Previously Selected)", res.Options[0])
	assert.Equal(t, domain.PhaseOrderMenu, res.Phase)

	assert.Len(t, f.model.Calls(), 2, "resume never calls the model")
}
