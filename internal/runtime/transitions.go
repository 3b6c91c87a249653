package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/orderdesk/pkg/domain"
	"github.com/aretw0/orderdesk/pkg/options"
	"github.com/aretw0/orderdesk/pkg/replycache"
)

// Canned replies of the scripted phases.
const (
	replyAcknowledged     = "Thanks for confirming! Whenever you’re ready, please provide your customer number to proceed."
	replyWelcome          = "Welcome back %s! I'm ready to assist you with your orders. Which one would you like to manage?"
	replyBadCustomer      = "It seems like the customer number you entered is incorrect. You can find your customer number in the confirmation E-Mail from your last purchase with us (Button with ? icon)."
	replyOrderSelected    = "Got it! You've selected Order %s. How can I assist you with this order?"
	replyPickOrder        = "Please select an order to manage."
	replyBackToSelection  = "Sure! Which order can I help you with?"
	auditFlagsPrefix      = "Task Flags: "
	auditAllTasksComplete = "All tasks completed, prompt for questionnaire"
)

// transition applies one (phase, input) rule to s.
type transition func(e *Engine, ctx context.Context, s *domain.Session, message string) (domain.TurnResult, error)

// rule pairs an input predicate with its transition. A nil predicate matches any input.
// to and label describe the arc for diagrams; apply must move the session to to.
type rule struct {
	matches func(e *Engine, message string) bool
	apply   transition
	to      domain.Phase
	label   string
}

// transitions is the complete dispatch table. Within a phase the first matching rule wins.
var transitions = map[domain.Phase][]rule{
	domain.PhaseAwaitingIntroAck: {
		{apply: (*Engine).acknowledgeIntro, to: domain.PhaseAwaitingCustomerNumber, label: "any reply"},
	},
	domain.PhaseAwaitingCustomerNumber: {
		{matches: (*Engine).isCustomerNumber, apply: (*Engine).acceptCustomer, to: domain.PhaseAwaitingOrderSelection, label: "customer number"},
		{apply: (*Engine).rejectCustomer, to: domain.PhaseAwaitingCustomerNumber, label: "no customer number"},
	},
	domain.PhaseAwaitingOrderSelection: {
		{matches: (*Engine).mentionsOrder, apply: (*Engine).selectOrder, to: domain.PhaseOrderMenu, label: "order"},
		{apply: (*Engine).askForOrder, to: domain.PhaseAwaitingOrderSelection, label: "no order"},
	},
	domain.PhaseOrderMenu: {
		{matches: requestsOrderSelection, apply: (*Engine).backToSelection, to: domain.PhaseAwaitingOrderSelection, label: options.BackToSelection},
		{apply: (*Engine).operate, to: domain.PhaseOrderMenu, label: "operation"},
	},
}

// Edge is one arc of the conversation flow.
type Edge struct {
	From  domain.Phase
	To    domain.Phase
	Label string
}

// Edges lists the arcs of the dispatch table in conversation order.
func Edges() []Edge {
	var edges []Edge
	for _, p := range domain.Phases() {
		for _, r := range transitions[p] {
			edges = append(edges, Edge{From: p, To: r.to, Label: r.label})
		}
	}
	return edges
}

func (e *Engine) dispatch(ctx context.Context, s *domain.Session, message string) (domain.TurnResult, error) {
	for _, r := range transitions[s.Phase] {
		if r.matches == nil || r.matches(e, message) {
			return r.apply(e, ctx, s, message)
		}
	}
	return domain.TurnResult{}, fmt.Errorf("runtime: session %s is in unknown phase %q", s.UserID, s.Phase)
}

func (e *Engine) acknowledgeIntro(ctx context.Context, s *domain.Session, _ string) (domain.TurnResult, error) {
	s.Phase = domain.PhaseAwaitingCustomerNumber
	return e.canned(ctx, s, replyAcknowledged, []string{}, false), nil
}

func (e *Engine) isCustomerNumber(message string) bool {
	return e.script.CustomerNumber.MatchString(message)
}

func (e *Engine) acceptCustomer(ctx context.Context, s *domain.Session, message string) (domain.TurnResult, error) {
	s.CustomerNumber = e.script.CustomerNumber.FindString(message)
	s.Phase = domain.PhaseAwaitingOrderSelection
	return e.canned(ctx, s, fmt.Sprintf(replyWelcome, e.script.CustomerName), e.catalog.Labels(), true), nil
}

func (e *Engine) rejectCustomer(ctx context.Context, s *domain.Session, _ string) (domain.TurnResult, error) {
	return e.canned(ctx, s, replyBadCustomer, []string{}, true), nil
}

func (e *Engine) mentionsOrder(message string) bool {
	_, ok := e.catalog.Match(message)
	return ok
}

// selectOrder offers the four operations plus a way back to the order list.
func (e *Engine) selectOrder(ctx context.Context, s *domain.Session, message string) (domain.TurnResult, error) {
	order, _ := e.catalog.Match(message)
	s.SelectedOrder = order.ID
	s.Phase = domain.PhaseOrderMenu
	labels := append(slices.Clone(options.Operations), options.BackToSelection)
	return e.canned(ctx, s, fmt.Sprintf(replyOrderSelected, order.ID), labels, false), nil
}

func (e *Engine) askForOrder(ctx context.Context, s *domain.Session, _ string) (domain.TurnResult, error) {
	return e.canned(ctx, s, replyPickOrder, e.catalog.Labels(), false), nil
}

func requestsOrderSelection(_ *Engine, message string) bool {
	return strings.Contains(strings.ToLower(message), strings.ToLower(options.BackToSelection))
}

func (e *Engine) backToSelection(ctx context.Context, s *domain.Session, _ string) (domain.TurnResult, error) {
	s.SelectedOrder = ""
	s.Phase = domain.PhaseAwaitingOrderSelection
	return e.canned(ctx, s, replyBackToSelection, e.catalog.Labels(), false), nil
}

// operate hands the conversation to the model for the selected order.
func (e *Engine) operate(ctx context.Context, s *domain.Session, message string) (domain.TurnResult, error) {
	orderID := s.SelectedOrder
	s.Interactions.Record(orderID, message)

	key, err := replycache.Key(s.History)
	if err != nil {
		return domain.TurnResult{}, err
	}
	history := slices.Clone(s.History)
	reply, hit, err := e.cache.Generate(ctx, key, func(ctx context.Context) (string, error) {
		return e.complete(ctx, s.UserID, "turn", history, e.script.TurnSampling)
	})
	if e.hooks.OnCacheLookup != nil {
		e.hooks.OnCacheLookup(ctx, &domain.CacheEvent{EventBase: e.event(domain.EventCacheLookup, s.UserID), Hit: hit})
	}
	if err != nil {
		return domain.TurnResult{}, err
	}
	if hit {
		e.logger.Debug("Using cached reply", "user_id", s.UserID, "order", orderID)
	}

	s.Append(domain.RoleAssistant, reply)
	e.record(ctx, s, domain.RoleAssistant, reply)

	if r, ok := e.detector.Detect(orderID, reply); ok && s.TaskFlags.Set(r.Task) {
		e.record(ctx, s, domain.RoleSystem, r.Message)
		e.logger.Info("Task completed", "user_id", s.UserID, "task", r.Task, "order", orderID)
		if e.hooks.OnTaskCompleted != nil {
			e.hooks.OnTaskCompleted(ctx, &domain.TaskEvent{
				EventBase: e.event(domain.EventTaskCompleted, s.UserID),
				Task:      r.Task,
				OrderID:   orderID,
			})
		}
	}

	flags, err := json.Marshal(s.TaskFlags)
	if err == nil {
		e.record(ctx, s, domain.RoleSystem, auditFlagsPrefix+string(flags))
	}
	done := s.TaskFlags.All()
	if done {
		e.record(ctx, s, domain.RoleSystem, auditAllTasksComplete)
	}

	return domain.TurnResult{
		Reply:          reply,
		Options:        e.annotator.Annotate(options.Extract(reply), s.Interactions.For(orderID)),
		TasksCompleted: done,
		Cached:         hit,
	}, nil
}

// canned logs a scripted reply. Scripted replies never enter the history.
func (e *Engine) canned(ctx context.Context, s *domain.Session, reply string, labels []string, progress bool) domain.TurnResult {
	e.record(ctx, s, domain.RoleAssistant, reply)
	return domain.TurnResult{
		Reply:           reply,
		Options:         labels,
		ShowProgressBar: progress,
	}
}

// Resume rebuilds the prompt the user last saw from the stored session,
// without dispatching a turn or calling the model. Scripted replies are not
// kept in the history, so they are regenerated from the phase.
// It returns domain.ErrSessionNotFound for unknown users.
func (e *Engine) Resume(ctx context.Context, userID string) (domain.TurnResult, error) {
	if userID == "" {
		userID = domain.DefaultUserID
	}
	s, err := e.sessions.Load(ctx, userID)
	if err != nil {
		return domain.TurnResult{}, err
	}

	res := domain.TurnResult{Phase: s.Phase, TaskFlags: s.TaskFlags, TasksCompleted: s.TaskFlags.All()}
	switch s.Phase {
	case domain.PhaseAwaitingIntroAck:
		res.Reply = lastAssistant(s.History)
		res.Options = []string{"Understood"}
	case domain.PhaseAwaitingCustomerNumber:
		res.Reply = replyAcknowledged
		res.Options = []string{}
	case domain.PhaseAwaitingOrderSelection:
		res.Reply = replyPickOrder
		res.Options = e.catalog.Labels()
	case domain.PhaseOrderMenu:
		// Right after selection the newest history entry is the user's pick.
		if n := len(s.History); n > 0 && s.History[n-1].Role == domain.RoleAssistant {
			res.Reply = s.History[n-1].Content
			res.Options = e.annotator.Annotate(options.Extract(res.Reply), s.Interactions.For(s.SelectedOrder))
		} else {
			res.Reply = fmt.Sprintf(replyOrderSelected, s.SelectedOrder)
			res.Options = append(slices.Clone(options.Operations), options.BackToSelection)
		}
	default:
		return domain.TurnResult{}, fmt.Errorf("runtime: session %s is in unknown phase %q", s.UserID, s.Phase)
	}
	return res, nil
}

func lastAssistant(history []domain.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == domain.RoleAssistant {
			return history[i].Content
		}
	}
	return ""
}
