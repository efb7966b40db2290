package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"makwenta.app/finance-assistant/internal/cache"
	"makwenta.app/finance-assistant/internal/core"
	"makwenta.app/finance-assistant/internal/tools"
)

const (
	defaultMaxIterations = 6
	defaultTurnTimeout   = 90 * time.Second

	degradedAnswer = "I wasn't able to fully finish working through that request. " +
		"Here is what I have so far; please ask again or narrow the question."
)

// ErrPlannerUnavailable wraps planner transport failures so callers can map
// them to a retryable response.
var ErrPlannerUnavailable = errors.New("planner unavailable")

// Loop drives one turn: ask the planner, dispatch whatever tools it wants,
// feed the observations back, repeat until a final answer or the iteration
// bound.
type Loop struct {
	planner       core.Planner
	dispatcher    *tools.Dispatcher
	budgets       *cache.BudgetCache
	maxIterations int
	turnTimeout   time.Duration
}

func NewLoop(planner core.Planner, dispatcher *tools.Dispatcher, budgets *cache.BudgetCache, maxIterations int, turnTimeout time.Duration) *Loop {
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	if turnTimeout <= 0 {
		turnTimeout = defaultTurnTimeout
	}
	return &Loop{
		planner:       planner,
		dispatcher:    dispatcher,
		budgets:       budgets,
		maxIterations: maxIterations,
		turnTimeout:   turnTimeout,
	}
}

// RunTurn appends the user message to the session transcript and runs the
// planning loop to completion. The session lock is held for the entire
// turn, so a user's turns are strictly serialized. A hit of the iteration
// bound is not an error: the user gets a degraded answer and the transcript
// stays consistent.
func (l *Loop) RunTurn(ctx context.Context, session *Session, userMessage string) (string, error) {
	session.mu.Lock()
	defer session.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, l.turnTimeout)
	defer cancel()

	session.append(core.Message{Role: core.RoleUser, Content: userMessage})

	for i := 0; i < l.maxIterations; i++ {
		// Re-read the budget snapshot at every planning step so a
		// set_my_budget earlier in this same turn is already visible.
		tc := tools.TurnContext{UserID: session.UserID}
		budget, err := l.budgets.Get(session.UserID)
		if err != nil {
			log.Printf("Budget snapshot load failed for user %s: %v", session.UserID, err)
		} else {
			tc.BudgetSnapshot = budget
		}

		decision, err := l.planner.Decide(ctx, session.Messages, l.dispatcher.Registry().Catalog())
		if err != nil {
			if ctx.Err() != nil {
				return "", fmt.Errorf("turn timed out: %w", ctx.Err())
			}
			return "", fmt.Errorf("%w: %v", ErrPlannerUnavailable, err)
		}

		if decision.IsFinal() {
			session.append(core.Message{Role: core.RoleAssistant, Content: decision.FinalAnswer})
			return decision.FinalAnswer, nil
		}

		session.append(core.Message{
			Role:      core.RoleAssistant,
			Content:   decision.FinalAnswer,
			ToolCalls: decision.ToolCalls,
		})
		for _, call := range decision.ToolCalls {
			obs := l.dispatcher.Dispatch(ctx, call, tc)
			if !obs.OK {
				log.Printf("Tool call %s failed (%s): %s", call.Name, obs.ErrorKind, obs.Message)
			}
			session.append(core.Message{Role: core.RoleTool, Observation: &obs})
		}
	}

	log.Printf("Turn for user %s hit the iteration bound of %d", session.UserID, l.maxIterations)
	session.append(core.Message{Role: core.RoleAssistant, Content: degradedAnswer})
	return degradedAnswer, nil
}
