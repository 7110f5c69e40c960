// Package dispatch runs the actions of matched routes against a
// normalized lead record.
package dispatch

import (
	"context"
	"time"

	"lead_router_backend/internal/lead"
	"lead_router_backend/internal/routing"
	"lead_router_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Action names in their fixed per-route execution order.
const (
	ActionDatabase     = "database"
	ActionEmail        = "email"
	ActionCalendly     = "calendly"
	ActionFollowUpBoss = "followup_boss"
)

// Outcome is what an action handler reports back to the dispatcher.
type Outcome struct {
	Success  bool
	Message  string
	Redirect string
}

// Handler executes one action kind for a route. Implementations read
// their own configuration from the route's action set and must honor
// the context deadline; the dispatcher gives each invocation a bounded
// timeout and treats overruns as that action's failure.
type Handler interface {
	Execute(ctx context.Context, rec lead.Record, route routing.Route) Outcome
}

// Result records one attempted (route, action) pair.
type Result struct {
	RouteID   uuid.UUID     `json:"routeId"`
	RouteName string        `json:"routeName"`
	Action    string        `json:"action"`
	Success   bool          `json:"success"`
	Critical  bool          `json:"critical"`
	Message   string        `json:"message,omitempty"`
	Redirect  string        `json:"redirect,omitempty"`
	Duration  time.Duration `json:"-"`
}

type actionSlot struct {
	name     string
	enabled  func(routing.ActionSet) bool
	critical func(routing.ActionSet) bool
	handler  Handler
}

// Dispatcher fans a lead out to the actions of its matched routes.
// Actions within one route run sequentially in fixed order; routes run
// concurrently with each other. The dispatcher never retries: a failed
// action is reported, and any retry is the handler's own concern.
type Dispatcher struct {
	slots   []actionSlot
	timeout time.Duration
	log     *logger.Logger
}

// NewDispatcher wires the four action handlers in execution order.
func NewDispatcher(actionTimeout time.Duration, database, email, calendly, followUpBoss Handler, log *logger.Logger) *Dispatcher {
	if actionTimeout <= 0 {
		actionTimeout = 5 * time.Second
	}
	return &Dispatcher{
		timeout: actionTimeout,
		log:     log,
		slots: []actionSlot{
			{
				name:     ActionDatabase,
				enabled:  func(s routing.ActionSet) bool { return s.Database.Enabled },
				critical: func(s routing.ActionSet) bool { return s.Database.IsCritical() },
				handler:  database,
			},
			{
				name:     ActionEmail,
				enabled:  func(s routing.ActionSet) bool { return s.Email.Enabled },
				critical: func(s routing.ActionSet) bool { return s.Email.Critical },
				handler:  email,
			},
			{
				name:     ActionCalendly,
				enabled:  func(s routing.ActionSet) bool { return s.Calendly.Enabled },
				critical: func(s routing.ActionSet) bool { return s.Calendly.Critical },
				handler:  calendly,
			},
			{
				name:     ActionFollowUpBoss,
				enabled:  func(s routing.ActionSet) bool { return s.FollowUpBoss.Enabled },
				critical: func(s routing.ActionSet) bool { return s.FollowUpBoss.Critical },
				handler:  followUpBoss,
			},
		},
	}
}

// Dispatch runs every enabled action of every matched route and
// returns one result per attempted pair, in route dispatch order. One
// action's failure never stops the remaining actions or routes.
func (d *Dispatcher) Dispatch(ctx context.Context, rec lead.Record, routes []routing.Route) []Result {
	if len(routes) == 0 {
		return nil
	}

	perRoute := make([][]Result, len(routes))
	var g errgroup.Group
	for i, route := range routes {
		i, route := i, route
		g.Go(func() error {
			perRoute[i] = d.dispatchRoute(ctx, rec, route)
			return nil
		})
	}
	// The handlers report failures as outcomes, never as errors.
	_ = g.Wait()

	var results []Result
	for _, rs := range perRoute {
		results = append(results, rs...)
	}
	return results
}

func (d *Dispatcher) dispatchRoute(ctx context.Context, rec lead.Record, route routing.Route) []Result {
	var results []Result
	for _, slot := range d.slots {
		if !slot.enabled(route.Actions) {
			continue
		}

		actionCtx, cancel := context.WithTimeout(ctx, d.timeout)
		start := time.Now()
		outcome := slot.handler.Execute(actionCtx, rec, route)
		cancel()

		d.log.ActionResult(route.Name, slot.name, outcome.Success, outcome.Message)
		results = append(results, Result{
			RouteID:   route.ID,
			RouteName: route.Name,
			Action:    slot.name,
			Success:   outcome.Success,
			Critical:  slot.critical(route.Actions),
			Message:   outcome.Message,
			Redirect:  outcome.Redirect,
			Duration:  time.Since(start),
		})
	}
	return results
}

// CriticalFailure reports whether any attempted critical action failed.
// The caller-visible success verdict for a submission is computed from
// critical actions only.
func CriticalFailure(results []Result) bool {
	for _, r := range results {
		if r.Critical && !r.Success {
			return true
		}
	}
	return false
}

// FirstRedirect returns the first redirect produced by a successful
// action, in dispatch order.
func FirstRedirect(results []Result) string {
	for _, r := range results {
		if r.Success && r.Redirect != "" {
			return r.Redirect
		}
	}
	return ""
}
