package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"lead_router_backend/internal/lead"
	"lead_router_backend/internal/routing"
	"lead_router_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeHandler struct {
	mu      sync.Mutex
	calls   int
	outcome Outcome
	execute func(ctx context.Context) Outcome
}

func (f *fakeHandler) Execute(ctx context.Context, rec lead.Record, route routing.Route) Outcome {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.execute != nil {
		return f.execute(ctx)
	}
	return f.outcome
}

func (f *fakeHandler) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func okHandler() *fakeHandler {
	return &fakeHandler{outcome: Outcome{Success: true, Message: "ok"}}
}

func failHandler(msg string) *fakeHandler {
	return &fakeHandler{outcome: Outcome{Success: false, Message: msg}}
}

func testLead() lead.Record {
	return lead.Record{
		SubmissionID:   uuid.New(),
		OrganizationID: uuid.New(),
		FirstName:      "Jane",
		LastName:       "Doe",
		Email:          "jane@example.com",
	}
}

func allActionsRoute(name string, priority int) routing.Route {
	return routing.Route{
		ID:       uuid.New(),
		Name:     name,
		Priority: priority,
		Enabled:  true,
		Actions: routing.ActionSet{
			Database:     routing.DatabaseAction{Enabled: true},
			Email:        routing.EmailAction{Enabled: true},
			Calendly:     routing.CalendlyAction{Enabled: true},
			FollowUpBoss: routing.FollowUpBossAction{Enabled: true},
		},
	}
}

func TestDispatchRunsActionsInFixedOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(name string) *fakeHandler {
		return &fakeHandler{execute: func(ctx context.Context) Outcome {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return Outcome{Success: true}
		}}
	}

	d := NewDispatcher(time.Second,
		record("database"), record("email"), record("calendly"), record("followup_boss"),
		logger.New("development"))

	results := d.Dispatch(context.Background(), testLead(), []routing.Route{allActionsRoute("all", 0)})
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}

	want := []string{"database", "email", "calendly", "followup_boss"}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("expected %s at position %d, got %s", name, i, order[i])
		}
		if results[i].Action != name {
			t.Fatalf("expected result %d to be %s, got %s", i, name, results[i].Action)
		}
	}
}

func TestDispatchSkipsDisabledActions(t *testing.T) {
	db, em, cal, fub := okHandler(), okHandler(), okHandler(), okHandler()
	d := NewDispatcher(time.Second, db, em, cal, fub, logger.New("development"))

	route := routing.Route{
		ID:      uuid.New(),
		Name:    "email-only",
		Enabled: true,
		Actions: routing.ActionSet{Email: routing.EmailAction{Enabled: true}},
	}

	results := d.Dispatch(context.Background(), testLead(), []routing.Route{route})
	if len(results) != 1 || results[0].Action != ActionEmail {
		t.Fatalf("expected only the email action, got %v", results)
	}
	if db.callCount() != 0 || cal.callCount() != 0 || fub.callCount() != 0 {
		t.Fatal("disabled actions must not be invoked")
	}
}

func TestDispatchIsolatesFailures(t *testing.T) {
	d := NewDispatcher(time.Second,
		okHandler(), failHandler("smtp down"), okHandler(), okHandler(),
		logger.New("development"))

	routes := []routing.Route{allActionsRoute("first", 20), allActionsRoute("second", 10)}
	results := d.Dispatch(context.Background(), testLead(), routes)

	if len(results) != 8 {
		t.Fatalf("a failed action must not stop the rest, got %d results", len(results))
	}

	failures := 0
	for _, r := range results {
		if !r.Success {
			failures++
			if r.Action != ActionEmail {
				t.Fatalf("unexpected failing action %s", r.Action)
			}
		}
	}
	if failures != 2 {
		t.Fatalf("expected the email action to fail once per route, got %d failures", failures)
	}
}

func TestDispatchResultsKeepRouteOrder(t *testing.T) {
	d := NewDispatcher(time.Second,
		okHandler(), okHandler(), okHandler(), okHandler(),
		logger.New("development"))

	routes := []routing.Route{allActionsRoute("high", 20), allActionsRoute("low", 10)}
	results := d.Dispatch(context.Background(), testLead(), routes)

	for i, r := range results {
		wantRoute := "high"
		if i >= 4 {
			wantRoute = "low"
		}
		if r.RouteName != wantRoute {
			t.Fatalf("result %d: expected route %s, got %s", i, wantRoute, r.RouteName)
		}
	}
}

func TestDispatchActionTimeoutIsReportedAsFailure(t *testing.T) {
	slow := &fakeHandler{execute: func(ctx context.Context) Outcome {
		select {
		case <-ctx.Done():
			return Outcome{Success: false, Message: "timed out"}
		case <-time.After(time.Second):
			return Outcome{Success: true}
		}
	}}

	d := NewDispatcher(10*time.Millisecond,
		okHandler(), okHandler(), okHandler(), slow,
		logger.New("development"))

	route := routing.Route{
		ID:      uuid.New(),
		Name:    "crm",
		Enabled: true,
		Actions: routing.ActionSet{FollowUpBoss: routing.FollowUpBossAction{Enabled: true}},
	}

	results := d.Dispatch(context.Background(), testLead(), []routing.Route{route})
	if len(results) != 1 || results[0].Success {
		t.Fatalf("timed out action must fail, got %v", results)
	}
}

func TestCriticalFailureUsesCriticalFlagsOnly(t *testing.T) {
	results := []Result{
		{Action: ActionDatabase, Success: true, Critical: true},
		{Action: ActionEmail, Success: false, Critical: false},
	}
	if CriticalFailure(results) {
		t.Fatal("non-critical failure must not fail the submission")
	}

	results[0].Success = false
	if !CriticalFailure(results) {
		t.Fatal("critical failure must fail the submission")
	}
}

func TestFirstRedirectSkipsFailedActions(t *testing.T) {
	results := []Result{
		{Action: ActionCalendly, Success: false, Redirect: "https://calendly.example/broken"},
		{Action: ActionCalendly, Success: true, Redirect: "https://calendly.example/intro"},
	}
	if got := FirstRedirect(results); got != "https://calendly.example/intro" {
		t.Fatalf("expected the first successful redirect, got %q", got)
	}
}

func TestDispatchCriticalFlagCarriedFromRouteConfig(t *testing.T) {
	d := NewDispatcher(time.Second,
		failHandler("db down"), okHandler(), okHandler(), okHandler(),
		logger.New("development"))

	nonCritical := false
	route := routing.Route{
		ID:      uuid.New(),
		Name:    "db-optional",
		Enabled: true,
		Actions: routing.ActionSet{
			Database: routing.DatabaseAction{Enabled: true, Critical: &nonCritical},
		},
	}

	results := d.Dispatch(context.Background(), testLead(), []routing.Route{route})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Critical {
		t.Fatal("explicit critical=false must flow into the result")
	}
	if CriticalFailure(results) {
		t.Fatal("non-critical database failure must not fail the submission")
	}
}
