package intake

import (
	"context"
	"sync"
	"testing"
	"time"

	"lead_router_backend/internal/dispatch"
	"lead_router_backend/internal/events"
	"lead_router_backend/internal/lead"
	"lead_router_backend/internal/mapping"
	"lead_router_backend/internal/routing"
	"lead_router_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeTables struct {
	table mapping.Table
	err   error
}

func (f *fakeTables) TableFor(ctx context.Context, orgID uuid.UUID) (mapping.Table, error) {
	return f.table, f.err
}

type fakeMatcher struct {
	routes []routing.Route
	err    error
}

func (f *fakeMatcher) MatchFor(ctx context.Context, orgID uuid.UUID, meta routing.SubmissionMeta) ([]routing.Route, error) {
	return f.routes, f.err
}

type fakeDispatcher struct {
	mu      sync.Mutex
	results []dispatch.Result
	calls   int
	lastRec lead.Record
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, rec lead.Record, routes []routing.Route) []dispatch.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastRec = rec
	return f.results
}

type fakeDuplicates struct {
	dup   *uuid.UUID
	err   error
	calls int
}

func (f *fakeDuplicates) FindRecentDuplicate(ctx context.Context, orgID uuid.UUID, email, phone string, window time.Duration) (*uuid.UUID, error) {
	f.calls++
	return f.dup, f.err
}

func newTestService(t *testing.T, tables *fakeTables, matcher *fakeMatcher, dispatcher *fakeDispatcher, dups *fakeDuplicates) *Service {
	t.Helper()
	log := logger.New("development")
	if tables.table.Mappings() == nil && tables.err == nil {
		table, err := mapping.NewTable(mapping.DefaultMappings())
		if err != nil {
			t.Fatalf("default table: %v", err)
		}
		tables.table = table
	}
	return NewService(tables, matcher, dispatcher, dups, events.NewInMemoryBus(log), time.Minute, log)
}

func TestProcessSubmissionSuccess(t *testing.T) {
	dispatcher := &fakeDispatcher{results: []dispatch.Result{
		{Action: dispatch.ActionDatabase, Success: true, Critical: true},
	}}
	matcher := &fakeMatcher{routes: []routing.Route{{ID: uuid.New(), Name: "Buyers", Enabled: true}}}
	svc := newTestService(t, &fakeTables{}, matcher, dispatcher, &fakeDuplicates{})

	resp, err := svc.ProcessSubmission(context.Background(), Submission{
		Fields: map[string][]string{
			"full_name": {"Jane Doe"},
			"email":     {"jane@example.com"},
		},
		FormType: "contact",
		Source:   "website",
	}, uuid.New())
	if err != nil {
		t.Fatalf("ProcessSubmission: %v", err)
	}
	if !resp.Success {
		t.Fatal("expected success")
	}
	if resp.Message != msgReceived {
		t.Fatalf("message = %q", resp.Message)
	}
	if resp.SubmissionID == uuid.Nil {
		t.Fatal("expected a submission ID")
	}
	if len(resp.Errors) != 0 {
		t.Fatalf("unexpected field errors: %v", resp.Errors)
	}
	if dispatcher.calls != 1 {
		t.Fatalf("dispatch calls = %d", dispatcher.calls)
	}
	if dispatcher.lastRec.FirstName != "Jane" || dispatcher.lastRec.LastName != "Doe" {
		t.Fatalf("record name = %q %q", dispatcher.lastRec.FirstName, dispatcher.lastRec.LastName)
	}
}

func TestProcessSubmissionCriticalFailure(t *testing.T) {
	dispatcher := &fakeDispatcher{results: []dispatch.Result{
		{Action: dispatch.ActionDatabase, Success: false, Critical: true, Message: "insert failed"},
	}}
	matcher := &fakeMatcher{routes: []routing.Route{{ID: uuid.New(), Enabled: true}}}
	svc := newTestService(t, &fakeTables{}, matcher, dispatcher, &fakeDuplicates{})

	resp, err := svc.ProcessSubmission(context.Background(), Submission{
		Fields: map[string][]string{"email": {"jane@example.com"}},
	}, uuid.New())
	if err != nil {
		t.Fatalf("ProcessSubmission: %v", err)
	}
	if resp.Success {
		t.Fatal("critical action failure must fail the submission")
	}
	if resp.Message != msgFailed {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestProcessSubmissionNonCriticalFailureStillSucceeds(t *testing.T) {
	dispatcher := &fakeDispatcher{results: []dispatch.Result{
		{Action: dispatch.ActionDatabase, Success: true, Critical: true},
		{Action: dispatch.ActionEmail, Success: false, Critical: false, Message: "smtp down"},
	}}
	matcher := &fakeMatcher{routes: []routing.Route{{ID: uuid.New(), Enabled: true}}}
	svc := newTestService(t, &fakeTables{}, matcher, dispatcher, &fakeDuplicates{})

	resp, err := svc.ProcessSubmission(context.Background(), Submission{
		Fields: map[string][]string{"email": {"jane@example.com"}},
	}, uuid.New())
	if err != nil {
		t.Fatalf("ProcessSubmission: %v", err)
	}
	if !resp.Success {
		t.Fatal("non-critical failure must not fail the submission")
	}
}

func TestProcessSubmissionRedirect(t *testing.T) {
	dispatcher := &fakeDispatcher{results: []dispatch.Result{
		{Action: dispatch.ActionCalendly, Success: true, Redirect: "https://calendly.com/acme/tour"},
	}}
	matcher := &fakeMatcher{routes: []routing.Route{{ID: uuid.New(), Enabled: true}}}
	svc := newTestService(t, &fakeTables{}, matcher, dispatcher, &fakeDuplicates{})

	resp, err := svc.ProcessSubmission(context.Background(), Submission{
		Fields: map[string][]string{"email": {"jane@example.com"}},
	}, uuid.New())
	if err != nil {
		t.Fatalf("ProcessSubmission: %v", err)
	}
	if resp.Redirect != "https://calendly.com/acme/tour" {
		t.Fatalf("redirect = %q", resp.Redirect)
	}
}

func TestProcessSubmissionDuplicateSuppressed(t *testing.T) {
	existing := uuid.New()
	dispatcher := &fakeDispatcher{}
	dups := &fakeDuplicates{dup: &existing}
	svc := newTestService(t, &fakeTables{}, &fakeMatcher{}, dispatcher, dups)

	resp, err := svc.ProcessSubmission(context.Background(), Submission{
		Fields: map[string][]string{"email": {"jane@example.com"}},
	}, uuid.New())
	if err != nil {
		t.Fatalf("ProcessSubmission: %v", err)
	}
	if !resp.Success {
		t.Fatal("duplicate suppression is not a failure")
	}
	if resp.Message != msgDuplicate {
		t.Fatalf("message = %q", resp.Message)
	}
	if dispatcher.calls != 0 {
		t.Fatal("duplicate submissions must not be dispatched")
	}
}

func TestProcessSubmissionDuplicateCheckErrorIgnored(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	dups := &fakeDuplicates{err: context.DeadlineExceeded}
	matcher := &fakeMatcher{routes: []routing.Route{{ID: uuid.New(), Enabled: true}}}
	svc := newTestService(t, &fakeTables{}, matcher, dispatcher, dups)

	resp, err := svc.ProcessSubmission(context.Background(), Submission{
		Fields: map[string][]string{"email": {"jane@example.com"}},
	}, uuid.New())
	if err != nil {
		t.Fatalf("ProcessSubmission: %v", err)
	}
	if !resp.Success {
		t.Fatal("a failed dedupe check must not block the lead")
	}
	if dispatcher.calls != 1 {
		t.Fatal("lead must still be dispatched when the dedupe check errors")
	}
}

func TestProcessSubmissionSkipsDedupeWithoutContactChannel(t *testing.T) {
	existing := uuid.New()
	dups := &fakeDuplicates{dup: &existing}
	svc := newTestService(t, &fakeTables{}, &fakeMatcher{}, &fakeDispatcher{}, dups)

	if _, err := svc.ProcessSubmission(context.Background(), Submission{
		Fields: map[string][]string{"message": {"just browsing"}},
	}, uuid.New()); err != nil {
		t.Fatalf("ProcessSubmission: %v", err)
	}
	if dups.calls != 0 {
		t.Fatal("dedupe must be skipped when there is no contact channel")
	}
}

func TestProcessSubmissionFieldErrorsReturnedButNotBlocking(t *testing.T) {
	dispatcher := &fakeDispatcher{results: []dispatch.Result{
		{Action: dispatch.ActionDatabase, Success: true, Critical: true},
	}}
	matcher := &fakeMatcher{routes: []routing.Route{{ID: uuid.New(), Enabled: true}}}
	svc := newTestService(t, &fakeTables{}, matcher, dispatcher, &fakeDuplicates{})

	resp, err := svc.ProcessSubmission(context.Background(), Submission{
		Fields: map[string][]string{
			"email": {"not-an-email"},
			"phone": {"555-867-5309"},
		},
	}, uuid.New())
	if err != nil {
		t.Fatalf("ProcessSubmission: %v", err)
	}
	if !resp.Success {
		t.Fatal("field errors must not block dispatch")
	}
	if resp.Errors["email"] == "" {
		t.Fatalf("expected an email field error, got %v", resp.Errors)
	}
	if dispatcher.calls != 1 {
		t.Fatal("expected dispatch despite field errors")
	}
}

func TestProcessSubmissionConfigReadFailure(t *testing.T) {
	tables := &fakeTables{err: context.DeadlineExceeded}
	dispatcher := &fakeDispatcher{}
	svc := newTestService(t, tables, &fakeMatcher{}, dispatcher, &fakeDuplicates{})

	if _, err := svc.ProcessSubmission(context.Background(), Submission{
		Fields: map[string][]string{"email": {"jane@example.com"}},
	}, uuid.New()); err == nil {
		t.Fatal("expected a configuration read failure to propagate")
	}
	if dispatcher.calls != 0 {
		t.Fatal("nothing may be dispatched when configuration cannot be read")
	}
}
