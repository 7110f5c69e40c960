package dispatch

import (
	"context"

	"lead_router_backend/internal/events"
	"lead_router_backend/internal/lead"
	"lead_router_backend/internal/routing"
	"lead_router_backend/platform/logger"
)

// Service wraps the dispatcher with result persistence and event
// publication. The intake pipeline calls this, not the dispatcher
// directly.
type Service struct {
	dispatcher *Dispatcher
	repo       *Repository
	eventBus   events.Bus
	log        *logger.Logger
}

// NewService creates a new dispatch service.
func NewService(dispatcher *Dispatcher, repo *Repository, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		dispatcher: dispatcher,
		repo:       repo,
		eventBus:   eventBus,
		log:        log,
	}
}

// Dispatch runs all actions for the matched routes, records the
// results, and publishes the completion event. Log persistence is
// best-effort: the caller's response is built from the in-memory
// results either way.
func (s *Service) Dispatch(ctx context.Context, rec lead.Record, routes []routing.Route) []Result {
	results := s.dispatcher.Dispatch(ctx, rec, routes)

	if err := s.repo.RecordResults(ctx, rec.SubmissionID, rec.OrganizationID, results); err != nil {
		s.log.Error("dispatch log write failed", "error", err, "submission_id", rec.SubmissionID)
	}

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}

	s.eventBus.Publish(ctx, events.DispatchCompleted{
		BaseEvent:      events.NewBaseEvent(),
		SubmissionID:   rec.SubmissionID,
		OrganizationID: rec.OrganizationID,
		RoutesMatched:  len(routes),
		ActionsFailed:  failed,
	})
	return results
}
