package intake

import (
	"context"
	"time"

	"lead_router_backend/internal/dispatch"
	"lead_router_backend/internal/events"
	"lead_router_backend/internal/lead"
	"lead_router_backend/internal/mapping"
	"lead_router_backend/internal/routing"
	"lead_router_backend/platform/logger"

	"github.com/google/uuid"
)

// Submission is one inbound form submission after transport parsing.
type Submission struct {
	Fields       map[string][]string
	FormType     string
	Source       string
	SourceURL    string
	SourceDomain string
	APIKeyID     uuid.UUID
}

// Response is what the submitting form receives back.
type Response struct {
	Success      bool              `json:"-"`
	Message      string            `json:"message"`
	Redirect     string            `json:"redirect,omitempty"`
	Errors       map[string]string `json:"errors,omitempty"`
	SubmissionID uuid.UUID         `json:"submissionId"`
}

// MappingTables resolves the active mapping table. Satisfied by
// mapping.Service.
type MappingTables interface {
	TableFor(ctx context.Context, orgID uuid.UUID) (mapping.Table, error)
}

// RouteMatcher selects the routes for a submission. Satisfied by
// routing.Service.
type RouteMatcher interface {
	MatchFor(ctx context.Context, orgID uuid.UUID, meta routing.SubmissionMeta) ([]routing.Route, error)
}

// ActionDispatcher runs the matched routes' actions. Satisfied by
// dispatch.Service.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, rec lead.Record, routes []routing.Route) []dispatch.Result
}

// DuplicateFinder looks up a recently captured lead with the same
// contact details. Satisfied by lead.Repository.
type DuplicateFinder interface {
	FindRecentDuplicate(ctx context.Context, orgID uuid.UUID, email, phone string, window time.Duration) (*uuid.UUID, error)
}

// Service runs the normalize, match, dispatch pipeline for inbound
// submissions.
type Service struct {
	mappings        MappingTables
	matcher         RouteMatcher
	dispatcher      ActionDispatcher
	duplicates      DuplicateFinder
	eventBus        events.Bus
	duplicateWindow time.Duration
	log             *logger.Logger
}

// NewService creates a new intake service.
func NewService(mappings MappingTables, matcher RouteMatcher, dispatcher ActionDispatcher, duplicates DuplicateFinder, eventBus events.Bus, duplicateWindow time.Duration, log *logger.Logger) *Service {
	return &Service{
		mappings:        mappings,
		matcher:         matcher,
		dispatcher:      dispatcher,
		duplicates:      duplicates,
		eventBus:        eventBus,
		duplicateWindow: duplicateWindow,
		log:             log,
	}
}

const (
	msgReceived  = "Thank you! Your message has been received."
	msgDuplicate = "We already received your submission."
	msgFailed    = "We could not process your submission. Please try again later."
)

// ProcessSubmission runs the full pipeline for one submission. Only a
// configuration-store read failure is returned as an error; everything
// else, including partial action failures, is reported in the
// response.
func (s *Service) ProcessSubmission(ctx context.Context, sub Submission, orgID uuid.UUID) (Response, error) {
	submissionID := uuid.New()

	table, err := s.mappings.TableFor(ctx, orgID)
	if err != nil {
		return Response{}, err
	}

	rec, fieldErrs := mapping.Normalize(mapping.Submission{
		SubmissionID:   submissionID,
		OrganizationID: orgID,
		Payload:        sub.Fields,
		FormType:       sub.FormType,
		Source:         submissionSource(sub),
		SourceURL:      sub.SourceURL,
		ReceivedAt:     time.Now().UTC(),
	}, table)

	s.eventBus.Publish(ctx, events.LeadReceived{
		BaseEvent:      events.NewBaseEvent(),
		SubmissionID:   submissionID,
		OrganizationID: orgID,
		FormType:       string(rec.FormType),
		Source:         rec.Source,
		IsIncomplete:   !rec.HasContactChannel(),
	})

	if rec.HasContactChannel() {
		dupID, err := s.duplicates.FindRecentDuplicate(ctx, orgID, rec.Email, rec.Phone, s.duplicateWindow)
		if err != nil {
			// A failed dedupe check must not block the lead.
			s.log.Error("duplicate check failed", "error", err, "submission_id", submissionID)
		} else if dupID != nil {
			s.log.Info("duplicate submission suppressed",
				"submission_id", submissionID, "lead_id", *dupID, "source", rec.Source)
			return Response{
				Success:      true,
				Message:      msgDuplicate,
				Errors:       nonEmpty(fieldErrs),
				SubmissionID: submissionID,
			}, nil
		}
	}

	routes, err := s.matcher.MatchFor(ctx, orgID, routing.SubmissionMeta{
		FormType:     string(rec.FormType),
		FormID:       rec.RawPayload["form_id"],
		SourceURL:    rec.SourceURL,
		CustomFields: rec.RawPayload,
	})
	if err != nil {
		return Response{}, err
	}

	routeIDs := make([]uuid.UUID, 0, len(routes))
	for _, route := range routes {
		routeIDs = append(routeIDs, route.ID)
	}
	s.eventBus.Publish(ctx, events.LeadRouted{
		BaseEvent:      events.NewBaseEvent(),
		SubmissionID:   submissionID,
		OrganizationID: orgID,
		RouteIDs:       routeIDs,
	})

	results := s.dispatcher.Dispatch(ctx, rec, routes)

	resp := Response{
		Success:      !dispatch.CriticalFailure(results),
		Redirect:     dispatch.FirstRedirect(results),
		Errors:       nonEmpty(fieldErrs),
		SubmissionID: submissionID,
	}
	if resp.Success {
		resp.Message = msgReceived
	} else {
		resp.Message = msgFailed
	}
	return resp, nil
}

func submissionSource(sub Submission) string {
	if sub.Source != "" {
		return sub.Source
	}
	return sub.SourceDomain
}

func nonEmpty(errs mapping.FieldErrors) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	return errs
}
