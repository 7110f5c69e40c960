package routing

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"lead_router_backend/internal/events"
	"lead_router_backend/platform/apperr"
	"lead_router_backend/platform/logger"

	"github.com/google/uuid"
)

// Service owns the route definition store. Route lists are cached as
// immutable snapshots per organization; every write path swaps the
// snapshot, so in-flight match calls keep the store they started with.
type Service struct {
	repo     *Repository
	eventBus events.Bus
	log      *logger.Logger

	mu     sync.RWMutex
	routes map[uuid.UUID][]Route
}

// NewService creates a new routing service.
func NewService(repo *Repository, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		eventBus: eventBus,
		log:      log,
		routes:   make(map[uuid.UUID][]Route),
	}
}

// MatchFor loads the organization's route snapshot and returns the
// routes matching the submission, in dispatch order.
func (s *Service) MatchFor(ctx context.Context, orgID uuid.UUID, meta SubmissionMeta) ([]Route, error) {
	routes, err := s.snapshot(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return Match(meta, routes), nil
}

// List returns the organization's routes in definition order.
func (s *Service) List(ctx context.Context, orgID uuid.UUID) ([]Route, error) {
	return s.snapshot(ctx, orgID)
}

// Get returns one route.
func (s *Service) Get(ctx context.Context, routeID uuid.UUID, orgID uuid.UUID) (Route, error) {
	route, err := s.repo.Get(ctx, routeID, orgID)
	if errors.Is(err, ErrRouteNotFound) {
		return Route{}, apperr.NotFound("route not found")
	}
	if err != nil {
		return Route{}, apperr.Wrap(apperr.KindInternal, "failed to load route", err)
	}
	return route, nil
}

// Create validates and stores a new route.
func (s *Service) Create(ctx context.Context, route Route, changedBy uuid.UUID) (Route, error) {
	if err := validateRoute(route); err != nil {
		return Route{}, err
	}

	created, err := s.repo.Create(ctx, route)
	if err != nil {
		return Route{}, apperr.Wrap(apperr.KindInternal, "failed to create route", err)
	}

	s.invalidate(ctx, route.OrganizationID, changedBy)
	return created, nil
}

// Update validates and rewrites an existing route.
func (s *Service) Update(ctx context.Context, route Route, changedBy uuid.UUID) (Route, error) {
	if err := validateRoute(route); err != nil {
		return Route{}, err
	}

	updated, err := s.repo.Update(ctx, route)
	if errors.Is(err, ErrRouteNotFound) {
		return Route{}, apperr.NotFound("route not found")
	}
	if err != nil {
		return Route{}, apperr.Wrap(apperr.KindInternal, "failed to update route", err)
	}

	s.invalidate(ctx, route.OrganizationID, changedBy)
	return updated, nil
}

// Delete removes a route.
func (s *Service) Delete(ctx context.Context, routeID uuid.UUID, orgID uuid.UUID, changedBy uuid.UUID) error {
	err := s.repo.Delete(ctx, routeID, orgID)
	if errors.Is(err, ErrRouteNotFound) {
		return apperr.NotFound("route not found")
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete route", err)
	}

	s.invalidate(ctx, orgID, changedBy)
	return nil
}

// Export serializes the organization's route store as JSON.
func (s *Service) Export(ctx context.Context, orgID uuid.UUID) ([]byte, error) {
	routes, err := s.snapshot(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(exportEnvelope{Routes: routes}, "", "  ")
}

// Import validates every route in the payload through the strict
// deserializer and atomically replaces the organization's store.
func (s *Service) Import(ctx context.Context, orgID uuid.UUID, changedBy uuid.UUID, payload []byte) (int, error) {
	routes, err := decodeImport(payload)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}

	for i := range routes {
		routes[i].OrganizationID = orgID
		if err := validateRoute(routes[i]); err != nil {
			return 0, err
		}
	}

	if err := s.repo.ReplaceAll(ctx, orgID, routes); err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to import routes", err)
	}

	s.invalidate(ctx, orgID, changedBy)
	return len(routes), nil
}

type exportEnvelope struct {
	Routes []Route `json:"routes"`
}

func decodeImport(payload []byte) ([]Route, error) {
	var envelope exportEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, err
	}
	if envelope.Routes == nil {
		return nil, errors.New("import payload has no routes")
	}

	// Round-trip conditions and actions through the strict decoders so
	// unknown keys are rejected the same way the admin console rejects
	// them.
	for _, route := range envelope.Routes {
		raw, err := json.Marshal(route.Actions)
		if err != nil {
			return nil, err
		}
		if _, err := DecodeActionSet(raw); err != nil {
			return nil, err
		}
		if err := ValidateConditions(route.Conditions); err != nil {
			return nil, err
		}
	}
	return envelope.Routes, nil
}

func validateRoute(route Route) error {
	if route.Name == "" {
		return apperr.Validation("route name is required")
	}
	if err := ValidateConditions(route.Conditions); err != nil {
		return apperr.Validation(err.Error())
	}
	return nil
}

// snapshot returns the cached route list for the organization, loading
// it from the store on first use.
func (s *Service) snapshot(ctx context.Context, orgID uuid.UUID) ([]Route, error) {
	s.mu.RLock()
	routes, ok := s.routes[orgID]
	s.mu.RUnlock()
	if ok {
		return routes, nil
	}

	routes, err := s.repo.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfiguration, "failed to load routes", err)
	}
	if routes == nil {
		routes = []Route{}
	}

	s.mu.Lock()
	s.routes[orgID] = routes
	s.mu.Unlock()
	return routes, nil
}

func (s *Service) invalidate(ctx context.Context, orgID uuid.UUID, changedBy uuid.UUID) {
	s.mu.Lock()
	delete(s.routes, orgID)
	s.mu.Unlock()

	s.eventBus.Publish(ctx, events.RouteConfigChanged{
		BaseEvent:      events.NewBaseEvent(),
		OrganizationID: orgID,
		ChangedBy:      changedBy,
	})
}
