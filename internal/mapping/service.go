package mapping

import (
	"context"
	"sync"

	"lead_router_backend/internal/events"
	"lead_router_backend/platform/apperr"
	"lead_router_backend/platform/logger"

	"github.com/google/uuid"
)

// Service resolves the active mapping table for an organization and
// handles admin updates. Tables are cached as immutable snapshots;
// Replace swaps the snapshot so in-flight normalizations keep the
// table they started with.
type Service struct {
	repo     *Repository
	eventBus events.Bus
	log      *logger.Logger

	mu     sync.RWMutex
	tables map[uuid.UUID]Table
}

// NewService creates a new mapping service.
func NewService(repo *Repository, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		eventBus: eventBus,
		log:      log,
		tables:   make(map[uuid.UUID]Table),
	}
}

// TableFor returns the organization's mapping table, loading it on
// first use. Organizations without stored mappings get the default
// table, so intake works before any admin configuration.
func (s *Service) TableFor(ctx context.Context, orgID uuid.UUID) (Table, error) {
	s.mu.RLock()
	table, ok := s.tables[orgID]
	s.mu.RUnlock()
	if ok {
		return table, nil
	}

	mappings, err := s.repo.ListByOrganization(ctx, orgID)
	if err != nil {
		return Table{}, apperr.Wrap(apperr.KindConfiguration, "failed to load field mappings", err)
	}
	if len(mappings) == 0 {
		mappings = DefaultMappings()
	}

	table, err = NewTable(mappings)
	if err != nil {
		return Table{}, apperr.Wrap(apperr.KindConfiguration, "stored field mappings are invalid", err)
	}

	s.mu.Lock()
	s.tables[orgID] = table
	s.mu.Unlock()
	return table, nil
}

// List returns the organization's configured mappings, falling back to
// the defaults when none are stored.
func (s *Service) List(ctx context.Context, orgID uuid.UUID) ([]FieldMapping, error) {
	table, err := s.TableFor(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return table.Mappings(), nil
}

// Replace validates and stores a full replacement mapping table for
// the organization, then swaps the cached snapshot.
func (s *Service) Replace(ctx context.Context, orgID uuid.UUID, changedBy uuid.UUID, mappings []FieldMapping) error {
	table, err := NewTable(mappings)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}

	if err := s.repo.Replace(ctx, orgID, table.Mappings()); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to store field mappings", err)
	}

	s.mu.Lock()
	s.tables[orgID] = table
	s.mu.Unlock()

	s.eventBus.Publish(ctx, events.MappingConfigChanged{
		BaseEvent:      events.NewBaseEvent(),
		OrganizationID: orgID,
		ChangedBy:      changedBy,
	})
	return nil
}

// Reset removes the organization's stored mappings, reverting it to
// the default table.
func (s *Service) Reset(ctx context.Context, orgID uuid.UUID, changedBy uuid.UUID) error {
	if err := s.repo.Replace(ctx, orgID, nil); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to reset field mappings", err)
	}

	table, err := NewTable(DefaultMappings())
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "default field mappings are invalid", err)
	}

	s.mu.Lock()
	s.tables[orgID] = table
	s.mu.Unlock()

	s.eventBus.Publish(ctx, events.MappingConfigChanged{
		BaseEvent:      events.NewBaseEvent(),
		OrganizationID: orgID,
		ChangedBy:      changedBy,
	})
	return nil
}
