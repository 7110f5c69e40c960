// Package mapping provides the field mapping bounded context module.
// This file defines the module that encapsulates mapping setup and
// admin route registration.
package mapping

import (
	"lead_router_backend/internal/events"
	apphttp "lead_router_backend/internal/http"
	"lead_router_backend/platform/logger"
	"lead_router_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the field mapping bounded context module implementing http.Module.
type Module struct {
	service *Service
	handler *Handler
}

// NewModule creates and initializes the mapping module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	service := NewService(repo, eventBus, log)
	handler := NewHandler(service, val)

	return &Module{
		service: service,
		handler: handler,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "mapping"
}

// Service exposes the mapping service for wiring into the intake pipeline.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts mapping admin routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	adminGroup := ctx.Admin.Group("/mappings")
	adminGroup.GET("", m.handler.HandleListMappings)
	adminGroup.PUT("", m.handler.HandleReplaceMappings)
	adminGroup.DELETE("", m.handler.HandleResetMappings)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
