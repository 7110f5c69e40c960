// Package routing provides the route definition bounded context module.
// This file defines the module that encapsulates routing setup and
// admin route registration.
package routing

import (
	"lead_router_backend/internal/events"
	apphttp "lead_router_backend/internal/http"
	"lead_router_backend/platform/logger"
	"lead_router_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the routing bounded context module implementing http.Module.
type Module struct {
	service *Service
	handler *Handler
}

// NewModule creates and initializes the routing module with all its dependencies.
func NewModule(pool *pgxpool.Pool, tables MappingTables, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	service := NewService(repo, eventBus, log)
	handler := NewHandler(service, tables, val)

	return &Module{
		service: service,
		handler: handler,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "routing"
}

// Service exposes the routing service for wiring into the intake pipeline.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts routing admin routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	adminGroup := ctx.Admin.Group("/routes")
	adminGroup.GET("", m.handler.HandleListRoutes)
	adminGroup.POST("", m.handler.HandleCreateRoute)
	adminGroup.POST("/test", m.handler.HandleTestRoutes)
	adminGroup.GET("/export", m.handler.HandleExportRoutes)
	adminGroup.POST("/import", m.handler.HandleImportRoutes)
	adminGroup.GET("/:routeId", m.handler.HandleGetRoute)
	adminGroup.PUT("/:routeId", m.handler.HandleUpdateRoute)
	adminGroup.DELETE("/:routeId", m.handler.HandleDeleteRoute)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
