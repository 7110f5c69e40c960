// Package dispatch provides the action dispatch bounded context module.
// This file defines the module that wires the dispatcher, its action
// handlers, and the dispatch log admin routes.
package dispatch

import (
	"lead_router_backend/internal/email"
	"lead_router_backend/internal/events"
	"lead_router_backend/internal/followupboss"
	apphttp "lead_router_backend/internal/http"
	"lead_router_backend/internal/lead"
	"lead_router_backend/internal/scheduler"
	"lead_router_backend/platform/config"
	"lead_router_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config is the slice of application configuration the dispatch module
// needs.
type Config interface {
	config.DispatchConfig
	config.CalendlyConfig
	config.CRMConfig
	config.EmailConfig
}

// Module is the dispatch bounded context module implementing http.Module.
type Module struct {
	service *Service
	handler *LogHandler
}

// NewModule creates and initializes the dispatch module with all its dependencies.
func NewModule(cfg Config, pool *pgxpool.Pool, sender email.Sender, retries scheduler.CRMRetryScheduler, eventBus events.Bus, log *logger.Logger) *Module {
	leads := lead.NewRepository(pool)
	crm := followupboss.New(cfg, log)

	dispatcher := NewDispatcher(
		cfg.GetActionTimeout(),
		NewDatabaseHandler(leads),
		NewEmailHandler(sender, cfg.GetEmailFromName()),
		NewCalendlyHandler(cfg.GetCalendlyBaseURL()),
		NewFollowUpBossHandler(crm, leads, retries, cfg.IsCRMEnabled(), log),
		log,
	)

	repo := NewRepository(pool)
	service := NewService(dispatcher, repo, eventBus, log)

	return &Module{
		service: service,
		handler: NewHandler(repo),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "dispatch"
}

// Service exposes the dispatch service for wiring into the intake pipeline.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts dispatch log admin routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	adminGroup := ctx.Admin.Group("/dispatch-log")
	adminGroup.GET("", m.handler.HandleListRecent)
	adminGroup.GET("/:submissionId", m.handler.HandleListBySubmission)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
