package intake

import (
	apphttp "lead_router_backend/internal/http"
	"lead_router_backend/internal/lead"
	"lead_router_backend/internal/events"
	"lead_router_backend/platform/config"
	"lead_router_backend/platform/logger"
	"lead_router_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module bundles the intake bounded context: the public form endpoint,
// API key management, and lead browsing.
type Module struct {
	handler    *Handler
	repository *Repository
}

// NewModule wires the intake context. The mapping, routing, and
// dispatch services are passed through their narrow interfaces so the
// intake pipeline stays decoupled from the modules that own them.
func NewModule(cfg config.IntakeConfig, pool *pgxpool.Pool, mappings MappingTables, matcher RouteMatcher, dispatcher ActionDispatcher, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	leads := lead.NewRepository(pool)
	service := NewService(mappings, matcher, dispatcher, leads, eventBus, cfg.GetDuplicateWindow(), log)
	handler := NewHandler(service, repo, leads, val)

	return &Module{handler: handler, repository: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "intake"
}

// Repository exposes the API key store for the auth middleware.
func (m *Module) Repository() *Repository {
	return m.repository
}

// RegisterRoutes mounts the public intake endpoint and admin routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	public := ctx.V1.Group("/intake")
	public.Use(ctx.IntakeRateLimiter.RateLimit())
	public.Use(APIKeyAuthMiddleware(m.repository))
	public.POST("/forms", m.handler.HandleFormSubmission)

	keys := ctx.Admin.Group("/intake/keys")
	keys.POST("", m.handler.HandleCreateAPIKey)
	keys.GET("", m.handler.HandleListAPIKeys)
	keys.DELETE("/:keyId", m.handler.HandleRevokeAPIKey)

	leads := ctx.Admin.Group("/leads")
	leads.GET("", m.handler.HandleListLeads)
	leads.GET("/:leadId", m.handler.HandleGetLead)
}

var _ apphttp.Module = (*Module)(nil)
