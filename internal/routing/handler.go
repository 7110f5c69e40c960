package routing

import (
	"context"
	"io"
	"net/http"
	"time"

	"lead_router_backend/internal/mapping"
	"lead_router_backend/platform/httpkit"
	"lead_router_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	errNoOrgContext   = "no organization context"
	errInvalidRequest = "invalid request body"
	errValidation     = "validation error"
	errInvalidRouteID = "invalid route ID"

	maxImportBytes = 1 << 20
)

// MappingTables resolves the active field mapping table for an
// organization. Satisfied by mapping.Service.
type MappingTables interface {
	TableFor(ctx context.Context, orgID uuid.UUID) (mapping.Table, error)
}

// Handler handles route admin HTTP requests.
type Handler struct {
	service *Service
	tables  MappingTables
	val     *validator.Validator
}

// NewHandler creates a new routing handler.
func NewHandler(service *Service, tables MappingTables, val *validator.Validator) *Handler {
	return &Handler{service: service, tables: tables, val: val}
}

// RouteRequest is the request body for creating or updating a route.
type RouteRequest struct {
	Name        string        `json:"name" validate:"required,min=1,max=200"`
	Description string        `json:"description" validate:"max=1000"`
	Priority    int           `json:"priority" validate:"min=-1000,max=1000"`
	Enabled     bool          `json:"enabled"`
	Conditions  [][]Condition `json:"conditions"`
	Actions     ActionSet     `json:"actions"`
}

// HandleListRoutes returns the route store in definition order.
// GET /api/v1/admin/routes
func (h *Handler) HandleListRoutes(c *gin.Context) {
	orgID, ok := h.getOrgID(c)
	if !ok {
		return
	}

	routes, err := h.service.List(c.Request.Context(), orgID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"routes": routes})
}

// HandleGetRoute returns one route.
// GET /api/v1/admin/routes/:routeId
func (h *Handler) HandleGetRoute(c *gin.Context) {
	orgID, ok := h.getOrgID(c)
	if !ok {
		return
	}
	routeID, ok := h.parseRouteID(c)
	if !ok {
		return
	}

	route, err := h.service.Get(c.Request.Context(), routeID, orgID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, route)
}

// HandleCreateRoute creates a new route at the end of the store.
// POST /api/v1/admin/routes
func (h *Handler) HandleCreateRoute(c *gin.Context) {
	var req RouteRequest
	if !h.bindAndValidate(c, &req) {
		return
	}
	orgID, ok := h.getOrgID(c)
	if !ok {
		return
	}

	identity := httpkit.MustGetIdentity(c)
	route, err := h.service.Create(c.Request.Context(), Route{
		OrganizationID: orgID,
		Name:           req.Name,
		Description:    req.Description,
		Priority:       req.Priority,
		Enabled:        req.Enabled,
		Conditions:     req.Conditions,
		Actions:        req.Actions,
	}, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, route)
}

// HandleUpdateRoute rewrites an existing route.
// PUT /api/v1/admin/routes/:routeId
func (h *Handler) HandleUpdateRoute(c *gin.Context) {
	var req RouteRequest
	if !h.bindAndValidate(c, &req) {
		return
	}
	orgID, ok := h.getOrgID(c)
	if !ok {
		return
	}
	routeID, ok := h.parseRouteID(c)
	if !ok {
		return
	}

	identity := httpkit.MustGetIdentity(c)
	route, err := h.service.Update(c.Request.Context(), Route{
		ID:             routeID,
		OrganizationID: orgID,
		Name:           req.Name,
		Description:    req.Description,
		Priority:       req.Priority,
		Enabled:        req.Enabled,
		Conditions:     req.Conditions,
		Actions:        req.Actions,
	}, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, route)
}

// HandleDeleteRoute removes a route.
// DELETE /api/v1/admin/routes/:routeId
func (h *Handler) HandleDeleteRoute(c *gin.Context) {
	orgID, ok := h.getOrgID(c)
	if !ok {
		return
	}
	routeID, ok := h.parseRouteID(c)
	if !ok {
		return
	}

	identity := httpkit.MustGetIdentity(c)
	err := h.service.Delete(c.Request.Context(), routeID, orgID, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"message": "route deleted"})
}

// TestRouteRequest carries a synthetic submission for a dry run.
type TestRouteRequest struct {
	FormType  string            `json:"formType" validate:"max=64"`
	Source    string            `json:"source" validate:"max=200"`
	SourceURL string            `json:"sourceUrl" validate:"max=500"`
	Payload   map[string]string `json:"payload" validate:"required,min=1"`
}

// TestRouteMatch reports one route a dry run would dispatch to.
type TestRouteMatch struct {
	RouteID  uuid.UUID `json:"routeId"`
	Name     string    `json:"name"`
	Priority int       `json:"priority"`
	Actions  []string  `json:"actions"`
}

// HandleTestRoutes dry-runs normalize and match against the live
// configuration, reporting which routes and actions would fire without
// dispatching anything.
// POST /api/v1/admin/routes/test
func (h *Handler) HandleTestRoutes(c *gin.Context) {
	var req TestRouteRequest
	if !h.bindAndValidate(c, &req) {
		return
	}
	orgID, ok := h.getOrgID(c)
	if !ok {
		return
	}

	table, err := h.tables.TableFor(c.Request.Context(), orgID)
	if httpkit.HandleError(c, err) {
		return
	}

	payload := make(map[string][]string, len(req.Payload))
	for key, value := range req.Payload {
		payload[key] = []string{value}
	}

	rec, fieldErrs := mapping.Normalize(mapping.Submission{
		SubmissionID:   uuid.New(),
		OrganizationID: orgID,
		Payload:        payload,
		FormType:       req.FormType,
		Source:         req.Source,
		SourceURL:      req.SourceURL,
		ReceivedAt:     time.Now().UTC(),
	}, table)

	matched, err := h.service.MatchFor(c.Request.Context(), orgID, SubmissionMeta{
		FormType:     string(rec.FormType),
		FormID:       rec.RawPayload["form_id"],
		SourceURL:    rec.SourceURL,
		CustomFields: rec.RawPayload,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	matches := make([]TestRouteMatch, 0, len(matched))
	for _, route := range matched {
		matches = append(matches, TestRouteMatch{
			RouteID:  route.ID,
			Name:     route.Name,
			Priority: route.Priority,
			Actions:  enabledActionNames(route.Actions),
		})
	}

	httpkit.OK(c, gin.H{
		"lead":        rec,
		"fieldErrors": fieldErrs,
		"matches":     matches,
	})
}

// HandleExportRoutes serializes the route store as JSON.
// GET /api/v1/admin/routes/export
func (h *Handler) HandleExportRoutes(c *gin.Context) {
	orgID, ok := h.getOrgID(c)
	if !ok {
		return
	}

	payload, err := h.service.Export(c.Request.Context(), orgID)
	if httpkit.HandleError(c, err) {
		return
	}

	c.Header("Content-Disposition", `attachment; filename="routes.json"`)
	c.Data(http.StatusOK, "application/json", payload)
}

// HandleImportRoutes replaces the route store from a JSON export.
// POST /api/v1/admin/routes/import
func (h *Handler) HandleImportRoutes(c *gin.Context) {
	orgID, ok := h.getOrgID(c)
	if !ok {
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	count, err := h.service.Import(c.Request.Context(), orgID, identity.UserID(), payload)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"message": "routes imported", "count": count})
}

// enabledActionNames lists the enabled actions in execution order.
func enabledActionNames(set ActionSet) []string {
	var names []string
	if set.Database.Enabled {
		names = append(names, "database")
	}
	if set.Email.Enabled {
		names = append(names, "email")
	}
	if set.Calendly.Enabled {
		names = append(names, "calendly")
	}
	if set.FollowUpBoss.Enabled {
		names = append(names, "followup_boss")
	}
	return names
}

func (h *Handler) getOrgID(c *gin.Context) (uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	orgID := identity.OrgID()
	if orgID == nil {
		httpkit.Error(c, http.StatusForbidden, errNoOrgContext, nil)
		return uuid.UUID{}, false
	}
	return *orgID, true
}

func (h *Handler) parseRouteID(c *gin.Context) (uuid.UUID, bool) {
	routeID, err := uuid.Parse(c.Param("routeId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRouteID, nil)
		return uuid.UUID{}, false
	}
	return routeID, true
}

func (h *Handler) bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, err.Error())
		return false
	}
	return true
}
