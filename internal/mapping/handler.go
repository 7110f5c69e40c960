package mapping

import (
	"net/http"

	"lead_router_backend/platform/httpkit"
	"lead_router_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	errNoOrgContext   = "no organization context"
	errInvalidRequest = "invalid request body"
	errValidation     = "validation error"
)

// Handler handles field mapping admin HTTP requests.
type Handler struct {
	service *Service
	val     *validator.Validator
}

// NewHandler creates a new mapping handler.
func NewHandler(service *Service, val *validator.Validator) *Handler {
	return &Handler{service: service, val: val}
}

// MappingResponse is the wire representation of one field mapping.
type MappingResponse struct {
	Key        string   `json:"key"`
	Sources    []string `json:"sources"`
	Transform  string   `json:"transform"`
	Validation string   `json:"validation"`
	Required   bool     `json:"required"`
}

// ReplaceMappingsRequest replaces the organization's whole mapping table.
type ReplaceMappingsRequest struct {
	Mappings []MappingRequest `json:"mappings" validate:"required,min=1,max=50,dive"`
}

// MappingRequest is one mapping entry in a replace request.
type MappingRequest struct {
	Key        string   `json:"key" validate:"required,min=1,max=100"`
	Sources    []string `json:"sources" validate:"required,min=1,max=30,dive,min=1,max=200"`
	Transform  string   `json:"transform" validate:"omitempty,oneof=none split_name format_phone normalize_email"`
	Validation string   `json:"validation" validate:"omitempty,oneof=none required email phone"`
	Required   bool     `json:"required"`
}

// HandleListMappings returns the active mapping table.
// GET /api/v1/admin/mappings
func (h *Handler) HandleListMappings(c *gin.Context) {
	orgID, ok := h.getOrgID(c)
	if !ok {
		return
	}

	mappings, err := h.service.List(c.Request.Context(), orgID)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]MappingResponse, 0, len(mappings))
	for _, m := range mappings {
		out = append(out, MappingResponse{
			Key:        m.Key,
			Sources:    m.Sources,
			Transform:  string(m.Transform),
			Validation: string(m.Validation),
			Required:   m.Required,
		})
	}
	httpkit.OK(c, gin.H{"mappings": out})
}

// HandleReplaceMappings replaces the organization's mapping table.
// PUT /api/v1/admin/mappings
func (h *Handler) HandleReplaceMappings(c *gin.Context) {
	var req ReplaceMappingsRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	orgID, ok := h.getOrgID(c)
	if !ok {
		return
	}

	mappings := make([]FieldMapping, 0, len(req.Mappings))
	for _, m := range req.Mappings {
		mappings = append(mappings, FieldMapping{
			Key:        m.Key,
			Sources:    m.Sources,
			Transform:  Transform(m.Transform),
			Validation: Validation(m.Validation),
			Required:   m.Required,
		})
	}

	identity := httpkit.MustGetIdentity(c)
	err := h.service.Replace(c.Request.Context(), orgID, identity.UserID(), mappings)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"message": "field mappings updated"})
}

// HandleResetMappings reverts the organization to the default table.
// DELETE /api/v1/admin/mappings
func (h *Handler) HandleResetMappings(c *gin.Context) {
	orgID, ok := h.getOrgID(c)
	if !ok {
		return
	}

	identity := httpkit.MustGetIdentity(c)
	err := h.service.Reset(c.Request.Context(), orgID, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"message": "field mappings reset to defaults"})
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
