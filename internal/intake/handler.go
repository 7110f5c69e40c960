package intake

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"lead_router_backend/internal/lead"
	"lead_router_backend/platform/httpkit"
	"lead_router_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	errNoOrgContext   = "no organization context"
	errInvalidRequest = "invalid request body"
	errValidation     = "validation error"
	errInvalidKeyID   = "invalid key ID"

	maxBodyBytes = 1 << 20
)

// Handler handles intake HTTP requests.
type Handler struct {
	service *Service
	repo    *Repository
	leads   *lead.Repository
	val     *validator.Validator
}

// NewHandler creates a new intake handler.
func NewHandler(service *Service, repo *Repository, leads *lead.Repository, val *validator.Validator) *Handler {
	return &Handler{service: service, repo: repo, leads: leads, val: val}
}

// ---- Form Submission (public, API-key authenticated) ----

// submissionEnvelope is the wire shape of the response body.
type submissionEnvelope struct {
	Success bool     `json:"success"`
	Data    Response `json:"data"`
}

// HandleFormSubmission processes an inbound form submission.
// POST /api/v1/intake/forms
// Authenticated via X-Router-API-Key header (set by middleware).
// Accepts application/json, form-encoded, and multipart bodies.
func (h *Handler) HandleFormSubmission(c *gin.Context) {
	orgID, ok := h.getIntakeOrgID(c)
	if !ok {
		return
	}

	sub, ok := h.parseSubmission(c)
	if !ok {
		return
	}

	resp, err := h.service.ProcessSubmission(c.Request.Context(), sub, orgID)
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusOK, submissionEnvelope{Success: resp.Success, Data: resp})
}

// parseSubmission turns the request body into a field multimap. Keys
// the router itself consumes (form metadata) still stay in the map so
// custom-field conditions can see them.
func (h *Handler) parseSubmission(c *gin.Context) (Submission, bool) {
	fields, ok := h.parseFields(c)
	if !ok {
		return Submission{}, false
	}

	keyID, _ := c.Get("intakeKeyID")
	apiKeyID, _ := keyID.(uuid.UUID)

	sub := Submission{
		Fields:       fields,
		FormType:     firstValue(fields, "form_type", "route_type"),
		Source:       firstValue(fields, "source"),
		SourceURL:    firstValue(fields, "source_url", "source_page"),
		SourceDomain: originHost(c),
		APIKeyID:     apiKeyID,
	}
	return sub, true
}

func (h *Handler) parseFields(c *gin.Context) (map[string][]string, bool) {
	contentType := c.ContentType()

	if strings.Contains(contentType, "application/json") {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
			return nil, false
		}
		fields, err := fieldsFromJSON(body)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
			return nil, false
		}
		return fields, true
	}

	// Form-encoded and multipart bodies both land in PostForm.
	if err := c.Request.ParseMultipartForm(maxBodyBytes); err != nil && err != http.ErrNotMultipart {
		if err := c.Request.ParseForm(); err != nil {
			httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
			return nil, false
		}
	}

	fields := make(map[string][]string, len(c.Request.PostForm))
	for key, values := range c.Request.PostForm {
		fields[key] = values
	}
	if len(fields) == 0 {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, "no form fields submitted")
		return nil, false
	}
	return fields, true
}

// fieldsFromJSON flattens a one-level JSON object into the field
// multimap. Scalars become strings; arrays become multi-values.
func fieldsFromJSON(body []byte) (map[string][]string, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no form fields submitted")
	}

	fields := make(map[string][]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case []any:
			for _, item := range v {
				fields[key] = append(fields[key], scalarString(item))
			}
		default:
			fields[key] = []string{scalarString(v)}
		}
	}
	return fields, nil
}

func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		data, _ := json.Marshal(s)
		return string(data)
	}
}

func firstValue(fields map[string][]string, keys ...string) string {
	for _, key := range keys {
		for _, v := range fields[key] {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func originHost(c *gin.Context) string {
	origin := c.GetHeader("Origin")
	if origin == "" {
		origin = c.GetHeader("Referer")
	}
	origin = strings.TrimPrefix(origin, "https://")
	origin = strings.TrimPrefix(origin, "http://")
	if i := strings.IndexByte(origin, '/'); i >= 0 {
		origin = origin[:i]
	}
	return origin
}

// ---- Admin API Key Management (JWT authenticated) ----

// CreateAPIKeyRequest is the request body for creating a new API key.
type CreateAPIKeyRequest struct {
	Name           string   `json:"name" validate:"required,min=1,max=100"`
	AllowedDomains []string `json:"allowedDomains" validate:"max=20,dive,max=200"`
}

// APIKeyResponse is returned when listing or creating API keys.
type APIKeyResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	KeyPrefix      string    `json:"keyPrefix"`
	AllowedDomains []string  `json:"allowedDomains"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      string    `json:"createdAt"`
}

// CreateAPIKeyResponse includes the plaintext key (shown only once).
type CreateAPIKeyResponse struct {
	APIKeyResponse
	Key string `json:"key"` // plaintext, shown only once
}

// HandleCreateAPIKey creates a new intake API key.
// POST /api/v1/admin/intake/keys
func (h *Handler) HandleCreateAPIKey(c *gin.Context) {
	var req CreateAPIKeyRequest
	if !h.bindAndValidate(c, &req) {
		return
	}
	orgID, ok := h.getOrgID(c)
	if !ok {
		return
	}

	plaintext, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to generate API key", nil)
		return
	}

	domains := req.AllowedDomains
	if domains == nil {
		domains = []string{}
	}

	key, err := h.repo.Create(c.Request.Context(), orgID, req.Name, hash, prefix, domains)
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusCreated, CreateAPIKeyResponse{
		APIKeyResponse: toAPIKeyResponse(key),
		Key:            plaintext,
	})
}

// HandleListAPIKeys lists the organization's API keys.
// GET /api/v1/admin/intake/keys
func (h *Handler) HandleListAPIKeys(c *gin.Context) {
	orgID, ok := h.getOrgID(c)
	if !ok {
		return
	}

	keys, err := h.repo.ListByOrganization(c.Request.Context(), orgID)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]APIKeyResponse, 0, len(keys))
	for _, key := range keys {
		out = append(out, toAPIKeyResponse(key))
	}
	httpkit.OK(c, gin.H{"keys": out})
}

// HandleRevokeAPIKey deactivates an API key.
// DELETE /api/v1/admin/intake/keys/:keyId
func (h *Handler) HandleRevokeAPIKey(c *gin.Context) {
	orgID, ok := h.getOrgID(c)
	if !ok {
		return
	}

	keyID, err := uuid.Parse(c.Param("keyId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidKeyID, nil)
		return
	}

	if err := h.repo.Revoke(c.Request.Context(), keyID, orgID); err != nil {
		if err == ErrAPIKeyNotFound {
			httpkit.Error(c, http.StatusNotFound, "API key not found", nil)
			return
		}
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"message": "API key revoked"})
}

// ---- Admin Lead Browsing (JWT authenticated) ----

// HandleListLeads returns the most recent captured leads.
// GET /api/v1/admin/leads?limit=50
func (h *Handler) HandleListLeads(c *gin.Context) {
	orgID, ok := h.getOrgID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	records, err := h.leads.List(c.Request.Context(), orgID, limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"leads": records})
}

// HandleGetLead returns one captured lead.
// GET /api/v1/admin/leads/:leadId
func (h *Handler) HandleGetLead(c *gin.Context) {
	orgID, ok := h.getOrgID(c)
	if !ok {
		return
	}

	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead ID", nil)
		return
	}

	rec, err := h.leads.Get(c.Request.Context(), leadID, orgID)
	if err != nil {
		if err == lead.ErrLeadNotFound {
			httpkit.Error(c, http.StatusNotFound, "lead not found", nil)
			return
		}
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, rec)
}

func toAPIKeyResponse(key APIKey) APIKeyResponse {
	return APIKeyResponse{
		ID:             key.ID,
		Name:           key.Name,
		KeyPrefix:      key.KeyPrefix,
		AllowedDomains: key.AllowedDomains,
		IsActive:       key.IsActive,
		CreatedAt:      key.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
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

func (h *Handler) getIntakeOrgID(c *gin.Context) (uuid.UUID, bool) {
	orgID, ok := c.Get("intakeOrgID")
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "missing organization context", nil)
		return uuid.UUID{}, false
	}
	return orgID.(uuid.UUID), true
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
