package dispatch

import (
	"net/http"
	"strconv"

	"lead_router_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler exposes the dispatch log to the admin surface.
type LogHandler struct {
	repo *Repository
}

// NewHandler creates a new dispatch handler.
func NewHandler(repo *Repository) *LogHandler {
	return &LogHandler{repo: repo}
}

// HandleListRecent returns the most recent dispatch log rows.
// GET /api/v1/admin/dispatch-log?limit=100
func (h *LogHandler) HandleListRecent(c *gin.Context) {
	orgID, ok := h.getOrgID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	entries, err := h.repo.ListRecent(c.Request.Context(), orgID, limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"entries": entries})
}

// HandleListBySubmission returns the dispatch log for one submission.
// GET /api/v1/admin/dispatch-log/:submissionId
func (h *LogHandler) HandleListBySubmission(c *gin.Context) {
	orgID, ok := h.getOrgID(c)
	if !ok {
		return
	}

	submissionID, err := uuid.Parse(c.Param("submissionId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid submission ID", nil)
		return
	}

	entries, err := h.repo.ListBySubmission(c.Request.Context(), orgID, submissionID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"entries": entries})
}

func (h *LogHandler) getOrgID(c *gin.Context) (uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	orgID := identity.OrgID()
	if orgID == nil {
		httpkit.Error(c, http.StatusForbidden, "no organization context", nil)
		return uuid.UUID{}, false
	}
	return *orgID, true
}
