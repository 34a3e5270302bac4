package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hort-presence-backend/internal/session"
)

// The session endpoints proxy writes and live reads to the group/session
// backend. The backend stays authoritative: its rejections (ending an ended
// session, losing a claim race) come back as 502 with the upstream reason
// and the client may retry.

// ListSessions handles GET /api/sessions.
func (h *Handler) ListSessions(c *gin.Context) {
	groups, err := h.backend.ListActiveGroups(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, groups)
}

// ListUnclaimedSessions handles GET /api/sessions/unclaimed.
func (h *Handler) ListUnclaimedSessions(c *gin.Context) {
	groups, err := h.backend.UnclaimedActiveGroups(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, groups)
}

// ClaimSession handles POST /api/sessions/{id}/claim.
func (h *Handler) ClaimSession(c *gin.Context) {
	supervisor, err := h.backend.ClaimActiveGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, supervisor)
}

// EndSession handles POST /api/sessions/{id}/end.
func (h *Handler) EndSession(c *gin.Context) {
	group, err := h.backend.EndActiveGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, group)
}

type createVisitRequest struct {
	StudentID     string `json:"student_id" binding:"required"`
	ActiveGroupID string `json:"active_group_id" binding:"required"`
}

// CreateVisit handles POST /api/visits: it checks a student into a session.
func (h *Handler) CreateVisit(c *gin.Context) {
	var req createVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	visit, err := h.backend.CreateVisit(c.Request.Context(), session.CreateVisitParams{
		StudentID:     req.StudentID,
		ActiveGroupID: req.ActiveGroupID,
		CheckInTime:   time.Now().UTC(),
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, visit)
}

// EndVisit handles POST /api/visits/{id}/end: it checks a student out.
func (h *Handler) EndVisit(c *gin.Context) {
	visit, err := h.backend.EndVisit(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, visit)
}

// GetAnalyticsCounts handles GET /api/analytics/counts.
func (h *Handler) GetAnalyticsCounts(c *gin.Context) {
	counts, err := h.backend.AnalyticsCounts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, counts)
}
