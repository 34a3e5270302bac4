package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hort-presence-backend/internal/model"
	"hort-presence-backend/internal/visibility"
)

// rosterEntry is one resolved roster row. Only the resolved label leaves the
// server; the raw location string never does.
type rosterEntry struct {
	StudentID   string           `json:"studentId"`
	DisplayName string           `json:"displayName"`
	Label       visibility.Label `json:"label"`
	Color       string           `json:"color"`
	Glow        string           `json:"glow"`
	ObservedAt  time.Time        `json:"observedAt"`
}

// viewerScope carries the per-request viewer parameters.
type viewerScope struct {
	mode            visibility.DisplayMode
	viewerGroups    []string
	supervisedRooms []string
	groupRooms      []string
}

func scopeFromQuery(c *gin.Context) viewerScope {
	mode := visibility.DisplayMode(c.DefaultQuery("mode", string(visibility.ModeContextAware)))
	return viewerScope{
		mode:            mode,
		viewerGroups:    splitParam(c.Query("viewer_groups")),
		supervisedRooms: splitParam(c.Query("supervised_rooms")),
		groupRooms:      splitParam(c.Query("group_rooms")),
	}
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// GetGroupRoster handles the GET /api/groups/{group_id}/students request.
func GetGroupRoster(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		groupID := c.Param("group_id")
		scope := scopeFromQuery(c)

		atParam := c.Query("at")
		if atParam == "" {
			getCurrentRoster(c, db, groupID, scope)
		} else {
			getHistoricalRoster(c, db, groupID, scope, atParam)
		}
	}
}

func getCurrentRoster(c *gin.Context, db *gorm.DB, groupID string, scope viewerScope) {
	var students []model.Student
	if err := db.Where("group_id = ?", groupID).Find(&students).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve students"})
		return
	}

	var group model.Group
	if err := db.First(&group, "id = ?", groupID).Error; err != nil && err != gorm.ErrRecordNotFound {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve group"})
		return
	}

	studentIDs := make([]string, len(students))
	for i, st := range students {
		studentIDs[i] = st.ID
	}
	var openRows []model.PresenceOpen
	if len(studentIDs) > 0 {
		db.Where("student_id IN ?", studentIDs).Find(&openRows)
	}
	openMap := make(map[string]model.PresenceOpen, len(openRows))
	for _, row := range openRows {
		openMap[row.StudentID] = row
	}

	now := time.Now().UTC()
	response := make([]rosterEntry, 0, len(students))
	for _, st := range students {
		// No open row means home and well.
		raw := "Zuhause"
		sick := false
		observedAt := now
		if open, ok := openMap[st.ID]; ok {
			raw = open.RawLocation
			sick = open.Sick
			observedAt = open.ObservedAt
		}
		response = append(response, resolveEntry(st, group.Name, raw, sick, observedAt, scope))
	}
	c.JSON(http.StatusOK, response)
}

func getHistoricalRoster(c *gin.Context, db *gorm.DB, groupID string, scope viewerScope, atParam string) {
	at, err := time.Parse(time.RFC3339, atParam)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid 'at' timestamp format. Use RFC3339."})
		return
	}

	var students []model.Student
	if err := db.Where("group_id = ?", groupID).Find(&students).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve students"})
		return
	}

	var group model.Group
	if err := db.First(&group, "id = ?", groupID).Error; err != nil && err != gorm.ErrRecordNotFound {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve group"})
		return
	}

	response := make([]rosterEntry, 0, len(students))
	for _, st := range students {
		var span model.PresenceHistory
		err := db.Where("student_id = ? AND period_start <= ? AND period_end > ?", st.ID, at, at).
			Order("period_start DESC").
			First(&span).Error

		if err == gorm.ErrRecordNotFound {
			// No span covering the instant: the student was home and well.
			response = append(response, resolveEntry(st, group.Name, "Zuhause", false, at, scope))
			continue
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Database error during historical lookup"})
			return
		}

		response = append(response, resolveEntry(st, group.Name, span.RawLocation, span.Sick, span.PeriodStart, scope))
	}

	c.JSON(http.StatusOK, response)
}

func resolveEntry(st model.Student, groupName, raw string, sick bool, observedAt time.Time, scope viewerScope) rosterEntry {
	label := visibility.Resolve(visibility.StudentContext{
		CurrentLocation: raw,
		GroupID:         st.GroupID,
		GroupName:       groupName,
		Sick:            sick,
	}, scope.mode, scope.viewerGroups, scope.supervisedRooms)

	color := visibility.Color(raw, scope.mode, scope.groupRooms)

	return rosterEntry{
		StudentID:   st.ID,
		DisplayName: st.DisplayName,
		Label:       label,
		Color:       string(color),
		Glow:        visibility.GlowEffect(color),
		ObservedAt:  observedAt,
	}
}
