package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hort-presence-backend/internal/model"
)

// GroupResponse represents the API response for a single group.
type GroupResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	TotalStudents int64  `json:"totalStudents"`
	PresentNow    int64  `json:"presentNow"`
}

// GetGroups handles the GET /api/groups request.
func GetGroups(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var groups []model.Group
		if err := db.Find(&groups).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve groups"})
			return
		}

		type aggRow struct {
			GroupID string
			Count   int64
		}

		var totals []aggRow
		if err := db.
			Model(&model.Student{}).
			Select("group_id as group_id, COUNT(*) as count").
			Group("group_id").
			Scan(&totals).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate students"})
			return
		}

		// Students with an open row in a room count as present; schoolyard,
		// transit and sick-at-home rows do not.
		var present []aggRow
		if err := db.
			Model(&model.PresenceOpen{}).
			Select("students.group_id as group_id, COUNT(*) as count").
			Joins("JOIN students ON students.id = presence_opens.student_id").
			Where("presence_opens.kind = ?", "present_in_room").
			Group("students.group_id").
			Scan(&present).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate presence"})
			return
		}

		totalMap := make(map[string]int64, len(totals))
		for _, a := range totals {
			totalMap[a.GroupID] = a.Count
		}
		presentMap := make(map[string]int64, len(present))
		for _, a := range present {
			presentMap[a.GroupID] = a.Count
		}

		responses := make([]GroupResponse, 0, len(groups))
		for _, g := range groups {
			responses = append(responses, GroupResponse{
				ID:            g.ID,
				Name:          g.Name,
				TotalStudents: totalMap[g.ID],
				PresentNow:    presentMap[g.ID],
			})
		}
		c.JSON(http.StatusOK, responses)
	}
}
