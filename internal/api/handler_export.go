package api

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"hort-presence-backend/internal/model"
)

// ExportAttendance handles GET /api/attendance/export. It renders the
// archived presence spans of a date range as an xlsx workbook, optionally
// filtered to one group.
func (h *Handler) ExportAttendance(c *gin.Context) {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'from' timestamp format. Use RFC3339."})
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'to' timestamp format. Use RFC3339."})
		return
	}
	if !from.Before(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'from' must be before 'to'"})
		return
	}

	type exportRow struct {
		StudentID   string
		DisplayName string
		GroupName   string
		RawLocation string
		Kind        string
		Sick        bool
		PeriodStart time.Time
		PeriodEnd   time.Time
	}

	query := h.store.DB().
		Model(&model.PresenceHistory{}).
		Select("presence_histories.student_id, students.display_name, groups.name as group_name, "+
			"presence_histories.raw_location, presence_histories.kind, presence_histories.sick, "+
			"presence_histories.period_start, presence_histories.period_end").
		Joins("JOIN students ON students.id = presence_histories.student_id").
		Joins("LEFT JOIN groups ON groups.id = students.group_id").
		Where("presence_histories.period_start < ? AND presence_histories.period_end > ?", to, from).
		Order("presence_histories.period_start ASC")

	if groupID := c.Query("group_id"); groupID != "" {
		query = query.Where("students.group_id = ?", groupID)
	}

	var rows []exportRow
	if err := query.Scan(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query attendance history"})
		return
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Error closing workbook: %v", err)
		}
	}()

	const sheet = "Anwesenheit"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build workbook"})
		return
	}

	header := []any{"Schüler-ID", "Name", "Gruppe", "Aufenthaltsort", "Kategorie", "Krank", "Von", "Bis"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build workbook"})
		return
	}

	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+2)
		values := []any{
			row.StudentID,
			row.DisplayName,
			row.GroupName,
			row.RawLocation,
			row.Kind,
			row.Sick,
			row.PeriodStart.Format(time.RFC3339),
			row.PeriodEnd.Format(time.RFC3339),
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build workbook"})
			return
		}
	}

	filename := fmt.Sprintf("anwesenheit_%s_%s.xlsx", from.Format("2006-01-02"), to.Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := f.Write(c.Writer); err != nil {
		log.Printf("Error streaming attendance export: %v", err)
	}
}
