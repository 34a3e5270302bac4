package session

import (
	"fmt"
	"strconv"
	"time"
)

// Wire forms use the backend's conventions (snake_case keys, numeric IDs,
// string timestamps). Translation into the in-process model (string IDs,
// camelCase, time.Time) happens here and nowhere else.

type wireActiveGroup struct {
	ID              int64   `json:"id"`
	GroupID         int64   `json:"group_id"`
	GroupName       string  `json:"group_name"`
	RoomID          int64   `json:"room_id"`
	StartTime       string  `json:"start_time"`
	EndTime         *string `json:"end_time"`
	Notes           string  `json:"notes"`
	VisitCount      int     `json:"visit_count"`
	SupervisorCount int     `json:"supervisor_count"`
}

type wireVisit struct {
	ID            int64   `json:"id"`
	StudentID     int64   `json:"student_id"`
	ActiveGroupID int64   `json:"active_group_id"`
	CheckInTime   string  `json:"check_in_time"`
	CheckOutTime  *string `json:"check_out_time"`
}

type wireSupervisor struct {
	ID            int64   `json:"id"`
	StaffID       int64   `json:"staff_id"`
	ActiveGroupID int64   `json:"active_group_id"`
	Role          string  `json:"role"`
	StartTime     string  `json:"start_time"`
	EndTime       *string `json:"end_time"`
}

type wireCombinedGroup struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	RoomID    int64   `json:"room_id"`
	StartTime string  `json:"start_time"`
	EndTime   *string `json:"end_time"`
}

type wireGroupMapping struct {
	ActiveGroupID   int64 `json:"active_group_id"`
	CombinedGroupID int64 `json:"combined_group_id"`
}

type wireStudentLocation struct {
	StudentID       int64   `json:"student_id"`
	DisplayName     string  `json:"display_name"`
	CurrentLocation string  `json:"current_location"`
	LocationSince   *string `json:"location_since"`
	GroupID         int64   `json:"group_id"`
	GroupName       string  `json:"group_name"`
	Sick            bool    `json:"sick"`
	SickSince       *string `json:"sick_since"`
}

type wireAnalyticsCounts struct {
	ActiveGroups      int `json:"active_groups"`
	ActiveVisits      int `json:"active_visits"`
	ActiveSupervisors int `json:"active_supervisors"`
	CombinedGroups    int `json:"combined_groups"`
}

type wireRoomUtilization struct {
	RoomID        int64 `json:"room_id"`
	TotalSessions int   `json:"total_sessions"`
	TotalMinutes  int   `json:"total_minutes"`
}

type wireAttendanceEntry struct {
	ActiveGroupID int64   `json:"active_group_id"`
	CheckInTime   string  `json:"check_in_time"`
	CheckOutTime  *string `json:"check_out_time"`
}

// timestampLayout is the backend's legacy timestamp format, interpreted in the
// configured timezone when a value is not RFC3339.
const timestampLayout = "2006-01-02 15:04:05"

// parseTime converts a backend timestamp. Empty and nil map to nil.
func (c *Client) parseTime(value *string) *time.Time {
	if value == nil || *value == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, *value); err == nil {
		return &t
	}
	t, err := time.ParseInLocation(timestampLayout, *value, c.loc)
	if err != nil {
		c.logf("session: could not parse timestamp %q: %v", *value, err)
		return nil
	}
	return &t
}

// mustTime is parseTime for required fields; an unparseable required timestamp
// degrades to the zero time rather than dropping the record.
func (c *Client) mustTime(value string) time.Time {
	if t := c.parseTime(&value); t != nil {
		return *t
	}
	return time.Time{}
}

func formatWireTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func wireID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// wireOptionalID maps the backend's zero value to "no reference".
func wireOptionalID(id int64) string {
	if id == 0 {
		return ""
	}
	return wireID(id)
}

// parseID converts an in-process string ID to the backend's numeric form.
func parseID(field, id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, id, err)
	}
	return n, nil
}

func (c *Client) toActiveGroup(w wireActiveGroup) ActiveGroup {
	end := c.parseTime(w.EndTime)
	return ActiveGroup{
		ID:              wireID(w.ID),
		GroupID:         wireID(w.GroupID),
		GroupName:       w.GroupName,
		RoomID:          wireID(w.RoomID),
		StartTime:       c.mustTime(w.StartTime),
		EndTime:         end,
		IsActive:        end == nil,
		Notes:           w.Notes,
		VisitCount:      w.VisitCount,
		SupervisorCount: w.SupervisorCount,
	}
}

func (c *Client) toVisit(w wireVisit) Visit {
	out := c.parseTime(w.CheckOutTime)
	return Visit{
		ID:            wireID(w.ID),
		StudentID:     wireID(w.StudentID),
		ActiveGroupID: wireID(w.ActiveGroupID),
		CheckInTime:   c.mustTime(w.CheckInTime),
		CheckOutTime:  out,
		IsActive:      out == nil,
	}
}

func (c *Client) toSupervisor(w wireSupervisor) Supervisor {
	end := c.parseTime(w.EndTime)
	return Supervisor{
		ID:            wireID(w.ID),
		StaffID:       wireID(w.StaffID),
		ActiveGroupID: wireID(w.ActiveGroupID),
		Role:          w.Role,
		StartTime:     c.mustTime(w.StartTime),
		EndTime:       end,
		IsActive:      end == nil,
	}
}

func (c *Client) toCombinedGroup(w wireCombinedGroup) CombinedGroup {
	return CombinedGroup{
		ID:        wireID(w.ID),
		Name:      w.Name,
		RoomID:    wireID(w.RoomID),
		StartTime: c.mustTime(w.StartTime),
		IsActive:  c.parseTime(w.EndTime) == nil,
	}
}

func toGroupMapping(w wireGroupMapping) GroupMapping {
	return GroupMapping{
		ActiveGroupID:   wireID(w.ActiveGroupID),
		CombinedGroupID: wireID(w.CombinedGroupID),
	}
}

func (c *Client) toStudentLocation(w wireStudentLocation) StudentLocation {
	return StudentLocation{
		StudentID:       wireID(w.StudentID),
		DisplayName:     w.DisplayName,
		CurrentLocation: w.CurrentLocation,
		LocationSince:   c.parseTime(w.LocationSince),
		GroupID:         wireOptionalID(w.GroupID),
		GroupName:       w.GroupName,
		Sick:            w.Sick,
		SickSince:       c.parseTime(w.SickSince),
	}
}

func (c *Client) toAttendanceEntry(w wireAttendanceEntry) AttendanceEntry {
	return AttendanceEntry{
		ActiveGroupID: wireID(w.ActiveGroupID),
		CheckInTime:   c.mustTime(w.CheckInTime),
		CheckOutTime:  c.parseTime(w.CheckOutTime),
	}
}
