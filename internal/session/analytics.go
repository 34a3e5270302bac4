package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// AnalyticsCounts reads the aggregate counters over the session graph. Pure
// reporting; no side effects.
func (c *Client) AnalyticsCounts(ctx context.Context) (*AnalyticsCounts, error) {
	data, err := c.request(ctx, http.MethodGet, "/active/analytics/counts", nil)
	if err != nil {
		return nil, err
	}

	var w wireAnalyticsCounts
	if err := json.Unmarshal(normalizeEntity(data), &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analytics counts: %w", err)
	}
	return &AnalyticsCounts{
		ActiveGroups:      w.ActiveGroups,
		ActiveVisits:      w.ActiveVisits,
		ActiveSupervisors: w.ActiveSupervisors,
		CombinedGroups:    w.CombinedGroups,
	}, nil
}

// RoomUtilization reads the usage projection for one room.
func (c *Client) RoomUtilization(ctx context.Context, roomID string) (*RoomUtilization, error) {
	data, err := c.request(ctx, http.MethodGet, "/active/analytics/room/"+roomID+"/utilization", nil)
	if err != nil {
		return nil, err
	}

	var w wireRoomUtilization
	if err := json.Unmarshal(normalizeEntity(data), &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room utilization: %w", err)
	}
	return &RoomUtilization{
		RoomID:        wireID(w.RoomID),
		TotalSessions: w.TotalSessions,
		TotalMinutes:  w.TotalMinutes,
	}, nil
}

// StudentAttendance reads the attendance spans recorded for one student.
func (c *Client) StudentAttendance(ctx context.Context, studentID string) ([]AttendanceEntry, error) {
	arr, err := c.getList(ctx, "/active/analytics/student/"+studentID+"/attendance")
	if err != nil {
		return nil, err
	}

	var wires []wireAttendanceEntry
	if err := json.Unmarshal(arr, &wires); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attendance entries: %w", err)
	}
	entries := make([]AttendanceEntry, 0, len(wires))
	for _, w := range wires {
		entries = append(entries, c.toAttendanceEntry(w))
	}
	return entries, nil
}
