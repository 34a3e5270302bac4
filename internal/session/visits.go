package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// CreateVisitParams carries the fields for checking a student in.
type CreateVisitParams struct {
	StudentID     string
	ActiveGroupID string
	CheckInTime   time.Time
}

// CreateVisit checks a student into an active group.
func (c *Client) CreateVisit(ctx context.Context, p CreateVisitParams) (*Visit, error) {
	studentID, err := parseID("student id", p.StudentID)
	if err != nil {
		return nil, err
	}
	groupID, err := parseID("active group id", p.ActiveGroupID)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"student_id":      studentID,
		"active_group_id": groupID,
		"check_in_time":   formatWireTime(p.CheckInTime),
	}
	return c.visitRequest(ctx, http.MethodPost, "/active/visits", body)
}

// Visit fetches a single visit by ID.
func (c *Client) Visit(ctx context.Context, id string) (*Visit, error) {
	return c.visitRequest(ctx, http.MethodGet, "/active/visits/"+id, nil)
}

// ListVisits fetches all visits.
func (c *Client) ListVisits(ctx context.Context) ([]Visit, error) {
	return c.visitListRequest(ctx, "/active/visits")
}

// VisitsByStudent lists all visits of one student.
func (c *Client) VisitsByStudent(ctx context.Context, studentID string) ([]Visit, error) {
	return c.visitListRequest(ctx, "/active/visits/student/"+studentID)
}

// StudentCurrentVisit returns the student's single active visit, or nil when
// none exists. A 404 here is absence, not failure: no visit and no such
// student are the same observable outcome.
func (c *Client) StudentCurrentVisit(ctx context.Context, studentID string) (*Visit, error) {
	path := "/active/visits/student/" + studentID + "/current"
	data, status, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("backend returned status %d for GET %s", status, path)
	}

	var w wireVisit
	if err := json.Unmarshal(normalizeEntity(data), &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal current visit: %w", err)
	}
	visit := c.toVisit(w)
	return &visit, nil
}

// EndVisit checks a student out. An already-ended visit may be rejected by
// the backend; the rejection is surfaced as-is.
func (c *Client) EndVisit(ctx context.Context, id string) (*Visit, error) {
	return c.visitRequest(ctx, http.MethodPost, "/active/visits/"+id+"/end", struct{}{})
}

// DisplayVisits is the bulk presence feed for one active group: one row per
// student with the raw location string and medical flag. A 404 means the
// group has no display data yet and maps to an empty slice.
func (c *Client) DisplayVisits(ctx context.Context, activeGroupID string) ([]StudentLocation, error) {
	path := "/active/groups/" + activeGroupID + "/visits/display"
	data, status, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return []StudentLocation{}, nil
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("backend returned status %d for GET %s", status, path)
	}

	arr, ok := normalizeList(data)
	if !ok {
		c.logf("session: unrecognized display visits envelope for group %s, treating as empty", activeGroupID)
		return []StudentLocation{}, nil
	}

	var wires []wireStudentLocation
	if err := json.Unmarshal(arr, &wires); err != nil {
		return nil, fmt.Errorf("failed to unmarshal display visits: %w", err)
	}
	rows := make([]StudentLocation, 0, len(wires))
	for _, w := range wires {
		rows = append(rows, c.toStudentLocation(w))
	}
	return rows, nil
}

func (c *Client) visitRequest(ctx context.Context, method, path string, body any) (*Visit, error) {
	data, err := c.request(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	var w wireVisit
	if err := json.Unmarshal(normalizeEntity(data), &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal visit: %w", err)
	}
	visit := c.toVisit(w)
	return &visit, nil
}

func (c *Client) visitListRequest(ctx context.Context, path string) ([]Visit, error) {
	arr, err := c.getList(ctx, path)
	if err != nil {
		return nil, err
	}

	var wires []wireVisit
	if err := json.Unmarshal(arr, &wires); err != nil {
		return nil, fmt.Errorf("failed to unmarshal visits: %w", err)
	}
	visits := make([]Visit, 0, len(wires))
	for _, w := range wires {
		visits = append(visits, c.toVisit(w))
	}
	return visits, nil
}
