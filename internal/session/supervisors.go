package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// CreateSupervisorParams carries the fields for assigning staff to a session.
type CreateSupervisorParams struct {
	StaffID       string
	ActiveGroupID string
	Role          string
	StartTime     time.Time
}

// CreateSupervisor assigns a staff member to an active group.
func (c *Client) CreateSupervisor(ctx context.Context, p CreateSupervisorParams) (*Supervisor, error) {
	staffID, err := parseID("staff id", p.StaffID)
	if err != nil {
		return nil, err
	}
	groupID, err := parseID("active group id", p.ActiveGroupID)
	if err != nil {
		return nil, err
	}

	role := p.Role
	if role == "" {
		role = "supervisor"
	}
	body := map[string]any{
		"staff_id":        staffID,
		"active_group_id": groupID,
		"role":            role,
		"start_time":      formatWireTime(p.StartTime),
	}
	return c.supervisorRequest(ctx, http.MethodPost, "/active/supervisors", body)
}

// Supervisor fetches a single supervision record by ID.
func (c *Client) Supervisor(ctx context.Context, id string) (*Supervisor, error) {
	return c.supervisorRequest(ctx, http.MethodGet, "/active/supervisors/"+id, nil)
}

// ListSupervisors fetches all supervision records.
func (c *Client) ListSupervisors(ctx context.Context) ([]Supervisor, error) {
	return c.supervisorListRequest(ctx, "/active/supervisors")
}

// SupervisorsByStaff lists one staff member's supervision records, optionally
// restricted to currently running ones.
func (c *Client) SupervisorsByStaff(ctx context.Context, staffID string, activeOnly bool) ([]Supervisor, error) {
	path := "/active/supervisors/staff/" + staffID
	if activeOnly {
		path += "/active"
	}
	return c.supervisorListRequest(ctx, path)
}

// EndSupervision ends a staff assignment on a session.
func (c *Client) EndSupervision(ctx context.Context, id string) (*Supervisor, error) {
	return c.supervisorRequest(ctx, http.MethodPost, "/active/supervisors/"+id+"/end", struct{}{})
}

func (c *Client) supervisorRequest(ctx context.Context, method, path string, body any) (*Supervisor, error) {
	data, err := c.request(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	var w wireSupervisor
	if err := json.Unmarshal(normalizeEntity(data), &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal supervisor: %w", err)
	}
	sup := c.toSupervisor(w)
	return &sup, nil
}

func (c *Client) supervisorListRequest(ctx context.Context, path string) ([]Supervisor, error) {
	arr, err := c.getList(ctx, path)
	if err != nil {
		return nil, err
	}

	var wires []wireSupervisor
	if err := json.Unmarshal(arr, &wires); err != nil {
		return nil, fmt.Errorf("failed to unmarshal supervisors: %w", err)
	}
	sups := make([]Supervisor, 0, len(wires))
	for _, w := range wires {
		sups = append(sups, c.toSupervisor(w))
	}
	return sups, nil
}
