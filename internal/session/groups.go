package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// CreateActiveGroupParams carries the fields for opening an occupancy session.
type CreateActiveGroupParams struct {
	GroupID   string
	RoomID    string
	StartTime time.Time
	Notes     string
}

// CreateActiveGroup opens an occupancy session for a group in a room.
func (c *Client) CreateActiveGroup(ctx context.Context, p CreateActiveGroupParams) (*ActiveGroup, error) {
	groupID, err := parseID("group id", p.GroupID)
	if err != nil {
		return nil, err
	}
	roomID, err := parseID("room id", p.RoomID)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"group_id":   groupID,
		"room_id":    roomID,
		"start_time": formatWireTime(p.StartTime),
		"notes":      p.Notes,
	}
	return c.activeGroupRequest(ctx, http.MethodPost, "/active/groups", body)
}

// ActiveGroup fetches a single occupancy session by ID.
func (c *Client) ActiveGroup(ctx context.Context, id string) (*ActiveGroup, error) {
	return c.activeGroupRequest(ctx, http.MethodGet, "/active/groups/"+id, nil)
}

// ListActiveGroups fetches all occupancy sessions, following pagination when
// the backend reports it. The loop advances from the locally requested page,
// not the echoed current_page: some deployments echo a stale value and would
// otherwise loop forever.
func (c *Client) ListActiveGroups(ctx context.Context) ([]ActiveGroup, error) {
	var all []ActiveGroup
	for page := 1; ; page++ {
		path := fmt.Sprintf("/active/groups?page=%d&page_size=%d", page, c.pageSize)
		data, err := c.request(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}

		groups, err := c.decodeActiveGroupList(data)
		if err != nil {
			return nil, err
		}
		all = append(all, groups...)

		pg := parsePagination(data)
		if pg == nil || page >= pg.TotalPages {
			break
		}
	}
	return all, nil
}

// ActiveGroupsByRoom lists sessions occupying the given room.
func (c *Client) ActiveGroupsByRoom(ctx context.Context, roomID string) ([]ActiveGroup, error) {
	return c.activeGroupListRequest(ctx, "/active/groups/room/"+roomID)
}

// ActiveGroupsByGroup lists sessions held by the given educational group.
func (c *Client) ActiveGroupsByGroup(ctx context.Context, groupID string) ([]ActiveGroup, error) {
	return c.activeGroupListRequest(ctx, "/active/groups/group/"+groupID)
}

// UpdateActiveGroup replaces the mutable fields of a session.
func (c *Client) UpdateActiveGroup(ctx context.Context, id string, notes string) (*ActiveGroup, error) {
	body := map[string]any{"notes": notes}
	return c.activeGroupRequest(ctx, http.MethodPut, "/active/groups/"+id, body)
}

// DeleteActiveGroup removes a session entirely. Ending is usually what you
// want; deletion exists for sessions created in error.
func (c *Client) DeleteActiveGroup(ctx context.Context, id string) error {
	_, err := c.request(ctx, http.MethodDelete, "/active/groups/"+id, nil)
	return err
}

// EndActiveGroup stops a running session. The backend is authoritative: ending
// an already-ended group may be rejected, and that rejection is surfaced
// unchanged rather than suppressed.
func (c *Client) EndActiveGroup(ctx context.Context, id string) (*ActiveGroup, error) {
	return c.activeGroupRequest(ctx, http.MethodPost, "/active/groups/"+id+"/end", struct{}{})
}

// UnclaimedActiveGroups lists sessions with no assigned supervisor. The
// payload shape of this endpoint has drifted before, so it goes through the
// dedicated reconciler instead of the plain list decoder.
func (c *Client) UnclaimedActiveGroups(ctx context.Context) ([]ActiveGroup, error) {
	data, err := c.request(ctx, http.MethodGet, "/active/groups/unclaimed", nil)
	if err != nil {
		return nil, err
	}
	return c.ParseUnclaimedPayload(data), nil
}

// ClaimActiveGroup takes the supervisor role on an unclaimed session for the
// calling staff member. No device binding is required. Exclusivity between
// racing claimants is the backend's concern; a failed claim comes back as a
// normal error the caller may retry.
func (c *Client) ClaimActiveGroup(ctx context.Context, id string) (*Supervisor, error) {
	body := map[string]any{"role": "supervisor"}
	data, err := c.request(ctx, http.MethodPost, "/active/groups/"+id+"/claim", body)
	if err != nil {
		return nil, err
	}

	var w wireSupervisor
	if err := json.Unmarshal(normalizeEntity(data), &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal claim response: %w", err)
	}
	sup := c.toSupervisor(w)
	return &sup, nil
}

func (c *Client) activeGroupRequest(ctx context.Context, method, path string, body any) (*ActiveGroup, error) {
	data, err := c.request(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	var w wireActiveGroup
	if err := json.Unmarshal(normalizeEntity(data), &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal active group: %w", err)
	}
	group := c.toActiveGroup(w)
	return &group, nil
}

func (c *Client) activeGroupListRequest(ctx context.Context, path string) ([]ActiveGroup, error) {
	arr, err := c.getList(ctx, path)
	if err != nil {
		return nil, err
	}
	return c.unmarshalActiveGroups(arr)
}

func (c *Client) decodeActiveGroupList(data []byte) ([]ActiveGroup, error) {
	arr, ok := normalizeList(data)
	if !ok {
		c.logf("session: unrecognized active group list envelope, treating as empty")
		return nil, nil
	}
	return c.unmarshalActiveGroups(arr)
}

func (c *Client) unmarshalActiveGroups(arr json.RawMessage) ([]ActiveGroup, error) {
	var wires []wireActiveGroup
	if err := json.Unmarshal(arr, &wires); err != nil {
		return nil, fmt.Errorf("failed to unmarshal active groups: %w", err)
	}
	groups := make([]ActiveGroup, 0, len(wires))
	for _, w := range wires {
		groups = append(groups, c.toActiveGroup(w))
	}
	return groups, nil
}
