package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// CreateCombinedGroupParams carries the fields for merging room occupancy.
type CreateCombinedGroupParams struct {
	Name      string
	RoomID    string
	StartTime time.Time
}

// CreateCombinedGroup opens a combined group: one physical space shared by
// several active groups.
func (c *Client) CreateCombinedGroup(ctx context.Context, p CreateCombinedGroupParams) (*CombinedGroup, error) {
	roomID, err := parseID("room id", p.RoomID)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"name":       p.Name,
		"room_id":    roomID,
		"start_time": formatWireTime(p.StartTime),
	}
	return c.combinedGroupRequest(ctx, http.MethodPost, "/active/combined", body)
}

// CombinedGroup fetches a single combined group by ID.
func (c *Client) CombinedGroup(ctx context.Context, id string) (*CombinedGroup, error) {
	return c.combinedGroupRequest(ctx, http.MethodGet, "/active/combined/"+id, nil)
}

// ListCombinedGroups fetches combined groups, optionally only running ones.
func (c *Client) ListCombinedGroups(ctx context.Context, activeOnly bool) ([]CombinedGroup, error) {
	path := "/active/combined"
	if activeOnly {
		path += "/active"
	}

	arr, err := c.getList(ctx, path)
	if err != nil {
		return nil, err
	}

	var wires []wireCombinedGroup
	if err := json.Unmarshal(arr, &wires); err != nil {
		return nil, fmt.Errorf("failed to unmarshal combined groups: %w", err)
	}
	groups := make([]CombinedGroup, 0, len(wires))
	for _, w := range wires {
		groups = append(groups, c.toCombinedGroup(w))
	}
	return groups, nil
}

// EndCombinedGroup dissolves a combined group.
func (c *Client) EndCombinedGroup(ctx context.Context, id string) (*CombinedGroup, error) {
	return c.combinedGroupRequest(ctx, http.MethodPost, "/active/combined/"+id+"/end", struct{}{})
}

// AddGroupToCombination maps an active group into a combined group. A group
// may belong to at most one combined group at a time; callers must remove it
// from a previous combination first, the backend does not do it for them.
func (c *Client) AddGroupToCombination(ctx context.Context, activeGroupID, combinedGroupID string) error {
	return c.mappingRequest(ctx, "/active/mappings/add", activeGroupID, combinedGroupID)
}

// RemoveGroupFromCombination removes an active group from a combined group.
func (c *Client) RemoveGroupFromCombination(ctx context.Context, activeGroupID, combinedGroupID string) error {
	return c.mappingRequest(ctx, "/active/mappings/remove", activeGroupID, combinedGroupID)
}

// MappingsByGroup lists the combination memberships of an active group.
func (c *Client) MappingsByGroup(ctx context.Context, activeGroupID string) ([]GroupMapping, error) {
	arr, err := c.getList(ctx, "/active/mappings/group/"+activeGroupID)
	if err != nil {
		return nil, err
	}

	var wires []wireGroupMapping
	if err := json.Unmarshal(arr, &wires); err != nil {
		return nil, fmt.Errorf("failed to unmarshal group mappings: %w", err)
	}
	mappings := make([]GroupMapping, 0, len(wires))
	for _, w := range wires {
		mappings = append(mappings, toGroupMapping(w))
	}
	return mappings, nil
}

func (c *Client) mappingRequest(ctx context.Context, path, activeGroupID, combinedGroupID string) error {
	groupID, err := parseID("active group id", activeGroupID)
	if err != nil {
		return err
	}
	combinedID, err := parseID("combined group id", combinedGroupID)
	if err != nil {
		return err
	}

	body := map[string]any{
		"active_group_id":   groupID,
		"combined_group_id": combinedID,
	}
	_, err = c.request(ctx, http.MethodPost, path, body)
	return err
}

func (c *Client) combinedGroupRequest(ctx context.Context, method, path string, body any) (*CombinedGroup, error) {
	data, err := c.request(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	var w wireCombinedGroup
	if err := json.Unmarshal(normalizeEntity(data), &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal combined group: %w", err)
	}
	group := c.toCombinedGroup(w)
	return &group, nil
}
