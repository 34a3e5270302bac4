package session

import "encoding/json"

// The unclaimed-groups endpoint has shipped several envelope generations:
// bare arrays, data wrappers, items wrappers, and metadata-only bodies when
// nothing is unclaimed. The reconciler detects the shape exactly once and
// resolves it into a flat list; downstream code never re-inspects the payload.

// payloadShape is the outcome of shape detection on an unclaimed payload.
type payloadShape int

const (
	shapeArray payloadShape = iota
	shapeEmpty
	shapeUnrecognized
)

// metadataKeys are envelope bookkeeping fields that carry no entities. A body
// made of only these (plus empty or absent data/items) is legitimately empty.
var metadataKeys = map[string]bool{
	"status":     true,
	"message":    true,
	"success":    true,
	"code":       true,
	"meta":       true,
	"pagination": true,
}

// ParseUnclaimedPayload normalizes a raw unclaimed-groups payload into a flat
// list of active groups. A genuinely empty payload returns an empty slice
// silently; an unrecognized shape also returns an empty slice but emits one
// diagnostic, so an upstream drift is observable without being fatal.
func (c *Client) ParseUnclaimedPayload(raw []byte) []ActiveGroup {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		c.logf("session: unclaimed payload is not valid JSON: %v", err)
		return []ActiveGroup{}
	}

	items, shape := detectShape(decoded)
	switch shape {
	case shapeEmpty:
		return []ActiveGroup{}
	case shapeUnrecognized:
		c.logf("session: unrecognized unclaimed payload shape, treating as empty")
		return []ActiveGroup{}
	}

	// Round-trip the located items through the wire decoder so field
	// translation stays in one place.
	encoded, err := json.Marshal(items)
	if err != nil {
		c.logf("session: failed to re-encode unclaimed items: %v", err)
		return []ActiveGroup{}
	}
	var wires []wireActiveGroup
	if err := json.Unmarshal(encoded, &wires); err != nil {
		c.logf("session: unclaimed items do not decode as active groups: %v", err)
		return []ActiveGroup{}
	}

	groups := make([]ActiveGroup, 0, len(wires))
	for _, w := range wires {
		groups = append(groups, c.toActiveGroup(w))
	}
	return groups
}

// detectShape recursively unwraps "data" then "items" wrappers until an array
// is found. Metadata-only objects with empty wrappers classify as empty.
func detectShape(v any) ([]any, payloadShape) {
	switch t := v.(type) {
	case nil:
		return nil, shapeEmpty
	case []any:
		return t, shapeArray
	case map[string]any:
		if inner, ok := t["data"]; ok {
			if items, shape := detectShape(inner); shape != shapeUnrecognized {
				return items, shape
			}
		}
		if inner, ok := t["items"]; ok {
			if items, shape := detectShape(inner); shape != shapeUnrecognized {
				return items, shape
			}
		}
		if isEffectivelyEmpty(t) {
			return nil, shapeEmpty
		}
	}
	return nil, shapeUnrecognized
}

// isEffectivelyEmpty reports whether an object carries only envelope metadata
// and empty (or absent) data/items wrappers.
func isEffectivelyEmpty(obj map[string]any) bool {
	for key, value := range obj {
		if metadataKeys[key] {
			continue
		}
		if key == "data" || key == "items" {
			if isEmptyValue(value) {
				continue
			}
			return false
		}
		return false
	}
	return true
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
