package session

import (
	"bytes"
	"encoding/json"
)

// The backend wraps list payloads inconsistently: a bare array, {data:[...]},
// or {data:{data:[...]}}, optionally with pagination metadata alongside.
// Normalization happens once at this boundary; nothing downstream re-inspects
// the shape.

// pagination mirrors the backend's optional list metadata.
type pagination struct {
	CurrentPage  int `json:"current_page"`
	PageSize     int `json:"page_size"`
	TotalPages   int `json:"total_pages"`
	TotalRecords int `json:"total_records"`
}

type listEnvelope struct {
	Data       json.RawMessage `json:"data"`
	Pagination *pagination     `json:"pagination"`
}

// normalizeList flattens any of the accepted list envelopes into the raw JSON
// array. The second return is false when no array could be located.
func normalizeList(body []byte) (json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(body)
	if isJSONArray(trimmed) {
		return trimmed, true
	}

	var outer listEnvelope
	if err := json.Unmarshal(trimmed, &outer); err != nil {
		return nil, false
	}
	inner := bytes.TrimSpace(outer.Data)
	if isJSONArray(inner) {
		return inner, true
	}

	// One more level: {data:{data:[...]}}.
	var nested listEnvelope
	if err := json.Unmarshal(inner, &nested); err != nil {
		return nil, false
	}
	innermost := bytes.TrimSpace(nested.Data)
	if isJSONArray(innermost) {
		return innermost, true
	}

	return nil, false
}

// parsePagination extracts list metadata from wherever the backend put it.
// Absence is normal and returns nil.
func parsePagination(body []byte) *pagination {
	var outer listEnvelope
	if err := json.Unmarshal(bytes.TrimSpace(body), &outer); err != nil {
		return nil
	}
	if outer.Pagination != nil {
		return outer.Pagination
	}
	var nested listEnvelope
	if err := json.Unmarshal(bytes.TrimSpace(outer.Data), &nested); err != nil {
		return nil
	}
	return nested.Pagination
}

// normalizeEntity unwraps a single-entity envelope: either the object itself
// or the object under a "data" key.
func normalizeEntity(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)

	var outer listEnvelope
	if err := json.Unmarshal(trimmed, &outer); err != nil {
		return trimmed
	}
	inner := bytes.TrimSpace(outer.Data)
	if len(inner) > 0 && inner[0] == '{' {
		return inner
	}
	return trimmed
}

func isJSONArray(b []byte) bool {
	return len(b) > 0 && b[0] == '['
}
