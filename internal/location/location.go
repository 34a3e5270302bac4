package location

import "strings"

// Kind enumerates the recognized spatial states of a student.
type Kind string

const (
	KindHome          Kind = "home"
	KindTransit       Kind = "transit"
	KindSchoolyard    Kind = "schoolyard"
	KindPresentInRoom Kind = "present_in_room"
)

// Raw status tokens as produced by the group/session backend.
const (
	presentPrefix   = "Anwesend - "
	tokenHome       = "Zuhause"
	tokenSchoolyard = "Schulhof"
	tokenTransit    = "Unterwegs"
)

// Status is the structured form of a raw location string. Exactly one Kind is
// active at a time; RoomName is set only for KindPresentInRoom. A sick flag is
// an overlay carried by the student snapshot, never a Kind.
type Status struct {
	Kind     Kind
	RoomName string
}

// Parse turns a raw backend location string into a Status. It is total:
// unrecognized input (including the empty string) degrades to KindHome rather
// than failing, so a drifting upstream value can never take a roster down.
func Parse(raw string) Status {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, presentPrefix) {
		return Status{
			Kind:     KindPresentInRoom,
			RoomName: strings.TrimSpace(strings.TrimPrefix(s, presentPrefix)),
		}
	}

	switch s {
	case tokenHome:
		return Status{Kind: KindHome}
	case tokenSchoolyard:
		return Status{Kind: KindSchoolyard}
	case tokenTransit:
		return Status{Kind: KindTransit}
	}

	return Status{Kind: KindHome}
}

// IsOwnGroupRoom reports whether the raw location places the student in one of
// the viewer's own group rooms. Non-room states are never a group room.
func IsOwnGroupRoom(raw string, groupRooms []string) bool {
	st := Parse(raw)
	if st.Kind != KindPresentInRoom {
		return false
	}
	for _, room := range groupRooms {
		if strings.EqualFold(strings.TrimSpace(room), st.RoomName) {
			return true
		}
	}
	return false
}
