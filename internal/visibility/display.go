package visibility

import (
	"strings"

	"hort-presence-backend/internal/location"
)

// DisplayMode selects the policy used to label a student's whereabouts.
type DisplayMode string

const (
	// ModeRoomName reveals the parsed room/state verbatim. Used where the
	// viewer already has full access, e.g. a group's own roster view.
	ModeRoomName DisplayMode = "roomName"
	// ModeGroupName substitutes the student's home group name regardless of
	// location. Used where rows are already scoped to a single group listing.
	ModeGroupName DisplayMode = "groupName"
	// ModeContextAware degrades room detail based on the viewer's group
	// membership and supervision scope.
	ModeContextAware DisplayMode = "contextAware"
)

// Display labels shown to viewers.
const (
	SickLabel    = "Krank"
	presentLabel = "Anwesend"
)

// StudentContext is the per-student snapshot the resolver works from. It is
// built fresh from backend data on every request and never cached.
type StudentContext struct {
	CurrentLocation string
	GroupID         string
	GroupName       string
	Sick            bool
}

// Label is the resolved display contract for one student. When Sick is set the
// sick indicator is rendered as a second token next to Text; when a sick
// student is spatially at home, Text itself becomes the sick indicator.
type Label struct {
	Text string `json:"text"`
	Sick bool   `json:"sick,omitempty"`
}

// Resolve applies the given display mode and the viewer's scope to a student
// snapshot. supervisedRooms are room names; the room a student occupies is only
// known by name from the raw location string.
func Resolve(s StudentContext, mode DisplayMode, viewerGroupIDs, supervisedRooms []string) Label {
	st := location.Parse(s.CurrentLocation)

	var text string
	switch mode {
	case ModeRoomName:
		text = spatialText(st, true)
	case ModeGroupName:
		text = s.GroupName
	default:
		// Context-aware is also the fallback for unknown modes: it reveals
		// the least, so a bad mode value can never widen access.
		text = spatialText(st, viewerHasFullAccess(s, st, viewerGroupIDs, supervisedRooms))
	}

	// Sick overlay, independent of display mode. At home the overlay replaces
	// the label entirely; anywhere else it rides alongside as a second token.
	if s.Sick {
		if st.Kind == location.KindHome {
			return Label{Text: SickLabel}
		}
		return Label{Text: text, Sick: true}
	}

	return Label{Text: text}
}

// viewerHasFullAccess decides whether the viewer may see room-level detail:
// either the student's home group is one of the viewer's own groups, or the
// viewer supervises the room the student currently occupies. A student without
// a home group can only match through supervision.
func viewerHasFullAccess(s StudentContext, st location.Status, viewerGroupIDs, supervisedRooms []string) bool {
	if s.GroupID != "" {
		for _, id := range viewerGroupIDs {
			if id == s.GroupID {
				return true
			}
		}
	}
	if st.Kind == location.KindPresentInRoom {
		for _, room := range supervisedRooms {
			if strings.EqualFold(strings.TrimSpace(room), st.RoomName) {
				return true
			}
		}
	}
	return false
}

// spatialText renders a structured status. Bare states carry no room-level
// privacy risk and are always spelled out; room presence is only named when
// the caller has established full access.
func spatialText(st location.Status, full bool) string {
	switch st.Kind {
	case location.KindPresentInRoom:
		if full {
			return st.RoomName
		}
		return presentLabel
	case location.KindSchoolyard:
		return "Schulhof"
	case location.KindTransit:
		return "Unterwegs"
	default:
		return "Zuhause"
	}
}
