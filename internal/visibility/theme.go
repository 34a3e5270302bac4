package visibility

import "hort-presence-backend/internal/location"

// ColorToken is a fixed presentation token for a presence category. The UI maps
// tokens to its palette; this layer only guarantees the token is stable.
type ColorToken string

const (
	ColorGroupRoom  ColorToken = "green"
	ColorOtherRoom  ColorToken = "blue"
	ColorTransit    ColorToken = "fuchsia"
	ColorSchoolyard ColorToken = "amber"
	ColorHome       ColorToken = "rose"
)

// Color categorizes a raw location for theming. Home/transit/schoolyard are
// fixed regardless of group; room presence is green only when the room is one
// of the viewer's group rooms. ModeGroupName always forces the group token
// because it labels a group, not a location.
func Color(raw string, mode DisplayMode, viewerGroupRooms []string) ColorToken {
	if mode == ModeGroupName {
		return ColorGroupRoom
	}

	switch location.Parse(raw).Kind {
	case location.KindTransit:
		return ColorTransit
	case location.KindSchoolyard:
		return ColorSchoolyard
	case location.KindPresentInRoom:
		if location.IsOwnGroupRoom(raw, viewerGroupRooms) {
			return ColorGroupRoom
		}
		return ColorOtherRoom
	default:
		return ColorHome
	}
}

// GlowEffect returns the emphasis descriptor for a color token. Same token,
// same descriptor, so snapshot tests stay stable.
func GlowEffect(token ColorToken) string {
	switch token {
	case ColorGroupRoom:
		return "glow-green-soft"
	case ColorOtherRoom:
		return "glow-blue-soft"
	case ColorTransit:
		return "glow-fuchsia-pulse"
	case ColorSchoolyard:
		return "glow-amber-soft"
	default:
		return "glow-rose-dim"
	}
}
