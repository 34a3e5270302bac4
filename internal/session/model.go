package session

import "time"

// ActiveGroup is a running occupancy session: an educational group holding a
// room for a time block. The backend owns the lifecycle; this layer only
// requests transitions and reflects results.
type ActiveGroup struct {
	ID              string     `json:"id"`
	GroupID         string     `json:"groupId"`
	GroupName       string     `json:"groupName,omitempty"`
	RoomID          string     `json:"roomId"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	IsActive        bool       `json:"isActive"`
	Notes           string     `json:"notes,omitempty"`
	VisitCount      int        `json:"visitCount"`
	SupervisorCount int        `json:"supervisorCount"`
}

// Visit is one student's check-in/check-out span inside an active group. The
// backend guarantees at most one active visit per student.
type Visit struct {
	ID            string     `json:"id"`
	StudentID     string     `json:"studentId"`
	ActiveGroupID string     `json:"activeGroupId"`
	CheckInTime   time.Time  `json:"checkInTime"`
	CheckOutTime  *time.Time `json:"checkOutTime,omitempty"`
	IsActive      bool       `json:"isActive"`
}

// Supervisor is a staff assignment on an active group. Several supervisors may
// be active on the same group concurrently.
type Supervisor struct {
	ID            string     `json:"id"`
	StaffID       string     `json:"staffId"`
	ActiveGroupID string     `json:"activeGroupId"`
	Role          string     `json:"role,omitempty"`
	StartTime     time.Time  `json:"startTime"`
	EndTime       *time.Time `json:"endTime,omitempty"`
	IsActive      bool       `json:"isActive"`
}

// CombinedGroup represents several active groups merged into one physical
// space, e.g. for a joint activity or reduced staffing.
type CombinedGroup struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	RoomID    string    `json:"roomId"`
	StartTime time.Time `json:"startTime"`
	IsActive  bool      `json:"isActive"`
}

// GroupMapping joins an active group to a combined group. A group belongs to
// at most one combined group at a time; moving it is the caller's job (remove
// before add), the backend does not auto-enforce it.
type GroupMapping struct {
	ActiveGroupID   string `json:"activeGroupId"`
	CombinedGroupID string `json:"combinedGroupId"`
}

// StudentLocation is one row of the bulk display feed for an active group:
// a per-student snapshot of where the student currently is.
type StudentLocation struct {
	StudentID       string     `json:"studentId"`
	DisplayName     string     `json:"displayName"`
	CurrentLocation string     `json:"currentLocation"`
	LocationSince   *time.Time `json:"locationSince,omitempty"`
	GroupID         string     `json:"groupId"`
	GroupName       string     `json:"groupName"`
	Sick            bool       `json:"sick"`
	SickSince       *time.Time `json:"sickSince,omitempty"`
}

// AnalyticsCounts is the backend's aggregate snapshot of the session graph.
type AnalyticsCounts struct {
	ActiveGroups      int `json:"activeGroups"`
	ActiveVisits      int `json:"activeVisits"`
	ActiveSupervisors int `json:"activeSupervisors"`
	CombinedGroups    int `json:"combinedGroups"`
}

// RoomUtilization is a reporting projection over one room's sessions.
type RoomUtilization struct {
	RoomID        string `json:"roomId"`
	TotalSessions int    `json:"totalSessions"`
	TotalMinutes  int    `json:"totalMinutes"`
}

// AttendanceEntry is one span of a student's attendance report.
type AttendanceEntry struct {
	ActiveGroupID string     `json:"activeGroupId"`
	CheckInTime   time.Time  `json:"checkInTime"`
	CheckOutTime  *time.Time `json:"checkOutTime,omitempty"`
}
