package model

import "time"

// UnclaimedAlert tracks which unclaimed active groups have already been
// alerted on, so a group sitting unclaimed across several monitor cycles
// produces exactly one notification.
type UnclaimedAlert struct {
	ActiveGroupID string    `gorm:"primaryKey;size:64"`
	GroupID       string    `gorm:"size:64"`
	FirstSeenAt   time.Time `gorm:"not null"`
}
