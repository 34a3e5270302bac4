package model

import "time"

// PresenceOpen represents a student's current non-home whereabouts (hot
// table). Students at home and not sick have no open row.
type PresenceOpen struct {
	StudentID   string    `gorm:"primaryKey;size:64"`
	ObservedAt  time.Time `gorm:"not null"`
	RawLocation string    `gorm:"size:256;not null"`
	Kind        string    `gorm:"size:32;not null"`
	RoomName    string    `gorm:"size:128"`
	Sick        bool      `gorm:"not null"`
}

// PresenceHistory is the archived log of presence spans (cold table).
// ObservedAt is when the span's END was observed.
type PresenceHistory struct {
	StudentID   string    `gorm:"size:64;not null;index;primaryKey"`
	ObservedAt  time.Time `gorm:"not null;index;primaryKey"`
	RawLocation string    `gorm:"size:256;not null"`
	Kind        string    `gorm:"size:32;not null"`
	RoomName    string    `gorm:"size:128"`
	Sick        bool      `gorm:"not null"`
	PeriodStart time.Time `gorm:"not null"`
	PeriodEnd   time.Time `gorm:"not null"`
}
