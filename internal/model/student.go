package model

import "time"

// Student represents a student's basic roster information. GroupID is empty
// for students currently without a home group.
type Student struct {
	ID          string `gorm:"primaryKey;size:64"` // Upstream ID
	GroupID     string `gorm:"index;size:64"`
	DisplayName string `gorm:"size:256;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
