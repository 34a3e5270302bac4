package model

import "time"

// Group represents an educational home group of students.
type Group struct {
	ID        string    `gorm:"primaryKey;size:64"` // Upstream ID
	Name      string    `gorm:"uniqueIndex;size:128;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
