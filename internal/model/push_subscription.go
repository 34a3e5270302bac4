package model

import "time"

// PushSubscription holds a staff browser's push subscription, bound to the
// educational groups the staff member wants unclaimed-session alerts for.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Groups []*Group `gorm:"many2many:subscription_group_mapping;"`
}
