package model

import "time"

// AlertSubscription holds a browser push subscription for vacancy
// alerts. A subscriber watches one or more properties and is notified
// when a bed frees up in any of them.
type AlertSubscription struct {
	Endpoint  string    `gorm:"primaryKey" json:"endpoint"`
	P256DH    string    `gorm:"column:p256dh;not null" json:"p256dh"`
	Auth      string    `gorm:"not null" json:"auth"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`

	// Associations
	Properties []*Property `gorm:"many2many:subscription_property_mapping;" json:"-"`
}
