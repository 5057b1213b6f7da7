package model

import "time"

// PropertyStatus is the lifecycle state of a property listing.
type PropertyStatus string

const (
	PropertyActive   PropertyStatus = "active"
	PropertyArchived PropertyStatus = "archived"
)

// Property represents a PG/hostel building listed by an owner.
// Properties are archived (soft delete), never hard-deleted, so that
// historical assignments and payments keep a valid reference.
type Property struct {
	ID        int64          `gorm:"primaryKey" json:"id"`
	OwnerID   string         `gorm:"index;size:64;not null" json:"ownerId"`
	Name      string         `gorm:"size:128;not null" json:"name"`
	Address   string         `gorm:"size:256" json:"address"`
	City      string         `gorm:"size:64;index" json:"city"`
	Status    PropertyStatus `gorm:"size:16;not null;default:active" json:"status"`
	CreatedAt time.Time      `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"not null" json:"updatedAt"`

	// Associations
	RoomTypes []RoomType `gorm:"foreignKey:PropertyID" json:"roomTypes,omitempty"`
	Rooms     []Room     `gorm:"foreignKey:PropertyID" json:"-"`
}
