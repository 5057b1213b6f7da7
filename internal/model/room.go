package model

import "time"

// RoomType groups the rooms of a property that share a sharing kind and
// a base monthly price.
type RoomType struct {
	ID         int64       `gorm:"primaryKey" json:"id"`
	PropertyID int64       `gorm:"index;not null" json:"propertyId"`
	Sharing    SharingKind `gorm:"size:16;not null" json:"sharing"`
	BasePrice  int64       `gorm:"not null" json:"basePrice"` // monthly, minor currency units
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`

	// Associations
	Rooms []Room `gorm:"foreignKey:RoomTypeID" json:"rooms,omitempty"`
}

// Room is one physical room of a property. Bed slots are the implicit
// indices 0..Sharing.BedCount()-1; which slot is occupied is always a
// query over active assignments, never a column on the room.
type Room struct {
	ID         int64  `gorm:"primaryKey" json:"id"`
	PropertyID int64  `gorm:"uniqueIndex:idx_property_room_number;not null" json:"propertyId"`
	RoomTypeID int64  `gorm:"index;not null" json:"roomTypeId"`
	Number     string `gorm:"uniqueIndex:idx_property_room_number;size:32;not null" json:"number"`
	// GenderRestriction is "" (none), "male" or "female".
	GenderRestriction string    `gorm:"size:16" json:"genderRestriction,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`

	// Associations
	RoomType RoomType `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
