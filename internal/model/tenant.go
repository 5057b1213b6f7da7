package model

import "time"

// Tenant is a directory entry for a person who can occupy a bed.
// Gender is optional; when empty, gender-restricted rooms accept the
// tenant (the restriction only rejects a known, mismatched gender).
type Tenant struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Phone     string    `gorm:"size:32;index" json:"phone"`
	Gender    string    `gorm:"size:16" json:"gender,omitempty"` // "", "male", "female"
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
