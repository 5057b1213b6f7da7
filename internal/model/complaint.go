package model

import "time"

// ComplaintStatus tracks a complaint through its lifecycle.
type ComplaintStatus string

const (
	ComplaintOpen       ComplaintStatus = "open"
	ComplaintInProgress ComplaintStatus = "in_progress"
	ComplaintResolved   ComplaintStatus = "resolved"
)

// Complaint is a tenant-raised issue against a property.
type Complaint struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	TenantID    int64           `gorm:"index;not null" json:"tenantId"`
	PropertyID  int64           `gorm:"index;not null" json:"propertyId"`
	Category    string          `gorm:"size:64;not null" json:"category"`
	Description string          `gorm:"size:1024" json:"description"`
	Status      ComplaintStatus `gorm:"size:16;not null;default:open" json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}
