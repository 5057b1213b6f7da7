package model

import "time"

// AssignmentStatus is the lifecycle state of a tenant-to-bed binding.
type AssignmentStatus string

const (
	AssignmentActive AssignmentStatus = "active"
	AssignmentEnded  AssignmentStatus = "ended"
)

// TenantAssignment binds a tenant to one bed slot of a room. It is the
// single source of truth for occupancy: both "which bed does this
// tenant hold" and "who occupies this slot" are queries over the rows
// with status=active, so the two views can never drift apart.
//
// At most one active row per tenant, and at most one active row per
// (room, bed slot). Both are enforced by the allocation engine's
// per-scope critical sections plus the conditional re-check inside the
// claim transaction.
type TenantAssignment struct {
	ID           string           `gorm:"primaryKey;size:36" json:"id"`
	TenantID     int64            `gorm:"index:idx_assignment_tenant_status;not null" json:"tenantId"`
	RoomID       int64            `gorm:"index:idx_assignment_room_status;not null" json:"roomId"`
	BedSlot      int              `gorm:"not null" json:"bedSlot"`
	CheckInDate  time.Time        `gorm:"not null" json:"checkInDate"`
	CheckOutDate *time.Time       `json:"checkOutDate,omitempty"`
	Status       AssignmentStatus `gorm:"size:16;not null;index:idx_assignment_tenant_status;index:idx_assignment_room_status" json:"status"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}
