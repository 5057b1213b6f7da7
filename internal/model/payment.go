package model

import "time"

// PaymentStatus is the state of a rent record.
type PaymentStatus string

const (
	PaymentDue  PaymentStatus = "due"
	PaymentPaid PaymentStatus = "paid"
)

// RentPayment is one tracked rent record for a tenant and billing
// month. Gateway integration lives elsewhere; this table only tracks
// what is due and what has been confirmed paid.
type RentPayment struct {
	ID          string        `gorm:"primaryKey;size:36" json:"id"`
	TenantID    int64         `gorm:"index;not null" json:"tenantId"`
	PropertyID  int64         `gorm:"index;not null" json:"propertyId"`
	PeriodMonth string        `gorm:"size:7;not null;index" json:"periodMonth"` // "2026-01"
	Amount      int64         `gorm:"not null" json:"amount"`
	Status      PaymentStatus `gorm:"size:16;not null;default:due" json:"status"`
	Method      string        `gorm:"size:32" json:"method,omitempty"`
	PaidAt      *time.Time    `json:"paidAt,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}
