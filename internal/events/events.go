package events

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// BedAssigned is emitted after a tenant successfully claims a bed.
// Billing consumes it to start generating rent-due records.
type BedAssigned struct {
	TenantID    int64     `json:"tenantId"`
	PropertyID  int64     `json:"propertyId"`
	RoomID      int64     `json:"roomId"`
	BedSlot     int       `json:"bedSlot"`
	CheckInDate time.Time `json:"checkInDate"`
}

// BedVacated is emitted after an assignment ends, either by removal or
// as the first half of a transfer.
type BedVacated struct {
	TenantID     int64     `json:"tenantId"`
	PropertyID   int64     `json:"propertyId"`
	RoomID       int64     `json:"roomId"`
	BedSlot      int       `json:"bedSlot"`
	CheckOutDate time.Time `json:"checkOutDate"`
}

// Sink receives occupancy events after the owning transaction has
// committed. Implementations must not block the caller for long;
// delivery failures are the sink's problem to log or retry.
type Sink interface {
	PublishAssigned(ctx context.Context, ev BedAssigned) error
	PublishVacated(ctx context.Context, ev BedVacated) error
	Close() error
}

// NopSink discards all events. Used when no broker is configured.
type NopSink struct{}

func (NopSink) PublishAssigned(context.Context, BedAssigned) error { return nil }
func (NopSink) PublishVacated(context.Context, BedVacated) error   { return nil }
func (NopSink) Close() error                                       { return nil }

// LogSink writes events to the application log. Useful for local
// development without a broker.
type LogSink struct {
	Log *logrus.Logger
}

func (s *LogSink) PublishAssigned(_ context.Context, ev BedAssigned) error {
	s.Log.WithFields(logrus.Fields{
		"event":    "bed_assigned",
		"tenantId": ev.TenantID,
		"roomId":   ev.RoomID,
		"bedSlot":  ev.BedSlot,
	}).Info("occupancy event")
	return nil
}

func (s *LogSink) PublishVacated(_ context.Context, ev BedVacated) error {
	s.Log.WithFields(logrus.Fields{
		"event":    "bed_vacated",
		"tenantId": ev.TenantID,
		"roomId":   ev.RoomID,
		"bedSlot":  ev.BedSlot,
	}).Info("occupancy event")
	return nil
}

func (s *LogSink) Close() error { return nil }
