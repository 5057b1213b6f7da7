package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pgstay-backend/internal/model"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real implementation using the webpush library.
type WebPushSender struct{}

func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool fans vacancy alerts out to subscribed browsers. The
// allocation engine dispatches a property ID whenever a bed frees up;
// workers look up that property's watchers and push to each.
type WorkerPool struct {
	size    int
	jobs    chan int64
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
	log     *logrus.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options, log *logrus.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     log,
	}
}

// SetSender swaps the push sender. Used by tests.
func (wp *WorkerPool) SetSender(s Sender) {
	wp.sender = s
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.WithField("worker", id).Debug("vacancy alert worker started")
	for {
		select {
		case propertyID := <-wp.jobs:
			wp.sendAlertsForProperty(ctx, propertyID)
		case <-ctx.Done():
			wp.log.WithField("worker", id).Debug("vacancy alert worker shutting down")
			return
		}
	}
}

// Dispatch queues a vacancy alert for a property. Non-blocking: when
// the queue is full the alert is dropped rather than stalling the
// allocation path.
func (wp *WorkerPool) Dispatch(propertyID int64) {
	select {
	case wp.jobs <- propertyID:
	default:
		wp.log.WithField("propertyId", propertyID).Warn("vacancy alert queue full, alert dropped")
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan int64 {
	return wp.jobs
}

func (wp *WorkerPool) sendAlertsForProperty(ctx context.Context, propertyID int64) {
	var subscriptions []model.AlertSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_property_mapping spm ON spm.alert_subscription_endpoint = alert_subscriptions.endpoint").
		Where("spm.property_id = ?", propertyID).
		Find(&subscriptions).Error
	if err != nil {
		wp.log.WithError(err).WithField("propertyId", propertyID).Error("failed to fetch alert subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	propertyLabel := fmt.Sprintf("property %d", propertyID)
	var property model.Property
	if err := wp.db.WithContext(ctx).
		Select("name").
		First(&property, propertyID).Error; err != nil {
		wp.log.WithError(err).WithField("propertyId", propertyID).Warn("failed to fetch property name")
	} else if property.Name != "" {
		propertyLabel = property.Name
	}

	wp.log.WithFields(logrus.Fields{
		"propertyId": propertyID,
		"count":      len(subscriptions),
	}).Info("sending vacancy alerts")

	message := fmt.Sprintf("A bed has opened up at %s!", propertyLabel)
	for _, sub := range subscriptions {
		wp.sendAlert(ctx, sub, []byte(message))
	}
}

func (wp *WorkerPool) sendAlert(ctx context.Context, sub model.AlertSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.WithError(err).WithField("endpoint", sub.Endpoint).Error("failed to send vacancy alert")
		return
	}
	defer resp.Body.Close()

	// Expired subscriptions answer 410; drop them.
	if resp.StatusCode == http.StatusGone {
		wp.log.WithField("endpoint", sub.Endpoint).Info("alert subscription expired, deleting")
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			wp.log.WithError(err).WithField("endpoint", sub.Endpoint).Error("failed to delete expired subscription")
		}
	}
}
