package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pgstay-backend/internal/model"
)

type putAlertSubscriptionRequest struct {
	Endpoint   string  `json:"endpoint" binding:"required"`
	P256DH     string  `json:"p256dh" binding:"required"`
	Auth       string  `json:"auth" binding:"required"`
	Properties []int64 `json:"properties"`
}

// PutAlertSubscription handles PUT /api/alerts/subscriptions: create
// or replace a vacancy alert subscription and the set of watched
// properties.
func (h *Handler) PutAlertSubscription(c *gin.Context) {
	var req putAlertSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	subscription := model.AlertSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}

	err := h.store.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(&subscription).Error; err != nil {
			return err
		}

		var properties []model.Property
		if len(req.Properties) > 0 {
			if err := tx.Find(&properties, req.Properties).Error; err != nil {
				return err
			}
		}
		return tx.Model(&subscription).Association("Properties").Replace(&properties)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusCreated)
}

// GetAlertSubscription handles GET /api/alerts/subscriptions?endpoint=...
// and returns the property IDs the subscription watches.
func (h *Handler) GetAlertSubscription(c *gin.Context) {
	endpoint := c.Query("endpoint")
	if endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint query parameter is required"})
		return
	}

	var subscription model.AlertSubscription
	if err := h.store.DB().Preload("Properties").
		First(&subscription, "endpoint = ?", endpoint).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return
	}

	propertyIDs := make([]int64, 0, len(subscription.Properties))
	for _, p := range subscription.Properties {
		propertyIDs = append(propertyIDs, p.ID)
	}
	c.JSON(http.StatusOK, gin.H{"endpoint": subscription.Endpoint, "properties": propertyIDs})
}

type deleteAlertSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteAlertSubscription handles DELETE /api/alerts/subscriptions.
func (h *Handler) DeleteAlertSubscription(c *gin.Context) {
	var req deleteAlertSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.DB().Select(clause.Associations).
		Delete(&model.AlertSubscription{Endpoint: req.Endpoint}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetVAPIDPublicKey handles GET /api/alerts/vapid_public_key so the
// frontend can subscribe for web push.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"publicKey": h.webpush.VAPIDPublicKey})
}
