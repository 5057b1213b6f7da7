package api

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"pgstay-backend/internal/model"
)

var periodMonthRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

type createPaymentRequest struct {
	TenantID    int64  `json:"tenantId" binding:"required"`
	PropertyID  int64  `json:"propertyId" binding:"required"`
	PeriodMonth string `json:"periodMonth" binding:"required"`
	Amount      int64  `json:"amount" binding:"required"`
}

// CreatePayment handles POST /api/payments. Records a rent-due entry;
// actual collection happens through the external gateway.
func CreatePayment(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !periodMonthRe.MatchString(req.PeriodMonth) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "periodMonth must look like 2026-01"})
			return
		}
		if req.Amount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
			return
		}

		payment := model.RentPayment{
			ID:          uuid.NewString(),
			TenantID:    req.TenantID,
			PropertyID:  req.PropertyID,
			PeriodMonth: req.PeriodMonth,
			Amount:      req.Amount,
			Status:      model.PaymentDue,
		}
		if err := db.Create(&payment).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment"})
			return
		}
		c.JSON(http.StatusCreated, payment)
	}
}

// ListPayments handles GET /api/payments with optional tenant_id,
// property_id and status filters.
func ListPayments(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := db.Order("period_month DESC")
		if tenantID := c.Query("tenant_id"); tenantID != "" {
			q = q.Where("tenant_id = ?", tenantID)
		}
		if propertyID := c.Query("property_id"); propertyID != "" {
			q = q.Where("property_id = ?", propertyID)
		}
		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}

		var payments []model.RentPayment
		if err := q.Find(&payments).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve payments"})
			return
		}
		c.JSON(http.StatusOK, payments)
	}
}

type markPaidRequest struct {
	Method string `json:"method"`
}

// MarkPaymentPaid handles PATCH /api/payments/:payment_id. Idempotent:
// marking an already-paid record paid again is a no-op.
func MarkPaymentPaid(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req markPaidRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var payment model.RentPayment
		if err := db.First(&payment, "id = ?", c.Param("payment_id")).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}

		if payment.Status != model.PaymentPaid {
			now := nowUTC()
			payment.Status = model.PaymentPaid
			payment.Method = req.Method
			payment.PaidAt = &now
			if err := db.Save(&payment).Error; err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update payment"})
				return
			}
		}
		c.JSON(http.StatusOK, payment)
	}
}
