package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"pgstay-backend/internal/model"
)

func nowUTC() time.Time {
	return time.Now().UTC()
}

type createComplaintRequest struct {
	TenantID    int64  `json:"tenantId" binding:"required"`
	PropertyID  int64  `json:"propertyId" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Description string `json:"description"`
}

// CreateComplaint handles POST /api/complaints.
func CreateComplaint(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createComplaintRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		complaint := model.Complaint{
			ID:          uuid.NewString(),
			TenantID:    req.TenantID,
			PropertyID:  req.PropertyID,
			Category:    req.Category,
			Description: req.Description,
			Status:      model.ComplaintOpen,
		}
		if err := db.Create(&complaint).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create complaint"})
			return
		}
		c.JSON(http.StatusCreated, complaint)
	}
}

// ListComplaints handles GET /api/complaints with optional property_id
// and status filters.
func ListComplaints(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := db.Order("created_at DESC")
		if propertyID := c.Query("property_id"); propertyID != "" {
			q = q.Where("property_id = ?", propertyID)
		}
		if tenantID := c.Query("tenant_id"); tenantID != "" {
			q = q.Where("tenant_id = ?", tenantID)
		}
		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}

		var complaints []model.Complaint
		if err := q.Find(&complaints).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve complaints"})
			return
		}
		c.JSON(http.StatusOK, complaints)
	}
}

type updateComplaintRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateComplaintStatus handles PATCH /api/complaints/:complaint_id.
func UpdateComplaintStatus(db *gorm.DB) gin.HandlerFunc {
	valid := map[model.ComplaintStatus]bool{
		model.ComplaintOpen:       true,
		model.ComplaintInProgress: true,
		model.ComplaintResolved:   true,
	}
	return func(c *gin.Context) {
		var req updateComplaintRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		status := model.ComplaintStatus(req.Status)
		if !valid[status] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unrecognized complaint status"})
			return
		}

		var complaint model.Complaint
		if err := db.First(&complaint, "id = ?", c.Param("complaint_id")).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Complaint not found"})
			return
		}

		complaint.Status = status
		if err := db.Save(&complaint).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update complaint"})
			return
		}
		c.JSON(http.StatusOK, complaint)
	}
}
