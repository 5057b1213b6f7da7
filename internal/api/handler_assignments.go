package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pgstay-backend/internal/engine"
)

type assignRequest struct {
	TenantID int64  `json:"tenantId" binding:"required"`
	RoomID   int64  `json:"roomId" binding:"required"`
	BedSlot  *int   `json:"bedSlot"`
	CheckIn  string `json:"checkIn"` // RFC3339, optional
}

// Assign handles POST /api/assignments.
func (h *Handler) Assign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	opts, ok := assignOptions(c, req.BedSlot, req.CheckIn)
	if !ok {
		return
	}

	assignment, err := h.engine.Assign(c.Request.Context(), req.TenantID, req.RoomID, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, assignment)
}

type transferRequest struct {
	TenantID int64 `json:"tenantId" binding:"required"`
	RoomID   int64 `json:"roomId" binding:"required"`
	BedSlot  *int  `json:"bedSlot"`
}

// Transfer handles POST /api/assignments/transfer. All-or-nothing: a
// failed claim on the target room leaves the original assignment
// intact.
func (h *Handler) Transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assignment, err := h.engine.Transfer(c.Request.Context(), req.TenantID, req.RoomID,
		engine.AssignOptions{BedSlot: req.BedSlot})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignment)
}

// Remove handles DELETE /api/assignments/:tenant_id. Ends the tenant's
// active assignment and frees the bed.
func (h *Handler) Remove(c *gin.Context) {
	tenantID, ok := paramID(c, "tenant_id")
	if !ok {
		return
	}

	assignment, err := h.engine.Remove(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignment)
}

func assignOptions(c *gin.Context, bedSlot *int, checkIn string) (engine.AssignOptions, bool) {
	opts := engine.AssignOptions{BedSlot: bedSlot}
	if checkIn != "" {
		t, err := time.Parse(time.RFC3339, checkIn)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid checkIn timestamp. Use RFC3339."})
			return opts, false
		}
		opts.CheckIn = &t
	}
	return opts, true
}
