package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pgstay-backend/internal/model"
	"pgstay-backend/internal/mw"
)

type createPropertyRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
	City    string `json:"city"`
}

// CreateProperty handles POST /api/properties.
func (h *Handler) CreateProperty(c *gin.Context) {
	var req createPropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	property := model.Property{
		OwnerID: c.GetString(mw.CtxCallerID),
		Name:    req.Name,
		Address: req.Address,
		City:    req.City,
	}
	if err := h.store.CreateProperty(c.Request.Context(), &property); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, property)
}

// ListProperties handles GET /api/properties. Owners see their own
// listings; admins see everything.
func (h *Handler) ListProperties(c *gin.Context) {
	ownerID := c.Query("owner_id")
	if c.GetString(mw.CtxRole) == "owner" {
		ownerID = c.GetString(mw.CtxCallerID)
	}

	properties, err := h.store.ListProperties(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, properties)
}

// GetProperty handles GET /api/properties/:property_id.
func (h *Handler) GetProperty(c *gin.Context) {
	id, ok := paramID(c, "property_id")
	if !ok {
		return
	}
	property, err := h.store.GetProperty(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, property)
}

// ArchiveProperty handles DELETE /api/properties/:property_id.
// Soft delete; refused while tenants are still assigned.
func (h *Handler) ArchiveProperty(c *gin.Context) {
	id, ok := paramID(c, "property_id")
	if !ok {
		return
	}
	if err := h.store.ArchiveProperty(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type defineRoomTypeRequest struct {
	Sharing     string `json:"sharing" binding:"required"`
	BasePrice   int64  `json:"basePrice"`
	RoomCount   int    `json:"roomCount" binding:"required"`
	StartNumber int    `json:"startNumber"`
}

type defineRoomTypeResponse struct {
	RoomType model.RoomType `json:"roomType"`
	Rooms    []model.Room   `json:"rooms"`
}

// DefineRoomType handles POST /api/properties/:property_id/room-types.
// Provisions the room type together with its physical rooms.
func (h *Handler) DefineRoomType(c *gin.Context) {
	propertyID, ok := paramID(c, "property_id")
	if !ok {
		return
	}
	var req defineRoomTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	roomType, rooms, err := h.store.DefineRoomType(
		c.Request.Context(), propertyID, model.SharingKind(req.Sharing),
		req.BasePrice, req.RoomCount, req.StartNumber)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, defineRoomTypeResponse{RoomType: *roomType, Rooms: rooms})
}

// paramID parses a path parameter as int64, answering 400 on failure.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}
