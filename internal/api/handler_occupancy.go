package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pgstay-backend/internal/engine"
)

// Occupancy read endpoints. All are pure projections over active
// assignments, so they sit behind the response cache.

// GetRoomOccupancy handles GET /api/rooms/:room_id/occupancy.
func GetRoomOccupancy(e *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID, ok := paramID(c, "room_id")
		if !ok {
			return
		}
		occ, err := e.RoomOccupancy(c.Request.Context(), roomID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, occ)
	}
}

// GetRoomTypeOccupancy handles GET /api/room-types/:room_type_id/occupancy.
func GetRoomTypeOccupancy(e *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomTypeID, ok := paramID(c, "room_type_id")
		if !ok {
			return
		}
		occ, err := e.RoomTypeOccupancy(c.Request.Context(), roomTypeID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, occ)
	}
}

// GetPropertyOccupancy handles GET /api/properties/:property_id/occupancy.
func GetPropertyOccupancy(e *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		propertyID, ok := paramID(c, "property_id")
		if !ok {
			return
		}
		occ, err := e.PropertyOccupancy(c.Request.Context(), propertyID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, occ)
	}
}
