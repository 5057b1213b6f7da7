package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"pgstay-backend/internal/model"
)

// bedView is one bed slot in the room board response.
type bedView struct {
	Slot        int    `json:"slot"`
	Occupied    bool   `json:"occupied"`
	TenantID    int64  `json:"tenantId,omitempty"`
	CheckInDate string `json:"checkInDate,omitempty"`
}

// roomBoardEntry is the flattened per-room structure for the board.
type roomBoardEntry struct {
	model.Room
	Sharing   model.SharingKind `json:"sharing"`
	BasePrice int64             `json:"basePrice"`
	Capacity  int               `json:"capacity"`
	Occupied  int               `json:"occupied"`
	Available int               `json:"available"`
	Beds      []bedView         `json:"beds"`
}

// GetRoomBoard handles GET /api/properties/:property_id/rooms. It
// returns every room of the property with its bed-level occupancy, the
// view owner dashboards render.
func GetRoomBoard(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		propertyID, ok := paramID(c, "property_id")
		if !ok {
			return
		}

		var rooms []model.Room
		if err := db.Preload("RoomType").
			Where("property_id = ?", propertyID).
			Order("number").
			Find(&rooms).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve rooms"})
			return
		}

		roomIDs := make([]int64, len(rooms))
		for i, r := range rooms {
			roomIDs[i] = r.ID
		}

		var active []model.TenantAssignment
		if len(roomIDs) > 0 {
			if err := db.Where("room_id IN ? AND status = ?", roomIDs, model.AssignmentActive).
				Find(&active).Error; err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve assignments"})
				return
			}
		}

		byRoom := make(map[int64][]model.TenantAssignment)
		for _, a := range active {
			byRoom[a.RoomID] = append(byRoom[a.RoomID], a)
		}

		board := make([]roomBoardEntry, 0, len(rooms))
		for _, room := range rooms {
			capacity := room.RoomType.Sharing.BedCount()
			occupants := make(map[int]model.TenantAssignment, capacity)
			for _, a := range byRoom[room.ID] {
				occupants[a.BedSlot] = a
			}

			beds := make([]bedView, capacity)
			for slot := 0; slot < capacity; slot++ {
				if a, filled := occupants[slot]; filled {
					beds[slot] = bedView{
						Slot:        slot,
						Occupied:    true,
						TenantID:    a.TenantID,
						CheckInDate: a.CheckInDate.Format("2006-01-02"),
					}
				} else {
					beds[slot] = bedView{Slot: slot}
				}
			}

			board = append(board, roomBoardEntry{
				Room:      room,
				Sharing:   room.RoomType.Sharing,
				BasePrice: room.RoomType.BasePrice,
				Capacity:  capacity,
				Occupied:  len(occupants),
				Available: capacity - len(occupants),
				Beds:      beds,
			})
		}
		c.JSON(http.StatusOK, board)
	}
}

type renameRoomRequest struct {
	Number string `json:"number" binding:"required"`
}

// RenameRoom handles PATCH /api/rooms/:room_id.
func (h *Handler) RenameRoom(c *gin.Context) {
	roomID, ok := paramID(c, "room_id")
	if !ok {
		return
	}
	var req renameRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.RenameRoom(c.Request.Context(), roomID, req.Number); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type genderRestrictionRequest struct {
	Restriction string `json:"restriction"`
}

// SetRoomGenderRestriction handles PUT /api/rooms/:room_id/gender.
func (h *Handler) SetRoomGenderRestriction(c *gin.Context) {
	roomID, ok := paramID(c, "room_id")
	if !ok {
		return
	}
	var req genderRestrictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.SetRoomGenderRestriction(c.Request.Context(), roomID, req.Restriction); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteRoom handles DELETE /api/rooms/:room_id. Refused while any bed
// in the room is occupied.
func (h *Handler) DeleteRoom(c *gin.Context) {
	roomID, ok := paramID(c, "room_id")
	if !ok {
		return
	}
	if err := h.store.DeleteRoom(c.Request.Context(), roomID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
