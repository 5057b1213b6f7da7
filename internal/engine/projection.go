package engine

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"pgstay-backend/internal/model"
)

// Occupancy is a derived snapshot of a scope's bed usage. It is always
// recomputed from active assignments and never stored, so it cannot
// drift from the ledger.
type Occupancy struct {
	Capacity  int `json:"capacity"`
	Occupied  int `json:"occupied"`
	Available int `json:"available"`
}

func makeOccupancy(capacity, occupied int) Occupancy {
	return Occupancy{Capacity: capacity, Occupied: occupied, Available: capacity - occupied}
}

// RoomOccupancy returns the snapshot for one room.
func (e *Engine) RoomOccupancy(ctx context.Context, roomID int64) (Occupancy, error) {
	db := e.db.WithContext(ctx)

	var room model.Room
	err := db.Preload("RoomType").First(&room, roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Occupancy{}, NewError(KindNotFound, "", "room %d not found", roomID)
	}
	if err != nil {
		return Occupancy{}, fmt.Errorf("load room: %w", err)
	}

	var occupied int64
	if err := db.Model(&model.TenantAssignment{}).
		Where("room_id = ? AND status = ?", roomID, model.AssignmentActive).
		Count(&occupied).Error; err != nil {
		return Occupancy{}, fmt.Errorf("count active assignments: %w", err)
	}

	return makeOccupancy(room.RoomType.Sharing.BedCount(), int(occupied)), nil
}

// RoomTypeOccupancy sums the snapshots of every room of the type.
func (e *Engine) RoomTypeOccupancy(ctx context.Context, roomTypeID int64) (Occupancy, error) {
	db := e.db.WithContext(ctx)

	var roomType model.RoomType
	err := db.First(&roomType, roomTypeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Occupancy{}, NewError(KindNotFound, "", "room type %d not found", roomTypeID)
	}
	if err != nil {
		return Occupancy{}, fmt.Errorf("load room type: %w", err)
	}

	var roomIDs []int64
	if err := db.Model(&model.Room{}).
		Where("room_type_id = ?", roomTypeID).
		Pluck("id", &roomIDs).Error; err != nil {
		return Occupancy{}, fmt.Errorf("list rooms of type: %w", err)
	}

	occupied, err := countActiveInRooms(db, roomIDs)
	if err != nil {
		return Occupancy{}, err
	}
	return makeOccupancy(len(roomIDs)*roomType.Sharing.BedCount(), occupied), nil
}

// PropertyOccupancy sums the snapshots of every room type of the
// property.
func (e *Engine) PropertyOccupancy(ctx context.Context, propertyID int64) (Occupancy, error) {
	db := e.db.WithContext(ctx)

	var property model.Property
	err := db.First(&property, propertyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Occupancy{}, NewError(KindNotFound, "", "property %d not found", propertyID)
	}
	if err != nil {
		return Occupancy{}, fmt.Errorf("load property: %w", err)
	}

	var rooms []model.Room
	if err := db.Preload("RoomType").
		Where("property_id = ?", propertyID).
		Find(&rooms).Error; err != nil {
		return Occupancy{}, fmt.Errorf("list property rooms: %w", err)
	}

	capacity := 0
	roomIDs := make([]int64, 0, len(rooms))
	for _, r := range rooms {
		capacity += r.RoomType.Sharing.BedCount()
		roomIDs = append(roomIDs, r.ID)
	}

	occupied, err := countActiveInRooms(db, roomIDs)
	if err != nil {
		return Occupancy{}, err
	}
	return makeOccupancy(capacity, occupied), nil
}

func countActiveInRooms(db *gorm.DB, roomIDs []int64) (int, error) {
	if len(roomIDs) == 0 {
		return 0, nil
	}
	var n int64
	if err := db.Model(&model.TenantAssignment{}).
		Where("room_id IN ? AND status = ?", roomIDs, model.AssignmentActive).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count active assignments: %w", err)
	}
	return int(n), nil
}
