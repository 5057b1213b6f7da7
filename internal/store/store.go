package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"pgstay-backend/internal/engine"
	"pgstay-backend/internal/model"
)

// Store defines the inventory and directory operations the rest of the
// application uses. Occupancy mutations live in the allocation engine;
// this layer only shapes the static side (properties, room types,
// rooms, tenants).
type Store interface {
	DB() *gorm.DB

	CreateProperty(ctx context.Context, p *model.Property) error
	GetProperty(ctx context.Context, id int64) (*model.Property, error)
	ListProperties(ctx context.Context, ownerID string) ([]model.Property, error)
	ArchiveProperty(ctx context.Context, id int64) error

	DefineRoomType(ctx context.Context, propertyID int64, sharing model.SharingKind, basePrice int64, roomCount, startNumber int) (*model.RoomType, []model.Room, error)
	ListRooms(ctx context.Context, propertyID int64) ([]model.Room, error)
	RenameRoom(ctx context.Context, roomID int64, newNumber string) error
	SetRoomGenderRestriction(ctx context.Context, roomID int64, restriction string) error
	DeleteRoom(ctx context.Context, roomID int64) error

	CreateTenant(ctx context.Context, t *model.Tenant) error
	GetTenant(ctx context.Context, id int64) (*model.Tenant, error)
	ListTenants(ctx context.Context) ([]model.Tenant, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) CreateProperty(ctx context.Context, p *model.Property) error {
	if p.Name == "" {
		return engine.NewError(engine.KindValidation, "", "property name is required")
	}
	if p.Status == "" {
		p.Status = model.PropertyActive
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("create property: %w", err)
	}
	return nil
}

func (s *gormStore) GetProperty(ctx context.Context, id int64) (*model.Property, error) {
	var p model.Property
	err := s.db.WithContext(ctx).Preload("RoomTypes").First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, engine.NewError(engine.KindNotFound, "", "property %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load property: %w", err)
	}
	return &p, nil
}

func (s *gormStore) ListProperties(ctx context.Context, ownerID string) ([]model.Property, error) {
	q := s.db.WithContext(ctx).Where("status = ?", model.PropertyActive)
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}
	var properties []model.Property
	if err := q.Find(&properties).Error; err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	return properties, nil
}

// ArchiveProperty soft-deletes a property. Blocked while any bed in
// the property is still occupied.
func (s *gormStore) ArchiveProperty(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var property model.Property
		err := tx.First(&property, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return engine.NewError(engine.KindNotFound, "", "property %d not found", id)
		}
		if err != nil {
			return fmt.Errorf("load property: %w", err)
		}

		var occupied int64
		if err := tx.Model(&model.TenantAssignment{}).
			Joins("JOIN rooms ON rooms.id = tenant_assignments.room_id").
			Where("rooms.property_id = ? AND tenant_assignments.status = ?", id, model.AssignmentActive).
			Count(&occupied).Error; err != nil {
			return fmt.Errorf("count active assignments: %w", err)
		}
		if occupied > 0 {
			return engine.NewError(engine.KindPrecondition, engine.CodePropertyOccupied,
				"property %d still has %d active assignments", id, occupied)
		}

		return tx.Model(&property).Update("status", model.PropertyArchived).Error
	})
}

// DefineRoomType creates a room type and its physical rooms in one
// transaction. Room numbers run sequentially from startNumber; when
// startNumber <= 0 the numbering continues after the property's
// existing rooms.
func (s *gormStore) DefineRoomType(ctx context.Context, propertyID int64, sharing model.SharingKind, basePrice int64, roomCount, startNumber int) (*model.RoomType, []model.Room, error) {
	if !sharing.Valid() {
		return nil, nil, engine.NewError(engine.KindValidation, "", "unrecognized sharing kind %q", sharing)
	}
	if roomCount <= 0 {
		return nil, nil, engine.NewError(engine.KindValidation, "", "room count must be positive, got %d", roomCount)
	}
	if basePrice < 0 {
		return nil, nil, engine.NewError(engine.KindValidation, "", "base price must not be negative")
	}

	var roomType model.RoomType
	var rooms []model.Room
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var property model.Property
		err := tx.First(&property, propertyID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return engine.NewError(engine.KindNotFound, "", "property %d not found", propertyID)
		}
		if err != nil {
			return fmt.Errorf("load property: %w", err)
		}
		if property.Status != model.PropertyActive {
			return engine.NewError(engine.KindPrecondition, "", "property %d is archived", propertyID)
		}

		existing, err := roomNumbersInProperty(tx, propertyID)
		if err != nil {
			return err
		}
		if startNumber <= 0 {
			startNumber = 101 + len(existing)
		}

		numbers := make([]string, 0, roomCount)
		for i := 0; i < roomCount; i++ {
			number := strconv.Itoa(startNumber + i)
			if existing[number] {
				return engine.NewError(engine.KindConflict, engine.CodeRoomNumberTaken,
					"room number %s already exists in property %d", number, propertyID)
			}
			numbers = append(numbers, number)
		}

		roomType = model.RoomType{PropertyID: propertyID, Sharing: sharing, BasePrice: basePrice}
		if err := tx.Create(&roomType).Error; err != nil {
			return fmt.Errorf("create room type: %w", err)
		}

		rooms = make([]model.Room, 0, roomCount)
		for _, number := range numbers {
			rooms = append(rooms, model.Room{
				PropertyID: propertyID,
				RoomTypeID: roomType.ID,
				Number:     number,
			})
		}
		if err := tx.Create(&rooms).Error; err != nil {
			return fmt.Errorf("create rooms: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &roomType, rooms, nil
}

func (s *gormStore) ListRooms(ctx context.Context, propertyID int64) ([]model.Room, error) {
	var rooms []model.Room
	if err := s.db.WithContext(ctx).
		Preload("RoomType").
		Where("property_id = ?", propertyID).
		Order("number").
		Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

func (s *gormStore) RenameRoom(ctx context.Context, roomID int64, newNumber string) error {
	if newNumber == "" {
		return engine.NewError(engine.KindValidation, "", "room number is required")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := loadRoom(tx, roomID)
		if err != nil {
			return err
		}

		var n int64
		if err := tx.Model(&model.Room{}).
			Where("property_id = ? AND number = ? AND id <> ?", room.PropertyID, newNumber, roomID).
			Count(&n).Error; err != nil {
			return fmt.Errorf("check room number: %w", err)
		}
		if n > 0 {
			return engine.NewError(engine.KindConflict, engine.CodeRoomNumberTaken,
				"room number %s already exists in property %d", newNumber, room.PropertyID)
		}

		return tx.Model(room).Update("number", newNumber).Error
	})
}

func (s *gormStore) SetRoomGenderRestriction(ctx context.Context, roomID int64, restriction string) error {
	if restriction != "" && restriction != "male" && restriction != "female" {
		return engine.NewError(engine.KindValidation, "", "unrecognized gender restriction %q", restriction)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := loadRoom(tx, roomID)
		if err != nil {
			return err
		}
		return tx.Model(room).Update("gender_restriction", restriction).Error
	})
}

// DeleteRoom removes a room. Blocked while any of its beds holds an
// active assignment.
func (s *gormStore) DeleteRoom(ctx context.Context, roomID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := loadRoom(tx, roomID)
		if err != nil {
			return err
		}

		var occupied int64
		if err := tx.Model(&model.TenantAssignment{}).
			Where("room_id = ? AND status = ?", roomID, model.AssignmentActive).
			Count(&occupied).Error; err != nil {
			return fmt.Errorf("count active assignments: %w", err)
		}
		if occupied > 0 {
			return engine.NewError(engine.KindPrecondition, engine.CodeRoomOccupied,
				"room %s still has %d occupied beds", room.Number, occupied)
		}

		return tx.Delete(room).Error
	})
}

func (s *gormStore) CreateTenant(ctx context.Context, t *model.Tenant) error {
	if t.Name == "" {
		return engine.NewError(engine.KindValidation, "", "tenant name is required")
	}
	if t.Gender != "" && t.Gender != "male" && t.Gender != "female" {
		return engine.NewError(engine.KindValidation, "", "unrecognized gender %q", t.Gender)
	}
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

func (s *gormStore) GetTenant(ctx context.Context, id int64) (*model.Tenant, error) {
	var t model.Tenant
	err := s.db.WithContext(ctx).First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, engine.NewError(engine.KindNotFound, "", "tenant %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	return &t, nil
}

func (s *gormStore) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	var tenants []model.Tenant
	if err := s.db.WithContext(ctx).Order("name").Find(&tenants).Error; err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return tenants, nil
}

func loadRoom(tx *gorm.DB, roomID int64) (*model.Room, error) {
	var room model.Room
	err := tx.First(&room, roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, engine.NewError(engine.KindNotFound, "", "room %d not found", roomID)
	}
	if err != nil {
		return nil, fmt.Errorf("load room: %w", err)
	}
	return &room, nil
}

func roomNumbersInProperty(tx *gorm.DB, propertyID int64) (map[string]bool, error) {
	var numbers []string
	if err := tx.Model(&model.Room{}).
		Where("property_id = ?", propertyID).
		Pluck("number", &numbers).Error; err != nil {
		return nil, fmt.Errorf("list room numbers: %w", err)
	}
	set := make(map[string]bool, len(numbers))
	for _, n := range numbers {
		set[n] = true
	}
	return set, nil
}
