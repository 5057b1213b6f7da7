package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pgstay-backend/internal/events"
	"pgstay-backend/internal/metrics"
	"pgstay-backend/internal/model"
)

const (
	defaultCheckInGrace = 48 * time.Hour
	defaultClaimRetries = 3
)

// VacancyNotifier is told which property just gained a free bed, so
// the alert worker pool can fan out push notifications.
type VacancyNotifier interface {
	Dispatch(propertyID int64)
}

// Engine is the sole authority for creating, moving and ending
// tenant-to-bed bindings. Everything else reads derived state from it.
//
// Correctness rests on two layers: striped per-room and per-tenant
// mutexes serialize read-check-write sequences within this process,
// and the claim transaction re-checks slot freedom (plus the partial
// unique index on postgres) so a second process can never win the same
// bed.
type Engine struct {
	db      *gorm.DB
	sink    events.Sink
	metrics *metrics.AllocationMetrics
	vacancy VacancyNotifier
	log     *logrus.Logger

	rooms   *lockTable
	tenants *lockTable

	checkInGrace time.Duration
	claimRetries int
	now          func() time.Time
}

// Options configures an Engine. Zero values pick sane defaults.
type Options struct {
	Sink         events.Sink
	Metrics      *metrics.AllocationMetrics
	Vacancy      VacancyNotifier
	Log          *logrus.Logger
	CheckInGrace time.Duration
	ClaimRetries int
	Now          func() time.Time
}

// New builds an allocation engine on top of the given database.
func New(db *gorm.DB, opts Options) *Engine {
	if opts.Sink == nil {
		opts.Sink = events.NopSink{}
	}
	if opts.Log == nil {
		opts.Log = logrus.New()
	}
	if opts.CheckInGrace <= 0 {
		opts.CheckInGrace = defaultCheckInGrace
	}
	if opts.ClaimRetries <= 0 {
		opts.ClaimRetries = defaultClaimRetries
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		db:           db,
		sink:         opts.Sink,
		metrics:      opts.Metrics,
		vacancy:      opts.Vacancy,
		log:          opts.Log,
		rooms:        newLockTable(),
		tenants:      newLockTable(),
		checkInGrace: opts.CheckInGrace,
		claimRetries: opts.ClaimRetries,
		now:          opts.Now,
	}
}

// AssignOptions carries the optional parts of an assign or transfer.
type AssignOptions struct {
	// BedSlot is the preferred slot index. When nil or already taken,
	// the lowest-indexed free slot is claimed instead.
	BedSlot *int
	// CheckIn overrides the check-in date. Rejected when beyond the
	// configured future grace window.
	CheckIn *time.Time
}

// Assign binds a tenant to a bed in the given room.
//
// Precondition order: tenant has no active assignment, room has a free
// bed, tenant's gender is compatible with the room restriction. Each
// violation is a distinct error kind so callers can present them
// differently.
func (e *Engine) Assign(ctx context.Context, tenantID, roomID int64, opts AssignOptions) (*model.TenantAssignment, error) {
	unlockTenant := e.tenants.lock(tenantID)
	defer unlockTenant()
	unlockRoom := e.rooms.lock(roomID)
	defer unlockRoom()

	assignment, propertyID, err := e.assignWithRetry(ctx, tenantID, roomID, opts, true)
	e.record("assign", err)
	if err != nil {
		return nil, err
	}

	e.emitAssigned(ctx, assignment, propertyID)
	return assignment, nil
}

// Remove ends the tenant's active assignment and frees the bed.
// Calling it again immediately yields NotFound, never a corrupted
// state; the status-conditional update makes retries safe.
func (e *Engine) Remove(ctx context.Context, tenantID int64) (*model.TenantAssignment, error) {
	unlockTenant := e.tenants.lock(tenantID)
	defer unlockTenant()

	var ended *model.TenantAssignment
	var propertyID int64
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, pid, err := endActiveAssignment(tx, tenantID, e.now())
		if err != nil {
			return err
		}
		ended = a
		propertyID = pid
		return nil
	})
	e.record("remove", err)
	if err != nil {
		return nil, err
	}

	e.emitVacated(ctx, ended, propertyID)
	return ended, nil
}

// Transfer atomically moves the tenant to a bed in newRoomID. The
// whole operation is all-or-nothing: when the claim on the new room
// fails, the original assignment stays untouched.
func (e *Engine) Transfer(ctx context.Context, tenantID, newRoomID int64, opts AssignOptions) (*model.TenantAssignment, error) {
	unlockTenant := e.tenants.lock(tenantID)
	defer unlockTenant()

	// The tenant lock guarantees the current assignment cannot change
	// under us, so the old room ID can be read before taking room locks.
	var current model.TenantAssignment
	err := e.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, model.AssignmentActive).
		First(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = NewError(KindNotFound, "", "tenant %d has no active assignment", tenantID)
		e.record("transfer", err)
		return nil, err
	}
	if err != nil {
		e.record("transfer", err)
		return nil, fmt.Errorf("load current assignment: %w", err)
	}

	unlockRooms := e.rooms.lockPair(current.RoomID, newRoomID)
	defer unlockRooms()

	var created, endedCopy *model.TenantAssignment
	var oldPropertyID, newPropertyID int64
	exclude := make(map[int]bool)
	attempt := func() error {
		return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			ended, oldPID, err := endActiveAssignment(tx, tenantID, e.now())
			if err != nil {
				return err
			}
			tenant, err := loadTenant(tx, tenantID)
			if err != nil {
				return err
			}
			a, newPID, err := e.claimInTx(tx, tenant, newRoomID, opts, exclude)
			if err != nil {
				return err
			}
			created, endedCopy = a, ended
			oldPropertyID, newPropertyID = oldPID, newPID
			return nil
		})
	}

	err = attempt()
	for retries := 0; IsKind(err, KindConcurrency) && retries < e.claimRetries; retries++ {
		e.metrics.RecordClaimRetry()
		err = attempt()
	}
	e.record("transfer", err)
	if err != nil {
		return nil, err
	}

	e.emitVacated(ctx, endedCopy, oldPropertyID)
	e.emitAssigned(ctx, created, newPropertyID)
	return created, nil
}

// assignWithRetry runs the claim transaction, re-picking the next free
// slot a bounded number of times when another writer wins the race.
func (e *Engine) assignWithRetry(ctx context.Context, tenantID, roomID int64, opts AssignOptions, checkTenantFree bool) (*model.TenantAssignment, int64, error) {
	exclude := make(map[int]bool)
	var assignment *model.TenantAssignment
	var propertyID int64

	attempt := func() error {
		return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			tenant, err := loadTenant(tx, tenantID)
			if err != nil {
				return err
			}
			if checkTenantFree {
				var n int64
				if err := tx.Model(&model.TenantAssignment{}).
					Where("tenant_id = ? AND status = ?", tenantID, model.AssignmentActive).
					Count(&n).Error; err != nil {
					return fmt.Errorf("count tenant assignments: %w", err)
				}
				if n > 0 {
					return NewError(KindConflict, CodeTenantAlreadyAssigned,
						"tenant %d already holds an active assignment", tenantID)
				}
			}
			a, pid, err := e.claimInTx(tx, tenant, roomID, opts, exclude)
			if err != nil {
				return err
			}
			assignment, propertyID = a, pid
			return nil
		})
	}

	err := attempt()
	for retries := 0; IsKind(err, KindConcurrency) && retries < e.claimRetries; retries++ {
		e.metrics.RecordClaimRetry()
		err = attempt()
	}
	if err != nil {
		return nil, 0, err
	}
	return assignment, propertyID, nil
}

// claimInTx performs the capacity and gender checks and claims one bed
// slot inside the caller's transaction. Slots in exclude were lost to
// a concurrent writer earlier in this operation and are skipped.
func (e *Engine) claimInTx(tx *gorm.DB, tenant *model.Tenant, roomID int64, opts AssignOptions, exclude map[int]bool) (*model.TenantAssignment, int64, error) {
	var room model.Room
	err := tx.Preload("RoomType").First(&room, roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, NewError(KindNotFound, "", "room %d not found", roomID)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load room: %w", err)
	}

	capacity := room.RoomType.Sharing.BedCount()
	if capacity == 0 {
		return nil, 0, NewError(KindValidation, "", "room %d has unrecognized sharing kind %q", roomID, room.RoomType.Sharing)
	}

	var active []model.TenantAssignment
	if err := tx.Where("room_id = ? AND status = ?", roomID, model.AssignmentActive).
		Find(&active).Error; err != nil {
		return nil, 0, fmt.Errorf("load active assignments: %w", err)
	}
	if len(active) >= capacity {
		return nil, 0, NewError(KindCapacity, CodeRoomFull,
			"room %s has no free bed (%d/%d occupied)", room.Number, len(active), capacity)
	}

	if room.GenderRestriction != "" && tenant.Gender != "" && tenant.Gender != room.GenderRestriction {
		return nil, 0, NewError(KindConflict, CodeGenderMismatch,
			"room %s accepts %s tenants only", room.Number, room.GenderRestriction)
	}

	slot, err := pickSlot(capacity, active, exclude, opts.BedSlot)
	if err != nil {
		return nil, 0, err
	}
	if slot < 0 {
		// Every remaining slot was lost to concurrent claims.
		return nil, 0, NewError(KindCapacity, CodeRoomFull, "room %s has no free bed", room.Number)
	}

	checkIn, err := e.resolveCheckIn(opts.CheckIn)
	if err != nil {
		return nil, 0, err
	}

	// Re-check the slot right before the write. Inside one process the
	// room lock makes this redundant; a second process shows up here.
	var n int64
	if err := tx.Model(&model.TenantAssignment{}).
		Where("room_id = ? AND bed_slot = ? AND status = ?", roomID, slot, model.AssignmentActive).
		Count(&n).Error; err != nil {
		return nil, 0, fmt.Errorf("re-check bed slot: %w", err)
	}
	if n > 0 {
		exclude[slot] = true
		return nil, 0, NewError(KindConcurrency, CodeBedSlotClaimed,
			"bed slot %d of room %s was claimed concurrently", slot, room.Number)
	}

	assignment := model.TenantAssignment{
		ID:          uuid.NewString(),
		TenantID:    tenant.ID,
		RoomID:      roomID,
		BedSlot:     slot,
		CheckInDate: checkIn,
		Status:      model.AssignmentActive,
	}
	if err := tx.Create(&assignment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race at the partial unique index.
			exclude[slot] = true
			return nil, 0, NewError(KindConcurrency, CodeBedSlotClaimed,
				"bed slot %d of room %s was claimed concurrently", slot, room.Number)
		}
		return nil, 0, fmt.Errorf("create assignment: %w", err)
	}
	return &assignment, room.PropertyID, nil
}

// pickSlot returns the slot to claim, or -1 when no candidate remains.
// Preferred slot wins when free; otherwise the lowest free index, so
// the result is deterministic regardless of insertion order.
func pickSlot(capacity int, active []model.TenantAssignment, exclude map[int]bool, preferred *int) (int, error) {
	taken := make(map[int]bool, len(active))
	for _, a := range active {
		taken[a.BedSlot] = true
	}

	if preferred != nil {
		p := *preferred
		if p < 0 || p >= capacity {
			return 0, NewError(KindValidation, "", "bed slot %d out of range [0,%d)", p, capacity)
		}
		if !taken[p] && !exclude[p] {
			return p, nil
		}
	}

	for slot := 0; slot < capacity; slot++ {
		if !taken[slot] && !exclude[slot] {
			return slot, nil
		}
	}
	return -1, nil
}

func (e *Engine) resolveCheckIn(supplied *time.Time) (time.Time, error) {
	now := e.now()
	if supplied == nil {
		return now, nil
	}
	if supplied.After(now.Add(e.checkInGrace)) {
		return time.Time{}, NewError(KindValidation, "",
			"check-in date %s is beyond the %s future grace window",
			supplied.Format(time.RFC3339), e.checkInGrace)
	}
	return *supplied, nil
}

// endActiveAssignment marks the tenant's active assignment ended. The
// status-conditional update means a lost race surfaces as NotFound
// instead of a double-ended row.
func endActiveAssignment(tx *gorm.DB, tenantID int64, at time.Time) (*model.TenantAssignment, int64, error) {
	var a model.TenantAssignment
	err := tx.Where("tenant_id = ? AND status = ?", tenantID, model.AssignmentActive).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, NewError(KindNotFound, "", "tenant %d has no active assignment", tenantID)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load active assignment: %w", err)
	}

	res := tx.Model(&model.TenantAssignment{}).
		Where("id = ? AND status = ?", a.ID, model.AssignmentActive).
		Updates(map[string]any{
			"status":         model.AssignmentEnded,
			"check_out_date": at,
		})
	if res.Error != nil {
		return nil, 0, fmt.Errorf("end assignment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, 0, NewError(KindNotFound, "", "assignment %s already ended", a.ID)
	}

	a.Status = model.AssignmentEnded
	a.CheckOutDate = &at

	var room model.Room
	if err := tx.First(&room, a.RoomID).Error; err != nil {
		return nil, 0, fmt.Errorf("load room for ended assignment: %w", err)
	}
	return &a, room.PropertyID, nil
}

func loadTenant(tx *gorm.DB, tenantID int64) (*model.Tenant, error) {
	var tenant model.Tenant
	err := tx.First(&tenant, tenantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewError(KindNotFound, "", "tenant %d not found", tenantID)
	}
	if err != nil {
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	return &tenant, nil
}

func (e *Engine) emitAssigned(ctx context.Context, a *model.TenantAssignment, propertyID int64) {
	ev := events.BedAssigned{
		TenantID:    a.TenantID,
		PropertyID:  propertyID,
		RoomID:      a.RoomID,
		BedSlot:     a.BedSlot,
		CheckInDate: a.CheckInDate,
	}
	if err := e.sink.PublishAssigned(ctx, ev); err != nil {
		e.log.WithError(err).WithField("tenantId", a.TenantID).Warn("failed to publish bed_assigned event")
		return
	}
	e.metrics.RecordEventQueued()
}

func (e *Engine) emitVacated(ctx context.Context, a *model.TenantAssignment, propertyID int64) {
	checkOut := e.now()
	if a.CheckOutDate != nil {
		checkOut = *a.CheckOutDate
	}
	ev := events.BedVacated{
		TenantID:     a.TenantID,
		PropertyID:   propertyID,
		RoomID:       a.RoomID,
		BedSlot:      a.BedSlot,
		CheckOutDate: checkOut,
	}
	if err := e.sink.PublishVacated(ctx, ev); err != nil {
		e.log.WithError(err).WithField("tenantId", a.TenantID).Warn("failed to publish bed_vacated event")
	} else {
		e.metrics.RecordEventQueued()
	}

	if e.vacancy != nil {
		e.vacancy.Dispatch(propertyID)
	}
}

func (e *Engine) record(op string, err error) {
	outcome := "ok"
	if err != nil {
		if kind := KindOf(err); kind != "" {
			outcome = string(kind)
		} else {
			outcome = "error"
		}
	}
	e.metrics.RecordOperation(op, outcome)
	if err != nil && KindOf(err) == "" {
		e.log.WithError(err).WithField("op", op).Error("allocation operation failed")
	}
}
