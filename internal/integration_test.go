package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pgstay-backend/config"
	"pgstay-backend/internal/api"
	"pgstay-backend/internal/db"
	"pgstay-backend/internal/engine"
	"pgstay-backend/internal/events"
	"pgstay-backend/internal/model"
	"pgstay-backend/internal/mw"
	"pgstay-backend/internal/notify"
	"pgstay-backend/internal/store"
)

type captureSink struct {
	mu       sync.Mutex
	assigned []events.BedAssigned
	vacated  []events.BedVacated
}

func (s *captureSink) PublishAssigned(_ context.Context, ev events.BedAssigned) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assigned = append(s.assigned, ev)
	return nil
}

func (s *captureSink) PublishVacated(_ context.Context, ev events.BedVacated) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vacated = append(s.vacated, ev)
	return nil
}

func (s *captureSink) Close() error { return nil }

type pushSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

func (m *pushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

// TestOccupancyLifecycle walks a tenant through the entire occupancy
// lifecycle over the HTTP surface: provisioning, assignment, transfer
// and removal, checking the emitted billing events and the vacancy
// alert push at each step.
func TestOccupancyLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testDB, err := gorm.Open(sqlite.Open("file:lifecycle?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	// Vacancy alerts go through a real worker pool with a fake push
	// transport, so a freed bed must end in a captured notification.
	var pushWG sync.WaitGroup
	var pushMu sync.Mutex
	var pushedPayloads []string
	pool := notify.NewWorkerPool(2, testDB, &webpush.Options{}, log)
	pool.SetSender(&pushSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			pushMu.Lock()
			pushedPayloads = append(pushedPayloads, string(payload))
			pushMu.Unlock()
			pushWG.Done()
			return &http.Response{
				StatusCode: http.StatusCreated,
				Body:       io.NopCloser(bytes.NewBufferString("")),
			}, nil
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	sink := &captureSink{}
	s := store.NewGormStore(testDB)
	eng := engine.New(testDB, engine.Options{Sink: sink, Vacancy: pool, Log: log})

	router := api.NewRouter(api.RouterDeps{
		Store:   s,
		Engine:  eng,
		Auth:    mw.NewAuthenticator("", true),
		WebPush: &webpush.Options{VAPIDPublicKey: "integration-key"},
		Log:     log,
		Server: config.ServerConfig{
			RateLimitPerSec: 1000,
			RateLimitBurst:  1000,
			CacheTTLSeconds: 1,
		},
	})

	do := func(method, path string, payload any) *httptest.ResponseRecorder {
		var body bytes.Buffer
		if payload != nil {
			require.NoError(t, json.NewEncoder(&body).Encode(payload))
		}
		req := httptest.NewRequest(method, path, &body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	// --- Provision a property with one double and one single room ---

	w := do(http.MethodPost, "/api/properties", gin.H{"name": "Sunrise PG", "city": "Pune"})
	require.Equal(t, http.StatusCreated, w.Code)
	var property model.Property
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &property))

	w = do(http.MethodPost, fmt.Sprintf("/api/properties/%d/room-types", property.ID), gin.H{
		"sharing": "double", "basePrice": 800000, "roomCount": 1, "startNumber": 101,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var doubleResp struct {
		Rooms []model.Room `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doubleResp))
	doubleRoom := doubleResp.Rooms[0]

	w = do(http.MethodPost, fmt.Sprintf("/api/properties/%d/room-types", property.ID), gin.H{
		"sharing": "single", "basePrice": 1200000, "roomCount": 1, "startNumber": 201,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var singleResp struct {
		Rooms []model.Room `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &singleResp))
	singleRoom := singleResp.Rooms[0]

	// --- A browser subscribes to vacancy alerts for this property ---

	w = do(http.MethodPut, "/api/alerts/subscriptions", gin.H{
		"endpoint":   "https://push.example.com/sub-1",
		"p256dh":     "p256dh-key",
		"auth":       "auth-secret",
		"properties": []int64{property.ID},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// --- Move a tenant in ---

	w = do(http.MethodPost, "/api/tenants", gin.H{"name": "Asha", "gender": "female", "phone": "9876500001"})
	require.Equal(t, http.StatusCreated, w.Code)
	var tenant model.Tenant
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tenant))

	w = do(http.MethodPost, "/api/assignments", gin.H{"tenantId": tenant.ID, "roomId": doubleRoom.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	var assignment model.TenantAssignment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &assignment))
	assert.Equal(t, 0, assignment.BedSlot)
	assert.Equal(t, model.AssignmentActive, assignment.Status)

	sink.mu.Lock()
	require.Len(t, sink.assigned, 1)
	assert.Equal(t, tenant.ID, sink.assigned[0].TenantID)
	assert.Equal(t, property.ID, sink.assigned[0].PropertyID)
	sink.mu.Unlock()

	w = do(http.MethodGet, fmt.Sprintf("/api/properties/%d/occupancy", property.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"capacity":3,"occupied":1,"available":2}`, w.Body.String())

	// --- Transfer to the single room; the freed double bed alerts ---

	pushWG.Add(1)
	w = do(http.MethodPost, "/api/assignments/transfer", gin.H{"tenantId": tenant.ID, "roomId": singleRoom.ID})
	require.Equal(t, http.StatusOK, w.Code)
	var moved model.TenantAssignment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &moved))
	assert.Equal(t, singleRoom.ID, moved.RoomID)

	waitTimeout(t, &pushWG, 2*time.Second)
	pushMu.Lock()
	require.NotEmpty(t, pushedPayloads)
	assert.Equal(t, "A bed has opened up at Sunrise PG!", pushedPayloads[0])
	pushMu.Unlock()

	// --- Move the tenant out entirely ---

	pushWG.Add(1)
	w = do(http.MethodDelete, fmt.Sprintf("/api/assignments/%d", tenant.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ended model.TenantAssignment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ended))
	assert.Equal(t, model.AssignmentEnded, ended.Status)
	require.NotNil(t, ended.CheckOutDate)
	waitTimeout(t, &pushWG, 2*time.Second)

	// --- Final database state ---

	var activeCount int64
	require.NoError(t, testDB.Model(&model.TenantAssignment{}).
		Where("status = ?", model.AssignmentActive).Count(&activeCount).Error)
	assert.Equal(t, int64(0), activeCount)

	var history []model.TenantAssignment
	require.NoError(t, testDB.Where("tenant_id = ?", tenant.ID).Order("created_at").Find(&history).Error)
	assert.Len(t, history, 2, "one row per stay, both ended")
	for _, h := range history {
		assert.Equal(t, model.AssignmentEnded, h.Status)
		assert.NotNil(t, h.CheckOutDate)
	}

	sink.mu.Lock()
	assert.Len(t, sink.assigned, 2, "initial assign + transfer claim")
	assert.Len(t, sink.vacated, 2, "transfer vacate + final removal")
	sink.mu.Unlock()
}

func waitTimeout(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for vacancy alerts")
	}
}
