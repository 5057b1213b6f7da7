package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pgstay-backend/config"
	"pgstay-backend/internal/db"
	"pgstay-backend/internal/engine"
	"pgstay-backend/internal/mw"
	"pgstay-backend/internal/store"
)

func newTestServer(t *testing.T) (*gin.Engine, store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb))

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	s := store.NewGormStore(gdb)
	e := engine.New(gdb, engine.Options{Log: log})

	router := NewRouter(RouterDeps{
		Store:   s,
		Engine:  e,
		Auth:    mw.NewAuthenticator("", true),
		WebPush: &webpush.Options{VAPIDPublicKey: "test-public-key"},
		Log:     log,
		Server: config.ServerConfig{
			RateLimitPerSec: 1000,
			RateLimitBurst:  1000,
			CacheTTLSeconds: 1,
		},
	})
	return router, s
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// createFixtures provisions one property with rooms of the given
// sharing kind through the public API and returns the created IDs.
func createFixtures(t *testing.T, router *gin.Engine, sharing string, roomCount int) (propertyID int64, roomIDs []int64) {
	t.Helper()

	w := doJSON(t, router, http.MethodPost, "/api/properties", gin.H{
		"name": "Sunrise PG", "city": "Pune",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	propertyID = int64(decodeBody(t, w)["id"].(float64))

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/properties/%d/room-types", propertyID), gin.H{
		"sharing": sharing, "basePrice": 800000, "roomCount": roomCount, "startNumber": 101,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Rooms []struct {
			ID int64 `json:"id"`
		} `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	for _, r := range resp.Rooms {
		roomIDs = append(roomIDs, r.ID)
	}
	return propertyID, roomIDs
}

func createTenantHTTP(t *testing.T, router *gin.Engine, name, gender string) int64 {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/tenants", gin.H{"name": name, "gender": gender})
	require.Equal(t, http.StatusCreated, w.Code)
	return int64(decodeBody(t, w)["id"].(float64))
}

func TestHealthz(t *testing.T) {
	router, _ := newTestServer(t)
	w := doJSON(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPropertyLifecycle(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/properties", gin.H{"city": "Pune"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "name is required")

	propertyID, _ := createFixtures(t, router, "double", 2)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/properties/%d", propertyID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Sunrise PG")

	w = doJSON(t, router, http.MethodGet, "/api/properties/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/properties/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/properties/%d", propertyID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/properties", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "Sunrise PG", "archived properties drop out of the listing")
}

func TestAssignFlow(t *testing.T) {
	router, _ := newTestServer(t)
	_, roomIDs := createFixtures(t, router, "double", 1)
	roomID := roomIDs[0]

	tenantA := createTenantHTTP(t, router, "Asha", "female")
	tenantB := createTenantHTTP(t, router, "Bina", "female")
	tenantC := createTenantHTTP(t, router, "Chitra", "female")

	w := doJSON(t, router, http.MethodPost, "/api/assignments", gin.H{"tenantId": tenantA, "roomId": roomID})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(0), decodeBody(t, w)["bedSlot"])

	w = doJSON(t, router, http.MethodPost, "/api/assignments", gin.H{"tenantId": tenantB, "roomId": roomID})
	require.Equal(t, http.StatusCreated, w.Code)

	// Room full: 409 with a stable machine code.
	w = doJSON(t, router, http.MethodPost, "/api/assignments", gin.H{"tenantId": tenantC, "roomId": roomID})
	assert.Equal(t, http.StatusConflict, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "RoomFull", body["code"])
	assert.Equal(t, "capacity", body["kind"])

	// Double assign of the same tenant.
	w = doJSON(t, router, http.MethodPost, "/api/assignments", gin.H{"tenantId": tenantA, "roomId": roomID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "TenantAlreadyAssigned", decodeBody(t, w)["code"])

	// Remove frees the bed; a second remove is a 404.
	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/assignments/%d", tenantA), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/assignments/%d", tenantA), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/assignments", gin.H{"tenantId": tenantC, "roomId": roomID})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(0), decodeBody(t, w)["bedSlot"], "freed slot is reused")

	w = doJSON(t, router, http.MethodPost, "/api/assignments", gin.H{"tenantId": tenantB, "roomId": roomID, "checkIn": "oops"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransferEndpoint(t *testing.T) {
	router, _ := newTestServer(t)
	_, roomIDs := createFixtures(t, router, "single", 2)
	tenantA := createTenantHTTP(t, router, "Asha", "")
	tenantB := createTenantHTTP(t, router, "Bina", "")

	w := doJSON(t, router, http.MethodPost, "/api/assignments", gin.H{"tenantId": tenantA, "roomId": roomIDs[0]})
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, router, http.MethodPost, "/api/assignments", gin.H{"tenantId": tenantB, "roomId": roomIDs[1]})
	require.Equal(t, http.StatusCreated, w.Code)

	// Target full: 409, tenant stays where they were.
	w = doJSON(t, router, http.MethodPost, "/api/assignments/transfer", gin.H{"tenantId": tenantA, "roomId": roomIDs[1]})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "RoomFull", decodeBody(t, w)["code"])

	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/assignments/%d", tenantB), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/assignments/transfer", gin.H{"tenantId": tenantA, "roomId": roomIDs[1]})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(roomIDs[1]), decodeBody(t, w)["roomId"])
}

func TestGenderMismatchEndpoint(t *testing.T) {
	router, _ := newTestServer(t)
	_, roomIDs := createFixtures(t, router, "double", 1)

	w := doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/rooms/%d/gender", roomIDs[0]), gin.H{"restriction": "female"})
	require.Equal(t, http.StatusNoContent, w.Code)

	tenant := createTenantHTTP(t, router, "Arun", "male")
	w = doJSON(t, router, http.MethodPost, "/api/assignments", gin.H{"tenantId": tenant, "roomId": roomIDs[0]})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "GenderMismatch", decodeBody(t, w)["code"])
}

func TestRoomBoard(t *testing.T) {
	router, _ := newTestServer(t)
	propertyID, roomIDs := createFixtures(t, router, "double", 2)
	tenant := createTenantHTTP(t, router, "Asha", "")

	w := doJSON(t, router, http.MethodPost, "/api/assignments", gin.H{"tenantId": tenant, "roomId": roomIDs[0]})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/properties/%d/rooms", propertyID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var board []struct {
		Number    string `json:"number"`
		Capacity  int    `json:"capacity"`
		Occupied  int    `json:"occupied"`
		Available int    `json:"available"`
		Beds      []struct {
			Slot     int   `json:"slot"`
			Occupied bool  `json:"occupied"`
			TenantID int64 `json:"tenantId"`
		} `json:"beds"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &board))
	require.Len(t, board, 2)

	assert.Equal(t, "101", board[0].Number)
	assert.Equal(t, 2, board[0].Capacity)
	assert.Equal(t, 1, board[0].Occupied)
	assert.Equal(t, 1, board[0].Available)
	require.Len(t, board[0].Beds, 2)
	assert.True(t, board[0].Beds[0].Occupied)
	assert.Equal(t, tenant, board[0].Beds[0].TenantID)
	assert.False(t, board[0].Beds[1].Occupied)

	assert.Equal(t, 0, board[1].Occupied)
}

func TestOccupancyEndpoints(t *testing.T) {
	router, _ := newTestServer(t)
	propertyID, roomIDs := createFixtures(t, router, "double", 2)
	tenant := createTenantHTTP(t, router, "Asha", "")

	w := doJSON(t, router, http.MethodPost, "/api/assignments", gin.H{"tenantId": tenant, "roomId": roomIDs[0]})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/rooms/%d/occupancy", roomIDs[0]), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"capacity":2,"occupied":1,"available":1}`, w.Body.String())

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/properties/%d/occupancy", propertyID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"capacity":4,"occupied":1,"available":3}`, w.Body.String())

	// Second read of the same path comes from the response cache.
	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/properties/%d/occupancy", propertyID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
}

func TestRenameAndDeleteRoom(t *testing.T) {
	router, _ := newTestServer(t)
	_, roomIDs := createFixtures(t, router, "single", 2)

	w := doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/rooms/%d", roomIDs[0]), gin.H{"number": "A-101"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/rooms/%d", roomIDs[0]), gin.H{"number": "102"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "RoomNumberTaken", decodeBody(t, w)["code"])

	tenant := createTenantHTTP(t, router, "Asha", "")
	w = doJSON(t, router, http.MethodPost, "/api/assignments", gin.H{"tenantId": tenant, "roomId": roomIDs[0]})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/rooms/%d", roomIDs[0]), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "RoomOccupied", decodeBody(t, w)["code"])

	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/rooms/%d", roomIDs[1]), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestPayments(t *testing.T) {
	router, _ := newTestServer(t)
	propertyID, _ := createFixtures(t, router, "double", 1)
	tenant := createTenantHTTP(t, router, "Asha", "")

	w := doJSON(t, router, http.MethodPost, "/api/payments", gin.H{
		"tenantId": tenant, "propertyId": propertyID, "periodMonth": "2026-3", "amount": 800000,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "malformed period month")

	w = doJSON(t, router, http.MethodPost, "/api/payments", gin.H{
		"tenantId": tenant, "propertyId": propertyID, "periodMonth": "2026-03", "amount": 800000,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	paymentID := decodeBody(t, w)["id"].(string)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/payments?tenant_id=%d&status=due", tenant), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), paymentID)

	w = doJSON(t, router, http.MethodPatch, "/api/payments/"+paymentID, gin.H{"method": "upi"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "paid", decodeBody(t, w)["status"])

	// Marking paid twice stays paid with the original method.
	w = doJSON(t, router, http.MethodPatch, "/api/payments/"+paymentID, gin.H{"method": "cash"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "upi", decodeBody(t, w)["method"])

	w = doJSON(t, router, http.MethodPatch, "/api/payments/nope", gin.H{"method": "upi"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestComplaints(t *testing.T) {
	router, _ := newTestServer(t)
	propertyID, _ := createFixtures(t, router, "double", 1)
	tenant := createTenantHTTP(t, router, "Asha", "")

	w := doJSON(t, router, http.MethodPost, "/api/complaints", gin.H{
		"tenantId": tenant, "propertyId": propertyID, "category": "plumbing", "description": "leaky tap",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	complaintID := decodeBody(t, w)["id"].(string)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/complaints?property_id=%d&status=open", propertyID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "leaky tap")

	w = doJSON(t, router, http.MethodPatch, "/api/complaints/"+complaintID, gin.H{"status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPatch, "/api/complaints/"+complaintID, gin.H{"status": "resolved"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "resolved", decodeBody(t, w)["status"])
}

func TestAlertSubscriptions(t *testing.T) {
	router, _ := newTestServer(t)
	propertyID, _ := createFixtures(t, router, "double", 1)

	w := doJSON(t, router, http.MethodGet, "/api/alerts/vapid_public_key", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "test-public-key", decodeBody(t, w)["publicKey"])

	w = doJSON(t, router, http.MethodPut, "/api/alerts/subscriptions", gin.H{
		"endpoint": "https://example.com/push", "p256dh": "key", "auth": "secret",
		"properties": []int64{propertyID},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/alerts/subscriptions?endpoint=https://example.com/push", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), fmt.Sprintf("[%d]", propertyID))

	// Replacing the watch list is an upsert on the same endpoint.
	w = doJSON(t, router, http.MethodPut, "/api/alerts/subscriptions", gin.H{
		"endpoint": "https://example.com/push", "p256dh": "key2", "auth": "secret2",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, router, http.MethodGet, "/api/alerts/subscriptions?endpoint=https://example.com/push", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"properties":[]`)

	w = doJSON(t, router, http.MethodDelete, "/api/alerts/subscriptions", gin.H{"endpoint": "https://example.com/push"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/alerts/subscriptions?endpoint=https://example.com/push", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
