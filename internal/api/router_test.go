package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetlock/fleetlock/internal/api"
	"github.com/fleetlock/fleetlock/internal/command"
	"github.com/fleetlock/fleetlock/internal/eventlog"
	"github.com/fleetlock/fleetlock/internal/location"
	"github.com/fleetlock/fleetlock/internal/operator"
	"github.com/fleetlock/fleetlock/internal/registry"
)

// testTokenService creates an operator token service for testing.
func testTokenService() *operator.TokenService {
	return operator.NewTokenService(operator.TokenConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.fleetlock.test",
		Audience:   "fleetlock-api",
	})
}

func newTestRouter() http.Handler {
	logger := zerolog.New(io.Discard)

	eventService := eventlog.NewService(eventlog.NewInMemoryRepository(), logger)
	registryService := registry.NewService(registry.ServiceConfig{
		Repo:   registry.NewInMemoryRepository(),
		Events: eventService,
		Logger: logger,
	})
	locationService := location.NewService(location.ServiceConfig{
		Repo:     location.NewInMemoryRepository(),
		Registry: registryService,
	})
	commandService := command.NewService(command.ServiceConfig{
		Repo:     command.NewInMemoryRepository(),
		Registry: registryService,
		Events:   eventService,
		Logger:   logger,
	})

	return api.NewRouter(api.RouterConfig{
		Version:         "test",
		BuildTime:       "2024-01-01T00:00:00Z",
		Logger:          logger,
		RegistryService: registryService,
		LocationService: locationService,
		CommandService:  commandService,
		EventService:    eventService,
		OperatorTokens:  testTokenService(),
	})
}

// doJSON performs a request with a JSON body and decodes the response
// envelope into a generic map.
func doJSON(t *testing.T, router http.Handler, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), "body: %s", rec.Body.String())
	}
	return rec, decoded
}

// registerDevice registers a device and returns its issued token.
func registerDevice(t *testing.T, router http.Handler, deviceID string) string {
	t.Helper()

	rec, body := doJSON(t, router, http.MethodPost, "/api/register_device", "", map[string]interface{}{
		"device_id":   deviceID,
		"device_name": "Test Phone",
		"model":       "Pixel 8",
		"os_version":  "14",
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %v", body)

	token, ok := body["device_token"].(string)
	require.True(t, ok, "expected token in %v", body)
	return token
}

// operatorToken issues a valid operator JWT.
func operatorToken(t *testing.T) string {
	t.Helper()
	token, _, err := testTokenService().Issue("op-test")
	require.NoError(t, err)
	return token
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter()

	rec, body := doJSON(t, router, http.MethodGet, "/api/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestRouter_ReadyCheck(t *testing.T) {
	router := newTestRouter()

	// No DB configured in tests, readiness reports ok
	rec, body := doJSON(t, router, http.MethodGet, "/api/ready", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_UnknownRoute_ErrorEnvelope(t *testing.T) {
	router := newTestRouter()

	rec, body := doJSON(t, router, http.MethodGet, "/api/nope", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "not found", body["message"])
}

func TestRouter_MethodNotAllowed_ErrorEnvelope(t *testing.T) {
	router := newTestRouter()

	rec, body := doJSON(t, router, http.MethodDelete, "/api/register_device", "", nil)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "error", body["status"])
}

func TestRouter_RegisterDevice(t *testing.T) {
	router := newTestRouter()

	rec, body := doJSON(t, router, http.MethodPost, "/api/register_device", "", map[string]interface{}{
		"device_id":   "phone-1",
		"device_name": "My Phone",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "phone-1", body["device_id"])
	assert.Equal(t, true, body["created"])

	token, ok := body["device_token"].(string)
	require.True(t, ok, "expected device_token in %v", body)
	assert.Len(t, token, 32, "token should be 16 hex-encoded bytes")

	_, hasLegacyKey := body["token"]
	assert.False(t, hasLegacyKey, "credential field is named device_token")
}

func TestRouter_RegisterDevice_ReRegisterKeepsToken(t *testing.T) {
	router := newTestRouter()

	first := registerDevice(t, router, "phone-1")

	rec, body := doJSON(t, router, http.MethodPost, "/api/register_device", "", map[string]interface{}{
		"device_id":   "phone-1",
		"device_name": "Renamed Phone",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["created"])
	assert.Equal(t, first, body["device_token"], "re-registration must not rotate the token")
}

func TestRouter_RegisterDevice_MissingFields(t *testing.T) {
	router := newTestRouter()

	rec, body := doJSON(t, router, http.MethodPost, "/api/register_device", "", map[string]interface{}{
		"model": "Pixel 8",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["message"], "device_id")
	assert.Contains(t, body["message"], "device_name")
}

func TestRouter_LocationUpload(t *testing.T) {
	router := newTestRouter()
	token := registerDevice(t, router, "phone-1")

	rec, body := doJSON(t, router, http.MethodPost, "/api/devices/phone-1/location", token, map[string]interface{}{
		"lat":      52.37,
		"lng":      4.89,
		"accuracy": 12.5,
		"provider": "gps",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_LocationUpload_RequiresAuth(t *testing.T) {
	router := newTestRouter()
	registerDevice(t, router, "phone-1")

	rec, body := doJSON(t, router, http.MethodPost, "/api/devices/phone-1/location", "", map[string]interface{}{
		"lat": 52.37,
		"lng": 4.89,
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "error", body["status"])
}

func TestRouter_LocationUpload_RejectsForeignToken(t *testing.T) {
	router := newTestRouter()
	registerDevice(t, router, "phone-1")
	otherToken := registerDevice(t, router, "phone-2")

	rec, _ := doJSON(t, router, http.MethodPost, "/api/devices/phone-1/location", otherToken, map[string]interface{}{
		"lat": 52.37,
		"lng": 4.89,
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_LocationUpload_InvalidCoordinates(t *testing.T) {
	router := newTestRouter()
	token := registerDevice(t, router, "phone-1")

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"lat out of range", map[string]interface{}{"lat": 91.0, "lng": 4.89}},
		{"lng out of range", map[string]interface{}{"lat": 52.37, "lng": -181.0}},
		{"missing lat", map[string]interface{}{"lng": 4.89}},
		{"missing lng", map[string]interface{}{"lat": 52.37}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := doJSON(t, router, http.MethodPost, "/api/devices/phone-1/location", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "error", body["status"])
		})
	}
}

func TestRouter_Status_ReflectsLastLocation(t *testing.T) {
	router := newTestRouter()
	token := registerDevice(t, router, "phone-1")

	// Before any upload the last location is null
	rec, body := doJSON(t, router, http.MethodGet, "/api/devices/phone-1/status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Test Phone", body["device_name"])
	assert.Equal(t, true, body["is_active"])
	assert.Nil(t, body["last_location"])

	rec, _ = doJSON(t, router, http.MethodPost, "/api/devices/phone-1/location", token, map[string]interface{}{
		"lat": 52.37,
		"lng": 4.89,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = doJSON(t, router, http.MethodGet, "/api/devices/phone-1/status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	loc, ok := body["last_location"].(map[string]interface{})
	require.True(t, ok, "expected last_location in %v", body)
	assert.Equal(t, 52.37, loc["lat"])
	assert.Equal(t, 4.89, loc["lng"])
}

func TestRouter_CommandRoundTrip(t *testing.T) {
	router := newTestRouter()
	deviceToken := registerDevice(t, router, "phone-1")
	opToken := operatorToken(t)

	// Operator enqueues a command
	rec, body := doJSON(t, router, http.MethodPost, "/api/devices/phone-1/commands", opToken, map[string]interface{}{
		"type":    "LOCK",
		"payload": map[string]interface{}{"message": "locked by operator"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %v", body)
	commandID := int64(body["command_id"].(float64))
	require.Greater(t, commandID, int64(0))

	// Device polls and sees it
	rec, body = doJSON(t, router, http.MethodGet, "/api/devices/phone-1/commands/poll", deviceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	items, ok := body["data"].([]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)

	first := items[0].(map[string]interface{})
	assert.Equal(t, float64(commandID), first["id"])
	assert.Equal(t, "LOCK", first["type"])

	// Device acknowledges execution
	ackPath := fmt.Sprintf("/api/devices/phone-1/commands/%d/ack", commandID)
	rec, body = doJSON(t, router, http.MethodPost, ackPath, deviceToken, map[string]interface{}{
		"status":  "executed",
		"message": "done",
	})
	require.Equal(t, http.StatusOK, rec.Code, "body: %v", body)

	// Acknowledged commands no longer appear in polls
	rec, body = doJSON(t, router, http.MethodGet, "/api/devices/phone-1/commands/poll", deviceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items, ok = body["data"].([]interface{})
	require.True(t, ok)
	assert.Empty(t, items)
}

func TestRouter_Poll_SinceIDWatermark(t *testing.T) {
	router := newTestRouter()
	deviceToken := registerDevice(t, router, "phone-1")
	opToken := operatorToken(t)

	var ids []int64
	for i := 0; i < 3; i++ {
		_, body := doJSON(t, router, http.MethodPost, "/api/devices/phone-1/commands", opToken, map[string]interface{}{
			"type": "ALARM",
		})
		ids = append(ids, int64(body["command_id"].(float64)))
	}

	path := fmt.Sprintf("/api/devices/phone-1/commands/poll?since_id=%d", ids[0])
	rec, body := doJSON(t, router, http.MethodGet, path, deviceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	items := body["data"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, float64(ids[1]), items[0].(map[string]interface{})["id"])
	assert.Equal(t, float64(ids[2]), items[1].(map[string]interface{})["id"])
}

func TestRouter_CommandCreate_RequiresOperatorToken(t *testing.T) {
	router := newTestRouter()
	deviceToken := registerDevice(t, router, "phone-1")

	// A device token is not an operator JWT
	rec, body := doJSON(t, router, http.MethodPost, "/api/devices/phone-1/commands", deviceToken, map[string]interface{}{
		"type": "LOCK",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "error", body["status"])
}

func TestRouter_CommandCreate_UnknownType(t *testing.T) {
	router := newTestRouter()
	registerDevice(t, router, "phone-1")

	rec, body := doJSON(t, router, http.MethodPost, "/api/devices/phone-1/commands", operatorToken(t), map[string]interface{}{
		"type": "SELF_DESTRUCT",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", body["status"])
}

func TestRouter_CommandCreate_UnknownDevice(t *testing.T) {
	router := newTestRouter()

	rec, body := doJSON(t, router, http.MethodPost, "/api/devices/ghost/commands", operatorToken(t), map[string]interface{}{
		"type": "LOCK",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "error", body["status"])
}

func TestRouter_Ack_ForeignCommandIsSilentNoOp(t *testing.T) {
	router := newTestRouter()
	registerDevice(t, router, "phone-1")
	otherToken := registerDevice(t, router, "phone-2")
	opToken := operatorToken(t)

	_, body := doJSON(t, router, http.MethodPost, "/api/devices/phone-1/commands", opToken, map[string]interface{}{
		"type": "LOCK",
	})
	commandID := int64(body["command_id"].(float64))

	// phone-2 acks phone-1's command: succeeds but changes nothing
	ackPath := fmt.Sprintf("/api/devices/phone-2/commands/%d/ack", commandID)
	rec, body := doJSON(t, router, http.MethodPost, ackPath, otherToken, map[string]interface{}{
		"status": "executed",
	})
	require.Equal(t, http.StatusOK, rec.Code, "body: %v", body)

	// The command is still pending for phone-1
	deviceToken := registerDeviceToken(t, router, "phone-1")
	rec, body = doJSON(t, router, http.MethodGet, "/api/devices/phone-1/commands/poll", deviceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := body["data"].([]interface{})
	assert.Len(t, items, 1)
}

// registerDeviceToken re-registers an existing device to recover its token.
func registerDeviceToken(t *testing.T, router http.Handler, deviceID string) string {
	t.Helper()

	rec, body := doJSON(t, router, http.MethodPost, "/api/register_device", "", map[string]interface{}{
		"device_id":   deviceID,
		"device_name": "Test Phone",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	return body["device_token"].(string)
}

func TestRouter_SimChange_RecordsEventAndLocation(t *testing.T) {
	router := newTestRouter()
	token := registerDevice(t, router, "phone-1")

	rec, body := doJSON(t, router, http.MethodPost, "/api/devices/phone-1/sim_change", token, map[string]interface{}{
		"new_imsi": "204080000000001",
		"location": map[string]interface{}{"lat": 52.0, "lng": 5.0},
	})
	require.Equal(t, http.StatusOK, rec.Code, "body: %v", body)

	// The embedded location becomes the device's last known position
	rec, body = doJSON(t, router, http.MethodGet, "/api/devices/phone-1/status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	loc, ok := body["last_location"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 52.0, loc["lat"])
	assert.Equal(t, "sim_change", loc["provider"])
}

func TestRouter_Deactivate_BlocksDeviceCalls(t *testing.T) {
	router := newTestRouter()
	token := registerDevice(t, router, "phone-1")

	rec, _ := doJSON(t, router, http.MethodPost, "/api/devices/phone-1/deactivate", operatorToken(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The device's own credential no longer works
	rec, body := doJSON(t, router, http.MethodGet, "/api/devices/phone-1/status", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "error", body["status"])
}

func TestRouter_RejectsNonJSONContentType(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/register_device", bytes.NewReader([]byte("device_id=phone-1")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
