// Package models provides request and response models for the FleetLock API.
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// RegisterDeviceRequest is the body of POST /api/register_device.
type RegisterDeviceRequest struct {
	DeviceID   string  `json:"device_id"`
	DeviceName string  `json:"device_name"`
	Model      string  `json:"model,omitempty"`
	OSVersion  string  `json:"os_version,omitempty"`
	FCMToken   *string `json:"fcm_token,omitempty"`
}

// LocationUploadRequest is the body of POST /api/devices/{deviceId}/location.
// Lat and Lng are pointers so that absent fields can be told apart from zero
// coordinates.
type LocationUploadRequest struct {
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Provider  *string  `json:"provider,omitempty"`
	Timestamp *int64   `json:"timestamp,omitempty"`
}

// CommandCreateRequest is the body of POST /api/devices/{deviceId}/commands.
type CommandCreateRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CommandAckRequest is the body of POST /api/devices/{deviceId}/commands/{commandId}/ack.
type CommandAckRequest struct {
	Status     *string `json:"status,omitempty"`
	Message    *string `json:"message,omitempty"`
	ExecutedAt *int64  `json:"executed_at,omitempty"`
}

// SimChangeLocation is the optional location embedded in a SIM change report.
type SimChangeLocation struct {
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	Accuracy *float64 `json:"accuracy,omitempty"`
}

// SimChangeRequest is the body of POST /api/devices/{deviceId}/sim_change.
// The full raw body is preserved for the audit log; only the embedded
// location is interpreted by the server.
type SimChangeRequest struct {
	Location *SimChangeLocation `json:"location,omitempty"`
}

// Command is a single queued command as returned by the poll endpoint.
type Command struct {
	ID        int64           `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt Timestamp       `json:"created_at"`
}

// Location is a location sample as embedded in status responses.
type Location struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Accuracy   float64   `json:"accuracy"`
	Provider   string    `json:"provider"`
	RecordedAt Timestamp `json:"recorded_at"`
}

// DeviceStatus is the payload of GET /api/devices/{deviceId}/status.
type DeviceStatus struct {
	DeviceName   string    `json:"device_name"`
	Model        string    `json:"model"`
	OSVersion    string    `json:"os_version"`
	IsActive     bool      `json:"is_active"`
	LastSeen     Timestamp `json:"last_seen"`
	LastLocation *Location `json:"last_location"`
}

// FieldError describes a validation failure on a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates field errors for a rejected request.
type ValidationError struct {
	Errors []FieldError
}

// Error implements the error interface, joining field messages so the
// envelope carries a single human-readable string.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+" "+fe.Message)
	}
	return strings.Join(parts, "; ")
}

// Timestamp is a helper type for time.Time with RFC3339 JSON formatting.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler for Timestamp.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).Format(time.RFC3339) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	s := string(data[1 : len(data)-1])
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}
