// Package eventlog provides the append-only audit trail of notable
// device events.
package eventlog

import "time"

// Well-known event type tags. The column is free text, so callers may
// log other tags as well.
const (
	EventRegister       = "REGISTER"
	EventSimChange      = "SIM_CHANGE"
	EventCommandCreated = "COMMAND_CREATED"
	EventCommandAck     = "COMMAND_ACK"
)

// Event is a single audit trail entry. Events are immutable once written.
type Event struct {
	ID        int64
	DeviceID  string
	EventType string

	// Message is free text, often serialized structured data.
	Message string

	EventAt time.Time
}
