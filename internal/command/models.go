// Package command implements the per-device ordered queue of remote
// control commands and its delivery/acknowledgment state machine.
//
// Delivery is pull-based: devices poll with a since_id watermark and
// advance it to the highest id they have seen. A client that crashes
// before persisting its watermark will see the same commands again, so
// delivery is at-least-once and command execution must be idempotent.
package command

import (
	"encoding/json"
	"time"
)

// Type identifies a remote control command. The set is closed: unknown
// types are rejected at enqueue time.
type Type string

// Supported command types.
const (
	TypeLock        Type = "LOCK"
	TypeAlarm       Type = "ALARM"
	TypeGetLocation Type = "GET_LOCATION"
	TypeShowMessage Type = "SHOW_MESSAGE"
	TypeWipe        Type = "WIPE"
)

// validTypes is the closed set of accepted command types.
var validTypes = map[Type]bool{
	TypeLock:        true,
	TypeAlarm:       true,
	TypeGetLocation: true,
	TypeShowMessage: true,
	TypeWipe:        true,
}

// ValidType reports whether t is a known command type.
func ValidType(t Type) bool {
	return validTypes[t]
}

// Status is a command's position in the delivery state machine.
//
// pending → acknowledged | executed | failed. There is no transition back
// to pending and no forced acknowledged → executed transition: all three
// non-pending states are terminal.
type Status string

// Command statuses.
const (
	StatusPending      Status = "pending"
	StatusAcknowledged Status = "acknowledged"
	StatusExecuted     Status = "executed"
	StatusFailed       Status = "failed"
)

// validAckStatuses are the statuses a device may report on acknowledgment.
var validAckStatuses = map[Status]bool{
	StatusAcknowledged: true,
	StatusExecuted:     true,
	StatusFailed:       true,
}

// ValidAckStatus reports whether s is an acceptable acknowledgment status.
func ValidAckStatus(s Status) bool {
	return validAckStatuses[s]
}

// Command is a single queued control command.
type Command struct {
	// ID is server-assigned, globally monotonically increasing, and
	// doubles as the polling watermark.
	ID int64

	DeviceID string
	Type     Type

	// Payload is opaque structured data interpreted by the device,
	// e.g. {"message":"..."} for SHOW_MESSAGE.
	Payload json.RawMessage

	Status Status

	// ResultMessage is free text reported by the device on acknowledgment.
	ResultMessage *string

	CreatedAt time.Time

	// ExecutedAt is set on acknowledgment.
	ExecutedAt *time.Time
}
