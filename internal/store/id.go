package store

import (
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewID returns a time-ordered id for a websocket connection.
func NewID() string {
	return "conn_" + strings.ToLower(ulid.Make().String())
}

// NewDeviceID issues a device identifier for clients that did not bring one.
func NewDeviceID() string {
	return "device_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
