package ws

import "time"

// ConnInfo carries per-connection identity metadata for logging and events.
type ConnInfo struct {
	ConnID      string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
