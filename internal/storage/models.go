package storage

import (
	"time"

	"github.com/uavlog/groundstation/internal/telemetry"
)

// Session is one recorded ground station session.
type Session struct {
	ID          int64
	UUID        string
	StartTime   time.Time
	LinkAddress string
	Config      *string
}

// Snapshot is one archived telemetry record.
type Snapshot struct {
	ID        int64
	SessionID int64
	Timestamp time.Time
	Record    telemetry.Record
}
