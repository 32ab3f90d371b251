// Package storage archives telemetry snapshots to SQLite. It is the durable
// companion to the CSV flight log: one row per session with its link
// configuration, and one row per archived snapshot, queryable after the
// flight.
package storage

import (
	"context"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/uavlog/groundstation/internal/telemetry"
)

// Store manages archived telemetry. All write operations are atomic; the
// implementation is safe for concurrent use.
type Store interface {
	// CreateSession records the start of a ground station session and
	// returns its row ID. Config can be a string, []byte or any
	// JSON-serializable value.
	CreateSession(ctx context.Context, sessionUUID, linkAddress string, config any) (sessionID int64, err error)

	// AppendSnapshot archives one telemetry snapshot taken at the given
	// time. Unavailable fields are stored as SQL NULL, not zero.
	AppendSnapshot(ctx context.Context, sessionID int64, rec telemetry.Record, takenAt time.Time) (snapshotID int64, err error)

	// Sessions returns all recorded sessions ordered by start time.
	Sessions(ctx context.Context) ([]*Session, error)

	// Snapshots returns a session's archived snapshots ordered by time.
	Snapshots(ctx context.Context, sessionID int64) ([]*Snapshot, error)

	// Close releases database resources. Safe to call more than once.
	Close() error
}

// New creates a SQLite-backed Store at dbPath. The database and schema are
// created lazily on first write.
func New(dbPath string) (Store, error) {
	return newSqliteStore(dbPath), nil
}
