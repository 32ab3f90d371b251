package storage

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/uavlog/groundstation/internal/errlog"
	"github.com/uavlog/groundstation/internal/telemetry"
)

// DefaultArchiveInterval is the period between archived snapshots.
const DefaultArchiveInterval = time.Second

// ArchiverOption configures an Archiver.
type ArchiverOption func(*Archiver)

// WithArchiveInterval sets the period between archived snapshots.
func WithArchiveInterval(interval time.Duration) ArchiverOption {
	return func(a *Archiver) {
		a.interval = interval
	}
}

// WithArchiverLogger sets the logger for the archiver.
func WithArchiverLogger(logger *slog.Logger) ArchiverOption {
	return func(a *Archiver) {
		a.logger = logger.With(slog.String("consumer", "archive"))
	}
}

// Archiver is the SQLite persistence consumer. Like the CSV flight log it is
// best effort: a failed insert is recorded and the next tick tries again.
type Archiver struct {
	db        Store
	sessionID int64
	source    *telemetry.Store
	errors    *errlog.Log

	interval time.Duration
	logger   *slog.Logger
}

// NewArchiver creates an archiver appending snapshots of source to db under
// the given session row.
func NewArchiver(db Store, sessionID int64, source *telemetry.Store, errors *errlog.Log, options ...ArchiverOption) *Archiver {
	a := Archiver{
		db:        db,
		sessionID: sessionID,
		source:    source,
		errors:    errors,
		interval:  DefaultArchiveInterval,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&a)
	}

	return &a
}

// Run archives one snapshot per tick until ctx is done.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := a.db.AppendSnapshot(ctx, a.sessionID, a.source.Snapshot(), time.Now()); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				a.errors.Recordf("Archive error: %s", err.Error())
				a.logger.Warn("snapshot insert failed", slog.String("error", err.Error()))
			}
		}
	}
}
