// Package flightlog appends telemetry snapshots to a per-session CSV file.
// One row is written per tick; fields without a value yet are serialized as
// literal 0 so the log stays rectangular.
package flightlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/uavlog/groundstation/internal/errlog"
	"github.com/uavlog/groundstation/internal/telemetry"
)

// DefaultInterval is the period between rows.
const DefaultInterval = time.Second

// header is the fixed column set. The speed column has no telemetry source
// and is always written as 0.
var header = []string{
	"timestamp",
	"lat",
	"lon",
	"alt",
	"abs_alt",
	"speed",
	"roll",
	"pitch",
	"yaw",
	"voltage",
	"battery",
	"gps_fix",
	"satellites",
	"flight_mode",
	"armed",
	"rc_signal",
	"health_accelerometer_calibration",
	"health_armable",
	"health_global_position",
	"health_gyrometer_calibration",
	"health_home_position",
	"health_local_position",
	"health_magnetometer_calibration",
}

// Filename returns the log file name for a session started at the given
// time.
func Filename(start time.Time) string {
	return fmt.Sprintf("telemetry_log_%s.csv", start.Format("20060102_150405"))
}

// Option configures a Writer.
type Option func(*Writer)

// WithInterval sets the period between rows.
func WithInterval(interval time.Duration) Option {
	return func(w *Writer) {
		w.interval = interval
	}
}

// WithLogger sets the logger for the writer.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		w.logger = logger.With(slog.String("consumer", "flightlog"))
	}
}

// Writer is the persistence consumer. Each tick it snapshots the store and
// appends one row to the session's log file, writing the header first if the
// file is new or empty. Writes are best effort: an I/O failure is recorded
// and the next tick tries again.
type Writer struct {
	path   string
	store  *telemetry.Store
	errors *errlog.Log

	interval time.Duration
	logger   *slog.Logger
}

// New creates a writer logging to Filename(start) inside dir.
func New(dir string, start time.Time, store *telemetry.Store, errors *errlog.Log, options ...Option) *Writer {
	w := Writer{
		path:     filepath.Join(dir, Filename(start)),
		store:    store,
		errors:   errors,
		interval: DefaultInterval,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&w)
	}

	return &w
}

// Path returns the log file path.
func (w *Writer) Path() string {
	return w.path
}

// Run appends one row per tick until ctx is done.
func (w *Writer) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Append(w.store.Snapshot(), time.Now()); err != nil {
				w.errors.Recordf("Error writing to CSV: %s", err.Error())
				w.logger.Warn("append failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Append serializes one snapshot as a row stamped with now. The header is
// written only when the file does not exist yet or is empty, so appending to
// a previous file never duplicates it.
func (w *Writer) Append(rec telemetry.Record, now time.Time) (err error) {
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer closeWithError(f, &err)

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("checking log file: %w", err)
	}

	cw := csv.NewWriter(f)
	if stat.Size() == 0 {
		if err = cw.Write(header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	if err = cw.Write(Row(rec, now)); err != nil {
		return fmt.Errorf("writing row: %w", err)
	}

	cw.Flush()
	if err = cw.Error(); err != nil {
		return fmt.Errorf("flushing row: %w", err)
	}
	return nil
}

// Row flattens a snapshot into the fixed column order. Unavailable fields
// become literal 0; available ones keep their display formatting.
func Row(rec telemetry.Record, now time.Time) []string {
	return []string{
		telemetry.Timestamp(now),
		column(telemetry.FormatFloat(rec.Latitude, 6)),
		column(telemetry.FormatFloat(rec.Longitude, 6)),
		column(telemetry.FormatFloat(rec.RelativeAltitude, 2)),
		column(telemetry.FormatFloat(rec.AbsoluteAltitude, 2)),
		"0", // speed: no fetcher populates it
		column(telemetry.FormatFloat(rec.Roll, 2)),
		column(telemetry.FormatFloat(rec.Pitch, 2)),
		column(telemetry.FormatFloat(rec.Yaw, 2)),
		column(telemetry.FormatFloat(rec.Voltage, 2)),
		column(telemetry.FormatFloat(rec.Battery, 1)),
		column(telemetry.FormatString(rec.GPSFix)),
		column(telemetry.FormatInt(rec.Satellites)),
		column(telemetry.FormatString(rec.FlightMode)),
		column(telemetry.FormatBool(rec.Armed)),
		column(telemetry.FormatFloat(rec.RCSignal, 1)),
		healthColumn(rec.Health, func(h *telemetry.Health) bool { return h.AccelerometerCalibration }),
		healthColumn(rec.Health, func(h *telemetry.Health) bool { return h.Armable }),
		healthColumn(rec.Health, func(h *telemetry.Health) bool { return h.GlobalPosition }),
		healthColumn(rec.Health, func(h *telemetry.Health) bool { return h.GyrometerCalibration }),
		healthColumn(rec.Health, func(h *telemetry.Health) bool { return h.HomePosition }),
		healthColumn(rec.Health, func(h *telemetry.Health) bool { return h.LocalPosition }),
		healthColumn(rec.Health, func(h *telemetry.Health) bool { return h.MagnetometerCalibration }),
	}
}

// Header returns a copy of the fixed column set.
func Header() []string {
	out := make([]string, len(header))
	copy(out, header)
	return out
}

func column(rendered string) string {
	if rendered == telemetry.NotAvailable {
		return "0"
	}
	return rendered
}

func healthColumn(h *telemetry.Health, check func(*telemetry.Health) bool) string {
	if h == nil {
		return "0"
	}
	return telemetry.FormatCheck(check(h))
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
