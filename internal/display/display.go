// Package display renders the live telemetry view. Every tick it takes a
// store snapshot and redraws the whole screen: the summary fields, the
// pre-arm health checklist and the most recent errors.
package display

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"

	"github.com/uavlog/groundstation/internal/errlog"
	"github.com/uavlog/groundstation/internal/telemetry"
)

// DefaultInterval is the refresh period of the view.
const DefaultInterval = time.Second

const clearScreen = "\x1b[H\x1b[2J"

// Option configures a Display.
type Option func(*Display)

// WithOutput redirects the rendered view. The screen-clear escape sequence
// is only emitted when the output is a real terminal.
func WithOutput(w io.Writer) Option {
	return func(d *Display) {
		d.out = w
	}
}

// WithInterval sets the refresh period.
func WithInterval(interval time.Duration) Option {
	return func(d *Display) {
		d.interval = interval
	}
}

// WithLogger sets the logger for the display.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Display) {
		d.logger = logger.With(slog.String("consumer", "display"))
	}
}

// Display is the human-readable telemetry consumer.
type Display struct {
	store  *telemetry.Store
	errors *errlog.Log

	out      io.Writer
	interval time.Duration
	started  time.Time
	logger   *slog.Logger
}

// New creates a display reading from store and errors, writing to stdout
// unless redirected.
func New(store *telemetry.Store, errors *errlog.Log, options ...Option) *Display {
	d := Display{
		store:    store,
		errors:   errors,
		out:      os.Stdout,
		interval: DefaultInterval,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&d)
	}

	return &d
}

// Run refreshes the view every tick until ctx is done. A failed render is
// recorded and skipped; the next tick tries again.
func (d *Display) Run(ctx context.Context) error {
	d.started = time.Now()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := d.refresh(); err != nil {
				d.errors.Recordf("Display loop error: %s", err.Error())
				d.logger.Warn("render failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (d *Display) refresh() error {
	var b strings.Builder

	if f, ok := d.out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		b.WriteString(clearScreen)
	}
	d.Render(&b)

	_, err := io.WriteString(d.out, b.String())
	return err
}

// Render writes one full view of the current snapshot to w.
func (d *Display) Render(w io.Writer) {
	rec := d.store.Snapshot()

	started := d.started
	if started.IsZero() {
		started = time.Now()
	}
	fmt.Fprintf(w, "PX4 Telemetry (session started %s)\n", humanize.Time(started))

	fmt.Fprintln(w, renderSummary(rec))
	fmt.Fprintln(w, renderHealth(rec.Health))
	fmt.Fprintln(w, renderErrors(d.errors.Recent(errlog.DefaultCapacity)))
}

func renderSummary(rec telemetry.Record) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("Telemetry")

	rows := []struct {
		name  string
		value string
	}{
		{"GPS Fix", telemetry.FormatString(rec.GPSFix)},
		{"Satellites", telemetry.FormatInt(rec.Satellites)},
		{"Latitude", telemetry.FormatFloat(rec.Latitude, 6)},
		{"Longitude", telemetry.FormatFloat(rec.Longitude, 6)},
		{"Rel Alt (m)", telemetry.FormatFloat(rec.RelativeAltitude, 2)},
		{"Abs Alt (m)", telemetry.FormatFloat(rec.AbsoluteAltitude, 2)},
		{"Roll (°)", telemetry.FormatFloat(rec.Roll, 2)},
		{"Pitch (°)", telemetry.FormatFloat(rec.Pitch, 2)},
		{"Yaw (°)", telemetry.FormatFloat(rec.Yaw, 2)},
		{"Voltage (V)", telemetry.FormatFloat(rec.Voltage, 2)},
		{"Battery (%)", telemetry.FormatFloat(rec.Battery, 1)},
		{"Flight Mode", telemetry.FormatString(rec.FlightMode)},
		{"Armed", telemetry.FormatBool(rec.Armed)},
		{"RC Signal (%)", telemetry.FormatFloat(rec.RCSignal, 1)},
	}
	for _, r := range rows {
		tw.AppendRow(table.Row{r.name, r.value})
	}

	return tw.Render()
}

func renderHealth(h *telemetry.Health) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("Pre-Arm Health Check")

	if h == nil {
		for _, name := range telemetry.HealthCheckNames() {
			tw.AppendRow(table.Row{name, telemetry.NotAvailable})
		}
		return tw.Render()
	}

	for _, check := range h.Checks() {
		tw.AppendRow(table.Row{check.Name, telemetry.FormatCheck(check.OK)})
	}
	return tw.Render()
}

func renderErrors(entries []errlog.Entry) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("Recent Errors")

	if len(entries) == 0 {
		tw.AppendRow(table.Row{"No errors recorded"})
		return tw.Render()
	}

	for _, entry := range entries {
		tw.AppendRow(table.Row{entry.String()})
	}
	return tw.Render()
}
