package fetch

import (
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/uavlog/groundstation/internal/drone"
	"github.com/uavlog/groundstation/internal/errlog"
	"github.com/uavlog/groundstation/internal/telemetry"
)

// Telemetry category names. Each category owns a disjoint subset of the
// store's fields, so no field is ever written by two fetchers.
const (
	CategoryPosition   = "position"
	CategoryAttitude   = "attitude"
	CategoryBattery    = "battery"
	CategoryGPS        = "gps"
	CategoryFlightMode = "flight_mode"
	CategoryArmed      = "armed"
	CategoryRCSignal   = "rc_signal"
	CategoryHealth     = "health"
)

// Position fetches global position updates into the store.
func Position(provider drone.Provider, store *telemetry.Store, errors *errlog.Log, options ...Option[drone.Position]) *Fetcher[drone.Position] {
	return New(CategoryPosition, "Position", provider.Position, func(pos drone.Position) {
		store.SetPosition(pos.LatitudeDeg, pos.LongitudeDeg, pos.RelativeAltitudeM, pos.AbsoluteAltitudeM)
	}, errors, options...)
}

// Attitude fetches Euler attitude updates into the store.
func Attitude(provider drone.Provider, store *telemetry.Store, errors *errlog.Log, options ...Option[drone.EulerAngle]) *Fetcher[drone.EulerAngle] {
	return New(CategoryAttitude, "Attitude", provider.AttitudeEuler, func(att drone.EulerAngle) {
		store.SetAttitude(att.RollDeg, att.PitchDeg, att.YawDeg)
	}, errors, options...)
}

// Battery fetches battery status updates into the store.
func Battery(provider drone.Provider, store *telemetry.Store, errors *errlog.Log, options ...Option[drone.Battery]) *Fetcher[drone.Battery] {
	return New(CategoryBattery, "Battery", provider.Battery, func(batt drone.Battery) {
		store.SetBattery(batt.VoltageV, batt.RemainingPercent)
	}, errors, options...)
}

// GPS fetches GPS fix and satellite count updates into the store. Fix types
// arrive as wire labels and are stored with their FIX_TYPE_ prefix stripped.
func GPS(provider drone.Provider, store *telemetry.Store, errors *errlog.Log, options ...Option[drone.GPSInfo]) *Fetcher[drone.GPSInfo] {
	return New(CategoryGPS, "GPS", provider.GPSInfo, func(info drone.GPSInfo) {
		fix := strings.TrimPrefix(info.FixType.String(), "FIX_TYPE_")
		store.SetGPSInfo(fix, info.NumSatellites)
	}, errors, options...)
}

// Mode fetches flight mode updates into the store, stripping the
// FLIGHT_MODE_ prefix from the wire label.
func Mode(provider drone.Provider, store *telemetry.Store, errors *errlog.Log, options ...Option[drone.FlightMode]) *Fetcher[drone.FlightMode] {
	return New(CategoryFlightMode, "Flight mode", provider.FlightMode, func(mode drone.FlightMode) {
		store.SetFlightMode(strings.TrimPrefix(mode.String(), "FLIGHT_MODE_"))
	}, errors, options...)
}

// Armed fetches armed state updates into the store.
func Armed(provider drone.Provider, store *telemetry.Store, errors *errlog.Log, options ...Option[bool]) *Fetcher[bool] {
	return New(CategoryArmed, "Armed status", provider.Armed, store.SetArmed, errors, options...)
}

// RCSignal fetches RC link signal strength into the store. Links that do not
// report a strength deliver NaN, which is stored as unavailable rather than
// treated as a stream failure.
func RCSignal(provider drone.Provider, store *telemetry.Store, errors *errlog.Log, options ...Option[drone.RCStatus]) *Fetcher[drone.RCStatus] {
	return New(CategoryRCSignal, "RC signal", provider.RCStatus, func(rc drone.RCStatus) {
		if math.IsNaN(rc.SignalStrengthPercent) {
			store.SetRCSignal(nil)
			return
		}
		strength := rc.SignalStrengthPercent
		store.SetRCSignal(&strength)
	}, errors, options...)
}

// Health fetches pre-arm health updates into the store. Every update maps
// all seven flags and replaces the checklist as one unit.
func Health(provider drone.Provider, store *telemetry.Store, errors *errlog.Log, options ...Option[drone.Health]) *Fetcher[drone.Health] {
	return New(CategoryHealth, "Health check", provider.Health, func(h drone.Health) {
		store.SetHealth(telemetry.Health{
			AccelerometerCalibration: h.IsAccelerometerCalibrationOk,
			Armable:                  h.IsArmable,
			GlobalPosition:           h.IsGlobalPositionOk,
			GyrometerCalibration:     h.IsGyrometerCalibrationOk,
			HomePosition:             h.IsHomePositionOk,
			LocalPosition:            h.IsLocalPositionOk,
			MagnetometerCalibration:  h.IsMagnetometerCalibrationOk,
		})
	}, errors, options...)
}

// Options bundles the per-type option lists so all eight fetchers can be
// built with one shared logger and retry delay.
type Options struct {
	Logger     *slog.Logger
	RetryDelay time.Duration
}

// All builds the eight category fetchers against one provider, store and
// error log.
func All(provider drone.Provider, store *telemetry.Store, errors *errlog.Log, opts Options) []Runner {
	return []Runner{
		Position(provider, store, errors, perType[drone.Position](opts)...),
		Attitude(provider, store, errors, perType[drone.EulerAngle](opts)...),
		Battery(provider, store, errors, perType[drone.Battery](opts)...),
		GPS(provider, store, errors, perType[drone.GPSInfo](opts)...),
		Mode(provider, store, errors, perType[drone.FlightMode](opts)...),
		Armed(provider, store, errors, perType[bool](opts)...),
		RCSignal(provider, store, errors, perType[drone.RCStatus](opts)...),
		Health(provider, store, errors, perType[drone.Health](opts)...),
	}
}

func perType[T any](opts Options) []Option[T] {
	var options []Option[T]
	if opts.Logger != nil {
		options = append(options, WithLogger[T](opts.Logger))
	}
	if opts.RetryDelay > 0 {
		options = append(options, WithRetryDelay[T](opts.RetryDelay))
	}
	return options
}
