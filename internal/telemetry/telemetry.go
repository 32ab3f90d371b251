package telemetry

import (
	"strconv"
	"time"
)

// NotAvailable is the rendered form of a field for which no update has been
// received yet, or whose source could not provide a value.
const NotAvailable = "N/A"

// Record is the latest known state of the vehicle, aggregated from all
// telemetry categories. A nil field means the value is not available, which
// is distinct from a zero value: a drone sitting on the ground reports an
// altitude of 0.00, a drone we have never heard from reports none at all.
type Record struct {
	Latitude         *float64 // GPS latitude in decimal degrees
	Longitude        *float64 // GPS longitude in decimal degrees
	RelativeAltitude *float64 // Altitude above the takeoff point in meters
	AbsoluteAltitude *float64 // Altitude above mean sea level in meters
	Roll             *float64 // Roll angle in degrees
	Pitch            *float64 // Pitch angle in degrees
	Yaw              *float64 // Yaw angle in degrees
	Voltage          *float64 // Battery voltage in volts
	Battery          *float64 // Remaining battery in percent
	GPSFix           *string  // GPS fix type label, e.g. "3D"
	Satellites       *int     // Number of visible GPS satellites
	FlightMode       *string  // Flight mode label, e.g. "HOLD"
	Armed            *bool    // Whether the vehicle is armed
	RCSignal         *float64 // RC link signal strength in percent
	Health           *Health  // Pre-arm health checks, replaced as a whole
}

// Health is the result of the vehicle's pre-arm health checks. It is always
// replaced as one unit when a health update arrives, never merged check by
// check.
type Health struct {
	AccelerometerCalibration bool
	Armable                  bool
	GlobalPosition           bool
	GyrometerCalibration     bool
	HomePosition             bool
	LocalPosition            bool
	MagnetometerCalibration  bool
}

// HealthCheck is a single named pre-arm check with its pass/fail state.
type HealthCheck struct {
	Name string
	OK   bool
}

// Checks returns the seven health checks in their canonical display and
// logging order.
func (h *Health) Checks() []HealthCheck {
	return []HealthCheck{
		{"Accelerometer calibration", h.AccelerometerCalibration},
		{"Armable", h.Armable},
		{"Global position", h.GlobalPosition},
		{"Gyrometer calibration", h.GyrometerCalibration},
		{"Home position", h.HomePosition},
		{"Local position", h.LocalPosition},
		{"Magnetometer calibration", h.MagnetometerCalibration},
	}
}

// HealthCheckNames returns the canonical check names in order, without a
// Health value to read them from.
func HealthCheckNames() []string {
	var h Health
	checks := h.Checks()
	names := make([]string, len(checks))
	for i, c := range checks {
		names[i] = c.Name
	}
	return names
}

// FormatFloat renders a float field with the given number of fraction digits,
// or NotAvailable when the field is unset.
func FormatFloat(v *float64, prec int) string {
	if v == nil {
		return NotAvailable
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

// FormatInt renders an integer field, or NotAvailable when unset.
func FormatInt(v *int) string {
	if v == nil {
		return NotAvailable
	}
	return strconv.Itoa(*v)
}

// FormatString renders a string field, or NotAvailable when unset.
func FormatString(v *string) string {
	if v == nil {
		return NotAvailable
	}
	return *v
}

// FormatBool renders a boolean field as Yes or No, or NotAvailable when
// unset.
func FormatBool(v *bool) string {
	if v == nil {
		return NotAvailable
	}
	if *v {
		return "Yes"
	}
	return "No"
}

// FormatCheck renders a single health check as OK or FAIL.
func FormatCheck(ok bool) string {
	if ok {
		return "OK"
	}
	return "FAIL"
}

// Timestamp formats t the way row timestamps are written to the flight log.
func Timestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}
