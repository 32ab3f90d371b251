// Package drone defines the boundary to the vehicle's telemetry source: a
// provider that can open independent, unbounded update streams, one per
// telemetry category, plus a connection-state stream. The transport behind a
// provider (serial link, UDP, simulator) is an implementation detail of the
// concrete provider.
package drone

import (
	"context"
	"errors"
)

// ErrStreamClosed is returned by Recv after a stream has been closed by
// either side.
var ErrStreamClosed = errors.New("telemetry stream closed")

// Stream is an unbounded sequence of category updates. Recv blocks until the
// next update, a stream failure, or ctx is done. After Recv returns an error
// the stream is dead and must be reopened through the provider.
type Stream[T any] interface {
	Recv(ctx context.Context) (T, error)
	Close() error
}

// Provider exposes the vehicle's telemetry categories as independently
// subscribable streams. Every subscription is its own session with the
// source; one stream failing says nothing about the others.
type Provider interface {
	// Connect establishes the underlying link. It does not wait for the
	// vehicle to be reachable; observe ConnectionState for that.
	Connect(ctx context.Context) error

	ConnectionState(ctx context.Context) (Stream[ConnectionState], error)
	Position(ctx context.Context) (Stream[Position], error)
	AttitudeEuler(ctx context.Context) (Stream[EulerAngle], error)
	Battery(ctx context.Context) (Stream[Battery], error)
	GPSInfo(ctx context.Context) (Stream[GPSInfo], error)
	FlightMode(ctx context.Context) (Stream[FlightMode], error)
	Armed(ctx context.Context) (Stream[bool], error)
	RCStatus(ctx context.Context) (Stream[RCStatus], error)
	Health(ctx context.Context) (Stream[Health], error)

	// Close tears down the link and all open streams.
	Close() error
}

// ConnectionState reports whether the vehicle is reachable over the link.
type ConnectionState struct {
	IsConnected bool
}

// Position is a global position update.
type Position struct {
	LatitudeDeg       float64
	LongitudeDeg      float64
	RelativeAltitudeM float64
	AbsoluteAltitudeM float64
}

// EulerAngle is an attitude update in Euler angles.
type EulerAngle struct {
	RollDeg  float64
	PitchDeg float64
	YawDeg   float64
}

// Battery is a battery status update. RemainingPercent is 0-100.
type Battery struct {
	VoltageV         float64
	RemainingPercent float64
}

// GPSInfo is a GPS status update.
type GPSInfo struct {
	NumSatellites int
	FixType       FixType
}

// RCStatus is a remote-control link status update. SignalStrengthPercent is
// NaN on links that do not report signal strength.
type RCStatus struct {
	IsAvailable           bool
	SignalStrengthPercent float64
}

// Health is a pre-arm health update. It always carries all seven flags and
// replaces any previous health state wholesale.
type Health struct {
	IsAccelerometerCalibrationOk bool
	IsArmable                    bool
	IsGlobalPositionOk           bool
	IsGyrometerCalibrationOk     bool
	IsHomePositionOk             bool
	IsLocalPositionOk            bool
	IsMagnetometerCalibrationOk  bool
}
