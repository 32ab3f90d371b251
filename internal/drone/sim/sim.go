// Package sim is a self-contained telemetry provider that generates a
// plausible flight without any vehicle attached. It backs sim:// link
// addresses and the package tests.
package sim

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/uavlog/groundstation/internal/drone"
)

const (
	baseLatitude  = -35.363262
	baseLongitude = 149.165237
	groundLevelM  = 584.0

	gpsWarmup    = 3 * time.Second
	armedAfter   = 5 * time.Second
	takeoffUntil = 10 * time.Second
)

// Option configures a Provider.
type Option func(*Provider)

// WithUpdateInterval sets the pacing of every generated stream. Tests use a
// small interval to compress time.
func WithUpdateInterval(interval time.Duration) Option {
	return func(p *Provider) {
		p.interval = interval
	}
}

// Provider generates all telemetry categories deterministically from the
// time elapsed since Connect.
type Provider struct {
	interval time.Duration

	mu    sync.Mutex
	start time.Time
	done  chan struct{}
}

// New creates a simulated vehicle.
func New(options ...Option) *Provider {
	p := Provider{
		interval: 500 * time.Millisecond,
		done:     make(chan struct{}),
	}

	for _, option := range options {
		option(&p)
	}

	return &p
}

// Connect implements drone.Provider. The simulated link is up immediately.
func (p *Provider) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.start.IsZero() {
		p.start = time.Now()
	}
	return ctx.Err()
}

// Close implements drone.Provider and ends every open stream.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	select {
	case <-p.done:
	default:
		close(p.done)
	}
	return nil
}

func (p *Provider) elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.start.IsZero() {
		return 0
	}
	return time.Since(p.start)
}

// ConnectionState implements drone.Provider.
func (p *Provider) ConnectionState(ctx context.Context) (drone.Stream[drone.ConnectionState], error) {
	return stream(p, ctx, func(time.Duration) drone.ConnectionState {
		return drone.ConnectionState{IsConnected: true}
	})
}

// Position implements drone.Provider. The vehicle flies a slow circle above
// the base coordinates.
func (p *Provider) Position(ctx context.Context) (drone.Stream[drone.Position], error) {
	return stream(p, ctx, func(elapsed time.Duration) drone.Position {
		theta := elapsed.Seconds() / 10
		alt := flightAltitude(elapsed)
		return drone.Position{
			LatitudeDeg:       baseLatitude + 0.0002*math.Sin(theta),
			LongitudeDeg:      baseLongitude + 0.0002*math.Cos(theta),
			RelativeAltitudeM: alt,
			AbsoluteAltitudeM: groundLevelM + alt,
		}
	})
}

// AttitudeEuler implements drone.Provider.
func (p *Provider) AttitudeEuler(ctx context.Context) (drone.Stream[drone.EulerAngle], error) {
	return stream(p, ctx, func(elapsed time.Duration) drone.EulerAngle {
		t := elapsed.Seconds()
		return drone.EulerAngle{
			RollDeg:  5 * math.Sin(t/3),
			PitchDeg: 3 * math.Cos(t/4),
			YawDeg:   math.Mod(t*6, 360),
		}
	})
}

// Battery implements drone.Provider. The pack drains linearly from full.
func (p *Provider) Battery(ctx context.Context) (drone.Stream[drone.Battery], error) {
	return stream(p, ctx, func(elapsed time.Duration) drone.Battery {
		remaining := math.Max(0, 100-elapsed.Minutes()*5)
		return drone.Battery{
			VoltageV:         10.5 + 2.1*remaining/100,
			RemainingPercent: remaining,
		}
	})
}

// GPSInfo implements drone.Provider. The receiver needs a few seconds to
// acquire a 3D fix.
func (p *Provider) GPSInfo(ctx context.Context) (drone.Stream[drone.GPSInfo], error) {
	return stream(p, ctx, func(elapsed time.Duration) drone.GPSInfo {
		if elapsed < gpsWarmup {
			return drone.GPSInfo{NumSatellites: 4, FixType: drone.FixTypeNoFix}
		}
		sats := 11 + int(3*math.Sin(elapsed.Seconds()/7))
		return drone.GPSInfo{NumSatellites: sats, FixType: drone.FixType3D}
	})
}

// FlightMode implements drone.Provider.
func (p *Provider) FlightMode(ctx context.Context) (drone.Stream[drone.FlightMode], error) {
	return stream(p, ctx, func(elapsed time.Duration) drone.FlightMode {
		switch {
		case elapsed < armedAfter:
			return drone.FlightModeReady
		case elapsed < takeoffUntil:
			return drone.FlightModeTakeoff
		default:
			return drone.FlightModeHold
		}
	})
}

// Armed implements drone.Provider.
func (p *Provider) Armed(ctx context.Context) (drone.Stream[bool], error) {
	return stream(p, ctx, func(elapsed time.Duration) bool {
		return elapsed >= armedAfter
	})
}

// RCStatus implements drone.Provider.
func (p *Provider) RCStatus(ctx context.Context) (drone.Stream[drone.RCStatus], error) {
	return stream(p, ctx, func(elapsed time.Duration) drone.RCStatus {
		return drone.RCStatus{
			IsAvailable:           true,
			SignalStrengthPercent: 95 + 4*math.Sin(elapsed.Seconds()/5),
		}
	})
}

// Health implements drone.Provider. Position checks pass once the GPS fix is
// in; the vehicle is armable when every other check passes.
func (p *Provider) Health(ctx context.Context) (drone.Stream[drone.Health], error) {
	return stream(p, ctx, func(elapsed time.Duration) drone.Health {
		positionOK := elapsed >= gpsWarmup
		return drone.Health{
			IsAccelerometerCalibrationOk: true,
			IsArmable:                    positionOK,
			IsGlobalPositionOk:           positionOK,
			IsGyrometerCalibrationOk:     true,
			IsHomePositionOk:             positionOK,
			IsLocalPositionOk:            positionOK,
			IsMagnetometerCalibrationOk:  true,
		}
	})
}

func flightAltitude(elapsed time.Duration) float64 {
	if elapsed < takeoffUntil {
		return 0
	}
	climb := (elapsed - takeoffUntil).Seconds() * 2
	return math.Min(climb, 50)
}

func stream[T any](p *Provider, ctx context.Context, next func(elapsed time.Duration) T) (drone.Stream[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &simStream[T]{
		provider: p,
		next:     next,
		closed:   make(chan struct{}),
	}, nil
}

type simStream[T any] struct {
	provider  *Provider
	next      func(elapsed time.Duration) T
	closeOnce sync.Once
	closed    chan struct{}
}

func (s *simStream[T]) Recv(ctx context.Context) (T, error) {
	var zero T

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-s.provider.done:
		return zero, drone.ErrStreamClosed
	case <-s.closed:
		return zero, drone.ErrStreamClosed
	case <-time.After(s.provider.interval):
		return s.next(s.provider.elapsed()), nil
	}
}

func (s *simStream[T]) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
	return nil
}
