package fetch

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/uavlog/groundstation/internal/drone"
	"github.com/uavlog/groundstation/internal/errlog"
	"github.com/uavlog/groundstation/internal/telemetry"
)

// scriptedStream yields its items in order, then fails with err, or blocks
// until the context is done when err is nil.
type scriptedStream[T any] struct {
	items []T
	err   error
	idx   int
}

func (s *scriptedStream[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if s.idx < len(s.items) {
		item := s.items[s.idx]
		s.idx++
		return item, nil
	}
	if s.err != nil {
		return zero, s.err
	}
	<-ctx.Done()
	return zero, ctx.Err()
}

func (s *scriptedStream[T]) Close() error { return nil }

// fakeProvider lets a test script individual category subscriptions; the
// rest return streams that block forever.
type fakeProvider struct {
	gps    func(ctx context.Context) (drone.Stream[drone.GPSInfo], error)
	mode   func(ctx context.Context) (drone.Stream[drone.FlightMode], error)
	rc     func(ctx context.Context) (drone.Stream[drone.RCStatus], error)
	health func(ctx context.Context) (drone.Stream[drone.Health], error)
	batt   func(ctx context.Context) (drone.Stream[drone.Battery], error)
}

func (p *fakeProvider) Connect(context.Context) error { return nil }
func (p *fakeProvider) Close() error                  { return nil }

func (p *fakeProvider) ConnectionState(context.Context) (drone.Stream[drone.ConnectionState], error) {
	return &scriptedStream[drone.ConnectionState]{}, nil
}

func (p *fakeProvider) Position(context.Context) (drone.Stream[drone.Position], error) {
	return &scriptedStream[drone.Position]{}, nil
}

func (p *fakeProvider) AttitudeEuler(context.Context) (drone.Stream[drone.EulerAngle], error) {
	return &scriptedStream[drone.EulerAngle]{}, nil
}

func (p *fakeProvider) Battery(ctx context.Context) (drone.Stream[drone.Battery], error) {
	if p.batt != nil {
		return p.batt(ctx)
	}
	return &scriptedStream[drone.Battery]{}, nil
}

func (p *fakeProvider) GPSInfo(ctx context.Context) (drone.Stream[drone.GPSInfo], error) {
	if p.gps != nil {
		return p.gps(ctx)
	}
	return &scriptedStream[drone.GPSInfo]{}, nil
}

func (p *fakeProvider) FlightMode(ctx context.Context) (drone.Stream[drone.FlightMode], error) {
	if p.mode != nil {
		return p.mode(ctx)
	}
	return &scriptedStream[drone.FlightMode]{}, nil
}

func (p *fakeProvider) Armed(context.Context) (drone.Stream[bool], error) {
	return &scriptedStream[bool]{}, nil
}

func (p *fakeProvider) RCStatus(ctx context.Context) (drone.Stream[drone.RCStatus], error) {
	if p.rc != nil {
		return p.rc(ctx)
	}
	return &scriptedStream[drone.RCStatus]{}, nil
}

func (p *fakeProvider) Health(ctx context.Context) (drone.Stream[drone.Health], error) {
	if p.health != nil {
		return p.health(ctx)
	}
	return &scriptedStream[drone.Health]{}, nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestFetcher_RetriesAndRecordsEachFailure(t *testing.T) {
	errs := errlog.New(errlog.DefaultCapacity)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var subscribes int
	subscribe := func(context.Context) (drone.Stream[int], error) {
		subscribes++
		if subscribes <= 3 {
			return &scriptedStream[int]{err: errors.New("link reset")}, nil
		}
		// Fourth attempt: stop the session so Run returns.
		cancel()
		return &scriptedStream[int]{}, nil
	}

	f := New("test", "Test", subscribe, func(int) {}, errs, WithRetryDelay[int](time.Millisecond))

	if err := f.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if subscribes != 4 {
		t.Errorf("expected 3 failures to cause 4 subscription attempts, got %d", subscribes)
	}
	if errs.Len() != 3 {
		t.Fatalf("expected one error entry per failure, got %d", errs.Len())
	}
	for _, entry := range errs.Recent(3) {
		if entry.Message != "Test fetch error: link reset" {
			t.Errorf("unexpected error entry: %q", entry.Message)
		}
	}
}

func TestFetcher_SubscribeFailureIsRetriedToo(t *testing.T) {
	errs := errlog.New(errlog.DefaultCapacity)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var subscribes int
	subscribe := func(context.Context) (drone.Stream[int], error) {
		subscribes++
		if subscribes == 1 {
			return nil, errors.New("no such subscription")
		}
		cancel()
		return &scriptedStream[int]{}, nil
	}

	f := New("test", "Test", subscribe, func(int) {}, errs, WithRetryDelay[int](time.Millisecond))
	if err := f.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if subscribes != 2 {
		t.Errorf("expected a second subscription attempt, got %d", subscribes)
	}
	if errs.Len() != 1 {
		t.Errorf("expected 1 error entry, got %d", errs.Len())
	}
}

func TestFetcher_AppliesItemsInOrder(t *testing.T) {
	errs := errlog.New(errlog.DefaultCapacity)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	applied := make(chan int, 3)
	subscribe := func(context.Context) (drone.Stream[int], error) {
		return &scriptedStream[int]{items: []int{1, 2, 3}}, nil
	}

	f := New("test", "Test", subscribe, func(item int) { applied <- item }, errs, WithRetryDelay[int](time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	for want := 1; want <= 3; want++ {
		select {
		case got := <-applied:
			if got != want {
				t.Errorf("expected item %d, got %d", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for items")
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if errs.Len() != 0 {
		t.Errorf("expected no error entries, got %d", errs.Len())
	}
}

func TestFetcher_StateTransitions(t *testing.T) {
	errs := errlog.New(errlog.DefaultCapacity)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fail := true
	subscribe := func(context.Context) (drone.Stream[int], error) {
		if fail {
			fail = false
			return &scriptedStream[int]{err: errors.New("boom")}, nil
		}
		return &scriptedStream[int]{}, nil
	}

	f := New("test", "Test", subscribe, func(int) {}, errs, WithRetryDelay[int](50*time.Millisecond))
	if got := f.State(); got != StateSubscribing {
		t.Errorf("expected initial state %q, got %q", StateSubscribing, got)
	}

	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	waitFor(t, "faulted state", func() bool { return f.State() == StateFaulted })
	waitFor(t, "consuming state", func() bool { return f.State() == StateConsuming })

	cancel()
	<-done
}

// TestFetcher_FailureIsolation is the core property of the design: one
// category failing forever must not stop another from updating the store.
func TestFetcher_FailureIsolation(t *testing.T) {
	store := telemetry.NewStore()
	errs := errlog.New(100)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := &fakeProvider{
		gps: func(context.Context) (drone.Stream[drone.GPSInfo], error) {
			return nil, errors.New("unsupported on this link")
		},
		batt: func(context.Context) (drone.Stream[drone.Battery], error) {
			return &scriptedStream[drone.Battery]{
				items: []drone.Battery{{VoltageV: 12.4, RemainingPercent: 87.3}},
			}, nil
		},
	}

	gps := GPS(provider, store, errs, WithRetryDelay[drone.GPSInfo](time.Millisecond))
	batt := Battery(provider, store, errs, WithRetryDelay[drone.Battery](time.Millisecond))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = gps.Run(ctx)
	}()
	go func() { _ = batt.Run(ctx) }()

	waitFor(t, "battery update", func() bool { return store.Snapshot().Voltage != nil })
	waitFor(t, "gps errors", func() bool { return errs.Len() >= 2 })

	rec := store.Snapshot()
	if *rec.Voltage != 12.4 || *rec.Battery != 87.3 {
		t.Errorf("unexpected battery values: %v, %v", *rec.Voltage, *rec.Battery)
	}
	if rec.GPSFix != nil {
		t.Error("expected GPS fields to stay unavailable")
	}
	for _, entry := range errs.Recent(100) {
		if !strings.HasPrefix(entry.Message, "GPS fetch error:") {
			t.Errorf("unexpected error entry: %q", entry.Message)
		}
	}

	cancel()
	<-done
}

func TestGPSFetcher_StripsFixTypePrefix(t *testing.T) {
	store := telemetry.NewStore()
	errs := errlog.New(errlog.DefaultCapacity)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := &fakeProvider{
		gps: func(context.Context) (drone.Stream[drone.GPSInfo], error) {
			return &scriptedStream[drone.GPSInfo]{
				items: []drone.GPSInfo{{NumSatellites: 12, FixType: drone.FixType3D}},
			}, nil
		},
	}

	f := GPS(provider, store, errs)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.Run(ctx)
	}()

	waitFor(t, "gps update", func() bool { return store.Snapshot().GPSFix != nil })
	cancel()
	<-done

	rec := store.Snapshot()
	if *rec.GPSFix != "3D" {
		t.Errorf("expected fix type %q, got %q", "3D", *rec.GPSFix)
	}
	if *rec.Satellites != 12 {
		t.Errorf("expected 12 satellites, got %d", *rec.Satellites)
	}
}

func TestModeFetcher_StripsFlightModePrefix(t *testing.T) {
	store := telemetry.NewStore()
	errs := errlog.New(errlog.DefaultCapacity)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := &fakeProvider{
		mode: func(context.Context) (drone.Stream[drone.FlightMode], error) {
			return &scriptedStream[drone.FlightMode]{
				items: []drone.FlightMode{drone.FlightModeReturnToLaunch},
			}, nil
		},
	}

	f := Mode(provider, store, errs)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.Run(ctx)
	}()

	waitFor(t, "mode update", func() bool { return store.Snapshot().FlightMode != nil })
	cancel()
	<-done

	if got := *store.Snapshot().FlightMode; got != "RETURN_TO_LAUNCH" {
		t.Errorf("expected mode %q, got %q", "RETURN_TO_LAUNCH", got)
	}
}

func TestRCSignalFetcher_UnreadableStrengthIsUnavailable(t *testing.T) {
	store := telemetry.NewStore()
	errs := errlog.New(errlog.DefaultCapacity)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := &fakeProvider{
		rc: func(context.Context) (drone.Stream[drone.RCStatus], error) {
			return &scriptedStream[drone.RCStatus]{
				items: []drone.RCStatus{
					{IsAvailable: true, SignalStrengthPercent: 92.5},
					{IsAvailable: true, SignalStrengthPercent: math.NaN()},
				},
			}, nil
		},
	}

	f := RCSignal(provider, store, errs)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.Run(ctx)
	}()

	waitFor(t, "rc signal update", func() bool { return store.Snapshot().RCSignal != nil })
	waitFor(t, "rc signal to go unavailable", func() bool { return store.Snapshot().RCSignal == nil })
	cancel()
	<-done

	if errs.Len() != 0 {
		t.Error("an unreadable signal strength must not be treated as a stream failure")
	}
}

func TestHealthFetcher_MapsAllFlags(t *testing.T) {
	store := telemetry.NewStore()
	errs := errlog.New(errlog.DefaultCapacity)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := &fakeProvider{
		health: func(context.Context) (drone.Stream[drone.Health], error) {
			return &scriptedStream[drone.Health]{
				items: []drone.Health{{
					IsAccelerometerCalibrationOk: true,
					IsArmable:                    true,
					IsGlobalPositionOk:           false,
					IsGyrometerCalibrationOk:     true,
					IsHomePositionOk:             true,
					IsLocalPositionOk:            true,
					IsMagnetometerCalibrationOk:  true,
				}},
			}, nil
		},
	}

	f := Health(provider, store, errs)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.Run(ctx)
	}()

	waitFor(t, "health update", func() bool { return store.Snapshot().Health != nil })
	cancel()
	<-done

	h := store.Snapshot().Health
	if !h.Armable || !h.AccelerometerCalibration || !h.GyrometerCalibration ||
		!h.MagnetometerCalibration || !h.HomePosition || !h.LocalPosition {
		t.Error("expected all checks but global position to be OK")
	}
	if h.GlobalPosition {
		t.Error("expected global position FAIL")
	}
}

func TestAll_CoversEveryCategory(t *testing.T) {
	store := telemetry.NewStore()
	errs := errlog.New(errlog.DefaultCapacity)

	runners := All(&fakeProvider{}, store, errs, Options{})
	if len(runners) != 8 {
		t.Fatalf("expected 8 fetchers, got %d", len(runners))
	}

	want := map[string]bool{
		CategoryPosition:   false,
		CategoryAttitude:   false,
		CategoryBattery:    false,
		CategoryGPS:        false,
		CategoryFlightMode: false,
		CategoryArmed:      false,
		CategoryRCSignal:   false,
		CategoryHealth:     false,
	}
	for _, r := range runners {
		seen, ok := want[r.Category()]
		if !ok {
			t.Errorf("unexpected category %q", r.Category())
			continue
		}
		if seen {
			t.Errorf("duplicate category %q", r.Category())
		}
		want[r.Category()] = true
	}
}
