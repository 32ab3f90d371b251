package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/uavlog/groundstation/internal/drone"
	"github.com/uavlog/groundstation/internal/errlog"
	"github.com/uavlog/groundstation/internal/telemetry"
)

// blockStream blocks until the context is done.
type blockStream[T any] struct{}

func (blockStream[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	<-ctx.Done()
	return zero, ctx.Err()
}

func (blockStream[T]) Close() error { return nil }

// stateStream yields a fixed connection-state script, then blocks.
type stateStream struct {
	mu     sync.Mutex
	states []drone.ConnectionState
}

func (s *stateStream) Recv(ctx context.Context) (drone.ConnectionState, error) {
	s.mu.Lock()
	if len(s.states) > 0 {
		state := s.states[0]
		s.states = s.states[1:]
		s.mu.Unlock()
		return state, nil
	}
	s.mu.Unlock()

	<-ctx.Done()
	return drone.ConnectionState{}, ctx.Err()
}

func (s *stateStream) Close() error { return nil }

// fakeVehicle is a connected vehicle whose category streams never deliver.
// Scripts holds one connection-state script per ConnectionState call: the
// first serves the supervisor's connect wait, the second its link watcher.
type fakeVehicle struct {
	mu      sync.Mutex
	scripts [][]drone.ConnectionState
}

func connectedVehicle() *fakeVehicle {
	return &fakeVehicle{scripts: [][]drone.ConnectionState{
		{{IsConnected: true}},
		{{IsConnected: true}},
	}}
}

func (v *fakeVehicle) Connect(context.Context) error { return nil }
func (v *fakeVehicle) Close() error                  { return nil }

func (v *fakeVehicle) ConnectionState(context.Context) (drone.Stream[drone.ConnectionState], error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(v.scripts) == 0 {
		return &stateStream{}, nil
	}
	script := v.scripts[0]
	v.scripts = v.scripts[1:]
	return &stateStream{states: script}, nil
}

func (v *fakeVehicle) Position(context.Context) (drone.Stream[drone.Position], error) {
	return blockStream[drone.Position]{}, nil
}

func (v *fakeVehicle) AttitudeEuler(context.Context) (drone.Stream[drone.EulerAngle], error) {
	return blockStream[drone.EulerAngle]{}, nil
}

func (v *fakeVehicle) Battery(context.Context) (drone.Stream[drone.Battery], error) {
	return blockStream[drone.Battery]{}, nil
}

func (v *fakeVehicle) GPSInfo(context.Context) (drone.Stream[drone.GPSInfo], error) {
	return blockStream[drone.GPSInfo]{}, nil
}

func (v *fakeVehicle) FlightMode(context.Context) (drone.Stream[drone.FlightMode], error) {
	return blockStream[drone.FlightMode]{}, nil
}

func (v *fakeVehicle) Armed(context.Context) (drone.Stream[bool], error) {
	return blockStream[bool]{}, nil
}

func (v *fakeVehicle) RCStatus(context.Context) (drone.Stream[drone.RCStatus], error) {
	return blockStream[drone.RCStatus]{}, nil
}

func (v *fakeVehicle) Health(context.Context) (drone.Stream[drone.Health], error) {
	return blockStream[drone.Health]{}, nil
}

func testConfig(t *testing.T) *Config {
	t.Helper()

	config := DefaultConfig()
	config.Link.Address = "sim://test"
	config.Link.ReconnectDelay = 0.001
	config.Link.RetryDelay = 0.001
	config.Display.Interval = 0.01
	config.FlightLog.Directory = t.TempDir()
	config.FlightLog.Interval = 0.01
	return config
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSupervisor_RetriesFailedConnections(t *testing.T) {
	sharedLog := errlog.New(100)

	var dials atomic.Int32
	dial := func(context.Context, string) (drone.Provider, error) {
		if n := dials.Add(1); n <= 3 {
			return nil, fmt.Errorf("serial port busy (attempt %d)", n)
		}
		return connectedVehicle(), nil
	}

	s := NewSupervisor(testConfig(t), discardLogger(),
		WithDialer(dial),
		WithDisplayOutput(io.Discard))
	s.newState = func() (*telemetry.Store, *errlog.Log) {
		return telemetry.NewStore(), sharedLog
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Three failed attempts, then the fourth connects and the session runs.
	waitFor(t, "fourth dial", func() bool { return dials.Load() == 4 })
	waitFor(t, "three error entries", func() bool { return sharedLog.Len() == 3 })

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	entries := sharedLog.Recent(100)
	if len(entries) != 3 {
		t.Fatalf("expected exactly 3 error entries, got %d", len(entries))
	}
	for i, entry := range entries {
		want := fmt.Sprintf("Main connection error: serial port busy (attempt %d)", i+1)
		if entry.Message != want {
			t.Errorf("entry %d: expected %q, got %q", i, want, entry.Message)
		}
	}
}

func TestSupervisor_SessionFailsWhenLinkIsLost(t *testing.T) {
	sharedLog := errlog.New(errlog.DefaultCapacity)

	// The first script serves the connect wait, the second the link
	// watcher, which sees the vehicle drop off.
	vehicle := &fakeVehicle{scripts: [][]drone.ConnectionState{
		{{IsConnected: true}},
		{{IsConnected: true}, {IsConnected: false}},
	}}
	dial := func(context.Context, string) (drone.Provider, error) {
		return vehicle, nil
	}

	s := NewSupervisor(testConfig(t), discardLogger(),
		WithDialer(dial),
		WithDisplayOutput(io.Discard))
	s.newState = func() (*telemetry.Store, *errlog.Log) {
		return telemetry.NewStore(), sharedLog
	}

	err := s.session(context.Background())
	if !errors.Is(err, ErrLinkLost) {
		t.Fatalf("expected ErrLinkLost, got %v", err)
	}

	found := false
	for _, entry := range sharedLog.Recent(errlog.DefaultCapacity) {
		if strings.Contains(entry.Message, ErrLinkLost.Error()) {
			found = true
		}
	}
	if !found {
		t.Error("expected the link loss to be recorded")
	}
}

func TestSupervisor_WaitsForConnectedSignal(t *testing.T) {
	vehicle := &fakeVehicle{scripts: [][]drone.ConnectionState{
		{{IsConnected: false}, {IsConnected: false}, {IsConnected: true}},
		{{IsConnected: true}},
	}}

	s := NewSupervisor(testConfig(t), discardLogger(),
		WithDialer(func(context.Context, string) (drone.Provider, error) { return vehicle, nil }),
		WithDisplayOutput(io.Discard))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.awaitConnected(ctx, vehicle); err != nil {
		t.Fatalf("expected the connected signal to be reached, got %v", err)
	}
}

func TestDial(t *testing.T) {
	ctx := context.Background()

	provider, err := Dial(ctx, "sim://bench")
	if err != nil {
		t.Fatalf("expected sim scheme to dial, got %v", err)
	}
	if provider == nil {
		t.Fatal("expected a provider")
	}
	_ = provider.Close()

	if _, err = Dial(ctx, "serial:///dev/ttyUSB0:57600"); err == nil {
		t.Error("expected unsupported scheme to fail")
	}
	if _, err = Dial(ctx, "not-an-address"); err == nil {
		t.Error("expected invalid address to fail")
	}
}
