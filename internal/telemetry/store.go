package telemetry

import "sync"

// Store holds the shared telemetry record. The eight category fetchers write
// disjoint field subsets concurrently while the display and flight log
// consumers take snapshots; an RWMutex keeps every single-field write atomic
// with respect to readers. There is deliberately no atomicity across fields
// from different categories: a snapshot may pair a position from one update
// with an attitude from a racing one.
//
// Setters publish fresh pointers and never mutate a value already visible
// through a previous snapshot, so a snapshot stays immutable after it is
// returned.
type Store struct {
	mu  sync.RWMutex
	rec Record
}

// NewStore returns a Store with every field unavailable.
func NewStore() *Store {
	return &Store{}
}

// Snapshot returns a point-in-time copy of the full record. Each field
// reflects the most recent completed write to it; the copy is safe to read
// while fetchers keep writing.
func (s *Store) Snapshot() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec
}

// SetPosition records the vehicle position: latitude and longitude in
// decimal degrees, relative and absolute altitude in meters.
func (s *Store) SetPosition(lat, lon, relAlt, absAlt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec.Latitude = &lat
	s.rec.Longitude = &lon
	s.rec.RelativeAltitude = &relAlt
	s.rec.AbsoluteAltitude = &absAlt
}

// SetAttitude records the Euler attitude angles in degrees.
func (s *Store) SetAttitude(roll, pitch, yaw float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec.Roll = &roll
	s.rec.Pitch = &pitch
	s.rec.Yaw = &yaw
}

// SetBattery records battery voltage in volts and remaining charge in
// percent.
func (s *Store) SetBattery(voltage, remaining float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec.Voltage = &voltage
	s.rec.Battery = &remaining
}

// SetGPSInfo records the GPS fix type label and satellite count.
func (s *Store) SetGPSInfo(fix string, satellites int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec.GPSFix = &fix
	s.rec.Satellites = &satellites
}

// SetFlightMode records the flight mode label.
func (s *Store) SetFlightMode(mode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec.FlightMode = &mode
}

// SetArmed records the armed state.
func (s *Store) SetArmed(armed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec.Armed = &armed
}

// SetRCSignal records the RC link signal strength in percent. A nil value
// marks the signal strength unavailable, which some links never report.
func (s *Store) SetRCSignal(percent *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if percent == nil {
		s.rec.RCSignal = nil
		return
	}
	v := *percent
	s.rec.RCSignal = &v
}

// SetHealth replaces the whole health checklist with h.
func (s *Store) SetHealth(h Health) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec.Health = &h
}
