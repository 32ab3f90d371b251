package drone

// FixType enumerates GPS fix types. String values carry the wire-style
// FIX_TYPE_ prefix, which consumers strip before showing the label.
type FixType int

const (
	FixTypeNoGPS FixType = iota
	FixTypeNoFix
	FixType2D
	FixType3D
	FixTypeDGPS
	FixTypeRTKFloat
	FixTypeRTKFixed
)

var fixTypeNames = map[FixType]string{
	FixTypeNoGPS:    "FIX_TYPE_NO_GPS",
	FixTypeNoFix:    "FIX_TYPE_NO_FIX",
	FixType2D:       "FIX_TYPE_2D",
	FixType3D:       "FIX_TYPE_3D",
	FixTypeDGPS:     "FIX_TYPE_DGPS",
	FixTypeRTKFloat: "FIX_TYPE_RTK_FLOAT",
	FixTypeRTKFixed: "FIX_TYPE_RTK_FIXED",
}

func (f FixType) String() string {
	if s, ok := fixTypeNames[f]; ok {
		return s
	}
	return "FIX_TYPE_UNKNOWN"
}

// FlightMode enumerates autopilot flight modes. String values carry the
// wire-style FLIGHT_MODE_ prefix.
type FlightMode int

const (
	FlightModeUnknown FlightMode = iota
	FlightModeReady
	FlightModeTakeoff
	FlightModeHold
	FlightModeMission
	FlightModeReturnToLaunch
	FlightModeLand
	FlightModeOffboard
	FlightModeFollowMe
	FlightModeManual
	FlightModeAltctl
	FlightModePosctl
	FlightModeAcro
	FlightModeStabilized
)

var flightModeNames = map[FlightMode]string{
	FlightModeUnknown:        "FLIGHT_MODE_UNKNOWN",
	FlightModeReady:          "FLIGHT_MODE_READY",
	FlightModeTakeoff:        "FLIGHT_MODE_TAKEOFF",
	FlightModeHold:           "FLIGHT_MODE_HOLD",
	FlightModeMission:        "FLIGHT_MODE_MISSION",
	FlightModeReturnToLaunch: "FLIGHT_MODE_RETURN_TO_LAUNCH",
	FlightModeLand:           "FLIGHT_MODE_LAND",
	FlightModeOffboard:       "FLIGHT_MODE_OFFBOARD",
	FlightModeFollowMe:       "FLIGHT_MODE_FOLLOW_ME",
	FlightModeManual:         "FLIGHT_MODE_MANUAL",
	FlightModeAltctl:         "FLIGHT_MODE_ALTCTL",
	FlightModePosctl:         "FLIGHT_MODE_POSCTL",
	FlightModeAcro:           "FLIGHT_MODE_ACRO",
	FlightModeStabilized:     "FLIGHT_MODE_STABILIZED",
}

func (m FlightMode) String() string {
	if s, ok := flightModeNames[m]; ok {
		return s
	}
	return "FLIGHT_MODE_UNKNOWN"
}
