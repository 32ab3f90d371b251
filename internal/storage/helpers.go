package storage

import (
	"database/sql"
	"time"

	"github.com/uavlog/groundstation/internal/telemetry"
)

// snapshotData is the snapshots table row. Unavailable record fields map to
// SQL NULL so the archive preserves the difference between "zero" and "never
// received".
type snapshotData struct {
	ID                             int64
	SessionID                      int64
	Timestamp                      time.Time
	Latitude                       sql.NullFloat64
	Longitude                      sql.NullFloat64
	RelativeAltitude               sql.NullFloat64
	AbsoluteAltitude               sql.NullFloat64
	Roll                           sql.NullFloat64
	Pitch                          sql.NullFloat64
	Yaw                            sql.NullFloat64
	Voltage                        sql.NullFloat64
	Battery                        sql.NullFloat64
	GPSFix                         sql.NullString
	Satellites                     sql.NullInt64
	FlightMode                     sql.NullString
	Armed                          sql.NullBool
	RCSignal                       sql.NullFloat64
	HealthAccelerometerCalibration sql.NullBool
	HealthArmable                  sql.NullBool
	HealthGlobalPosition           sql.NullBool
	HealthGyrometerCalibration     sql.NullBool
	HealthHomePosition             sql.NullBool
	HealthLocalPosition            sql.NullBool
	HealthMagnetometerCalibration  sql.NullBool
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func toSnapshotData(sessionID int64, rec telemetry.Record, takenAt time.Time) *snapshotData {
	data := snapshotData{
		SessionID:        sessionID,
		Timestamp:        takenAt.UTC(),
		Latitude:         nullFloat(rec.Latitude),
		Longitude:        nullFloat(rec.Longitude),
		RelativeAltitude: nullFloat(rec.RelativeAltitude),
		AbsoluteAltitude: nullFloat(rec.AbsoluteAltitude),
		Roll:             nullFloat(rec.Roll),
		Pitch:            nullFloat(rec.Pitch),
		Yaw:              nullFloat(rec.Yaw),
		Voltage:          nullFloat(rec.Voltage),
		Battery:          nullFloat(rec.Battery),
		GPSFix:           nullString(rec.GPSFix),
		FlightMode:       nullString(rec.FlightMode),
		Armed:            nullBool(rec.Armed),
		RCSignal:         nullFloat(rec.RCSignal),
	}

	if rec.Satellites != nil {
		data.Satellites = sql.NullInt64{Int64: int64(*rec.Satellites), Valid: true}
	}

	if h := rec.Health; h != nil {
		data.HealthAccelerometerCalibration = sql.NullBool{Bool: h.AccelerometerCalibration, Valid: true}
		data.HealthArmable = sql.NullBool{Bool: h.Armable, Valid: true}
		data.HealthGlobalPosition = sql.NullBool{Bool: h.GlobalPosition, Valid: true}
		data.HealthGyrometerCalibration = sql.NullBool{Bool: h.GyrometerCalibration, Valid: true}
		data.HealthHomePosition = sql.NullBool{Bool: h.HomePosition, Valid: true}
		data.HealthLocalPosition = sql.NullBool{Bool: h.LocalPosition, Valid: true}
		data.HealthMagnetometerCalibration = sql.NullBool{Bool: h.MagnetometerCalibration, Valid: true}
	}

	return &data
}

func fromSnapshotData(data *snapshotData) *Snapshot {
	snap := Snapshot{
		ID:        data.ID,
		SessionID: data.SessionID,
		Timestamp: data.Timestamp,
		Record: telemetry.Record{
			Latitude:         floatPtr(data.Latitude),
			Longitude:        floatPtr(data.Longitude),
			RelativeAltitude: floatPtr(data.RelativeAltitude),
			AbsoluteAltitude: floatPtr(data.AbsoluteAltitude),
			Roll:             floatPtr(data.Roll),
			Pitch:            floatPtr(data.Pitch),
			Yaw:              floatPtr(data.Yaw),
			Voltage:          floatPtr(data.Voltage),
			Battery:          floatPtr(data.Battery),
			GPSFix:           stringPtr(data.GPSFix),
			FlightMode:       stringPtr(data.FlightMode),
			Armed:            boolPtr(data.Armed),
			RCSignal:         floatPtr(data.RCSignal),
		},
	}

	if data.Satellites.Valid {
		sats := int(data.Satellites.Int64)
		snap.Record.Satellites = &sats
	}

	// All seven health columns are written together, so one being present
	// means the checklist was present.
	if data.HealthArmable.Valid {
		snap.Record.Health = &telemetry.Health{
			AccelerometerCalibration: data.HealthAccelerometerCalibration.Bool,
			Armable:                  data.HealthArmable.Bool,
			GlobalPosition:           data.HealthGlobalPosition.Bool,
			GyrometerCalibration:     data.HealthGyrometerCalibration.Bool,
			HomePosition:             data.HealthHomePosition.Bool,
			LocalPosition:            data.HealthLocalPosition.Bool,
			MagnetometerCalibration:  data.HealthMagnetometerCalibration.Bool,
		}
	}

	return &snap
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func boolPtr(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	return &v.Bool
}
