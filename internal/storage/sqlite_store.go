package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/uavlog/groundstation/internal/telemetry"
)

// sqliteStore handles database operations
type sqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

func newSqliteStore(dbPath string) *sqliteStore {
	return &sqliteStore{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *sqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *sqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *sqliteStore) CreateSession(ctx context.Context, sessionUUID, linkAddress string, config any) (sessionID int64, err error) {
	var configData sql.NullString

	if config != nil {
		switch v := config.(type) {
		case string:
			configData.Valid = true
			configData.String = v

		case []byte:
			configData.Valid = true
			configData.String = string(v)

		default:
			var p []byte
			if p, err = json.Marshal(config); err != nil {
				err = fmt.Errorf("marshaling config: %w", err)
				return
			}

			configData.Valid = true
			configData.String = string(p)
		}
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, sessionUUID, linkAddress, configData)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	sessionID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting session ID: %w", err)
	}
	return
}

func (s *sqliteStore) AppendSnapshot(ctx context.Context, sessionID int64, rec telemetry.Record, takenAt time.Time) (snapshotID int64, err error) {
	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertSnapshotSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	data := toSnapshotData(sessionID, rec, takenAt)

	result, err := stmt.ExecContext(
		ctx,
		data.SessionID,
		data.Timestamp,
		data.Latitude,
		data.Longitude,
		data.RelativeAltitude,
		data.AbsoluteAltitude,
		data.Roll,
		data.Pitch,
		data.Yaw,
		data.Voltage,
		data.Battery,
		data.GPSFix,
		data.Satellites,
		data.FlightMode,
		data.Armed,
		data.RCSignal,
		data.HealthAccelerometerCalibration,
		data.HealthArmable,
		data.HealthGlobalPosition,
		data.HealthGyrometerCalibration,
		data.HealthHomePosition,
		data.HealthLocalPosition,
		data.HealthMagnetometerCalibration,
	)
	if err != nil {
		err = fmt.Errorf("inserting snapshot: %w", err)
		return
	}

	snapshotID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting snapshot ID: %w", err)
	}
	return
}

func (s *sqliteStore) Sessions(ctx context.Context) (sessions []*Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		err = fmt.Errorf("querying sessions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess Session
		var config sql.NullString
		if err = rows.Scan(&sess.ID, &sess.UUID, &sess.StartTime, &sess.LinkAddress, &config); err != nil {
			err = fmt.Errorf("scanning session: %w", err)
			return
		}
		if config.Valid {
			sess.Config = &config.String
		}
		sessions = append(sessions, &sess)
	}
	err = rows.Err()
	return
}

func (s *sqliteStore) Snapshots(ctx context.Context, sessionID int64) (snapshots []*Snapshot, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectSnapshotsSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	rows, err := stmt.QueryContext(ctx, sessionID)
	if err != nil {
		err = fmt.Errorf("querying snapshots: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var data snapshotData
		if err = rows.Scan(
			&data.ID,
			&data.SessionID,
			&data.Timestamp,
			&data.Latitude,
			&data.Longitude,
			&data.RelativeAltitude,
			&data.AbsoluteAltitude,
			&data.Roll,
			&data.Pitch,
			&data.Yaw,
			&data.Voltage,
			&data.Battery,
			&data.GPSFix,
			&data.Satellites,
			&data.FlightMode,
			&data.Armed,
			&data.RCSignal,
			&data.HealthAccelerometerCalibration,
			&data.HealthArmable,
			&data.HealthGlobalPosition,
			&data.HealthGyrometerCalibration,
			&data.HealthHomePosition,
			&data.HealthLocalPosition,
			&data.HealthMagnetometerCalibration,
		); err != nil {
			err = fmt.Errorf("scanning snapshot: %w", err)
			return
		}
		snapshots = append(snapshots, fromSnapshotData(&data))
	}
	err = rows.Err()
	return
}

func (s *sqliteStore) Close() error {
	s.closeOnce.Do(func() {
		if s.writeDB != nil {
			s.closeErr = s.writeDB.Close()
		}
		if s.readDB != nil {
			if err := s.readDB.Close(); err != nil && s.closeErr == nil {
				s.closeErr = err
			}
		}
	})
	return s.closeErr
}
