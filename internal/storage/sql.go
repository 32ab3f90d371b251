package storage

const initSchemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    uuid         TEXT NOT NULL UNIQUE,
    start_time   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    link_address TEXT NOT NULL,
    config       TEXT
);

CREATE TABLE IF NOT EXISTS snapshots (
    id                               INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id                       INTEGER NOT NULL REFERENCES sessions (id),
    timestamp                        TIMESTAMP NOT NULL,
    latitude                         REAL,
    longitude                        REAL,
    relative_altitude                REAL,
    absolute_altitude                REAL,
    roll                             REAL,
    pitch                            REAL,
    yaw                              REAL,
    voltage                          REAL,
    battery                          REAL,
    gps_fix                          TEXT,
    satellites                       INTEGER,
    flight_mode                      TEXT,
    armed                            INTEGER,
    rc_signal                        REAL,
    health_accelerometer_calibration INTEGER,
    health_armable                   INTEGER,
    health_global_position           INTEGER,
    health_gyrometer_calibration     INTEGER,
    health_home_position             INTEGER,
    health_local_position            INTEGER,
    health_magnetometer_calibration  INTEGER
);

CREATE INDEX IF NOT EXISTS idx_snapshots_session ON snapshots (session_id, timestamp);
`

const (
	insertSessionSQL = `
INSERT INTO sessions (uuid,
                      start_time,
                      link_address,
                      config)
VALUES (?, CURRENT_TIMESTAMP, ?, ?)`

	selectSessionsSQL = `
SELECT
    id,
    uuid,
    start_time,
    link_address,
    config
FROM sessions
ORDER BY start_time`

	insertSnapshotSQL = `
INSERT INTO snapshots (session_id,
                       timestamp,
                       latitude,
                       longitude,
                       relative_altitude,
                       absolute_altitude,
                       roll,
                       pitch,
                       yaw,
                       voltage,
                       battery,
                       gps_fix,
                       satellites,
                       flight_mode,
                       armed,
                       rc_signal,
                       health_accelerometer_calibration,
                       health_armable,
                       health_global_position,
                       health_gyrometer_calibration,
                       health_home_position,
                       health_local_position,
                       health_magnetometer_calibration)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectSnapshotsSQL = `
SELECT
    id,
    session_id,
    timestamp,
    latitude,
    longitude,
    relative_altitude,
    absolute_altitude,
    roll,
    pitch,
    yaw,
    voltage,
    battery,
    gps_fix,
    satellites,
    flight_mode,
    armed,
    rc_signal,
    health_accelerometer_calibration,
    health_armable,
    health_global_position,
    health_gyrometer_calibration,
    health_home_position,
    health_local_position,
    health_magnetometer_calibration
FROM snapshots
WHERE
    session_id = ?
ORDER BY timestamp`
)
