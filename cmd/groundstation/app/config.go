package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultLinkAddress matches the field wiring this tool grew up with: a
	// telemetry radio on the first USB serial port.
	DefaultLinkAddress = "serial:///dev/ttyUSB0:57600"

	defaultFlightLogDir  = "flight_logs"
	defaultDataDirectory = "data"
)

// Config represents the main application configuration
type Config struct {
	Settings  Settings        `yaml:"settings"`
	Link      LinkConfig      `yaml:"link"`
	Display   DisplayConfig   `yaml:"display"`
	FlightLog FlightLogConfig `yaml:"flightLog"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// Level parses the configured log level, defaulting to info.
func (s Settings) Level() slog.Level {
	var level slog.Level
	if s.LogLevel == "" {
		return slog.LevelInfo
	}
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// LinkConfig represents the vehicle link settings. Intervals are in seconds.
type LinkConfig struct {
	Address        string  `yaml:"address" json:"address"`
	ReconnectDelay float64 `yaml:"reconnectDelay" json:"reconnectDelay"`
	RetryDelay     float64 `yaml:"retryDelay" json:"retryDelay"`
}

// DisplayConfig represents the live display settings.
type DisplayConfig struct {
	Interval float64 `yaml:"interval"`
}

// FlightLogConfig represents the CSV flight log settings.
type FlightLogConfig struct {
	Directory string  `yaml:"directory"`
	Interval  float64 `yaml:"interval"`
}

// ArchiveConfig represents the optional SQLite archive settings.
type ArchiveConfig struct {
	Enabled       bool    `yaml:"enabled"`
	DataDirectory string  `yaml:"dataDirectory"`
	Interval      float64 `yaml:"interval"`
}

// DefaultConfig returns the configuration used when no file is provided.
func DefaultConfig() *Config {
	return &Config{
		Link: LinkConfig{
			Address:        DefaultLinkAddress,
			ReconnectDelay: 5,
			RetryDelay:     1,
		},
		Display: DisplayConfig{
			Interval: 1,
		},
		FlightLog: FlightLogConfig{
			Directory: defaultFlightLogDir,
			Interval:  1,
		},
		Archive: ArchiveConfig{
			DataDirectory: defaultDataDirectory,
			Interval:      1,
		},
	}
}

// LoadConfig reads and validates a YAML configuration file. Settings absent
// from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening configuration file: %w", err)
	}
	defer f.Close()

	config := DefaultConfig()
	if err = yaml.NewDecoder(f).Decode(config); err != nil {
		return nil, fmt.Errorf("parsing configuration file: %w", err)
	}

	if err = config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.Link.Address == "" {
		return fmt.Errorf("link address must not be empty")
	}
	if c.Link.ReconnectDelay <= 0 {
		return fmt.Errorf("link reconnect delay must be positive")
	}
	if c.Link.RetryDelay <= 0 {
		return fmt.Errorf("link retry delay must be positive")
	}
	if c.Display.Interval <= 0 {
		return fmt.Errorf("display interval must be positive")
	}
	if c.FlightLog.Directory == "" {
		return fmt.Errorf("flight log directory must not be empty")
	}
	if c.FlightLog.Interval <= 0 {
		return fmt.Errorf("flight log interval must be positive")
	}
	if c.Archive.Enabled && c.Archive.Interval <= 0 {
		return fmt.Errorf("archive interval must be positive")
	}
	return nil
}

// seconds converts a fractional-seconds config value to a duration.
func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
