package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/uavlog/groundstation/internal/storage"
)

// Run wires the application together and drives the supervisor until ctx is
// cancelled. A cancelled context is a clean exit, not an error.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if err := os.MkdirAll(config.FlightLog.Directory, 0o755); err != nil {
		return fmt.Errorf("creating flight log directory: %w", err)
	}

	var options []func(*Supervisor)

	if config.Archive.Enabled {
		archive, err := createArchive(&config.Archive)
		if err != nil {
			return fmt.Errorf("failed to create archive: %w", err)
		}
		defer archive.Close()

		options = append(options, WithArchive(archive))
	}

	supervisor := NewSupervisor(config, logger, options...)
	if err := supervisor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("exiting...")
	return nil
}

func createArchive(config *ArchiveConfig) (storage.Store, error) {
	dir := config.DataDirectory
	if dir == "" {
		dir = defaultDataDirectory
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dir, fmt.Sprintf("telemetry_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	archive, err := storage.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("creating archive: %w", err)
	}

	return archive, nil
}
