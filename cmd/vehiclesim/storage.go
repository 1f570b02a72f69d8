package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fleetsim/vehiclesim/internal/config"
	"github.com/fleetsim/vehiclesim/internal/influx"
	"github.com/fleetsim/vehiclesim/internal/storage"
	"github.com/fleetsim/vehiclesim/pkg/core"
)

// initStorage creates the configured backend, initializes it and starts run.
func initStorage(run *core.Run) (storage.Backend, error) {
	storageCfg := config.GetStorageConfig()
	if storageCfg.Type == storage.TypeWebSocket {
		storageCfg.WebSocket.URL = httpToWS(storageCfg.WebSocket.URL)
	}

	backend, err := storage.NewBackend(storageCfg, storage.Dependencies{
		DB:     config.GetDBConfig(),
		Logger: InfraLogger,
		Slog:   Logger,
	})
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return nil, err
	}
	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "type", storageCfg.Type, "error", err)
		return nil, err
	}
	if err := backend.StartRun(run); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("start run: %w", err)
	}

	Logger.Info("Storage backend initialized", "type", storageCfg.Type, "run", run.ID)
	return backend, nil
}

// initInflux connects the influx manager. It returns nil when influx is disabled.
func initInflux(ctx context.Context, runID string) (*influx.Manager, error) {
	influxCfg := config.GetInfluxConfig()
	backupPath := filepath.Join(influxCfg.BackupDir,
		fmt.Sprintf("influx_backup_%s.log.gz", SessionStartTime.Format("20060102_150405")))

	m := influx.NewManager(influxCfg, InfraLogger, backupPath)
	m.RunID = runID
	if err := m.Connect(ctx); err != nil {
		if errors.Is(err, influx.ErrDisabled) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
