package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fleetsim/vehiclesim/internal/config"
	"github.com/fleetsim/vehiclesim/internal/database"
	"github.com/fleetsim/vehiclesim/internal/logging"
	"github.com/fleetsim/vehiclesim/internal/storage"
	"github.com/fleetsim/vehiclesim/pkg/core"
)

// RunDocument is the JSON layout written by the export command.
type RunDocument struct {
	Run         core.Run               `json:"run"`
	Vehicles    []core.Vehicle         `json:"vehicles"`
	Transitions []core.TransitionEvent `json:"transitions"`
}

func exportCommand(configDir, runID, output string) error {
	if err := config.Load(configDir); err != nil {
		return err
	}
	InfraLogger = logging.NewZerolog(os.Stderr, config.GetString("logLevel"))

	m, err := openStore(config.GetStorageConfig())
	if err != nil {
		return err
	}
	defer m.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	return exportRun(m, runID, w)
}

// openStore connects to the SQL store the run command writes to.
func openStore(storageCfg config.StorageConfig) (*database.Manager, error) {
	m := database.NewManager(config.GetDBConfig(), InfraLogger)
	switch storageCfg.Type {
	case storage.TypePostgres:
		db, err := m.GetPostgresDB()
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		m.DB = db
		if m.SqlDB, err = db.DB(); err != nil {
			return nil, err
		}
		m.IsValid = true
	case storage.TypeSQLite:
		if storageCfg.SQLite.DumpPath == "" {
			return nil, fmt.Errorf("storage.sqlite.dumpPath is not set")
		}
		if _, err := os.Stat(storageCfg.SQLite.DumpPath); err != nil {
			return nil, fmt.Errorf("sqlite dump: %w", err)
		}
		if err := m.ConnectSQLite(storageCfg.SQLite.DumpPath); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("export needs a sqlite or postgres store, got %q", storageCfg.Type)
	}
	return m, nil
}

// exportRun writes the run with its vehicles and transitions as indented JSON.
func exportRun(m *database.Manager, runID string, w io.Writer) error {
	run, vehicles, transitions, err := m.LoadRun(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(RunDocument{Run: run, Vehicles: vehicles, Transitions: transitions})
}
