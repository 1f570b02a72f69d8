// internal/storage/factory.go
package storage

import (
	"fmt"
	"log/slog"

	"github.com/fleetsim/vehiclesim/internal/config"
	"github.com/fleetsim/vehiclesim/internal/storage/memory"
	"github.com/fleetsim/vehiclesim/internal/storage/postgres"
	sqlitestorage "github.com/fleetsim/vehiclesim/internal/storage/sqlite"
	"github.com/fleetsim/vehiclesim/internal/storage/websocket"
	"github.com/rs/zerolog"
)

// Storage type names accepted in storage.type.
const (
	TypeMemory    = "memory"
	TypeSQLite    = "sqlite"
	TypePostgres  = "postgres"
	TypeWebSocket = "websocket"
)

// Dependencies are the shared services handed to backends.
type Dependencies struct {
	DB     config.DBConfig
	Logger zerolog.Logger
	Slog   *slog.Logger
}

// NewBackend creates a storage backend based on configuration. Init is left to the caller.
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	switch cfg.Type {
	case TypePostgres:
		return postgres.New(deps.DB, deps.Logger), nil
	case TypeSQLite:
		return sqlitestorage.New(cfg.SQLite, deps.Logger)
	case TypeWebSocket:
		return websocket.New(cfg.WebSocket, deps.Slog), nil
	case TypeMemory, "":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// Flusher is implemented by backends that buffer writes.
type Flusher interface {
	Flush() error
}
