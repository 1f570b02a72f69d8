// Package postgres implements the storage.Backend interface on a PostgreSQL
// connection. Writes go through the queue-based GORM backend.
package postgres

import (
	"errors"
	"fmt"

	"github.com/fleetsim/vehiclesim/internal/config"
	"github.com/fleetsim/vehiclesim/internal/database"
	gormstorage "github.com/fleetsim/vehiclesim/internal/storage/gorm"
	"github.com/rs/zerolog"
)

const maxOpenConns = 10

// Backend connects to Postgres on Init and delegates to the GORM backend.
type Backend struct {
	*gormstorage.Backend
	cfg config.DBConfig
	log zerolog.Logger
}

// New creates a new Postgres storage backend. No connection is made until Init.
func New(cfg config.DBConfig, log zerolog.Logger) *Backend {
	return &Backend{
		cfg: cfg,
		log: log.With().Str("component", "postgres").Logger(),
	}
}

// Init connects, validates the connection, migrates the schema and starts the writer.
func (b *Backend) Init() error {
	db, err := database.OpenPostgres(b.cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err = sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)

	b.log.Info().Str("host", b.cfg.Host).Str("database", b.cfg.Database).Msg("Connected to database")
	b.Backend = gormstorage.New(gormstorage.Dependencies{DB: db, Logger: b.log})
	return b.Backend.Init()
}

// Close stops the writer and releases the connection pool.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	err := b.Backend.Close()
	if sqlDB, dbErr := b.DB().DB(); dbErr == nil {
		err = errors.Join(err, sqlDB.Close())
	}
	return err
}
