package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fleetsim/vehiclesim/internal/config"
	"github.com/fleetsim/vehiclesim/internal/model"
	"github.com/fleetsim/vehiclesim/internal/model/convert"
	"github.com/fleetsim/vehiclesim/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(config.DBConfig{}, zerolog.Nop())
	require.NoError(t, m.ConnectSQLite(""))
	require.NoError(t, m.Setup())
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.DBConfig{
		Host: "db", Port: "5432", Username: "sim", Password: "secret", Database: "fleet",
	})
	assert.Equal(t, "host=db port=5432 user=sim password=secret dbname=fleet sslmode=disable", dsn)
}

func TestManager_ConnectSQLite(t *testing.T) {
	m := newMemoryManager(t)

	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	for _, table := range []string{"runs", "vehicles", "transitions"} {
		assert.True(t, m.DB.Migrator().HasTable(table), table)
	}
}

func TestOpenSQLite_InMemoryIsPrivate(t *testing.T) {
	a := newMemoryManager(t)
	b := newMemoryManager(t)

	require.NoError(t, a.DB.Create(&model.Run{ID: "run-a", Name: "a"}).Error)

	var count int64
	require.NoError(t, b.DB.Model(&model.Run{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSetup_NotConnected(t *testing.T) {
	m := NewManager(config.DBConfig{}, zerolog.Nop())
	assert.Error(t, m.Setup())
}

func TestLoadRun(t *testing.T) {
	m := newMemoryManager(t)
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	run := core.Run{ID: "run-1", Name: "morning", StartTime: start, TickStep: 10 * time.Second}
	r := convert.CoreToRun(run)
	require.NoError(t, m.DB.Create(&r).Error)

	v := convert.CoreToVehicle(core.Vehicle{
		ID: "truck-1", RunID: "run-1", RegisteredAt: start,
		StartPosition: core.Position{Lon: 13.4, Lat: 52.5}, Speed: 60,
	})
	require.NoError(t, m.DB.Create(&v).Error)

	events := []core.TransitionEvent{
		{ObjectID: "truck-1", Trigger: "set_moving_to", Source: "idling", Destination: "moving_to",
			Time: start.Add(20 * time.Second), Kwargs: map[string]any{"position": map[string]any{"lon": 13.4, "lat": 52.5}}},
		{ObjectID: "truck-1", Trigger: "set_idling", Source: "offline", Destination: "idling",
			Time: start.Add(10 * time.Second), Kwargs: map[string]any{}},
	}
	for _, e := range events {
		tr := convert.CoreToTransition("run-1", e)
		require.NoError(t, m.DB.Create(&tr).Error)
	}

	gotRun, vehicles, transitions, err := m.LoadRun("run-1")
	require.NoError(t, err)

	assert.Equal(t, "morning", gotRun.Name)
	assert.Equal(t, 10*time.Second, gotRun.TickStep)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "truck-1", vehicles[0].ID)
	assert.InDelta(t, 52.5, vehicles[0].StartPosition.Lat, 1e-9)

	require.Len(t, transitions, 2)
	assert.Equal(t, "set_idling", transitions[0].Trigger)
	assert.Equal(t, "set_moving_to", transitions[1].Trigger)
}

func TestLoadRun_NotFound(t *testing.T) {
	m := newMemoryManager(t)

	_, _, _, err := m.LoadRun("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestDumpMemoryToDisk(t *testing.T) {
	m := newMemoryManager(t)
	require.NoError(t, m.DB.Create(&model.Run{ID: "run-1", Name: "dumped"}).Error)

	m.SqliteFilePath = filepath.Join(t.TempDir(), "dump.db")
	require.NoError(t, m.DumpMemoryToDisk())
	// a second dump replaces the first
	require.NoError(t, m.DumpMemoryToDisk())

	_, err := os.Stat(m.SqliteFilePath)
	require.NoError(t, err)

	disk, err := OpenSQLite(m.SqliteFilePath)
	require.NoError(t, err)
	var run model.Run
	require.NoError(t, disk.Take(&run).Error)
	assert.Equal(t, "dumped", run.Name)

	sqlDB, err := disk.DB()
	require.NoError(t, err)
	_ = sqlDB.Close()
}

func TestDumpMemoryToDisk_NoPath(t *testing.T) {
	m := newMemoryManager(t)
	assert.Error(t, m.DumpMemoryToDisk())
}
