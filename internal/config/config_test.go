package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./vehiclesimlogs", viper.GetString("logsDir"))
	assert.Equal(t, "localhost", viper.GetString("db.host"))
	assert.Equal(t, "5432", viper.GetString("db.port"))
	assert.Equal(t, "vehiclesim", viper.GetString("db.database"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, "memory", viper.GetString("storage.type"))
	assert.Equal(t, "3m", viper.GetString("storage.sqlite.dumpInterval"))
	assert.Equal(t, "vehiclesim", viper.GetString("otel.serviceName"))
	assert.Equal(t, "10s", viper.GetString("simulation.tickStep"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetStorageConfig()
	assert.Equal(t, "memory", cfg.Type)
	assert.Equal(t, "./recordings", cfg.Memory.OutputDir)
	assert.Equal(t, true, cfg.Memory.CompressOutput)
	assert.Equal(t, 3*time.Minute, cfg.SQLite.DumpInterval)
	assert.Equal(t, "ws://localhost:5000/api", cfg.WebSocket.URL)
}

func TestGetStorageConfig_PartialOverrideKeepsDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"storage": {
			"type": "sqlite",
			"sqlite": { "dumpInterval": "10m" }
		}
	}`)))

	sc := GetStorageConfig()
	assert.Equal(t, "sqlite", sc.Type)
	assert.Equal(t, 10*time.Minute, sc.SQLite.DumpInterval)
	assert.Equal(t, "./recordings/vehiclesim.db", sc.SQLite.DumpPath)
	assert.Equal(t, "./recordings", sc.Memory.OutputDir)
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "vehiclesim", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"otel": {
			"enabled": true,
			"serviceName": "my-service",
			"batchTimeout": "30s",
			"endpoint": "localhost:4317",
			"insecure": false
		}
	}`)))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-service", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4317", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
}

func TestGetInfluxAndGraylogConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"influx": { "enabled": true, "host": "influx.local" },
		"graylog": { "enabled": true }
	}`)))

	ic := GetInfluxConfig()
	assert.True(t, ic.Enabled)
	assert.Equal(t, "http://influx.local:8086", ic.URL())
	assert.Equal(t, "transitions", ic.Bucket)

	gc := GetGraylogConfig()
	assert.True(t, gc.Enabled)
	assert.Equal(t, "localhost:12201", gc.Address)

	db := GetDBConfig()
	assert.Equal(t, "postgres", db.Username)
}

func TestGetSimulationConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"simulation": {
			"name": "morning-shift",
			"startTime": "2024-03-01T08:00:00Z",
			"tickStep": "30s",
			"ticks": 20,
			"vehicles": [
				{ "id": "bus-1", "position": "13.40,52.52", "speed": 40 }
			],
			"commands": [
				{ "tick": 1, "name": "move_to", "vehicle": "bus-1", "args": { "destination": "13.45,52.52", "trip_id": "t1" } },
				{ "tick": 5, "name": "stop", "vehicle": "bus-1" }
			]
		}
	}`)))

	sc, err := GetSimulationConfig()
	require.NoError(t, err)

	assert.Equal(t, "morning-shift", sc.Name)
	assert.Equal(t, "default", sc.Tag)
	assert.Equal(t, 30*time.Second, sc.TickStep)
	assert.Equal(t, uint64(20), sc.Ticks)

	start, err := sc.Start()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), start)

	require.Len(t, sc.Vehicles, 1)
	assert.Equal(t, VehicleConfig{ID: "bus-1", Position: "13.40,52.52", Speed: 40}, sc.Vehicles[0])

	require.Len(t, sc.Commands, 2)
	assert.Equal(t, uint64(1), sc.Commands[0].Tick)
	assert.Equal(t, "move_to", sc.Commands[0].Name)
	assert.Equal(t, "13.45,52.52", sc.Commands[0].Args["destination"])
	assert.Equal(t, "stop", sc.Commands[1].Name)
}

func TestSimulationConfig_InvalidStart(t *testing.T) {
	_, err := SimulationConfig{StartTime: "yesterday"}.Start()
	assert.Error(t, err)
}

func TestGetAPIConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{ "api": { "apiKey": "k", "upload": true } }`)))

	ac := GetAPIConfig()
	assert.Equal(t, "http://localhost:5000", ac.ServerURL)
	assert.Equal(t, "k", ac.APIKey)
	assert.True(t, ac.Upload)
}
