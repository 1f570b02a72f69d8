package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "vehiclesim.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds in-memory SQLite backend settings
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// WebSocketConfig holds streaming backend settings
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the transition storage backend.
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// DBConfig holds Postgres connection settings
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// InfluxConfig holds InfluxDB settings
type InfluxConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	Host      string `json:"host" mapstructure:"host"`
	Port      string `json:"port" mapstructure:"port"`
	Protocol  string `json:"protocol" mapstructure:"protocol"`
	Token     string `json:"token" mapstructure:"token"`
	Org       string `json:"org" mapstructure:"org"`
	Bucket    string `json:"bucket" mapstructure:"bucket"`
	BackupDir string `json:"backupDir" mapstructure:"backupDir"`
}

// URL returns the server address.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// GraylogConfig holds GELF log sink settings
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// APIConfig points at the web frontend that receives exported runs.
type APIConfig struct {
	ServerURL string `json:"serverUrl" mapstructure:"serverUrl"`
	APIKey    string `json:"apiKey" mapstructure:"apiKey"`
	Upload    bool   `json:"upload" mapstructure:"upload"`
}

// VehicleConfig describes one simulated vehicle.
// Position is a "lon,lat" string, Speed is in km/h.
type VehicleConfig struct {
	ID       string  `json:"id" mapstructure:"id"`
	Position string  `json:"position" mapstructure:"position"`
	Speed    float64 `json:"speed" mapstructure:"speed"`
}

// CommandConfig is a command scheduled at a given tick.
type CommandConfig struct {
	Tick    uint64            `json:"tick" mapstructure:"tick"`
	Name    string            `json:"name" mapstructure:"name"`
	Vehicle string            `json:"vehicle" mapstructure:"vehicle"`
	Args    map[string]string `json:"args" mapstructure:"args"`
}

// SimulationConfig holds the run definition.
type SimulationConfig struct {
	Name      string          `json:"name" mapstructure:"name"`
	Tag       string          `json:"tag" mapstructure:"tag"`
	StartTime string          `json:"startTime" mapstructure:"startTime"`
	TickStep  time.Duration   `json:"tickStep" mapstructure:"tickStep"`
	Ticks     uint64          `json:"ticks" mapstructure:"ticks"`
	Vehicles  []VehicleConfig `json:"vehicles" mapstructure:"vehicles"`
	Commands  []CommandConfig `json:"commands" mapstructure:"commands"`
}

// Start parses StartTime (RFC3339).
func (c SimulationConfig) Start() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, c.StartTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid simulation start time %q: %w", c.StartTime, err)
	}
	return t.UTC(), nil
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./vehiclesimlogs")

	viper.SetDefault("simulation.name", "simulation")
	viper.SetDefault("simulation.tag", "default")
	viper.SetDefault("simulation.startTime", "2024-01-01T08:00:00Z")
	viper.SetDefault("simulation.tickStep", "10s")
	viper.SetDefault("simulation.ticks", 360)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "vehiclesim")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "./recordings/vehiclesim.db")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "vehiclesim")
	viper.SetDefault("influx.bucket", "transitions")
	viper.SetDefault("influx.backupDir", "./vehiclesimlogs")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.upload", false)

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "vehiclesim")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// settings mirrors the whole file. Sections are decoded from AllSettings so
// that defaults of keys missing from a partially filled section still apply.
type settings struct {
	Storage    StorageConfig    `mapstructure:"storage"`
	DB         DBConfig         `mapstructure:"db"`
	OTel       OTelConfig       `mapstructure:"otel"`
	Influx     InfluxConfig     `mapstructure:"influx"`
	Graylog    GraylogConfig    `mapstructure:"graylog"`
	API        APIConfig        `mapstructure:"api"`
	Simulation SimulationConfig `mapstructure:"simulation"`
}

func load() (settings, error) {
	var s settings
	err := viper.Unmarshal(&s)
	return s, err
}

// GetStorageConfig returns the storage section.
func GetStorageConfig() StorageConfig {
	s, _ := load()
	return s.Storage
}

// GetDBConfig returns the Postgres connection section.
func GetDBConfig() DBConfig {
	s, _ := load()
	return s.DB
}

// GetOTelConfig returns the OpenTelemetry section.
func GetOTelConfig() OTelConfig {
	s, _ := load()
	return s.OTel
}

// GetInfluxConfig returns the InfluxDB section.
func GetInfluxConfig() InfluxConfig {
	s, _ := load()
	return s.Influx
}

// GetGraylogConfig returns the Graylog section.
func GetGraylogConfig() GraylogConfig {
	s, _ := load()
	return s.Graylog
}

// GetAPIConfig returns the upload target section.
func GetAPIConfig() APIConfig {
	s, _ := load()
	return s.API
}

// GetSimulationConfig returns the run definition.
func GetSimulationConfig() (SimulationConfig, error) {
	s, err := load()
	if err != nil {
		return SimulationConfig{}, fmt.Errorf("error reading simulation config: %w", err)
	}
	return s.Simulation, nil
}
