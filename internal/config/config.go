package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "sceneeditor.cfg.json"

// ArchiveConfig holds zip archive storage settings
type ArchiveConfig struct {
	OutputDir string `json:"outputDir" mapstructure:"outputDir"`
}

// SQLiteConfig holds SQLite storage settings. An empty Path keeps the
// database in memory.
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// StorageConfig selects and configures the scene store
type StorageConfig struct {
	Type    string        `json:"type" mapstructure:"type"`
	Archive ArchiveConfig `json:"archive" mapstructure:"archive"`
	SQLite  SQLiteConfig  `json:"sqlite" mapstructure:"sqlite"`
}

// BasemapConfig holds the Overpass endpoint settings
type BasemapConfig struct {
	Enabled     bool          `json:"enabled" mapstructure:"enabled"`
	OverpassURL string        `json:"overpassUrl" mapstructure:"overpassUrl"`
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
}

// OTelConfig holds metrics export settings
type OTelConfig struct {
	Enabled     bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName string        `json:"serviceName" mapstructure:"serviceName"`
	Interval    time.Duration `json:"interval" mapstructure:"interval"`
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

// LoadDefaults sets the default values without reading a file.
func LoadDefaults() {
	setDefaults()
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./sceneeditor-logs")

	viper.SetDefault("storage.type", "archive")
	viper.SetDefault("storage.archive.outputDir", "./scenes")
	viper.SetDefault("storage.sqlite.path", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "sceneeditor")

	viper.SetDefault("basemap.enabled", true)
	viper.SetDefault("basemap.overpassUrl", "https://overpass-api.de")
	viper.SetDefault("basemap.timeout", "30s")

	viper.SetDefault("playback.speed", 1)

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "sceneeditor")
	viper.SetDefault("otel.interval", "1m")
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

// GetStorageConfig returns the storage section.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Archive: ArchiveConfig{
			OutputDir: viper.GetString("storage.archive.outputDir"),
		},
		SQLite: SQLiteConfig{
			Path: viper.GetString("storage.sqlite.path"),
		},
	}
}

// GetBasemapConfig returns the basemap section.
func GetBasemapConfig() BasemapConfig {
	return BasemapConfig{
		Enabled:     viper.GetBool("basemap.enabled"),
		OverpassURL: viper.GetString("basemap.overpassUrl"),
		Timeout:     viper.GetDuration("basemap.timeout"),
	}
}

// PlaybackSpeed returns the default playback multiplier, at least 1.
func PlaybackSpeed() int {
	if s := viper.GetInt("playback.speed"); s > 0 {
		return s
	}
	return 1
}

// GetOTelConfig returns the otel section.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:     viper.GetBool("otel.enabled"),
		ServiceName: viper.GetString("otel.serviceName"),
		Interval:    viper.GetDuration("otel.interval"),
	}
}
