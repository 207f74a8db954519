// Package config provides configuration management for the tubeql CLI.
//
// Values are layered from defaults, a YAML config file, TUBEQL_* environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"time"

	"github.com/leapstack-labs/tubeql/internal/store"
)

// Config holds all CLI configuration options.
type Config struct {
	DBName         string            `koanf:"db_name" validate:"required"`
	Driver         string            `koanf:"driver" validate:"required"`
	Host           string            `koanf:"host"`
	Port           int               `koanf:"port" validate:"gte=0,lte=65535"`
	User           string            `koanf:"user"`
	Password       string            `koanf:"password"`
	Options        map[string]string `koanf:"options"`
	SchemaPath     string            `koanf:"schema_path"`
	DataPath       string            `koanf:"data_path" validate:"required"`
	LoggingLevel   string            `koanf:"logging_level"`
	LoginAttempts  int               `koanf:"login_attempts" validate:"gte=0"`
	ConnectTimeout time.Duration     `koanf:"connect_timeout" validate:"gte=0"`
	HistoryFile    string            `koanf:"history_file"`
	Output         string            `koanf:"output" validate:"oneof=auto text markdown json"`
	Verbose        bool              `koanf:"verbose"`

	// ConfigFile is the config file that was loaded, empty when none was found.
	ConfigFile string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultDBName         = "london_tube"
	DefaultDriver         = "sqlite"
	DefaultHost           = "localhost"
	DefaultPort           = 5432
	DefaultDataPath       = "data.json"
	DefaultLoggingLevel   = "info"
	DefaultLoginAttempts  = 3
	DefaultConnectTimeout = 10 * time.Second
	DefaultHistoryFile    = ".tubeql_history"
	DefaultOutput         = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// EnvPrefix prefixes every environment variable read as configuration.
const EnvPrefix = "TUBEQL_"

// ConfigFileNames are searched in the working directory, in order, when no
// --config flag is given.
var ConfigFileNames = []string{"tubeql.yaml", "tubeql.yml", "config.yaml"}

// StoreConfig converts the CLI configuration into connection settings.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Driver:         c.Driver,
		Host:           c.Host,
		Port:           c.Port,
		Database:       c.DBName,
		Username:       c.User,
		Password:       c.Password,
		Options:        c.Options,
		ConnectTimeout: c.ConnectTimeout,
	}
}
