package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// pathFlags are flags whose values are paths relative to the working
// directory rather than to the config file.
var pathFlags = map[string]string{
	"schema-path":  "schema_path",
	"data-path":    "data_path",
	"history-file": "history_file",
}

// flagKeys maps flag names that differ from their config key.
var flagKeys = map[string]string{
	"log-level": "logging_level",
}

// findConfigFile finds the config file to use.
// Priority: explicit path > tubeql.yaml > tubeql.yml > config.yaml
func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	for _, name := range ConfigFileNames {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}
	return "", nil
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func defaults() map[string]any {
	return map[string]any{
		"db_name":         DefaultDBName,
		"driver":          DefaultDriver,
		"host":            DefaultHost,
		"port":            DefaultPort,
		"data_path":       DefaultDataPath,
		"logging_level":   DefaultLoggingLevel,
		"login_attempts":  DefaultLoginAttempts,
		"connect_timeout": DefaultConnectTimeout.String(),
		"history_file":    DefaultHistoryFile,
		"output":          DefaultOutput,
		"verbose":         false,
	}
}

// LoadConfig loads configuration from defaults, the config file,
// environment variables and flags, then validates it.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFile, err := findConfigFile(cfgFile)
	if err != nil {
		return nil, err
	}
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}

	// 3. Environment variables (TUBEQL_ prefix)
	// Transform: TUBEQL_DB_NAME -> db_name
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	flagPaths := map[string]string{}
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			if key, ok := pathFlags[f.Name]; ok {
				abs, err := filepath.Abs(f.Value.String())
				if err != nil {
					abs = f.Value.String()
				}
				flagPaths[key] = abs
				return key, abs
			}
			if key, ok := flagKeys[f.Name]; ok {
				return key, posflag.FlagVal(flags, f)
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Decode
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Relative paths from the config file resolve against its directory
	cfg.ConfigFile = configFile
	baseDir := "."
	if configFile != "" {
		if abs, err := filepath.Abs(configFile); err == nil {
			baseDir = filepath.Dir(abs)
		} else {
			baseDir = filepath.Dir(configFile)
		}
	}
	resolve := func(key string, path *string) {
		if _, fromFlag := flagPaths[key]; fromFlag {
			return
		}
		*path = resolvePathRelativeTo(*path, baseDir)
	}
	resolve("schema_path", &cfg.SchemaPath)
	resolve("data_path", &cfg.DataPath)
	resolve("history_file", &cfg.HistoryFile)

	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	expandCredentials(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandCredentials expands environment variables in connection fields.
func expandCredentials(c *Config) {
	c.User = expandEnvVars(c.User)
	c.Password = expandEnvVars(c.Password)
	c.Host = expandEnvVars(c.Host)
	c.DBName = expandEnvVars(c.DBName)
	for k, v := range c.Options {
		c.Options[k] = expandEnvVars(v)
	}
}

// configKey is used to store config in context.
type configKey struct{}

// WithConfig returns a context carrying cfg.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from ctx, or a default config when none
// was stored.
func FromContext(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return &Config{
		DBName:         DefaultDBName,
		Driver:         DefaultDriver,
		Host:           DefaultHost,
		Port:           DefaultPort,
		DataPath:       DefaultDataPath,
		LoggingLevel:   DefaultLoggingLevel,
		LoginAttempts:  DefaultLoginAttempts,
		ConnectTimeout: DefaultConnectTimeout,
		HistoryFile:    DefaultHistoryFile,
		Output:         DefaultOutput,
	}
}
