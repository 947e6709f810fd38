// rexscan/pkg/config/config.go

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"rgehrsitz/rexscan/pkg/logging"
)

// Config is the resolved configuration for rexscan commands.
type Config struct {
	LogLevel       string
	LogDestination string

	StoreDriver   string
	SQLitePath    string
	RedisAddress  string
	RedisPassword string
	RedisDB       int

	RulesFile     string
	Workers       int
	ServerAddress string
	ReportFormat  string

	// IngestQueries overrides the jq query used to pull each category out of
	// an inventory document, keyed by lower-case category.
	IngestQueries map[string]string
}

// New returns a viper instance carrying the rexscan defaults and the
// REXSCAN_ environment overrides.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.output", "console")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite.path", "rexscan.db")
	v.SetDefault("store.redis.address", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.database", 0)
	v.SetDefault("rules.file", "")
	v.SetDefault("engine.workers", 0)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("report.format", "text")
	v.SetDefault("ingest.queries", map[string]string{})

	v.SetEnvPrefix("REXSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from path, or from the search path when path is
// empty, on top of the defaults.
func Load(path string) (*Config, error) {
	return Read(New(), path)
}

// Read resolves a Config from v. A missing config file is only an error when
// path names it explicitly.
func Read(v *viper.Viper, path string) (*Config, error) {
	if path == "" {
		v.SetConfigName("rexscan")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.rexscan")
		v.AddConfigPath("/etc/rexscan")
	} else {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, logging.NewError(logging.ErrorTypeConfig, "error reading config file", err,
				map[string]interface{}{"path": path})
		}
		logging.Logger.Debug().Msg("No configuration file found, using defaults")
	} else {
		logging.Logger.Debug().Str("file", v.ConfigFileUsed()).Msg("Loaded configuration file")
	}

	cfg := &Config{
		LogLevel:       v.GetString("logging.level"),
		LogDestination: v.GetString("logging.output"),
		StoreDriver:    strings.ToLower(v.GetString("store.driver")),
		SQLitePath:     v.GetString("store.sqlite.path"),
		RedisAddress:   v.GetString("store.redis.address"),
		RedisPassword:  v.GetString("store.redis.password"),
		RedisDB:        v.GetInt("store.redis.database"),
		RulesFile:      v.GetString("rules.file"),
		Workers:        v.GetInt("engine.workers"),
		ServerAddress:  v.GetString("server.address"),
		ReportFormat:   strings.ToLower(v.GetString("report.format")),
		IngestQueries:  v.GetStringMapString("ingest.queries"),
	}
	if err := cfg.validate(); err != nil {
		return nil, logging.NewError(logging.ErrorTypeConfig, "invalid configuration", err, nil)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("store.driver must be sqlite or redis, got %q", c.StoreDriver)
	}
	switch c.ReportFormat {
	case "json", "text", "csv":
	default:
		return fmt.Errorf("report.format must be json, text or csv, got %q", c.ReportFormat)
	}
	if c.Workers < 0 {
		return fmt.Errorf("engine.workers must not be negative, got %d", c.Workers)
	}
	return nil
}
