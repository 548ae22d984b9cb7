package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/abhisek/dojang/internal/spacedrep"
)

const envPrefix = "DOJANG"

// Config is the resolved configuration.
type Config struct {
	DB      DBConfig
	Log     LogConfig
	Leitner LeitnerConfig
	Catalog CatalogConfig
}

// DBConfig locates the SQLite database.
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig selects the log encoding ("dev" or "prod") and an optional
// rotating log file.
type LogConfig struct {
	Mode string `mapstructure:"mode"`
	File string `mapstructure:"file"`
}

// LeitnerConfig holds the five box intervals as duration strings and the
// default batch size for due.
type LeitnerConfig struct {
	Intervals []string `mapstructure:"intervals"`
	BatchSize int      `mapstructure:"batch_size"`
}

// CatalogConfig points at a curriculum file. Empty uses the built-in one.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// Load reads configuration from, in increasing priority: defaults, the
// config file, a .env file in the working directory, and DOJANG_* env vars.
// An empty file means search for dojang.yaml in the working directory and
// $XDG_CONFIG_HOME/dojang; a missing file there is not an error.
func Load(file string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetDefault("log.mode", "prod")
	v.SetDefault("leitner.batch_size", 20)
	v.SetDefault("leitner.intervals", defaultIntervals())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// DOJANG_DB predates the nested key layout.
	v.BindEnv("db.path", envPrefix+"_DB_PATH", envPrefix+"_DB")

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("dojang")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(dir + "/dojang")
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if _, err := cfg.Intervals(); err != nil {
		return nil, err
	}
	if cfg.Leitner.BatchSize <= 0 {
		return nil, fmt.Errorf("leitner.batch_size must be positive, got %d", cfg.Leitner.BatchSize)
	}
	switch cfg.Log.Mode {
	case "dev", "prod":
	default:
		return nil, fmt.Errorf("log.mode must be dev or prod, got %q", cfg.Log.Mode)
	}

	return &cfg, nil
}

// Intervals parses the configured Leitner intervals.
func (c *Config) Intervals() (spacedrep.Intervals, error) {
	iv, err := spacedrep.ParseIntervals(c.Leitner.Intervals)
	if err != nil {
		return iv, fmt.Errorf("leitner.intervals: %w", err)
	}
	return iv, nil
}

func defaultIntervals() []string {
	out := make([]string, 0, spacedrep.NumBoxes)
	for _, d := range spacedrep.DefaultIntervals {
		out = append(out, d.String())
	}
	return out
}
