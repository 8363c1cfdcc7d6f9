// Package config loads arena settings from an optional config file,
// ARENA_* environment variables and command-line flags through viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config represents the complete arena configuration
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Match   MatchConfig   `mapstructure:"match"`
	Storage StorageConfig `mapstructure:"storage"`
	Server  ServerConfig  `mapstructure:"server"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	JSON  bool   `mapstructure:"json"`
	// File receives the log instead of stderr when set
	File string `mapstructure:"file"`
}

// EngineConfig controls how engine processes are started and negotiated
type EngineConfig struct {
	// Drain bounds the handshake when an engine never sends uciok
	Drain time.Duration `mapstructure:"drain" validate:"gt=0"`
	// ReadyTimeout bounds every isready/readyok exchange
	ReadyTimeout time.Duration `mapstructure:"ready_timeout" validate:"gt=0"`
}

// MatchConfig holds defaults for faceoffs
type MatchConfig struct {
	MoveTime   time.Duration `mapstructure:"move_time" validate:"gt=0"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gt=0"`
	HardFactor float64       `mapstructure:"hard_factor" validate:"gte=1"`
	MaxPlies   int           `mapstructure:"max_plies" validate:"gte=0"`
}

type StorageConfig struct {
	// Path of the sqlite database; empty disables persistence
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Host    string `mapstructure:"host" validate:"required"`
	Port    int    `mapstructure:"port" validate:"min=1,max=65535"`
	Workers int    `mapstructure:"workers" validate:"min=1,max=64"`
	// Profiles is the only directory the API loads engine profiles from
	Profiles string `mapstructure:"profiles" validate:"required"`
	// Dev loosens the rate limiter
	Dev bool `mapstructure:"dev"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Engine: EngineConfig{
			Drain:        100 * time.Millisecond,
			ReadyTimeout: 5 * time.Second,
		},
		Match: MatchConfig{
			MoveTime:   time.Second,
			Timeout:    2 * time.Second,
			HardFactor: 2,
			MaxPlies:   400,
		},
		Server: ServerConfig{
			Host:     "localhost",
			Port:     8080,
			Workers:  2,
			Profiles: ".",
		},
	}
}

// SetDefaults registers every default with v
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("log.file", d.Log.File)

	v.SetDefault("engine.drain", d.Engine.Drain)
	v.SetDefault("engine.ready_timeout", d.Engine.ReadyTimeout)

	v.SetDefault("match.move_time", d.Match.MoveTime)
	v.SetDefault("match.timeout", d.Match.Timeout)
	v.SetDefault("match.hard_factor", d.Match.HardFactor)
	v.SetDefault("match.max_plies", d.Match.MaxPlies)

	v.SetDefault("storage.path", d.Storage.Path)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.workers", d.Server.Workers)
	v.SetDefault("server.profiles", d.Server.Profiles)
	v.SetDefault("server.dev", d.Server.Dev)
}

// envKeys maps nested keys to variables, e.g. ARENA_MATCH_TIMEOUT for
// match.timeout
var envKeys = strings.NewReplacer(".", "_")

// Init prepares v with defaults, the environment and a config file. An
// explicit file must exist; otherwise arena.yaml is looked up in the working
// directory and ConfigDir, and its absence is fine.
func Init(v *viper.Viper, file string) error {
	SetDefaults(v)

	v.SetEnvPrefix("ARENA")
	v.SetEnvKeyReplacer(envKeys)
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", file, err)
		}
		return nil
	}

	v.SetConfigName("arena")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(ConfigDir())
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// Load reads the configuration from v into a Config and validates it
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "arena")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".arena"
	}
	return filepath.Join(home, ".config", "arena")
}
