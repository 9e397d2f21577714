// Package config provides configuration management for luatutor using Viper
// for loading from files, environment variables and command-line flags.
//
// Every key has a default registered with viper.SetDefault so that
// LUATUTOR_* environment variables are honoured by Unmarshal even when no
// config file exists.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/conneroisu/luatutor/internal/errors"
)

// EnvPrefix is the prefix for environment overrides, e.g. LUATUTOR_SERVER_PORT.
const EnvPrefix = "LUATUTOR"

type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Catalog CatalogConfig `mapstructure:"catalog" yaml:"catalog"`
	Search  SearchConfig  `mapstructure:"search" yaml:"search"`
	Sandbox SandboxConfig `mapstructure:"sandbox" yaml:"sandbox"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host" yaml:"host"`
	Port           int      `mapstructure:"port" yaml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// Addr returns host:port for net.Listen.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type CatalogConfig struct {
	// Path to a YAML catalog. Empty means the embedded lessons.
	Path string `mapstructure:"path" yaml:"path"`
}

type SearchConfig struct {
	Debounce      time.Duration `mapstructure:"debounce" yaml:"debounce"`
	PreviewRadius int           `mapstructure:"preview_radius" yaml:"preview_radius"`
}

type SandboxConfig struct {
	RunDelay    time.Duration `mapstructure:"run_delay" yaml:"run_delay"`
	MaxSessions int           `mapstructure:"max_sessions" yaml:"max_sessions"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"localhost:*", "127.0.0.1:*"})
	v.SetDefault("catalog.path", "")
	v.SetDefault("search.debounce", 300*time.Millisecond)
	v.SetDefault("search.preview_radius", 30)
	v.SetDefault("sandbox.run_delay", 800*time.Millisecond)
	v.SetDefault("sandbox.max_sessions", 1024)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// BindEnv enables LUATUTOR_* overrides on v.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom unmarshals and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, apperrors.NewConfigError("cannot decode configuration", err)
	}

	// Env values arrive as one comma separated string.
	config.Server.AllowedOrigins = splitList(config.Server.AllowedOrigins)
	config.Log.Level = strings.ToLower(strings.TrimSpace(config.Log.Level))
	config.Log.Format = strings.ToLower(strings.TrimSpace(config.Log.Format))

	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default returns the configuration with every key at its default value.
func Default() *Config {
	cfg, err := LoadFrom(viper.New())
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

// validateConfig checks every section and reports all problems at once.
func validateConfig(config *Config) error {
	var errs apperrors.ValidationErrorCollection

	if config.Server.Port < 0 || config.Server.Port > 65535 {
		errs.AddField("server.port", "port %d is not in valid range 0-65535", config.Server.Port)
	}
	if config.Server.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\", " "}
		for _, char := range dangerousChars {
			if strings.Contains(config.Server.Host, char) {
				errs.AddField("server.host", "host contains dangerous character %q", char)
				break
			}
		}
	}
	for _, origin := range config.Server.AllowedOrigins {
		if strings.ContainsAny(origin, " /") {
			errs.AddField("server.allowed_origins", "origin pattern %q must be a host pattern", origin)
		}
	}
	if config.Search.Debounce < 0 {
		errs.AddField("search.debounce", "must not be negative")
	}
	if config.Search.PreviewRadius < 0 {
		errs.AddField("search.preview_radius", "must not be negative")
	}
	if config.Sandbox.RunDelay < 0 {
		errs.AddField("sandbox.run_delay", "must not be negative")
	}
	if config.Sandbox.MaxSessions <= 0 {
		errs.AddField("sandbox.max_sessions", "must be positive")
	}
	switch config.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs.AddField("log.level", "unknown level %q", config.Log.Level)
	}
	switch config.Log.Format {
	case "text", "json":
	default:
		errs.AddField("log.format", "unknown format %q", config.Log.Format)
	}

	if err := errs.ErrOrNil(); err != nil {
		return apperrors.NewConfigError("invalid configuration", err)
	}
	return nil
}

func splitList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
