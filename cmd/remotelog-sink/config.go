package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	remotelog "github.com/tarmac-project/remotelog"
	"github.com/tarmac-project/remotelog/server"
)

// EnvPrefix prefixes every environment variable the sink reads, e.g. REMOTELOG_LISTEN.
const EnvPrefix = "REMOTELOG"

// Config is the sink configuration, merged from defaults, a config file, the
// environment and flags, in increasing precedence.
type Config struct {
	Listen          string          `mapstructure:"listen"`
	Path            string          `mapstructure:"path"`
	Level           remotelog.Level `mapstructure:"level"`
	LoggerName      string          `mapstructure:"logger_name"`
	MaxBodyBytes    int64           `mapstructure:"max_body_bytes"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	Development     bool            `mapstructure:"development"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen", ":8080")
	v.SetDefault("path", "/v1/logs")
	v.SetDefault("level", "info")
	v.SetDefault("logger_name", "")
	v.SetDefault("max_body_bytes", server.DefaultMaxBodyBytes)
	v.SetDefault("read_timeout", "10s")
	v.SetDefault("shutdown_timeout", "5s")
	v.SetDefault("development", false)
	return v
}

func loadConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)))
	if err != nil {
		return Config{}, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if !strings.HasPrefix(cfg.Path, "/") {
		return Config{}, fmt.Errorf("ingest path %q must start with /", cfg.Path)
	}
	if cfg.ReadTimeout < 0 || cfg.ShutdownTimeout < 0 {
		return Config{}, fmt.Errorf("timeouts must not be negative")
	}
	return cfg, nil
}
