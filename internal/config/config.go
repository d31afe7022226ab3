package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/loykin/botherd/internal/ipc"
	"github.com/loykin/botherd/internal/logbuf"
	"github.com/loykin/botherd/internal/logger"
	"github.com/loykin/botherd/internal/sessionlog"
	"github.com/loykin/botherd/internal/supervisor"
)

// Config is the top-level TOML structure.
//
// Example:
//
//	[bot]
//	interpreter = "python"
//	script = "MarkovChainBot.py"
//	workdir = "/home/user/.local/share/botherd/TwitchMarkovChain"
//
//	[session]
//	dir = "/home/user/.local/share/botherd/logs"
//	max_files = 10
//	ring_capacity = 200
//
//	[ipc]
//	addr = "127.0.0.1:9876"
//
//	[http]
//	listen = "127.0.0.1:9880"
//
//	[store]
//	dsn = "sqlite:///home/user/.local/share/botherd/runs.db"
type Config struct {
	Bot     supervisor.Spec `mapstructure:"bot"`
	Logger  logger.Config   `mapstructure:"logger"`
	Session SessionConfig   `mapstructure:"session"`
	IPC     IPCConfig       `mapstructure:"ipc"`
	HTTP    HTTPConfig      `mapstructure:"http"`
	Store   StoreConfig     `mapstructure:"store"`
}

// SessionConfig covers the session capture log and the in-memory ring.
type SessionConfig struct {
	Dir          string `mapstructure:"dir"`
	MaxFiles     int    `mapstructure:"max_files"`
	RingCapacity int    `mapstructure:"ring_capacity"`
}

type IPCConfig struct {
	Addr string `mapstructure:"addr"`
}

// HTTPConfig configures the optional control/status API. An empty Listen
// disables the server.
type HTTPConfig struct {
	Listen   string `mapstructure:"listen"`
	BasePath string `mapstructure:"base_path"`
}

// StoreConfig selects the run-history store by DSN. Empty disables history.
type StoreConfig struct {
	DSN string `mapstructure:"dsn"`
}

// DefaultSessionDir places session logs under the user config directory,
// falling back to a relative directory when none is resolvable.
func DefaultSessionDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "logs"
	}
	return filepath.Join(base, "botherd", "logs")
}

// Load reads the TOML file at path. An empty path yields pure defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	c.Bot.Normalize()
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("session.dir", DefaultSessionDir())
	v.SetDefault("session.max_files", sessionlog.DefaultMaxFiles)
	v.SetDefault("session.ring_capacity", logbuf.DefaultCapacity)
	v.SetDefault("ipc.addr", ipc.DefaultAddr)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", logger.FormatText)
}
