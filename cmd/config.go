// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Thermoquad/aquastat/pkg/heater"
	"github.com/Thermoquad/aquastat/pkg/statesink"
	"github.com/flynn/json5"
	"gopkg.in/yaml.v3"
)

// Config holds everything the commands need. Values come from defaults, then
// the config file, then AQUASTAT_* environment variables, then flags.
type Config struct {
	Connection ConnectionConfig `yaml:"connection" json:"connection"`
	Heater     HeaterConfig     `yaml:"heater" json:"heater"`
	Socket     string           `yaml:"socket" json:"socket"`
	Redis      RedisConfig      `yaml:"redis" json:"redis"`
	Log        LogConfig        `yaml:"log" json:"log"`
}

type ConnectionConfig struct {
	Port        string `yaml:"port" json:"port"` // e.g. /dev/ttyUSB0
	Baud        int    `yaml:"baud" json:"baud"`
	URL         string `yaml:"url" json:"url"` // ws:// or wss:// byte bridge
	Username    string `yaml:"username" json:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify" json:"noSSLVerify"`
}

type HeaterConfig struct {
	Address          int `yaml:"address" json:"address"`
	PoolSetpoint     int `yaml:"pool_setpoint" json:"poolSetpoint"` // °C
	SpaSetpoint      int `yaml:"spa_setpoint" json:"spaSetpoint"`   // °C
	KeepaliveSeconds int `yaml:"keepalive_seconds" json:"keepaliveSeconds"`
	DecodeIntervalMs int `yaml:"decode_interval_ms" json:"decodeIntervalMs"`
	ProbeGapMs       int `yaml:"probe_gap_ms" json:"probeGapMs"`
	LinkTimeoutMs    int `yaml:"link_timeout_ms" json:"linkTimeoutMs"`
}

type RedisConfig struct {
	Addr   string `yaml:"addr" json:"addr"` // empty disables publishing
	Prefix string `yaml:"prefix" json:"prefix"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // "text" or "json"
}

// DefaultConfig returns a config with the stock bus and heater settings
func DefaultConfig() *Config {
	hc := heater.DefaultConfig()
	return &Config{
		Connection: ConnectionConfig{
			Baud: 9600,
		},
		Heater: HeaterConfig{
			Address:          int(hc.Address),
			PoolSetpoint:     hc.PoolSetpoint,
			SpaSetpoint:      hc.SpaSetpoint,
			KeepaliveSeconds: int(hc.KeepaliveWindow / time.Second),
			DecodeIntervalMs: int(hc.DecodeInterval / time.Millisecond),
			ProbeGapMs:       int(hc.ProbeGap / time.Millisecond),
			LinkTimeoutMs:    int(hc.LinkTimeout / time.Millisecond),
		},
		Socket: heater.DefaultSocketPath,
		Redis: RedisConfig{
			Prefix: statesink.DefaultPrefix,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads path on top of the defaults and applies environment
// overrides. Files ending in .json or .json5 are parsed as JSON5, anything
// else as YAML. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".json", ".json5":
			err = json5.Unmarshal(data, cfg)
		default:
			err = yaml.Unmarshal(data, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// applyEnvOverrides reads AQUASTAT_PORT, AQUASTAT_BAUD, AQUASTAT_URL,
// AQUASTAT_SOCKET, AQUASTAT_REDIS and AQUASTAT_LOG_LEVEL
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("AQUASTAT_PORT"); v != "" {
		c.Connection.Port = v
	}
	if v := os.Getenv("AQUASTAT_BAUD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid AQUASTAT_BAUD %q: %w", v, err)
		}
		c.Connection.Baud = n
	}
	if v := os.Getenv("AQUASTAT_URL"); v != "" {
		c.Connection.URL = v
	}
	if v := os.Getenv("AQUASTAT_SOCKET"); v != "" {
		c.Socket = v
	}
	if v := os.Getenv("AQUASTAT_REDIS"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("AQUASTAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate checks values the file or environment may have broken
func (c *Config) Validate() error {
	if c.Connection.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.Connection.Baud)
	}
	if c.Heater.Address < 0 || c.Heater.Address > 0xff {
		return fmt.Errorf("invalid heater address %d", c.Heater.Address)
	}
	if c.Heater.KeepaliveSeconds <= 0 || c.Heater.DecodeIntervalMs <= 0 ||
		c.Heater.ProbeGapMs <= 0 || c.Heater.LinkTimeoutMs <= 0 {
		return fmt.Errorf("heater intervals must be positive")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// HeaterConfig converts the heater section for the controller
func (c *Config) HeaterConfig(monitorOnly bool) heater.Config {
	hc := heater.DefaultConfig()
	hc.Address = byte(c.Heater.Address)
	hc.PoolSetpoint = c.Heater.PoolSetpoint
	hc.SpaSetpoint = c.Heater.SpaSetpoint
	hc.KeepaliveWindow = time.Duration(c.Heater.KeepaliveSeconds) * time.Second
	hc.DecodeInterval = time.Duration(c.Heater.DecodeIntervalMs) * time.Millisecond
	hc.ProbeGap = time.Duration(c.Heater.ProbeGapMs) * time.Millisecond
	hc.LinkTimeout = time.Duration(c.Heater.LinkTimeoutMs) * time.Millisecond
	hc.MonitorOnly = monitorOnly
	return hc
}
