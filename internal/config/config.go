// SPDX-License-Identifier: EPL-2.0

// Package config holds the YAML configuration of the audmix command.
package config

import (
	"github.com/ik5/audmix/device"
	"github.com/ik5/audmix/engine"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Backend selects the output device.
type Backend string

const (
	// BackendOto plays through the system audio device.
	BackendOto Backend = "oto"

	// BackendNull renders on a wall-clock timer and discards the output.
	BackendNull Backend = "null"
)

func (b Backend) IsValid() bool {
	return b == BackendOto || b == BackendNull
}

// Config is the root configuration. Fields missing from the file keep the
// values of [Default].
type Config struct {
	LogLevel LogLevel      `yaml:"log_level"`
	Engine   engine.Config `yaml:"engine"`
	Device   DeviceConfig  `yaml:"device"`
	Record   RecordConfig  `yaml:"record"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

type DeviceConfig struct {
	Backend       Backend `yaml:"backend"`
	device.Config `yaml:",inline"`
}

// RecordConfig enables a WAV capture of the final mix when Path is set.
type RecordConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	// Addr is the TCP address serving /metrics (e.g., ":9464").
	Addr string `yaml:"addr"`
}

// Default returns a configuration that plays through the system device at
// 48 kHz stereo with metrics and recording disabled.
func Default() *Config {
	return &Config{
		LogLevel: LogInfo,
		Engine:   engine.DefaultConfig(),
		Device: DeviceConfig{
			Backend: BackendOto,
			Config:  device.DefaultConfig(),
		},
	}
}
