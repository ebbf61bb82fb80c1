// Package config provides configuration management for the engine: the
// ambient application/logging block every component reads at startup, and
// the Tuning block that governs actor mailbox sizing and timing.
package config

import (
	"time"

	"github.com/sneuron/sneuron/core"
)

// Environment represents the deployment environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

func (e Environment) String() string { return string(e) }

func (e Environment) IsValid() bool {
	switch e {
	case EnvDevelopment, EnvTesting, EnvStaging, EnvProduction:
		return true
	default:
		return false
	}
}

// LogLevel represents the logging verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

func (l LogLevel) String() string { return string(l) }

func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}

// Config is the complete engine configuration.
type Config struct {
	App    AppConfig `yaml:"app" json:"app"`
	Log    LogConfig `yaml:"log" json:"log"`
	Tuning Tuning    `yaml:"tuning" json:"tuning"`
}

// AppConfig contains application-level identification.
type AppConfig struct {
	Name        string      `yaml:"name" json:"name"`
	Version     string      `yaml:"version" json:"version"`
	Environment Environment `yaml:"environment" json:"environment"`
	Debug       bool        `yaml:"debug" json:"debug"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level  LogLevel `yaml:"level" json:"level"`
	Format string   `yaml:"format" json:"format"`
	Output string   `yaml:"output" json:"output"`
}

// Tuning governs the timing and sizing of every node actor the engine
// starts: how often a mailbox is polled for liveness, how long a
// synchronous call waits before declaring a node unavailable, how long the
// coordinator waits for quiescence on a synchronisation tick by default,
// which activation function a neuron gets when its record names none, and
// the default mailbox channel capacity.
type Tuning struct {
	MailboxPollInterval         time.Duration `yaml:"mailbox_poll_interval" json:"mailbox_poll_interval"`
	StatusProbeTimeout          time.Duration `yaml:"status_probe_timeout" json:"status_probe_timeout"`
	DefaultThinkTime            time.Duration `yaml:"default_think_time" json:"default_think_time"`
	DefaultActivationFunctionID string        `yaml:"default_activation_function_id" json:"default_activation_function_id"`
	DefaultMailboxSize          int           `yaml:"default_mailbox_size" json:"default_mailbox_size"`
}

// ApplyDefaults fills any zero-valued field of opts from the tuning block.
// It never overwrites a field the caller already set, so per-node overrides
// still take precedence over the engine-wide defaults. For a neuron it sets
// only ActivationFnId; it does not bind ActivationFn, so a neuron left
// without one computes with core's built-in sigmoid whatever id it reports.
func (t Tuning) ApplyDefaults(opts *core.Options) {
	if opts.MailboxPollInterval == 0 {
		opts.MailboxPollInterval = t.MailboxPollInterval
	}
	if opts.ProbeTimeout == 0 {
		opts.ProbeTimeout = t.StatusProbeTimeout
	}
	if opts.MailboxSize == 0 {
		opts.MailboxSize = t.DefaultMailboxSize
	}
	if opts.ActivationFnId == "" && opts.Kind == core.KindNeuron {
		opts.ActivationFnId = t.DefaultActivationFunctionID
	}
}

// DefaultConfig returns the engine's built-in configuration, matching the
// defaults core.New itself falls back to when a Tuning is never wired in.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "sneuron",
			Version:     "0.1.0",
			Environment: EnvDevelopment,
			Debug:       true,
		},
		Log: LogConfig{
			Level:  LogLevelInfo,
			Format: "text",
			Output: "stdout",
		},
		Tuning: Tuning{
			MailboxPollInterval:         250 * time.Millisecond,
			StatusProbeTimeout:          500 * time.Millisecond,
			DefaultThinkTime:            2 * time.Second,
			DefaultActivationFunctionID: "sigmoid",
			DefaultMailboxSize:          64,
		},
	}
}

// Validate checks that every field is within a usable range.
func (c *Config) Validate() error {
	if !c.App.Environment.IsValid() {
		return ErrConfigValidateError
	}
	if !c.Log.Level.IsValid() {
		return ErrConfigValidateError
	}
	if c.Tuning.MailboxPollInterval <= 0 {
		return ErrInvalidMailboxPollInterval
	}
	if c.Tuning.StatusProbeTimeout <= 0 {
		return ErrInvalidStatusProbeTimeout
	}
	if c.Tuning.DefaultThinkTime <= 0 {
		return ErrInvalidDefaultThinkTime
	}
	if c.Tuning.DefaultActivationFunctionID == "" {
		return ErrInvalidActivationFunction
	}
	if c.Tuning.DefaultMailboxSize <= 0 {
		return ErrInvalidMailboxSize
	}
	return nil
}

// IsDevelopment returns true if the environment is development.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// IsProduction returns true if the environment is production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}
