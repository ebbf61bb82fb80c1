// Package config provides configuration loading and parsing functionality
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFormat represents the configuration file format.
type ConfigFormat string

const (
	FormatYAML ConfigFormat = "yaml"
	FormatJSON ConfigFormat = "json"
)

// Loader handles configuration loading from various sources.
type Loader struct {
	searchPaths   []string
	envPrefix     string
	defaultConfig *Config
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		searchPaths: []string{
			".",
			"./config",
			"./configs",
			"/etc/sneuron",
			os.Getenv("HOME") + "/.sneuron",
		},
		envPrefix:     "SNEURON",
		defaultConfig: DefaultConfig(),
	}
}

// SetSearchPaths sets the configuration file search paths.
func (l *Loader) SetSearchPaths(paths []string) *Loader {
	l.searchPaths = paths
	return l
}

// SetEnvPrefix sets the environment variable prefix.
func (l *Loader) SetEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// SetDefaultConfig sets the default configuration.
func (l *Loader) SetDefaultConfig(config *Config) *Loader {
	l.defaultConfig = config
	return l
}

// Load resolves configuration by reading filename, if given, overlaying it
// onto the loader's defaults. An empty filename resolves the defaults
// alone. Either way the result still passes through environment overrides
// and validation.
func (l *Loader) Load(filename string) (*Config, error) {
	if filename == "" {
		return l.finalize(nil)
	}
	raw, err := l.readAndParse(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from file %s: %w", filename, err)
	}
	return l.finalize(raw)
}

// LoadFromFile loads and resolves configuration from a specific file.
func (l *Loader) LoadFromFile(filename string) (*Config, error) {
	raw, err := l.readAndParse(filename)
	if err != nil {
		return nil, err
	}
	return l.finalize(raw)
}

// LoadFromReader resolves configuration read from an arbitrary source
// (an embedded asset, a secrets manager response) rather than a path on
// the local filesystem.
func (l *Loader) LoadFromReader(reader io.Reader, format ConfigFormat) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration data: %w", err)
	}
	raw, err := l.parseConfig(data, format)
	if err != nil {
		return nil, err
	}
	return l.finalize(raw)
}

// AutoLoad discovers a configuration file across the loader's search paths
// and resolves it, falling back to defaults alone if none is found.
func (l *Loader) AutoLoad() (*Config, error) {
	configFile, format, err := l.findConfigFile()
	if err != nil {
		if err == ErrConfigFileNotFound {
			return l.finalize(nil)
		}
		return nil, err
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}
	raw, err := l.parseConfig(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
	}
	return l.finalize(raw)
}

// finalize is the single path every public Load* method funnels through:
// overlay raw (when non-nil) onto a copy of the loader's defaults, apply
// environment overrides, then validate. Load, LoadFromFile, LoadFromReader,
// and AutoLoad differ only in how they obtain raw.
func (l *Loader) finalize(raw *Config) (*Config, error) {
	base := l.defaultConfig
	if base == nil {
		base = DefaultConfig()
	}

	config := base
	if raw != nil {
		config = l.mergeConfig(base, raw)
	} else {
		copied := *base
		config = &copied
	}

	if err := l.loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// readAndParse reads filename from disk and parses it according to its
// extension.
func (l *Loader) readAndParse(filename string) (*Config, error) {
	format, err := formatForExt(filename)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return l.parseConfig(data, format)
}

// formatForExt maps a filename's extension to the format used to parse it.
func formatForExt(filename string) (ConfigFormat, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported config file format: %s", filepath.Ext(filename))
	}
}

// findConfigFile searches for configuration files in search paths.
func (l *Loader) findConfigFile() (string, ConfigFormat, error) {
	filenames := []string{
		"sneuron.yaml", "sneuron.yml",
		"config.yaml", "config.yml",
		"sneuron.json", "config.json",
	}

	for _, searchPath := range l.searchPaths {
		for _, filename := range filenames {
			fullPath := filepath.Join(searchPath, filename)
			if _, err := os.Stat(fullPath); err != nil {
				continue
			}
			format, err := formatForExt(filename)
			if err != nil {
				continue
			}
			return fullPath, format, nil
		}
	}

	return "", "", ErrConfigFileNotFound
}

// parseConfig parses configuration data based on format.
func (l *Loader) parseConfig(data []byte, format ConfigFormat) (*Config, error) {
	config := &Config{}

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", format)
	}

	return config, nil
}

// loadFromEnv overrides config with environment variables.
func (l *Loader) loadFromEnv(config *Config) error {
	if val := os.Getenv(l.envPrefix + "_APP_NAME"); val != "" {
		config.App.Name = val
	}
	if val := os.Getenv(l.envPrefix + "_APP_ENVIRONMENT"); val != "" {
		config.App.Environment = Environment(val)
	}
	if val := os.Getenv(l.envPrefix + "_APP_DEBUG"); val != "" {
		config.App.Debug = strings.ToLower(val) == "true"
	}

	if val := os.Getenv(l.envPrefix + "_LOG_LEVEL"); val != "" {
		config.Log.Level = LogLevel(val)
	}
	if val := os.Getenv(l.envPrefix + "_LOG_OUTPUT"); val != "" {
		config.Log.Output = val
	}

	if val := os.Getenv(l.envPrefix + "_TUNING_MAILBOX_POLL_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			config.Tuning.MailboxPollInterval = d
		}
	}
	if val := os.Getenv(l.envPrefix + "_TUNING_STATUS_PROBE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			config.Tuning.StatusProbeTimeout = d
		}
	}
	if val := os.Getenv(l.envPrefix + "_TUNING_DEFAULT_THINK_TIME"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			config.Tuning.DefaultThinkTime = d
		}
	}
	if val := os.Getenv(l.envPrefix + "_TUNING_DEFAULT_ACTIVATION_FUNCTION_ID"); val != "" {
		config.Tuning.DefaultActivationFunctionID = val
	}
	if val := os.Getenv(l.envPrefix + "_TUNING_DEFAULT_MAILBOX_SIZE"); val != "" {
		if n, err := parseInt(val); err == nil {
			config.Tuning.DefaultMailboxSize = n
		}
	}

	return nil
}

func parseInt(val string) (int, error) {
	var n int
	_, err := fmt.Sscanf(val, "%d", &n)
	return n, err
}

// mergeConfig overlays userConfig onto a copy of defaultConfig, keeping any
// defaulted field userConfig left unset. App.Debug is the exception: it is
// always taken from userConfig, so a file that omits it sets it to false.
func (l *Loader) mergeConfig(defaultConfig, userConfig *Config) *Config {
	merged := *defaultConfig

	if userConfig.App.Name != "" {
		merged.App.Name = userConfig.App.Name
	}
	if userConfig.App.Version != "" {
		merged.App.Version = userConfig.App.Version
	}
	if userConfig.App.Environment != "" {
		merged.App.Environment = userConfig.App.Environment
	}
	merged.App.Debug = userConfig.App.Debug

	if userConfig.Log.Level != "" {
		merged.Log.Level = userConfig.Log.Level
	}
	if userConfig.Log.Format != "" {
		merged.Log.Format = userConfig.Log.Format
	}
	if userConfig.Log.Output != "" {
		merged.Log.Output = userConfig.Log.Output
	}

	if userConfig.Tuning.MailboxPollInterval != 0 {
		merged.Tuning.MailboxPollInterval = userConfig.Tuning.MailboxPollInterval
	}
	if userConfig.Tuning.StatusProbeTimeout != 0 {
		merged.Tuning.StatusProbeTimeout = userConfig.Tuning.StatusProbeTimeout
	}
	if userConfig.Tuning.DefaultThinkTime != 0 {
		merged.Tuning.DefaultThinkTime = userConfig.Tuning.DefaultThinkTime
	}
	if userConfig.Tuning.DefaultActivationFunctionID != "" {
		merged.Tuning.DefaultActivationFunctionID = userConfig.Tuning.DefaultActivationFunctionID
	}
	if userConfig.Tuning.DefaultMailboxSize != 0 {
		merged.Tuning.DefaultMailboxSize = userConfig.Tuning.DefaultMailboxSize
	}

	return &merged
}
