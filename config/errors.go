// Package config provides error definitions for engine tuning configuration
package config

import "errors"

// Validation errors
var (
	ErrInvalidMailboxPollInterval = errors.New("invalid mailbox poll interval")
	ErrInvalidStatusProbeTimeout  = errors.New("invalid status probe timeout")
	ErrInvalidDefaultThinkTime    = errors.New("invalid default think time")
	ErrInvalidActivationFunction  = errors.New("invalid default activation function id")
	ErrInvalidMailboxSize         = errors.New("invalid default mailbox size")
)

// Loading errors
var (
	ErrConfigFileNotFound  = errors.New("configuration file not found")
	ErrConfigParseError    = errors.New("configuration parse error")
	ErrConfigValidateError = errors.New("configuration validation error")
	ErrConfigWatchError    = errors.New("configuration watch error")
)
