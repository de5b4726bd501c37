package logger

import (
	"errors"
	"strings"
)

// Config defines the logger configuration
type Config struct {
	Level            string     `mapstructure:"level"`  // debug, info, warn, error
	Format           string     `mapstructure:"format"` // json, console
	Output           string     `mapstructure:"output"` // console, file, both
	File             FileConfig `mapstructure:"file"`
	EnableCaller     bool       `mapstructure:"enable_caller"`
	EnableStacktrace bool       `mapstructure:"enable_stacktrace"` // stacktrace from error level up
}

// FileConfig defines rotated file output
type FileConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxAge     int    `mapstructure:"max_age"`  // days
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

var (
	validLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "dpanic": true, "panic": true, "fatal": true}
	validFormats = map[string]bool{"json": true, "console": true}
	validOutputs = map[string]bool{"console": true, "file": true, "both": true}
)

// DefaultConfig returns default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:            "info",
		Format:           "json",
		Output:           "console",
		EnableCaller:     true,
		EnableStacktrace: true,
		File: FileConfig{
			Filename:   "logs/market-research.log",
			MaxSize:    100,
			MaxAge:     30,
			MaxBackups: 10,
			Compress:   true,
		},
	}
}

// Development returns a colored console config at debug level
func Development() *Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	cfg.Format = "console"
	return cfg
}

func (c *Config) writesFile() bool {
	return c.Output == "file" || c.Output == "both"
}

// Validate validates the logger configuration
func (c *Config) Validate() error {
	if !validLevels[strings.ToLower(c.Level)] {
		return errors.New("invalid log level, must be one of: debug, info, warn, error, dpanic, panic, fatal")
	}
	if !validFormats[c.Format] {
		return errors.New("invalid log format, must be 'json' or 'console'")
	}
	if !validOutputs[c.Output] {
		return errors.New("invalid log output, must be 'console', 'file' or 'both'")
	}

	if !c.writesFile() {
		return nil
	}
	switch {
	case c.File.Filename == "":
		return errors.New("log file filename is required when output is 'file' or 'both'")
	case c.File.MaxSize <= 0:
		return errors.New("log file max_size must be greater than 0")
	case c.File.MaxAge <= 0:
		return errors.New("log file max_age must be greater than 0")
	case c.File.MaxBackups < 0:
		return errors.New("log file max_backups must not be negative")
	}
	return nil
}
