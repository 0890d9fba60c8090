package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/modoterra/nockkeygen/pkg/logging"
)

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks the config for structural correctness.
func Validate(c *Config) []error {
	var errs []error

	if c.Version != 1 {
		errs = append(errs, fmt.Errorf("version must be 1, got %d", c.Version))
	}

	if strings.TrimSpace(c.Tool) == "" {
		errs = append(errs, fmt.Errorf("tool is required"))
	}

	if c.RawStopTimeout != "" {
		d, err := time.ParseDuration(c.RawStopTimeout)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("stop_timeout: %q is not a duration", c.RawStopTimeout))
		case d <= 0:
			errs = append(errs, fmt.Errorf("stop_timeout must be positive, got %s", d))
		}
	}

	// Export
	if strings.ContainsAny(c.Export.DefaultName, `/\`) {
		errs = append(errs, fmt.Errorf("export.default_name must be a file name, got %q", c.Export.DefaultName))
	}
	if c.Export.RawFileMode != "" {
		if _, err := parseFileMode(c.Export.RawFileMode); err != nil {
			errs = append(errs, fmt.Errorf("export.file_mode: %w", err))
		}
	}

	// Log
	if c.Log.Level != "" && !logLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn, or error; got %q", c.Log.Level))
	}
	switch c.Log.Journald {
	case "", logging.JournaldAuto, logging.JournaldOn, logging.JournaldOff:
	default:
		errs = append(errs, fmt.Errorf("log.journald must be auto, on, or off; got %q", c.Log.Journald))
	}

	return errs
}
