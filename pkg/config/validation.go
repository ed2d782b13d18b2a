package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/dittocloud/pkg/schedule"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if _, err := cfg.Schedule.Build(); err != nil {
		return err
	}

	if cfg.Remote.RateLimit.Burst > 0 && cfg.Remote.RateLimit.RequestsPerSecond == 0 {
		return fmt.Errorf("remote.rate_limit: burst set without requests_per_second")
	}

	// Decode errors in the type-specific section surface here rather than
	// when the backend is opened.
	switch cfg.Remote.Type {
	case "memory":
		mc, err := decodeMemoryRemote(cfg.Remote.Memory)
		if err != nil {
			return err
		}
		if err := validate.Struct(mc); err != nil {
			return fmt.Errorf("remote.memory: %w", formatValidationError(err))
		}
	}

	return nil
}

// Build parses the configured windows.
func (c ScheduleConfig) Build() (schedule.Schedule, error) {
	up, err := schedule.NewWindow(c.Upload.Start, c.Upload.End)
	if err != nil {
		return schedule.Schedule{}, fmt.Errorf("schedule.upload: %w", err)
	}
	down, err := schedule.NewWindow(c.Download.Start, c.Download.End)
	if err != nil {
		return schedule.Schedule{}, fmt.Errorf("schedule.download: %w", err)
	}
	return schedule.Schedule{Upload: up, Download: down}, nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
