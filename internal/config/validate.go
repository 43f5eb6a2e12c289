package config

import (
	"fmt"
	"strings"
)

// Validate checks the config for errors.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if cfg.Server.MetricsPort < 0 || cfg.Server.MetricsPort > 65535 {
		errs = append(errs, "server.metricsPort must be between 0 and 65535")
	}

	if cfg.Server.RequestsPerMinute <= 0 {
		errs = append(errs, "server.requestsPerMinute must be positive")
	}

	if cfg.Database.SQLite.Path == "" {
		errs = append(errs, "database.sqlite.path is required")
	}

	if cfg.Slack.Enabled {
		if cfg.Slack.BotToken == "" {
			errs = append(errs, "slack.botToken is required when slack is enabled")
		}
		if cfg.Slack.SigningSecret == "" && !cfg.Slack.SkipVerification {
			errs = append(errs, "slack.signingSecret is required when slack is enabled (or set slack.skipVerification for local development)")
		}
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, fmt.Sprintf("logging.format must be json or text (got %q)", cfg.Logging.Format))
	}

	if cfg.Approvals.DefaultTTL <= 0 {
		errs = append(errs, "approvals.defaultTTL must be positive")
	}

	if cfg.Approvals.Sweep.Enabled && cfg.Approvals.Sweep.Schedule == "" {
		errs = append(errs, "approvals.sweep.schedule is required when sweep is enabled")
	}

	if cfg.Callback.Timeout <= 0 {
		errs = append(errs, "callback.timeout must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
