package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/soyeahso/twitchbot/internal/logging"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue
	add := func(path, format string, args ...any) {
		issues = append(issues, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	// Twitch validation
	validTransports := []string{"irc", "twitch"}
	if cfg.Twitch.Transport != "" && !slices.Contains(validTransports, cfg.Twitch.Transport) {
		add("twitch.transport", "must be one of %v, got %q", validTransports, cfg.Twitch.Transport)
	}
	if cfg.Twitch.Port < 0 || cfg.Twitch.Port > 65535 {
		add("twitch.port", "port must be 0-65535, got %d", cfg.Twitch.Port)
	}
	if cfg.Twitch.UnhandledBuffer < 0 {
		add("twitch.unhandledBuffer", "must not be negative, got %d", cfg.Twitch.UnhandledBuffer)
	}
	for i, ch := range cfg.Twitch.Channels {
		if strings.TrimSpace(strings.TrimPrefix(ch, "#")) == "" {
			add(fmt.Sprintf("twitch.channels[%d]", i), "channel name is empty")
		}
	}
	if cfg.Twitch.RefreshToken != "" && cfg.Twitch.ClientID == "" {
		add("twitch.clientId", "required when refreshToken is set")
	}

	// Processor validation
	p := cfg.Processor
	positive := []struct {
		path  string
		value int
	}{
		{"processor.responseIntervalInMilliseconds", p.ResponseIntervalInMilliseconds},
		{"processor.responseLimitPerInterval", p.ResponseLimitPerInterval},
		{"processor.delayIntervalInMilliseconds", p.DelayIntervalInMilliseconds},
		{"processor.maxNumberOfResponsesPerDelayInterval", p.MaxNumberOfResponsesPerDelayInterval},
	}
	for _, f := range positive {
		if f.value < 0 {
			add(f.path, "must be positive, got %d", f.value)
		}
	}

	// Feature validation
	for trigger := range cfg.Features.Answers {
		if strings.TrimSpace(trigger) == "" {
			add("features.answers", "trigger must not be empty")
		}
	}
	if f := cfg.Features.URLFilter; f != nil && f.TimeoutSeconds < 0 {
		add("features.urlFilter.timeoutSeconds", "must not be negative, got %d", f.TimeoutSeconds)
	}
	if a := cfg.Features.Alerts; a != nil {
		if a.Server == "" {
			add("features.alerts.server", "server is required")
		}
		if a.Username == "" {
			add("features.alerts.username", "username is required")
		}
		if a.Channel == "" {
			add("features.alerts.channel", "channel is required")
		}
		if a.PollIntervalSeconds < 0 {
			add("features.alerts.pollIntervalSeconds", "must not be negative, got %d", a.PollIntervalSeconds)
		}
	}
	if b := cfg.Features.Bets; b != nil && b.MaxAmount < 0 {
		add("features.bets.maxAmount", "must not be negative, got %d", b.MaxAmount)
	}

	// Store validation
	validDrivers := []string{"sqlite", "postgres"}
	if cfg.Store.Driver != "" && !slices.Contains(validDrivers, cfg.Store.Driver) {
		add("store.driver", "must be one of %v, got %q", validDrivers, cfg.Store.Driver)
	}
	if cfg.Store.Driver == "postgres" && cfg.Store.DSN == "" {
		add("store.dsn", "required for postgres")
	}

	// Logging validation
	if cfg.Logging.Level != "" && !logging.ValidLevel(cfg.Logging.Level) {
		add("logging.level", "must be one of %v, got %q", logging.Levels, cfg.Logging.Level)
	}
	if cfg.Logging.Style != "" && !slices.Contains(logging.Styles, cfg.Logging.Style) {
		add("logging.style", "must be one of %v, got %q", logging.Styles, cfg.Logging.Style)
	}

	return issues
}

// ValidateRunnable adds the checks that only matter when connecting to chat.
func ValidateRunnable(cfg *Config) []ValidationIssue {
	issues := Validate(cfg)
	if cfg.Twitch.Nick == "" {
		issues = append(issues, ValidationIssue{Path: "twitch.nick", Message: "nick is required"})
	}
	if len(cfg.Twitch.Channels) == 0 {
		issues = append(issues, ValidationIssue{Path: "twitch.channels", Message: "at least one channel is required"})
	}
	return issues
}
