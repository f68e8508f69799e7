package config

import (
	"errors"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so tokens and passwords can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Twitch.Token = expandEnvVars(cfg.Twitch.Token)
	cfg.Twitch.ClientSecret = expandEnvVars(cfg.Twitch.ClientSecret)
	cfg.Twitch.RefreshToken = expandEnvVars(cfg.Twitch.RefreshToken)
	cfg.Store.DSN = expandEnvVars(cfg.Store.DSN)
	cfg.HTTP.OverlayToken = expandEnvVars(cfg.HTTP.OverlayToken)
	if cfg.Features.Alerts != nil {
		cfg.Features.Alerts.Password = expandEnvVars(cfg.Features.Alerts.Password)
	}
}

// LoadDotEnv loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults. Each
// rate-limit field falls back independently.
func applyDefaults(cfg *Config) {
	if cfg.Twitch.Transport == "" {
		cfg.Twitch.Transport = "irc"
	}
	if cfg.Twitch.Server == "" {
		cfg.Twitch.Server = "irc.chat.twitch.tv"
	}
	if cfg.Twitch.UnhandledBuffer == 0 {
		cfg.Twitch.UnhandledBuffer = 100
	}

	p := &cfg.Processor
	if p.ResponseIntervalInMilliseconds == 0 {
		p.ResponseIntervalInMilliseconds = DefaultResponseIntervalMs
	}
	if p.ResponseLimitPerInterval == 0 {
		p.ResponseLimitPerInterval = DefaultResponseLimit
	}
	if p.DelayIntervalInMilliseconds == 0 {
		p.DelayIntervalInMilliseconds = DefaultDelayIntervalMs
	}
	if p.MaxNumberOfResponsesPerDelayInterval == 0 {
		p.MaxNumberOfResponsesPerDelayInterval = DefaultMaxPerDelay
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "sqlite"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Style == "" {
		cfg.Logging.Style = "pretty"
	}
	if a := cfg.Features.Alerts; a != nil {
		if a.Mailbox == "" {
			a.Mailbox = "INBOX"
		}
		if a.PollIntervalSeconds == 0 {
			a.PollIntervalSeconds = 60
		}
	}
}

// applyEnvOverrides reads TWITCHBOT_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TWITCHBOT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("TWITCHBOT_NICK"); v != "" {
		cfg.Twitch.Nick = v
	}
	if v := os.Getenv("TWITCHBOT_TOKEN"); v != "" {
		cfg.Twitch.Token = v
	}
	if v := os.Getenv("TWITCHBOT_CHANNELS"); v != "" {
		cfg.Twitch.Channels = strings.Split(v, ",")
	}
	if v := os.Getenv("TWITCHBOT_HTTP_LISTEN"); v != "" {
		cfg.HTTP.Listen = v
	}
}
