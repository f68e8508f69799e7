package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Fallback rate limits, matching Twitch's 20 messages per 30 seconds for
// regular accounts.
const (
	DefaultResponseIntervalMs = 30000
	DefaultResponseLimit      = 20
	DefaultDelayIntervalMs    = 1000
	DefaultMaxPerDelay        = 1
)

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Twitch: TwitchConfig{
			Transport:       "irc",
			Server:          "irc.chat.twitch.tv",
			UnhandledBuffer: 100,
		},
		Processor: DefaultProcessor(),
		Store: StoreConfig{
			Driver: "sqlite",
		},
		Logging: LoggingConfig{
			Level: "info",
			Style: "pretty",
		},
	}
}

// DefaultProcessor returns the fallback rate-limit settings.
func DefaultProcessor() ProcessorConfig {
	return ProcessorConfig{
		ResponseIntervalInMilliseconds:       DefaultResponseIntervalMs,
		ResponseLimitPerInterval:             DefaultResponseLimit,
		DelayIntervalInMilliseconds:          DefaultDelayIntervalMs,
		MaxNumberOfResponsesPerDelayInterval: DefaultMaxPerDelay,
	}
}
