package config

// Config is the root configuration for twitchbot.
type Config struct {
	Twitch    TwitchConfig    `yaml:"twitch"`
	Processor ProcessorConfig `yaml:"processor,omitempty"`
	Features  FeaturesConfig  `yaml:"features,omitempty"`
	Store     StoreConfig     `yaml:"store,omitempty"`
	HTTP      HTTPConfig      `yaml:"http,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// TwitchConfig defines the chat connection.
type TwitchConfig struct {
	Transport string   `yaml:"transport,omitempty"` // "irc" (girc) | "twitch" (go-twitch-irc)
	Server    string   `yaml:"server,omitempty"`
	Port      int      `yaml:"port,omitempty"`
	UseTLS    *bool    `yaml:"useTLS,omitempty"` // defaults to true
	Nick      string   `yaml:"nick"`
	Token     string   `yaml:"token,omitempty"` // chat token, with or without the "oauth:" prefix
	Channels  []string `yaml:"channels"`

	// OAuth refresh; when ClientID and RefreshToken are set the token is
	// refreshed at startup instead of using Token.
	ClientID     string `yaml:"clientId,omitempty"`
	ClientSecret string `yaml:"clientSecret,omitempty"`
	RefreshToken string `yaml:"refreshToken,omitempty"`

	UnhandledBuffer int `yaml:"unhandledBuffer,omitempty"` // max unrecognized lines kept
}

// TLS reports whether the connection uses TLS.
func (t TwitchConfig) TLS() bool {
	if t.UseTLS == nil {
		return true
	}
	return *t.UseTLS
}

// Address returns host:port, picking the default port for the TLS mode.
func (t TwitchConfig) Address() (string, int) {
	port := t.Port
	if port == 0 {
		if t.TLS() {
			port = 6697
		} else {
			port = 6667
		}
	}
	return t.Server, port
}

// ProcessorConfig controls the outbound rate limiter. Field names match the
// keys used by existing bot configs.
type ProcessorConfig struct {
	ResponseIntervalInMilliseconds       int `yaml:"responseIntervalInMilliseconds,omitempty"`
	ResponseLimitPerInterval             int `yaml:"responseLimitPerInterval,omitempty"`
	DelayIntervalInMilliseconds          int `yaml:"delayIntervalInMilliseconds,omitempty"`
	MaxNumberOfResponsesPerDelayInterval int `yaml:"maxNumberOfResponsesPerDelayInterval,omitempty"`
}

// FeaturesConfig selects and configures features.
type FeaturesConfig struct {
	Answers   map[string]string `yaml:"answers,omitempty"` // trigger -> answer
	URLFilter *URLFilterConfig  `yaml:"urlFilter,omitempty"`
	Alerts    *AlertsConfig     `yaml:"alerts,omitempty"`
	Bets      *BetsConfig       `yaml:"bets,omitempty"`
	ChatLog   bool              `yaml:"chatLog,omitempty"`
}

// URLFilterConfig configures link moderation.
type URLFilterConfig struct {
	AllowedDomains []string `yaml:"allowedDomains,omitempty"`
	Warning        string   `yaml:"warning,omitempty"` // {user} is replaced
	TimeoutSeconds int      `yaml:"timeoutSeconds,omitempty"`
}

// AlertsConfig configures mail-driven alerts.
type AlertsConfig struct {
	Server              string `yaml:"server"` // host:port, implicit TLS
	Username            string `yaml:"username"`
	Password            string `yaml:"password,omitempty"`
	Mailbox             string `yaml:"mailbox,omitempty"`
	Channel             string `yaml:"channel"`
	PollIntervalSeconds int    `yaml:"pollIntervalSeconds,omitempty"`
	Template            string `yaml:"template,omitempty"` // {from} and {subject} are replaced
}

// BetsConfig configures the betting feature.
type BetsConfig struct {
	Enabled   bool  `yaml:"enabled"`
	MaxAmount int64 `yaml:"maxAmount,omitempty"`
}

// StoreConfig selects the database.
type StoreConfig struct {
	Driver string `yaml:"driver,omitempty"` // "sqlite" | "postgres"
	DSN    string `yaml:"dsn,omitempty"`    // file path for sqlite, URL for postgres
}

// HTTPConfig controls the metrics/overlay listener.
type HTTPConfig struct {
	Listen         string   `yaml:"listen,omitempty"` // empty disables the server
	OverlayToken   string   `yaml:"overlayToken,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File  string `yaml:"file,omitempty"`
	Style string `yaml:"style,omitempty"` // "pretty" | "json"
}
