// Package processor routes chat messages to features by trigger and sends
// their responses through an outbound rate limiter.
package processor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/soyeahso/twitchbot/internal/config"
	"github.com/soyeahso/twitchbot/internal/domain"
	"github.com/soyeahso/twitchbot/internal/hooks"
	"github.com/soyeahso/twitchbot/internal/logging"
	"github.com/soyeahso/twitchbot/internal/telemetry"
)

// alwaysTrigger is the trigger of features that see every message.
const alwaysTrigger = ""

// Config controls the outbound rate limiter.
type Config struct {
	// ResponseInterval is the window after which the send counter resets.
	ResponseInterval time.Duration
	// ResponseLimit is the number of sends allowed per window.
	ResponseLimit int
	// DelayInterval is how often the deferred queue is drained.
	DelayInterval time.Duration
	// MaxPerDelay caps the responses drained in one tick.
	MaxPerDelay int
}

// ConfigFrom converts the millisecond based file config. Zero fields take
// the fallback values.
func ConfigFrom(c config.ProcessorConfig) Config {
	def := config.DefaultProcessor()
	pick := func(v, fallback int) int {
		if v <= 0 {
			return fallback
		}
		return v
	}
	return Config{
		ResponseInterval: time.Duration(pick(c.ResponseIntervalInMilliseconds, def.ResponseIntervalInMilliseconds)) * time.Millisecond,
		ResponseLimit:    pick(c.ResponseLimitPerInterval, def.ResponseLimitPerInterval),
		DelayInterval:    time.Duration(pick(c.DelayIntervalInMilliseconds, def.DelayIntervalInMilliseconds)) * time.Millisecond,
		MaxPerDelay:      pick(c.MaxNumberOfResponsesPerDelayInterval, def.MaxNumberOfResponsesPerDelayInterval),
	}
}

// withFallbacks replaces non-positive fields with the fallback values.
func (c Config) withFallbacks() Config {
	def := ConfigFrom(config.ProcessorConfig{})
	if c.ResponseInterval <= 0 {
		c.ResponseInterval = def.ResponseInterval
	}
	if c.ResponseLimit <= 0 {
		c.ResponseLimit = def.ResponseLimit
	}
	if c.DelayInterval <= 0 {
		c.DelayInterval = def.DelayInterval
	}
	if c.MaxPerDelay <= 0 {
		c.MaxPerDelay = def.MaxPerDelay
	}
	return c
}

// Option customizes a Processor.
type Option func(*Processor)

// WithHooks emits message and response events on m.
func WithHooks(m *hooks.Manager) Option {
	return func(p *Processor) { p.hooks = m }
}

// WithMetrics records pipeline metrics on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// Processor dispatches inbound messages to features and rate limits what
// they send back. All state is guarded by mu; features are invoked outside
// the lock so they may respond synchronously.
type Processor struct {
	client  domain.ChatClient
	cfg     Config
	log     *logging.Logger
	hooks   *hooks.Manager
	metrics *telemetry.Metrics

	mu       sync.Mutex
	features map[string]map[domain.Feature]struct{}
	count    int
	delayed  []*domain.FeatureResponse

	timerMu sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a processor bound to client and subscribes to its messages
// and errors.
func New(client domain.ChatClient, cfg Config, log *logging.Logger, opts ...Option) *Processor {
	p := &Processor{
		client:   client,
		cfg:      cfg.withFallbacks(),
		log:      log.Sub("processor"),
		features: make(map[string]map[domain.Feature]struct{}),
	}
	for _, o := range opts {
		o(p)
	}

	client.OnMessage(p.Process)
	client.OnError(func(msg string) {
		p.log.Error().Str("error", msg).Msg("chat client error")
	})
	return p
}

// RegisterFeature hands f the response callback and adds it to the set of
// its trigger. Registering the same feature again runs Setup again.
func (p *Processor) RegisterFeature(f domain.Feature) {
	f.Setup(p.ProcessResponse)
	trigger := strings.ToLower(strings.TrimSpace(f.Trigger()))

	p.mu.Lock()
	set, ok := p.features[trigger]
	if !ok {
		set = make(map[domain.Feature]struct{})
		p.features[trigger] = set
	}
	set[f] = struct{}{}
	p.mu.Unlock()

	p.log.Debug().Str("trigger", trigger).Msg("feature registered")
}

// Triggers returns the registered triggers, the always set included as "".
func (p *Processor) Triggers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.features))
	for t, set := range p.features {
		if len(set) > 0 {
			out = append(out, t)
		}
	}
	return out
}

// Process runs the always features and then the features of the message's
// trigger, if any.
func (p *Processor) Process(msg domain.Message) {
	p.metrics.RecordMessage(msg.Channel)
	if p.hooks != nil {
		p.hooks.EmitAsync(context.Background(), hooks.Payload{Event: hooks.EventMessageReceived, Message: msg})
	}

	for _, f := range p.snapshot(alwaysTrigger) {
		f.Act(msg)
	}

	trigger, ok := ExtractTrigger(msg.Text)
	if !ok {
		return
	}
	triggered := p.snapshot(trigger)
	if len(triggered) > 0 {
		p.log.Debug().Str("trigger", trigger).Str("from", msg.From).Int("features", len(triggered)).Msg("dispatching trigger")
		p.metrics.RecordTrigger(trigger)
	}
	for _, f := range triggered {
		f.Act(msg)
	}
}

func (p *Processor) snapshot(trigger string) []domain.Feature {
	p.mu.Lock()
	defer p.mu.Unlock()
	set := p.features[trigger]
	out := make([]domain.Feature, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	return out
}
