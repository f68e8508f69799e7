package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/soyeahso/twitchbot/internal/config"
	"github.com/soyeahso/twitchbot/internal/domain"
	"github.com/soyeahso/twitchbot/internal/feature"
	"github.com/soyeahso/twitchbot/internal/feature/alerts"
	"github.com/soyeahso/twitchbot/internal/feature/answers"
	"github.com/soyeahso/twitchbot/internal/feature/bets"
	"github.com/soyeahso/twitchbot/internal/feature/chatlog"
	"github.com/soyeahso/twitchbot/internal/feature/urlfilter"
	"github.com/soyeahso/twitchbot/internal/gateway"
	"github.com/soyeahso/twitchbot/internal/hooks"
	"github.com/soyeahso/twitchbot/internal/logging"
	"github.com/soyeahso/twitchbot/internal/overlay"
	"github.com/soyeahso/twitchbot/internal/processor"
	"github.com/soyeahso/twitchbot/internal/store"
	"github.com/soyeahso/twitchbot/internal/telemetry"
	"github.com/soyeahso/twitchbot/internal/transport/irc"
	"github.com/soyeahso/twitchbot/internal/transport/twitch"
	"golang.org/x/sync/errgroup"
)

// chatTransport is what both transports offer beyond domain.ChatClient.
type chatTransport interface {
	domain.ChatClient
	Unhandled() []string
	Connected() bool
}

func newTransport(cfg config.TwitchConfig, password string, log *logging.Logger) (chatTransport, error) {
	switch cfg.Transport {
	case "", "irc":
		return irc.New(cfg, password, log), nil
	case "twitch":
		return twitch.New(cfg, password, log), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// registerFeatures adds every feature kind in the order they see messages.
func registerFeatures(r *feature.Registry) error {
	kinds := []struct {
		name    string
		factory feature.Factory
	}{
		{"chatlog", chatlog.Factory},
		{"urlfilter", urlfilter.Factory},
		{"answers", answers.Factory},
		{"alerts", alerts.Factory},
		{"bets", bets.Factory},
	}
	for _, k := range kinds {
		if err := r.Register(k.name, k.factory); err != nil {
			return err
		}
	}
	return nil
}

func needsStore(cfg config.FeaturesConfig) bool {
	return cfg.ChatLog || (cfg.Bets != nil && cfg.Bets.Enabled)
}

// bot is the assembled runtime.
type bot struct {
	cfg      config.Config
	log      *logging.Logger
	client   chatTransport
	proc     *processor.Processor
	hooks    *hooks.Manager
	metrics  *telemetry.Metrics
	features *feature.Registry
	hub      *overlay.Hub
	db       *store.DB
}

func newBot(cfg config.Config, client chatTransport, log *logging.Logger) (*bot, error) {
	metrics, err := telemetry.New()
	if err != nil {
		return nil, fmt.Errorf("creating metrics: %w", err)
	}

	b := &bot{
		cfg:      cfg,
		log:      log,
		client:   client,
		hooks:    hooks.NewManager(log),
		metrics:  metrics,
		features: feature.NewRegistry(log),
		hub:      overlay.NewHub(cfg.HTTP.OverlayToken, cfg.HTTP.AllowedOrigins, log),
	}
	b.proc = processor.New(client, processor.ConfigFrom(cfg.Processor), log,
		processor.WithHooks(b.hooks),
		processor.WithMetrics(metrics),
	)
	client.OnConnect(func() {
		log.Info().Strs("channels", cfg.Twitch.Channels).Msg("connected to chat")
	})
	b.hub.Attach(b.hooks)

	if needsStore(cfg.Features) {
		b.db, err = store.Open(cfg.Store.Driver, cfg.Store.DSN, log)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
	}

	if err := registerFeatures(b.features); err != nil {
		b.close()
		return nil, err
	}
	deps := feature.Deps{Config: cfg.Features, DB: b.db, Hooks: b.hooks, Log: log}
	if err := b.features.Build(deps); err != nil {
		b.close()
		return nil, err
	}
	b.features.Attach(b.proc)
	return b, nil
}

// run connects to chat and serves HTTP until ctx is cancelled or the
// connection ends.
func (b *bot) run(ctx context.Context) error {
	b.hooks.Emit(ctx, hooks.Payload{
		Event: hooks.EventBotStart,
		Data:  map[string]any{"channels": b.cfg.Twitch.Channels, "features": b.features.Enabled()},
	})

	g, gctx := errgroup.WithContext(ctx)
	gctx, cancel := context.WithCancel(gctx)
	defer cancel()

	g.Go(func() error {
		defer cancel()
		err := b.proc.Connect(gctx, b.cfg.Twitch.Channels...)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if b.cfg.HTTP.Listen != "" {
		srv := gateway.New(b.cfg.HTTP, b.log,
			gateway.WithMetrics(b.metrics),
			gateway.WithOverlay(b.hub),
			gateway.WithStatus(b.status),
		)
		g.Go(func() error { return srv.Start(gctx) })
	}

	err := g.Wait()
	b.close()
	b.hooks.Emit(context.Background(), hooks.Payload{Event: hooks.EventBotStop})
	return err
}

func (b *bot) status(h *gateway.Health) {
	h.Connected = b.client.Connected()
	h.Pending = b.proc.Pending()
	h.Overlays = b.hub.Count()
	h.Features = b.features.Enabled()
}

// close releases everything newBot acquired.
func (b *bot) close() {
	if b.proc != nil {
		if err := b.proc.Disconnect(); err != nil {
			b.log.Warn().Err(err).Msg("disconnect error")
		}
	}
	for _, line := range b.client.Unhandled() {
		b.log.Debug().Str("line", line).Msg("unhandled chat line")
	}
	b.features.CloseAll()
	b.hub.Close()
	if b.db != nil {
		b.db.Close()
	}
}
