// Package alerts announces new mails (donations, follows, sponsor
// notifications) in chat.
package alerts

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/soyeahso/twitchbot/internal/domain"
	"github.com/soyeahso/twitchbot/internal/feature"
	"github.com/soyeahso/twitchbot/internal/hooks"
	"github.com/soyeahso/twitchbot/internal/logging"
	"github.com/soyeahso/twitchbot/internal/transport"
)

// DefaultTemplate is used when no template is configured.
const DefaultTemplate = "New alert from {from}: {subject}"

const defaultInterval = time.Minute

// Feature polls a MailSource in the background and posts each new mail to
// a channel. Moderators toggle announcements with "!alerts on|off"; mails
// arriving while alerts are off are still consumed and emitted as hooks.
type Feature struct {
	src      MailSource
	channel  string
	template string
	interval time.Duration
	hooks    *hooks.Manager
	log      *logging.Logger

	mu      sync.Mutex
	enabled bool
	respond domain.ResponseFunc
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an alerts feature. The poller starts on Setup. h may be nil.
func New(src MailSource, channel, template string, interval time.Duration, h *hooks.Manager, log *logging.Logger) *Feature {
	if template == "" {
		template = DefaultTemplate
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Feature{
		src:      src,
		channel:  transport.ChannelName(channel),
		template: template,
		interval: interval,
		hooks:    h,
		log:      log,
		enabled:  true,
	}
}

func (f *Feature) Trigger() string { return "alerts" }

// Setup stores the callback and starts the poller. Calling it again only
// replaces the callback.
func (f *Feature) Setup(respond domain.ResponseFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.respond = respond
	if f.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.wg.Add(1)
	go f.run(ctx)
}

func (f *Feature) Act(msg domain.Message) {
	args := feature.Args(msg.Text)
	if len(args) == 0 {
		state := "off"
		if f.Enabled() {
			state = "on"
		}
		f.reply(msg, fmt.Sprintf("Alerts are %s.", state))
		return
	}
	if !feature.Privileged(msg) {
		return
	}

	switch strings.ToLower(args[0]) {
	case "on":
		f.setEnabled(true)
		f.reply(msg, "Alerts enabled.")
	case "off":
		f.setEnabled(false)
		f.reply(msg, "Alerts disabled.")
	default:
		f.reply(msg, "Usage: !alerts on|off")
	}
}

// Enabled reports whether new mails are announced.
func (f *Feature) Enabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

func (f *Feature) setEnabled(on bool) {
	f.mu.Lock()
	f.enabled = on
	f.mu.Unlock()
	f.log.Info().Bool("enabled", on).Msg("alerts toggled")
}

func (f *Feature) callback() domain.ResponseFunc {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.respond
}

func (f *Feature) reply(msg domain.Message, text string) {
	if respond := f.callback(); respond != nil {
		respond(nil, domain.Reply(msg, text))
	}
}

// Poll checks the source once and announces every mail it returns.
func (f *Feature) Poll(ctx context.Context) error {
	mails, err := f.src.Unseen(ctx)
	for _, m := range mails {
		f.announce(ctx, m)
	}
	if err != nil {
		return fmt.Errorf("checking mailbox: %w", err)
	}
	return nil
}

func (f *Feature) announce(ctx context.Context, m Mail) {
	text := f.Format(m)
	if f.hooks != nil {
		f.hooks.Emit(ctx, hooks.Payload{
			Event: hooks.EventAlertReceived,
			Data:  map[string]any{"channel": f.channel, "from": m.From, "subject": m.Subject, "text": text},
		})
	}

	respond := f.callback()
	if !f.Enabled() || respond == nil {
		f.log.Debug().Str("from", m.From).Msg("alert not announced")
		return
	}
	respond(nil, domain.NewResponse(f.channel, text))
}

// Format renders the template for m.
func (f *Feature) Format(m Mail) string {
	return strings.NewReplacer("{from}", m.From, "{subject}", m.Subject).Replace(f.template)
}

func (f *Feature) run(ctx context.Context) {
	defer f.wg.Done()

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.Poll(ctx); err != nil && ctx.Err() == nil {
				if respond := f.callback(); respond != nil {
					respond(err, nil)
				}
			}
		}
	}
}

// Close stops the poller and waits for it to exit.
func (f *Feature) Close() error {
	f.mu.Lock()
	cancel := f.cancel
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	f.wg.Wait()
	return nil
}

// Factory builds the feature when configured, reading from IMAP.
func Factory(d feature.Deps) ([]domain.Feature, error) {
	c := d.Config.Alerts
	if c == nil {
		return nil, nil
	}
	src := &IMAPSource{Server: c.Server, Username: c.Username, Password: c.Password, Mailbox: c.Mailbox}
	interval := time.Duration(c.PollIntervalSeconds) * time.Second
	return []domain.Feature{New(src, c.Channel, c.Template, interval, d.Hooks, d.Log)}, nil
}
