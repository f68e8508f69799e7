// Package irc implements domain.ChatClient on top of the girc IRC library.
package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/lrstanley/girc"
	"github.com/soyeahso/twitchbot/internal/config"
	"github.com/soyeahso/twitchbot/internal/domain"
	"github.com/soyeahso/twitchbot/internal/logging"
	"github.com/soyeahso/twitchbot/internal/tags"
	"github.com/soyeahso/twitchbot/internal/transport"
)

// twitchCaps are requested so PRIVMSG lines carry tags and Twitch specific
// commands are delivered.
var twitchCaps = []string{"twitch.tv/tags", "twitch.tv/commands"}

// handled lists commands consumed by the registered handlers or by girc.
var handled = map[string]bool{
	girc.PRIVMSG: true,
	girc.PING:    true,
	girc.PONG:    true,
	girc.JOIN:    true,
	girc.PART:    true,
	girc.CAP:     true,
	girc.ERROR:   true,
	girc.NOTICE:  true,
	"001":        true,
	"002":        true,
	"003":        true,
	"004":        true,
	"353":        true,
	"366":        true,
	"372":        true,
	"375":        true,
	"376":        true,
}

// Client implements domain.ChatClient for Twitch IRC.
type Client struct {
	cfg      config.TwitchConfig
	password string
	log      *logging.Logger

	unhandled *transport.LineBuffer
	rawTags   *rawTagLog

	mu        sync.RWMutex
	client    *girc.Client
	channels  []string
	onConnect func()
	onError   func(string)
	onMessage func(domain.Message)
}

// New creates a client. password is the IRC server password, normally
// "oauth:<token>".
func New(cfg config.TwitchConfig, password string, log *logging.Logger) *Client {
	return &Client{
		cfg:       cfg,
		password:  password,
		log:       log.Sub("irc"),
		unhandled: transport.NewLineBuffer(cfg.UnhandledBuffer),
		rawTags:   newRawTagLog(rawTagLimit),
	}
}

func (c *Client) OnConnect(handler func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnect = handler
}

func (c *Client) OnError(handler func(string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = handler
}

func (c *Client) OnMessage(handler func(domain.Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = handler
}

// Unhandled returns the most recent lines no handler recognized.
func (c *Client) Unhandled() []string { return c.unhandled.Lines() }

// Connected reports whether the connection is up.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client != nil && c.client.IsConnected()
}

// Connect joins channels once registered and blocks until the connection
// ends or ctx is cancelled.
func (c *Client) Connect(ctx context.Context, channels ...string) error {
	server, port := c.cfg.Address()
	useTLS := c.cfg.TLS()

	caps := make(map[string][]string, len(twitchCaps))
	for _, cp := range twitchCaps {
		caps[cp] = nil
	}

	// TLS is done by the dialer, not girc
	gircCfg := girc.Config{
		Server:        server,
		Port:          port,
		Nick:          c.cfg.Nick,
		User:          c.cfg.Nick,
		Name:          c.cfg.Nick,
		ServerPass:    c.password,
		SupportedCaps: caps,
		DisableSTS:    true,
		// the processor applies its own rate limit
		AllowFlood: true,
		Version:    "twitchbot",
	}
	dialer := recordingDialer{log: c.rawTags}
	if useTLS {
		dialer.tls = &tls.Config{ServerName: server}
	}

	client := girc.New(gircCfg)

	c.mu.Lock()
	c.client = client
	c.channels = make([]string, 0, len(channels))
	for _, ch := range channels {
		c.channels = append(c.channels, transport.ChannelName(transport.ChannelLogin(ch)))
	}
	c.mu.Unlock()

	c.registerHandlers(client)

	c.log.Info().
		Str("server", server).
		Int("port", port).
		Str("nick", c.cfg.Nick).
		Strs("channels", channels).
		Bool("tls", useTLS).
		Msg("connecting to chat")

	// Connect() blocks
	errCh := make(chan error, 1)
	go func() {
		errCh <- client.DialerConnect(dialer)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("irc connect: %w", err)
		}
		return nil
	case <-ctx.Done():
		client.Close()
		return ctx.Err()
	}
}

// Close disconnects from the server.
func (c *Client) Close() error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client != nil && client.IsConnected() {
		c.log.Info().Msg("disconnecting from chat")
		client.Quit("bye")
		client.Close()
	}
	return nil
}

// Send delivers text to a channel. Long text is split into several
// messages.
func (c *Client) Send(to, text string, isCommand bool) error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil || !client.IsConnected() {
		return transport.ErrNotConnected
	}
	if to == "" {
		return transport.ErrNoTarget
	}
	target := transport.ChannelName(transport.ChannelLogin(to))

	text = transport.CommandText(text, isCommand)
	lines := splitMessage(text, transport.MaxMessageLen)
	if isCommand {
		// a command must not be broken up
		lines = []string{strings.ReplaceAll(text, "\n", " ")}
	}
	for _, line := range lines {
		client.Cmd.Message(target, line)
	}

	c.log.Debug().
		Str("to", target).
		Bool("command", isCommand).
		Int("lines", len(lines)).
		Msg("sent chat message")
	return nil
}

func (c *Client) registerHandlers(client *girc.Client) {
	client.Handlers.Add(girc.CONNECTED, c.onConnected)
	client.Handlers.Add(girc.PRIVMSG, c.onPrivmsg)
	client.Handlers.Add(girc.NOTICE, c.onNotice)
	client.Handlers.Add(girc.ERROR, c.onServerError)
	client.Handlers.Add(girc.DISCONNECTED, c.onDisconnected)
	client.Handlers.Add(girc.ALL_EVENTS, c.onAny)
}

func (c *Client) onConnected(client *girc.Client, _ girc.Event) {
	c.log.Info().Msg("connected to chat")

	// Twitch only honours the caps when requested explicitly.
	if err := client.Cmd.SendRaw("CAP REQ :" + strings.Join(twitchCaps, " ")); err != nil {
		c.log.Warn().Err(err).Msg("failed to request capabilities")
	}

	c.mu.RLock()
	channels := c.channels
	handler := c.onConnect
	c.mu.RUnlock()

	for _, ch := range channels {
		c.log.Info().Str("channel", ch).Msg("joining channel")
		client.Cmd.Join(ch)
	}
	if handler != nil {
		handler()
	}
}

func (c *Client) onPrivmsg(_ *girc.Client, e girc.Event) {
	msg, ok := c.toMessage(e)
	if !ok {
		return
	}

	c.mu.RLock()
	handler := c.onMessage
	c.mu.RUnlock()

	if handler != nil {
		handler(msg)
	}
}

// toMessage converts a PRIVMSG event. Lines from the bot itself and lines
// outside a channel yield false.
func (c *Client) toMessage(e girc.Event) (domain.Message, bool) {
	if e.Source == nil || len(e.Params) == 0 {
		return domain.Message{}, false
	}
	if strings.EqualFold(e.Source.Name, c.cfg.Nick) {
		return domain.Message{}, false
	}
	if !strings.HasPrefix(e.Params[0], "#") {
		c.log.Debug().Str("nick", e.Source.Name).Msg("ignoring direct message")
		return domain.Message{}, false
	}

	text := e.Last()
	if e.IsAction() {
		text = e.StripAction()
	}

	return domain.NewMessage(e.Source.Name, e.Params[0], text, c.readerFor(e)), true
}

// readerFor builds the tag reader from the tag section recorded off the
// wire. girc's own map holds unescaped values, so a tagged line that was
// not recorded gets no reader.
func (c *Client) readerFor(e girc.Event) *tags.Reader {
	if len(e.Tags) == 0 {
		return nil
	}
	raw, ok := c.rawTags.take(e.Tags["id"])
	if !ok {
		c.log.Warn().Str("nick", e.Source.Name).Msg("raw tags not recorded, dropping tags")
		return nil
	}
	return tags.NewReader(tags.Parse(raw, c.log), c.log)
}

func (c *Client) onNotice(_ *girc.Client, e girc.Event) {
	c.log.Info().Str("notice", e.Last()).Msg("server notice")
	// Twitch reports failed commands and bans as msg-id tagged notices
	if id, ok := e.Tags.Get("msg-id"); ok && strings.HasPrefix(id, "msg_") {
		c.reportError(e.Params...)
	}
}

func (c *Client) onServerError(_ *girc.Client, e girc.Event) {
	c.reportError(e.Params...)
}

func (c *Client) onDisconnected(_ *girc.Client, _ girc.Event) {
	c.log.Warn().Msg("disconnected from chat")
}

// onAny buffers unknown commands and reports error numerics.
func (c *Client) onAny(_ *girc.Client, e girc.Event) {
	if strings.HasPrefix(e.Command, "CLIENT_") || handled[e.Command] {
		return
	}
	if isErrorNumeric(e.Command) {
		c.reportError(append([]string{e.Command}, e.Params...)...)
		return
	}
	c.unhandled.Add(e.String())
	c.log.Trace().Str("command", e.Command).Msg("unhandled line")
}

func (c *Client) reportError(parts ...string) {
	text, ok := transport.ErrorText(parts...)
	if !ok {
		c.log.Debug().Str("error", text).Msg("ignoring WHOIS error")
		return
	}

	c.mu.RLock()
	handler := c.onError
	c.mu.RUnlock()

	if handler != nil {
		handler(text)
	}
}

// isErrorNumeric reports 4xx and 5xx numeric replies.
func isErrorNumeric(cmd string) bool {
	return len(cmd) == 3 && (cmd[0] == '4' || cmd[0] == '5') &&
		cmd[1] >= '0' && cmd[1] <= '9' && cmd[2] >= '0' && cmd[2] <= '9'
}

// splitMessage breaks a long message into chunks suitable for chat.
// Each newline in the input produces a separate chunk because PRIVMSG
// does not support embedded newlines. Lines longer than maxLen are split
// on rune boundaries. Empty lines are dropped.
func splitMessage(text string, maxLen int) []string {
	var chunks []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		for len(line) > maxLen {
			cut := maxLen
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			if cut == 0 {
				cut = maxLen
			}
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if line != "" {
			chunks = append(chunks, line)
		}
	}
	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}
