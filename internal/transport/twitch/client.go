// Package twitch implements domain.ChatClient with go-twitch-irc.
package twitch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	twitchirc "github.com/gempir/go-twitch-irc/v4"
	"github.com/soyeahso/twitchbot/internal/config"
	"github.com/soyeahso/twitchbot/internal/domain"
	"github.com/soyeahso/twitchbot/internal/logging"
	"github.com/soyeahso/twitchbot/internal/tags"
	"github.com/soyeahso/twitchbot/internal/transport"
)

// Client wraps go-twitch-irc.
type Client struct {
	cfg       config.TwitchConfig
	client    *twitchirc.Client
	log       *logging.Logger
	unhandled *transport.LineBuffer
	connected atomic.Bool

	mu        sync.RWMutex
	onConnect func()
	onError   func(string)
	onMessage func(domain.Message)
}

// New creates a client. token may carry the "oauth:" prefix or not.
func New(cfg config.TwitchConfig, token string, log *logging.Logger) *Client {
	if token != "" && !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}
	client := twitchirc.NewClient(cfg.Nick, token)
	if cfg.Server != "" {
		server, port := cfg.Address()
		client.IrcAddress = server + ":" + strconv.Itoa(port)
	}
	client.TLS = cfg.TLS()

	c := &Client{
		cfg:       cfg,
		client:    client,
		log:       log.Sub("twitch"),
		unhandled: transport.NewLineBuffer(cfg.UnhandledBuffer),
	}

	client.OnConnect(c.handleConnect)
	client.OnPrivateMessage(c.handlePrivateMessage)
	client.OnNoticeMessage(c.handleNotice)
	client.OnUnsetMessage(c.handleUnset)
	client.OnReconnectMessage(func(twitchirc.ReconnectMessage) {
		c.log.Warn().Msg("server requested reconnect")
	})
	return c
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
func (c *Client) Connected() bool { return c.connected.Load() }

// Connect joins channels and blocks until the connection ends or ctx is
// cancelled.
func (c *Client) Connect(ctx context.Context, channels ...string) error {
	logins := make([]string, 0, len(channels))
	for _, ch := range channels {
		logins = append(logins, transport.ChannelLogin(ch))
	}
	c.client.Join(logins...)

	c.log.Info().Str("nick", c.cfg.Nick).Strs("channels", logins).Msg("connecting to chat")

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.client.Connect()
	}()

	select {
	case <-ctx.Done():
		_ = c.client.Disconnect()
		<-errCh
		c.connected.Store(false)
		return ctx.Err()
	case err := <-errCh:
		c.connected.Store(false)
		if err != nil && !errors.Is(err, twitchirc.ErrClientDisconnected) {
			return fmt.Errorf("twitch connect: %w", err)
		}
		return nil
	}
}

// Close disconnects.
func (c *Client) Close() error {
	if !c.connected.Load() {
		return nil
	}
	c.log.Info().Msg("disconnecting from chat")
	if err := c.client.Disconnect(); err != nil && !errors.Is(err, twitchirc.ErrConnectionIsNotOpen) {
		return err
	}
	return nil
}

// Send says text in a channel.
func (c *Client) Send(to, text string, isCommand bool) error {
	if !c.connected.Load() {
		return transport.ErrNotConnected
	}
	if to == "" {
		return transport.ErrNoTarget
	}
	text = transport.CommandText(text, isCommand)
	c.client.Say(transport.ChannelLogin(to), text)
	c.log.Debug().Str("to", to).Bool("command", isCommand).Msg("sent chat message")
	return nil
}

func (c *Client) handleConnect() {
	c.connected.Store(true)
	c.log.Info().Msg("connected to chat")

	c.mu.RLock()
	handler := c.onConnect
	c.mu.RUnlock()
	if handler != nil {
		handler()
	}
}

func (c *Client) handlePrivateMessage(m twitchirc.PrivateMessage) {
	if strings.EqualFold(m.User.Name, c.cfg.Nick) {
		return
	}

	var reader *tags.Reader
	if raw := transport.RawTags(m.Raw); raw != "" {
		reader = tags.NewReader(tags.Parse(raw, c.log), c.log)
	}
	msg := domain.NewMessage(m.User.Name, transport.ChannelName(m.Channel), m.Message, reader)

	c.mu.RLock()
	handler := c.onMessage
	c.mu.RUnlock()
	if handler != nil {
		handler(msg)
	}
}

func (c *Client) handleNotice(m twitchirc.NoticeMessage) {
	c.log.Info().Str("channel", m.Channel).Str("msgId", m.MsgID).Str("notice", m.Message).Msg("server notice")
	if !strings.HasPrefix(m.MsgID, "msg_") {
		return
	}
	text, ok := transport.ErrorText(m.MsgID, m.Message)
	if !ok {
		return
	}

	c.mu.RLock()
	handler := c.onError
	c.mu.RUnlock()
	if handler != nil {
		handler(text)
	}
}

func (c *Client) handleUnset(m twitchirc.RawMessage) {
	c.unhandled.Add(m.Raw)
	c.log.Trace().Str("command", m.RawType).Msg("unhandled line")
}
