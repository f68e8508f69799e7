// Package overlay pushes bot activity to browser sources (OBS overlays)
// over websockets.
package overlay

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/soyeahso/twitchbot/internal/hooks"
	"github.com/soyeahso/twitchbot/internal/logging"
	"github.com/soyeahso/twitchbot/internal/transport"
	"github.com/soyeahso/twitchbot/internal/version"
)

const (
	hookName     = "overlay"
	maxReadBytes = 4096
)

// Hub accepts overlay connections and fans events out to them.
type Hub struct {
	clients  *clientSet
	upgrader websocket.Upgrader
	token    string
	seq      atomic.Int64
	log      *logging.Logger
}

// NewHub creates a hub. A non-empty token must be passed as the "token"
// query parameter. allowedOrigins lists the browser origins accepted in
// addition to requests without an Origin; "*" allows any.
func NewHub(token string, allowedOrigins []string, log *logging.Logger) *Hub {
	return &Hub{
		clients: newClientSet(),
		token:   token,
		log:     log.Sub("overlay"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

// checkOrigin allows requests without an Origin header (OBS, curl) and
// configured origins.
func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}

// ServeHTTP upgrades the request and holds the connection until either
// side closes it. "?channel=name" limits chat frames to one channel.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if h.token != "" && !safeEqual(q.Get("token"), h.token) {
		h.log.Warn().Str("remote", r.RemoteAddr).Msg("overlay token mismatch")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	var channel string
	if ch := strings.TrimSpace(q.Get("channel")); ch != "" {
		channel = transport.ChannelName(strings.ToLower(ch))
	}
	c := newClient(conn, channel)
	hello, err := NewEvent(EventHello, Hello{ConnID: c.id, Channel: channel, Version: version.Version}, 0)
	if err != nil {
		conn.Close()
		return
	}
	c.enqueue(hello)

	written := make(chan struct{})
	go func() {
		defer close(written)
		c.writeLoop(h.log)
	}()

	h.clients.add(c)
	h.log.Info().Str("connId", c.id).Str("channel", channel).Str("remote", r.RemoteAddr).Msg("overlay connected")

	c.readLoop(h.log)

	h.clients.remove(c.id)
	c.close()
	<-written
	h.log.Info().Str("connId", c.id).Msg("overlay disconnected")
}

// Broadcast sends event to every client that wants channel. An empty
// channel reaches all clients. Clients whose queue is full are dropped.
func (h *Hub) Broadcast(event, channel string, payload any) {
	f, err := NewEvent(event, payload, h.seq.Add(1))
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("encoding overlay event")
		return
	}
	for _, c := range h.clients.matching(channel) {
		if !c.enqueue(f) {
			h.log.Warn().Str("connId", c.id).Msg("overlay too slow, disconnecting")
			c.close()
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int { return h.clients.count() }

// Attach subscribes the hub to sent responses and alerts. Slash commands
// are not shown.
func (h *Hub) Attach(m *hooks.Manager) {
	m.On(hooks.EventResponseSent, hookName, func(ctx context.Context, p hooks.Payload) error {
		if strings.HasPrefix(p.Message.Text, "/") {
			return nil
		}
		h.Broadcast(EventChat, p.Message.Channel, Chat{
			Channel: p.Message.Channel,
			Text:    p.Message.Text,
			SentAt:  time.Now().UnixMilli(),
		})
		return nil
	})
	m.On(hooks.EventAlertReceived, hookName, func(ctx context.Context, p hooks.Payload) error {
		channel := dataString(p.Data, "channel")
		h.Broadcast(EventAlert, channel, Alert{
			Channel: channel,
			From:    dataString(p.Data, "from"),
			Subject: dataString(p.Data, "subject"),
			Text:    dataString(p.Data, "text"),
		})
		return nil
	})
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.clients.closeAll()
}

func dataString(data map[string]any, key string) string {
	v, ok := data[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func safeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
