package overlay

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/soyeahso/twitchbot/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 32
)

// client is one connected browser source. Frames are queued on send and
// written by writeLoop, so a stalled overlay never blocks a broadcast.
type client struct {
	id      string
	channel string // "#name", or "" for every channel
	conn    *websocket.Conn
	send    chan Frame

	once sync.Once
	done chan struct{}
}

func newClient(conn *websocket.Conn, channel string) *client {
	return &client{
		id:      uuid.NewString(),
		channel: channel,
		conn:    conn,
		send:    make(chan Frame, sendBuffer),
		done:    make(chan struct{}),
	}
}

// wants reports whether frames for channel go to this client. Frames
// without a channel go to everyone.
func (c *client) wants(channel string) bool {
	return c.channel == "" || channel == "" || c.channel == channel
}

// enqueue queues f without blocking and reports false when the client is
// closed or its buffer is full.
func (c *client) enqueue(f Frame) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- f:
		return true
	default:
		return false
	}
}

// writeLoop owns all writes to the socket until the client closes.
func (c *client) writeLoop(log *logging.Logger) {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.close()
		c.conn.Close()
	}()
	for {
		select {
		case f := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(f); err != nil {
				log.Debug().Err(err).Str("connId", c.id).Msg("overlay write failed")
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}

// readLoop discards inbound frames and keeps the read deadline alive on
// pongs. It returns when the peer goes away.
func (c *client) readLoop(log *logging.Logger) {
	c.conn.SetReadLimit(maxReadBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Str("connId", c.id).Msg("overlay closed connection")
			} else {
				log.Debug().Err(err).Str("connId", c.id).Msg("overlay read ended")
			}
			return
		}
	}
}

// close makes writeLoop send a close frame and shut the socket, which in
// turn ends readLoop.
func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// clientSet tracks connected clients by id.
type clientSet struct {
	mu      sync.RWMutex
	clients map[string]*client
}

func newClientSet() *clientSet {
	return &clientSet{clients: make(map[string]*client)}
}

func (s *clientSet) add(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.id] = c
}

func (s *clientSet) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, id)
}

func (s *clientSet) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// matching returns the clients that want frames for channel.
func (s *clientSet) matching(channel string) []*client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		if c.wants(channel) {
			out = append(out, c)
		}
	}
	return out
}

func (s *clientSet) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.clients {
		c.close()
		delete(s.clients, id)
	}
}
