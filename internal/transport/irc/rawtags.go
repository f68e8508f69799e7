package irc

import (
	"bytes"
	"crypto/tls"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/soyeahso/twitchbot/internal/transport"
)

const (
	dialTimeout = 10 * time.Second
	// maxLineBytes bounds a partial line held between reads. Twitch caps
	// tags at 8191 bytes and the message body at 512.
	maxLineBytes = 16 * 1024
	rawTagLimit  = 256
)

// rawTagLog remembers the tag section of recent PRIVMSG lines by message
// id. girc stores tag values already unescaped, so the wire form has to
// be captured before girc decodes the line.
type rawTagLog struct {
	mu    sync.Mutex
	byID  map[string]string
	order []string
	limit int
}

func newRawTagLog(limit int) *rawTagLog {
	if limit <= 0 {
		limit = rawTagLimit
	}
	return &rawTagLog{byID: make(map[string]string), limit: limit}
}

// record keeps the tag section of line when it is a tagged PRIVMSG with an
// id tag. Other lines are ignored.
func (l *rawTagLog) record(line string) {
	raw := transport.RawTags(line)
	if raw == "" || !isPrivmsg(line[len(raw):]) {
		return
	}
	id := messageID(raw)
	if id == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.byID[id]; !ok {
		l.order = append(l.order, id)
	}
	l.byID[id] = raw
	for len(l.order) > l.limit {
		delete(l.byID, l.order[0])
		l.order = l.order[1:]
	}
}

// take returns and forgets the tag section recorded for id.
func (l *rawTagLog) take(id string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	raw, ok := l.byID[id]
	if !ok {
		return "", false
	}
	delete(l.byID, id)
	for i, v := range l.order {
		if v == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return raw, true
}

// isPrivmsg reports whether rest, the line after its tag section, is a
// PRIVMSG: an optional ":prefix" followed by the command.
func isPrivmsg(rest string) bool {
	fields := strings.Fields(rest)
	if len(fields) > 0 && strings.HasPrefix(fields[0], ":") {
		fields = fields[1:]
	}
	return len(fields) > 0 && strings.EqualFold(fields[0], "PRIVMSG")
}

// messageID finds the id tag in a raw tag section. Twitch message ids are
// UUIDs, so the raw and decoded forms are the same.
func messageID(raw string) string {
	var id string
	for _, seg := range strings.Split(strings.TrimPrefix(raw, "@"), ";") {
		if v, ok := strings.CutPrefix(seg, "id="); ok {
			id = v
		}
	}
	return id
}

// recordingConn passes reads through to girc and records every complete
// line first, so a line is logged before girc can dispatch its event.
type recordingConn struct {
	net.Conn
	log     *rawTagLog
	partial []byte
}

func (c *recordingConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if n > 0 {
		c.scan(p[:n])
	}
	return n, err
}

func (c *recordingConn) scan(b []byte) {
	c.partial = append(c.partial, b...)
	for {
		i := bytes.IndexByte(c.partial, '\n')
		if i < 0 {
			break
		}
		c.log.record(strings.TrimRight(string(c.partial[:i]), "\r"))
		c.partial = c.partial[i+1:]
	}
	if len(c.partial) > maxLineBytes {
		c.partial = nil
	}
}

// recordingDialer is a girc.Dialer. It does the TLS handshake itself so
// the recorder sees plaintext lines.
type recordingDialer struct {
	tls *tls.Config
	log *rawTagLog
}

func (d recordingDialer) Dial(network, address string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: dialTimeout}
	var (
		conn net.Conn
		err  error
	)
	if d.tls != nil {
		conn, err = tls.DialWithDialer(dialer, network, address, d.tls)
	} else {
		conn, err = dialer.Dial(network, address)
	}
	if err != nil {
		return nil, err
	}
	return &recordingConn{Conn: conn, log: d.log}, nil
}
