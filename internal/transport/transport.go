// Package transport holds what the chat transports share: sentinel errors,
// raw line helpers and the buffer of lines no handler recognized.
package transport

import (
	"errors"
	"strings"
)

var (
	// ErrNotConnected is returned by Send before the connection is up.
	ErrNotConnected = errors.New("transport: not connected")
	// ErrNoTarget is returned by Send without a channel.
	ErrNoTarget = errors.New("transport: no target specified")
)

// MaxMessageLen is the longest chat message Twitch accepts.
const MaxMessageLen = 500

// RawTags returns the IRCv3 tag section of a raw line, "@" included, or ""
// when the line carries no tags.
func RawTags(line string) string {
	if !strings.HasPrefix(line, "@") {
		return ""
	}
	raw, _, _ := strings.Cut(line, " ")
	return raw
}

// ErrorText joins the parts of a transport error. The second result is
// false for errors that should not reach the error callback: failed WHOIS
// lookups the IRC library issues on its own.
func ErrorText(parts ...string) (string, bool) {
	text := strings.Join(parts, " ")
	if strings.Contains(strings.ToUpper(text), "WHOIS") {
		return text, false
	}
	return text, true
}

// CommandText prefixes text with "/" when it is sent as a command.
func CommandText(text string, isCommand bool) string {
	if isCommand && !strings.HasPrefix(text, "/") {
		return "/" + text
	}
	return text
}

// ChannelName returns ch with a leading "#".
func ChannelName(ch string) string {
	if strings.HasPrefix(ch, "#") {
		return ch
	}
	return "#" + ch
}

// ChannelLogin returns ch without the leading "#", lowercased.
func ChannelLogin(ch string) string {
	return strings.ToLower(strings.TrimPrefix(ch, "#"))
}
