// Package domain holds the types shared by the chat transports, the message
// processor and the features.
package domain

import "github.com/soyeahso/twitchbot/internal/tags"

// Message is a single chat line. It is immutable once constructed; Tags is
// nil for lines that arrived without IRCv3 tags.
type Message struct {
	From    string       `json:"from"`
	Channel string       `json:"channel"`
	Text    string       `json:"text"`
	Tags    *tags.Reader `json:"-"`
}

// NewMessage builds a Message.
func NewMessage(from, channel, text string, t *tags.Reader) Message {
	return Message{From: from, Channel: channel, Text: text, Tags: t}
}

// Equal compares channel, sender and text by value and tags by identity.
func (m Message) Equal(o Message) bool {
	return m == o
}

// Sendable reports whether the message can be delivered: both text and
// channel must be non-empty.
func (m Message) Sendable() bool {
	return m.Text != "" && m.Channel != ""
}

// FeatureResponse is an outbound message produced by a Feature. It is sent to
// Message.Channel.
type FeatureResponse struct {
	Message Message
}

// NewResponse builds a response addressed to channel.
func NewResponse(channel, text string) *FeatureResponse {
	return &FeatureResponse{Message: Message{Channel: channel, Text: text}}
}

// Reply builds a response to the channel msg arrived on.
func Reply(msg Message, text string) *FeatureResponse {
	return NewResponse(msg.Channel, text)
}

// Same reports whether two responses are the same pointer or carry equal
// messages.
func (r *FeatureResponse) Same(o *FeatureResponse) bool {
	if r == o {
		return true
	}
	if r == nil || o == nil {
		return false
	}
	return r.Message.Equal(o.Message)
}
