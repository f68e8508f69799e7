package overlay

import "encoding/json"

// FrameTypeEvent is the only frame type the overlay sends.
const FrameTypeEvent = "event"

// Event names pushed to overlay clients.
const (
	EventHello = "hello"
	EventChat  = "chat"
	EventAlert = "alert"
)

// Frame is the envelope of every websocket message.
type Frame struct {
	Type    string          `json:"type"`
	Event   string          `json:"event"`
	Seq     int64           `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Hello is the first frame a client receives.
type Hello struct {
	ConnID  string `json:"connId"`
	Channel string `json:"channel,omitempty"` // set when the client subscribed to one channel
	Version string `json:"version"`
}

// Chat is a line the bot sent to a channel.
type Chat struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
	SentAt  int64  `json:"sentAt"` // unix ms
}

// Alert is an announced mail.
type Alert struct {
	Channel string `json:"channel,omitempty"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// NewEvent creates an event frame.
func NewEvent(event string, payload any, seq int64) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Type:    FrameTypeEvent,
		Event:   event,
		Payload: raw,
		Seq:     seq,
	}, nil
}
