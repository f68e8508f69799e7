package domain

import "context"

// ChatClient is a connection to the chat service.
type ChatClient interface {
	// Connect opens the connection, joins the channels and blocks until the
	// connection ends or ctx is cancelled.
	Connect(ctx context.Context, channels ...string) error

	// OnConnect registers a callback fired after the connection is ready.
	OnConnect(handler func())

	// OnError registers a callback receiving transport errors as text.
	OnError(handler func(msg string))

	// OnMessage registers a callback receiving normalized chat lines.
	OnMessage(handler func(msg Message))

	// Send delivers text to a channel. With isCommand the text is sent as a
	// slash command.
	Send(to, text string, isCommand bool) error

	// Close disconnects.
	Close() error
}
