package domain

// ResponseFunc is handed to a Feature at setup. A Feature calls it whenever it
// has something to say, synchronously from Act or later from its own
// goroutines. A non-nil err is logged by the receiver; a nil resp is ignored.
type ResponseFunc func(err error, resp *FeatureResponse)

// Feature is one bot capability. Features are compared by identity, so
// implementations must be pointer types.
type Feature interface {
	// Trigger returns the command word (without "!") this feature reacts to.
	// An empty trigger means the feature sees every message.
	Trigger() string

	// Setup is called once at registration with the response callback.
	Setup(respond ResponseFunc)

	// Act handles a matching message. It must not block on I/O; long work
	// belongs in a goroutine that reports back through the callback.
	Act(msg Message)
}
