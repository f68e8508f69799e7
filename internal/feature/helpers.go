package feature

import (
	"strings"

	"github.com/soyeahso/twitchbot/internal/domain"
)

// DisplayName returns the sender's display name, falling back to the login.
func DisplayName(msg domain.Message) string {
	if name := msg.Tags.DisplayName(); name != "" {
		return name
	}
	return msg.From
}

// Privileged reports whether the sender is the broadcaster or a moderator.
func Privileged(msg domain.Message) bool {
	return msg.Tags.IsBroadcaster() || msg.Tags.IsMod()
}

// Args returns the words after the trigger of a command line.
func Args(text string) []string {
	fields := strings.Fields(text)
	if len(fields) <= 1 {
		return nil
	}
	return fields[1:]
}
