// Package hooks lets other components observe the bot's message flow and
// lifecycle without the processor knowing about them.
package hooks

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/soyeahso/twitchbot/internal/domain"
	"github.com/soyeahso/twitchbot/internal/logging"
)

// Event names for the hook system.
const (
	EventMessageReceived  = "message_received"
	EventResponseSent     = "response_sent"
	EventResponseDeferred = "response_deferred"
	EventAlertReceived    = "alert_received"
	EventBotStart         = "bot_start"
	EventBotStop          = "bot_stop"
)

// AllEvents lists all known hook event names.
var AllEvents = []string{
	EventMessageReceived,
	EventResponseSent,
	EventResponseDeferred,
	EventAlertReceived,
	EventBotStart,
	EventBotStop,
}

// Payload carries event data to hook handlers. Message is the zero value
// for lifecycle events.
type Payload struct {
	Event   string         `json:"event"`
	Message domain.Message `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Handler handles a hook event. Returning an error logs the failure but
// does not stop other handlers.
type Handler func(ctx context.Context, p Payload) error

// Manager manages hook registrations and dispatches events.
type Manager struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	log      *logging.Logger
}

type namedHandler struct {
	name    string
	handler Handler
}

// NewManager creates a hook manager.
func NewManager(log *logging.Logger) *Manager {
	return &Manager{
		handlers: make(map[string][]namedHandler),
		log:      log.Sub("hooks"),
	}
}

// On registers a handler for the given event. The name identifies the
// handler in logs. Events outside AllEvents are accepted with a warning,
// since nothing will ever emit them.
func (m *Manager) On(event, name string, handler Handler) {
	if !slices.Contains(AllEvents, event) {
		m.log.Warn().Str("event", event).Str("handler", name).Msg("unknown hook event")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = append(m.handlers[event], namedHandler{name: name, handler: handler})
	m.log.Debug().Str("event", event).Str("handler", name).Msg("hook registered")
}

func (m *Manager) snapshot(event string) []namedHandler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	handlers := make([]namedHandler, len(m.handlers[event]))
	copy(handlers, m.handlers[event])
	return handlers
}

// Emit dispatches p to the handlers of p.Event synchronously, in
// registration order.
func (m *Manager) Emit(ctx context.Context, p Payload) {
	for _, h := range m.snapshot(p.Event) {
		m.call(ctx, h, p)
	}
}

// EmitAsync dispatches p to every handler in its own goroutine and
// returns immediately.
func (m *Manager) EmitAsync(ctx context.Context, p Payload) {
	for _, h := range m.snapshot(p.Event) {
		go m.call(ctx, h, p)
	}
}

// call runs one handler. A panicking handler is logged like an error.
func (m *Manager) call(ctx context.Context, h namedHandler, p Payload) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().
				Str("event", p.Event).
				Str("handler", h.name).
				Str("panic", fmt.Sprint(r)).
				Msg("hook handler panicked")
		}
	}()
	if err := h.handler(ctx, p); err != nil {
		m.log.Warn().
			Err(err).
			Str("event", p.Event).
			Str("handler", h.name).
			Msg("hook handler error")
	}
}
