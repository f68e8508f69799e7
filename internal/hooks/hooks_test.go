package hooks

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soyeahso/twitchbot/internal/domain"
	"github.com/soyeahso/twitchbot/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *Manager {
	return NewManager(logging.New(nil, "silent"))
}

func TestManager_On_And_Emit(t *testing.T) {
	m := testManager()

	var called bool
	m.On(EventBotStart, "test", func(_ context.Context, p Payload) error {
		called = true
		assert.Equal(t, EventBotStart, p.Event)
		return nil
	})

	m.Emit(context.Background(), Payload{Event: EventBotStart})
	assert.True(t, called)
}

func TestManager_Emit_MultipleHandlers(t *testing.T) {
	m := testManager()

	var order []string
	m.On(EventMessageReceived, "first", func(_ context.Context, _ Payload) error {
		order = append(order, "first")
		return nil
	})
	m.On(EventMessageReceived, "second", func(_ context.Context, _ Payload) error {
		order = append(order, "second")
		return nil
	})

	m.Emit(context.Background(), Payload{Event: EventMessageReceived})
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestManager_Emit_WithMessage(t *testing.T) {
	m := testManager()

	var got Payload
	m.On(EventResponseSent, "test", func(_ context.Context, p Payload) error {
		got = p
		return nil
	})

	msg := domain.NewMessage("bot", "#streamer", "hello", nil)
	m.Emit(context.Background(), Payload{
		Event:   EventResponseSent,
		Message: msg,
		Data:    map[string]any{"command": false},
	})

	assert.Equal(t, "#streamer", got.Message.Channel)
	assert.Equal(t, "hello", got.Message.Text)
	assert.Equal(t, false, got.Data["command"])
}

func TestManager_Emit_HandlerError(t *testing.T) {
	m := testManager()

	var secondCalled bool
	m.On(EventBotStart, "failing", func(_ context.Context, _ Payload) error {
		return errors.New("handler broke")
	})
	m.On(EventBotStart, "second", func(_ context.Context, _ Payload) error {
		secondCalled = true
		return nil
	})

	m.Emit(context.Background(), Payload{Event: EventBotStart})
	assert.True(t, secondCalled)
}

func TestManager_Emit_HandlerPanic(t *testing.T) {
	m := testManager()

	var secondCalled bool
	m.On(EventResponseDeferred, "panics", func(_ context.Context, _ Payload) error {
		panic("boom")
	})
	m.On(EventResponseDeferred, "second", func(_ context.Context, _ Payload) error {
		secondCalled = true
		return nil
	})

	assert.NotPanics(t, func() {
		m.Emit(context.Background(), Payload{Event: EventResponseDeferred})
	})
	assert.True(t, secondCalled)
}

func TestManager_Emit_NoHandlers(t *testing.T) {
	m := testManager()
	assert.NotPanics(t, func() {
		m.Emit(context.Background(), Payload{Event: EventBotStop})
	})
}

func TestManager_EmitAsync(t *testing.T) {
	m := testManager()

	var count atomic.Int32
	var wg sync.WaitGroup
	wg.Add(2)

	for _, name := range []string{"async1", "async2"} {
		m.On(EventMessageReceived, name, func(_ context.Context, _ Payload) error {
			count.Add(1)
			wg.Done()
			return nil
		})
	}

	m.EmitAsync(context.Background(), Payload{Event: EventMessageReceived})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async handlers did not complete in time")
	}

	assert.Equal(t, int32(2), count.Load())
}

func TestAllEvents(t *testing.T) {
	require.Len(t, AllEvents, 6)
	assert.Contains(t, AllEvents, EventResponseSent)
	assert.Contains(t, AllEvents, EventResponseDeferred)
}

func TestManager_On_UnknownEvent(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager(logging.New(&buf, "warn"))

	m.On(EventBotStart, "known", func(_ context.Context, _ Payload) error { return nil })
	assert.Empty(t, buf.String())

	m.On("gateway_start", "stale", func(_ context.Context, _ Payload) error { return nil })
	assert.Contains(t, buf.String(), "unknown hook event")
	assert.Contains(t, buf.String(), "gateway_start")
}
