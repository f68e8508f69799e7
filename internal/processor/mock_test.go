package processor

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/soyeahso/twitchbot/internal/domain"
	"github.com/soyeahso/twitchbot/internal/logging"
	"github.com/stretchr/testify/mock"
)

// mockClient is a ChatClient double recording the handlers it receives.
type mockClient struct {
	mock.Mock

	mu        sync.Mutex
	onMessage func(domain.Message)
	onError   func(string)
}

func newMockClient() *mockClient {
	c := &mockClient{}
	c.On("OnMessage", mock.Anything).Return()
	c.On("OnError", mock.Anything).Return()
	return c
}

func (c *mockClient) Connect(ctx context.Context, channels ...string) error {
	return c.Called(ctx, channels).Error(0)
}

func (c *mockClient) OnConnect(handler func()) { c.Called(handler) }

func (c *mockClient) OnError(handler func(string)) {
	c.mu.Lock()
	c.onError = handler
	c.mu.Unlock()
	c.Called(handler)
}

func (c *mockClient) OnMessage(handler func(domain.Message)) {
	c.mu.Lock()
	c.onMessage = handler
	c.mu.Unlock()
	c.Called(handler)
}

func (c *mockClient) Send(to, text string, isCommand bool) error {
	return c.Called(to, text, isCommand).Error(0)
}

func (c *mockClient) Close() error { return c.Called().Error(0) }

// deliver simulates an inbound chat line.
func (c *mockClient) deliver(msg domain.Message) {
	c.mu.Lock()
	h := c.onMessage
	c.mu.Unlock()
	h(msg)
}

// fakeFeature records the messages it sees.
type fakeFeature struct {
	trigger string
	setups  int
	respond domain.ResponseFunc
	seen    []domain.Message
	onAct   func(msg domain.Message)
}

func (f *fakeFeature) Trigger() string { return f.trigger }

func (f *fakeFeature) Setup(respond domain.ResponseFunc) {
	f.setups++
	f.respond = respond
}

func (f *fakeFeature) Act(msg domain.Message) {
	f.seen = append(f.seen, msg)
	if f.onAct != nil {
		f.onAct(msg)
	}
}

func captureLogger() (*logging.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logging.New(&buf, "debug"), &buf
}

func countLevel(buf *bytes.Buffer, level string) int {
	return strings.Count(buf.String(), `"level":"`+level+`"`)
}

func testConfig(limit, perDelay int) Config {
	return Config{
		ResponseInterval: time.Minute,
		ResponseLimit:    limit,
		DelayInterval:    time.Minute,
		MaxPerDelay:      perDelay,
	}
}
