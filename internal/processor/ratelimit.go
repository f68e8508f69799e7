package processor

import (
	"context"
	"strings"
	"time"

	"github.com/soyeahso/twitchbot/internal/domain"
	"github.com/soyeahso/twitchbot/internal/hooks"
	"github.com/soyeahso/twitchbot/internal/telemetry"
)

// ProcessResponse is the callback handed to features. A non-nil err is
// logged; resp is sent now if the window has room and queued otherwise.
// Responses without text or channel are dropped.
func (p *Processor) ProcessResponse(err error, resp *domain.FeatureResponse) {
	if err != nil {
		p.log.Error().Err(err).Msg("feature reported an error")
		p.metrics.RecordFeatureError()
	}
	if resp == nil {
		return
	}
	if !resp.Message.Sendable() {
		p.metrics.RecordResponse(telemetry.OutcomeDropped)
		return
	}

	p.mu.Lock()
	if p.count+1 <= p.cfg.ResponseLimit {
		p.count++
		p.mu.Unlock()
		p.send(resp)
		return
	}
	queued := p.deferLocked(resp)
	depth := len(p.delayed)
	p.mu.Unlock()

	p.metrics.SetQueueDepth(depth)
	if queued {
		p.log.Debug().Str("channel", resp.Message.Channel).Int("queued", depth).Msg("response deferred")
		p.metrics.RecordResponse(telemetry.OutcomeDeferred)
		if p.hooks != nil {
			p.hooks.Emit(context.Background(), hooks.Payload{Event: hooks.EventResponseDeferred, Message: resp.Message})
		}
	}
}

// deferLocked appends resp unless an equal response is already waiting.
func (p *Processor) deferLocked(resp *domain.FeatureResponse) bool {
	for _, d := range p.delayed {
		if d.Same(resp) {
			return false
		}
	}
	p.delayed = append(p.delayed, resp)
	return true
}

// Pending returns the number of deferred responses.
func (p *Processor) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.delayed)
}

// drain sends up to MaxPerDelay deferred responses while the window has
// room.
func (p *Processor) drain() {
	p.mu.Lock()
	if len(p.delayed) > p.cfg.ResponseLimit {
		p.log.Warn().
			Int("queued", len(p.delayed)).
			Int("limit", p.cfg.ResponseLimit).
			Msg("deferred queue is longer than the response limit")
	}
	var batch []*domain.FeatureResponse
	for len(p.delayed) > 0 && len(batch) < p.cfg.MaxPerDelay && p.count+1 <= p.cfg.ResponseLimit {
		batch = append(batch, p.delayed[0])
		p.delayed[0] = nil
		p.delayed = p.delayed[1:]
		p.count++
	}
	depth := len(p.delayed)
	p.mu.Unlock()

	if len(batch) > 0 {
		p.metrics.SetQueueDepth(depth)
	}
	for _, resp := range batch {
		p.send(resp)
	}
}

// resetWindow starts a new rate-limit window.
func (p *Processor) resetWindow() {
	p.mu.Lock()
	p.count = 0
	p.mu.Unlock()
}

func (p *Processor) send(resp *domain.FeatureResponse) {
	msg := resp.Message
	isCommand := strings.HasPrefix(msg.Text, "/")
	if err := p.client.Send(msg.Channel, msg.Text, isCommand); err != nil {
		p.log.Error().Err(err).Str("channel", msg.Channel).Msg("failed to send response")
		p.metrics.RecordResponse(telemetry.OutcomeFailed)
		return
	}
	p.metrics.RecordResponse(telemetry.OutcomeSent)
	if p.hooks != nil {
		p.hooks.Emit(context.Background(), hooks.Payload{
			Event:   hooks.EventResponseSent,
			Message: msg,
			Data:    map[string]any{"command": isCommand},
		})
	}
}

// Connect starts the window and drain timers and connects the client. It
// blocks until the connection ends or ctx is cancelled.
func (p *Processor) Connect(ctx context.Context, channels ...string) error {
	p.startTimers()
	return p.client.Connect(ctx, channels...)
}

// Disconnect stops the timers and closes the client. Deferred responses
// are abandoned.
func (p *Processor) Disconnect() error {
	p.stopTimers()
	p.mu.Lock()
	if n := len(p.delayed); n > 0 {
		p.log.Info().Int("dropped", n).Msg("discarding deferred responses")
	}
	p.delayed = nil
	p.mu.Unlock()
	p.metrics.SetQueueDepth(0)
	return p.client.Close()
}

func (p *Processor) startTimers() {
	p.timerMu.Lock()
	defer p.timerMu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.wg.Add(2)
	go p.every(ctx, p.cfg.ResponseInterval, p.resetWindow)
	go p.every(ctx, p.cfg.DelayInterval, p.drain)
}

func (p *Processor) stopTimers() {
	p.timerMu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.timerMu.Unlock()

	if cancel != nil {
		cancel()
		p.wg.Wait()
	}
}

func (p *Processor) every(ctx context.Context, d time.Duration, fn func()) {
	defer p.wg.Done()
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
