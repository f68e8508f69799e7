// Package chatlog stores every chat line and answers "!lines".
package chatlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/twitchbot/internal/domain"
	"github.com/soyeahso/twitchbot/internal/feature"
	"github.com/soyeahso/twitchbot/internal/store"
)

const (
	writeTimeout = 5 * time.Second
	queueSize    = 256
)

// ErrStoreRequired is returned by Factory when the chat log is enabled
// without a database.
var ErrStoreRequired = errors.New("chat log requires a store")

// NewWorker returns the worker the recorder and "!lines" share, so a
// count sees every line recorded before it.
func NewWorker() *feature.Worker {
	return feature.NewWorker(queueSize, writeTimeout)
}

// Recorder appends each message it sees to the chat log.
type Recorder struct {
	log     *store.ChatLogStore
	worker  *feature.Worker
	respond domain.ResponseFunc
}

// NewRecorder creates an always-triggered recorder writing on w.
func NewRecorder(log *store.ChatLogStore, w *feature.Worker) *Recorder {
	return &Recorder{log: log, worker: w}
}

func (r *Recorder) Trigger() string { return "" }

func (r *Recorder) Setup(respond domain.ResponseFunc) { r.respond = respond }

func (r *Recorder) Act(msg domain.Message) {
	rec := Record(msg)
	err := r.worker.Submit(func(ctx context.Context) {
		if err := r.log.Append(ctx, rec); err != nil {
			r.respond(err, nil)
		}
	})
	if err != nil {
		r.respond(fmt.Errorf("chat log dropped line from %s: %w", msg.From, err), nil)
	}
}

// Close flushes pending writes.
func (r *Recorder) Close() error { return r.worker.Close() }

// Record converts msg to a chat log row.
func Record(msg domain.Message) store.ChatRecord {
	rec := store.ChatRecord{
		Channel: msg.Channel,
		User:    msg.From,
		Text:    msg.Text,
	}
	if t := msg.Tags; t != nil {
		rec.UserID = t.UserID()
		rec.Badges = t.Badges()
		if ts := t.SentAt(); ts > 0 {
			rec.SentAt = time.UnixMilli(ts)
		}
	}
	return rec
}

// Lines answers "!lines" with the sender's logged line count.
type Lines struct {
	log     *store.ChatLogStore
	worker  *feature.Worker
	respond domain.ResponseFunc
}

// NewLines creates the "!lines" command, counting on w.
func NewLines(log *store.ChatLogStore, w *feature.Worker) *Lines {
	return &Lines{log: log, worker: w}
}

func (l *Lines) Trigger() string { return "lines" }

func (l *Lines) Setup(respond domain.ResponseFunc) { l.respond = respond }

func (l *Lines) Act(msg domain.Message) {
	err := l.worker.Submit(func(ctx context.Context) {
		n, err := l.log.CountByUser(ctx, msg.Channel, msg.From)
		if err != nil {
			l.respond(err, nil)
			return
		}
		l.respond(nil, domain.Reply(msg, fmt.Sprintf("%s has written %d lines here.", feature.DisplayName(msg), n)))
	})
	if err != nil {
		l.respond(err, nil)
	}
}

func (l *Lines) Close() error { return l.worker.Close() }

// Factory builds the recorder and the "!lines" command when enabled.
func Factory(d feature.Deps) ([]domain.Feature, error) {
	if !d.Config.ChatLog {
		return nil, nil
	}
	if d.DB == nil {
		return nil, ErrStoreRequired
	}
	cl := store.NewChatLogStore(d.DB)
	w := NewWorker()
	return []domain.Feature{NewRecorder(cl, w), NewLines(cl, w)}, nil
}
