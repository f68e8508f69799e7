package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ChatRecord is one logged chat line.
type ChatRecord struct {
	ID         int64
	Channel    string
	User       string
	UserID     int64
	Text       string
	Badges     []string
	SentAt     time.Time
	ReceivedAt time.Time
}

// ChatLogStore persists chat lines.
type ChatLogStore struct {
	db *DB
}

// NewChatLogStore creates a chat log store using the given database.
func NewChatLogStore(db *DB) *ChatLogStore {
	return &ChatLogStore{db: db}
}

// Append stores rec. A zero ReceivedAt is set to now.
func (s *ChatLogStore) Append(ctx context.Context, rec ChatRecord) error {
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now()
	}
	var sentAt int64
	if !rec.SentAt.IsZero() {
		sentAt = rec.SentAt.UnixMilli()
	}
	_, err := s.db.sql.ExecContext(ctx, s.db.rebind(
		`INSERT INTO chat_messages (channel, user_name, user_id, text, badges, sent_at, received_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		rec.Channel, rec.User, rec.UserID, rec.Text, strings.Join(rec.Badges, ","), sentAt, rec.ReceivedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("appending chat message: %w", err)
	}
	return nil
}

// Recent returns up to limit lines of channel, newest first.
func (s *ChatLogStore) Recent(ctx context.Context, channel string, limit int) ([]ChatRecord, error) {
	rows, err := s.db.sql.QueryContext(ctx, s.db.rebind(
		`SELECT id, channel, user_name, user_id, text, badges, sent_at, received_at
		 FROM chat_messages WHERE channel = ? ORDER BY id DESC LIMIT ?`), channel, limit)
	if err != nil {
		return nil, fmt.Errorf("querying chat log: %w", err)
	}
	defer rows.Close()

	var out []ChatRecord
	for rows.Next() {
		var (
			rec              ChatRecord
			badges           string
			sentAt, received int64
		)
		if err := rows.Scan(&rec.ID, &rec.Channel, &rec.User, &rec.UserID, &rec.Text, &badges, &sentAt, &received); err != nil {
			return nil, err
		}
		if badges != "" {
			rec.Badges = strings.Split(badges, ",")
		}
		if sentAt > 0 {
			rec.SentAt = time.UnixMilli(sentAt)
		}
		rec.ReceivedAt = time.UnixMilli(received)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountByUser returns how many lines user wrote in channel.
func (s *ChatLogStore) CountByUser(ctx context.Context, channel, user string) (int, error) {
	var n int
	err := s.db.sql.QueryRowContext(ctx, s.db.rebind(
		`SELECT COUNT(*) FROM chat_messages WHERE channel = ? AND user_name = ?`), channel, user,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting chat messages: %w", err)
	}
	return n, nil
}
