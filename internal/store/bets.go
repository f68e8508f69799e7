package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoOpenRound is returned when a channel has no open betting round.
	ErrNoOpenRound = errors.New("no open betting round")
	// ErrRoundOpen is returned when opening a round while one is open.
	ErrRoundOpen = errors.New("a betting round is already open")
	// ErrAlreadyWagered is returned for a second wager in the same round.
	ErrAlreadyWagered = errors.New("already placed a bet this round")
	// ErrInsufficientPoints is returned when a wager exceeds the balance.
	ErrInsufficientPoints = errors.New("not enough points")
)

// Round is a betting round.
type Round struct {
	ID        string
	Channel   string
	Question  string
	OpenedBy  string
	Status    string // "open" | "closed"
	Outcome   string
	CreatedAt time.Time
	ClosedAt  time.Time
}

// Wager is one user's bet in a round.
type Wager struct {
	User   string
	Side   string
	Amount int64
}

// Totals sums the wagers of a round.
type Totals struct {
	Yes     int64
	No      int64
	Bettors int
}

// Payout is what a winner receives, stake included.
type Payout struct {
	User   string
	Amount int64
}

// Settlement is the result of closing a round.
type Settlement struct {
	Round   Round
	Totals  Totals
	Payouts []Payout
}

// BetStore persists betting rounds and point balances.
type BetStore struct {
	db *DB
}

// NewBetStore creates a bet store using the given database.
func NewBetStore(db *DB) *BetStore {
	return &BetStore{db: db}
}

// OpenRound starts a round in channel.
func (s *BetStore) OpenRound(ctx context.Context, channel, question, openedBy string) (Round, error) {
	r := Round{
		ID:        uuid.New().String(),
		Channel:   channel,
		Question:  question,
		OpenedBy:  openedBy,
		Status:    "open",
		CreatedAt: time.Now(),
	}
	err := s.db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.openRound(ctx, tx, channel); err == nil {
			return ErrRoundOpen
		} else if !errors.Is(err, ErrNoOpenRound) {
			return err
		}
		_, err := tx.ExecContext(ctx, s.db.rebind(
			`INSERT INTO bet_rounds (id, channel, question, opened_by, status, created_at)
			 VALUES (?, ?, ?, ?, 'open', ?)`),
			r.ID, r.Channel, r.Question, r.OpenedBy, r.CreatedAt.UnixMilli(),
		)
		return err
	})
	if err != nil {
		return Round{}, err
	}
	return r, nil
}

// CurrentRound returns the open round of channel.
func (s *BetStore) CurrentRound(ctx context.Context, channel string) (Round, error) {
	return s.openRound(ctx, s.db.sql, channel)
}

func (s *BetStore) openRound(ctx context.Context, q querier, channel string) (Round, error) {
	var (
		r                   Round
		createdAt, closedAt int64
	)
	err := q.QueryRowContext(ctx, s.db.rebind(
		`SELECT id, channel, question, opened_by, status, outcome, created_at, closed_at
		 FROM bet_rounds WHERE channel = ? AND status = 'open'
		 ORDER BY created_at DESC LIMIT 1`), channel,
	).Scan(&r.ID, &r.Channel, &r.Question, &r.OpenedBy, &r.Status, &r.Outcome, &createdAt, &closedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Round{}, ErrNoOpenRound
	}
	if err != nil {
		return Round{}, fmt.Errorf("loading open round: %w", err)
	}
	r.CreatedAt = time.UnixMilli(createdAt)
	if closedAt > 0 {
		r.ClosedAt = time.UnixMilli(closedAt)
	}
	return r, nil
}

// Balance returns the points of user in channel. Users without a balance
// have starting points.
func (s *BetStore) Balance(ctx context.Context, channel, user string, starting int64) (int64, error) {
	return s.balance(ctx, s.db.sql, channel, user, starting)
}

func (s *BetStore) balance(ctx context.Context, q querier, channel, user string, starting int64) (int64, error) {
	var points int64
	err := q.QueryRowContext(ctx, s.db.rebind(
		`SELECT points FROM bet_balances WHERE channel = ? AND user_name = ?`), channel, user,
	).Scan(&points)
	if errors.Is(err, sql.ErrNoRows) {
		return starting, nil
	}
	if err != nil {
		return 0, fmt.Errorf("loading balance: %w", err)
	}
	return points, nil
}

func (s *BetStore) setBalance(ctx context.Context, q querier, channel, user string, points int64) error {
	_, err := q.ExecContext(ctx, s.db.rebind(
		`INSERT INTO bet_balances (channel, user_name, points) VALUES (?, ?, ?)
		 ON CONFLICT (channel, user_name) DO UPDATE SET points = excluded.points`),
		channel, user, points,
	)
	return err
}

// PlaceWager stakes amount points of user on side in the open round of
// channel.
func (s *BetStore) PlaceWager(ctx context.Context, channel, user, side string, amount, starting int64) (Round, error) {
	var round Round
	err := s.db.inTx(ctx, func(tx *sql.Tx) error {
		r, err := s.openRound(ctx, tx, channel)
		if err != nil {
			return err
		}
		round = r

		var existing int
		if err := tx.QueryRowContext(ctx, s.db.rebind(
			`SELECT COUNT(*) FROM bet_wagers WHERE round_id = ? AND user_name = ?`), r.ID, user,
		).Scan(&existing); err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyWagered
		}

		points, err := s.balance(ctx, tx, channel, user, starting)
		if err != nil {
			return err
		}
		if amount > points {
			return ErrInsufficientPoints
		}
		if err := s.setBalance(ctx, tx, channel, user, points-amount); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.db.rebind(
			`INSERT INTO bet_wagers (round_id, user_name, side, amount) VALUES (?, ?, ?, ?)`),
			r.ID, user, side, amount,
		)
		return err
	})
	return round, err
}

// Totals sums the wagers of a round.
func (s *BetStore) Totals(ctx context.Context, roundID string) (Totals, error) {
	wagers, err := s.wagers(ctx, s.db.sql, roundID)
	if err != nil {
		return Totals{}, err
	}
	return sumWagers(wagers), nil
}

func (s *BetStore) wagers(ctx context.Context, q querier, roundID string) ([]Wager, error) {
	rows, err := q.QueryContext(ctx, s.db.rebind(
		`SELECT user_name, side, amount FROM bet_wagers WHERE round_id = ? ORDER BY user_name`), roundID)
	if err != nil {
		return nil, fmt.Errorf("loading wagers: %w", err)
	}
	defer rows.Close()

	var out []Wager
	for rows.Next() {
		var w Wager
		if err := rows.Scan(&w.User, &w.Side, &w.Amount); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// CloseRound settles the open round of channel with outcome. Winners get
// their stake back plus a share of the losing pool proportional to their
// stake. Without winners every stake is refunded.
func (s *BetStore) CloseRound(ctx context.Context, channel, outcome string, starting int64) (Settlement, error) {
	var st Settlement
	err := s.db.inTx(ctx, func(tx *sql.Tx) error {
		r, err := s.openRound(ctx, tx, channel)
		if err != nil {
			return err
		}
		wagers, err := s.wagers(ctx, tx, r.ID)
		if err != nil {
			return err
		}

		st.Totals = sumWagers(wagers)
		st.Payouts = settle(wagers, outcome)
		for _, p := range st.Payouts {
			points, err := s.balance(ctx, tx, channel, p.User, starting)
			if err != nil {
				return err
			}
			if err := s.setBalance(ctx, tx, channel, p.User, points+p.Amount); err != nil {
				return err
			}
		}

		r.Status = "closed"
		r.Outcome = outcome
		r.ClosedAt = time.Now()
		if _, err := tx.ExecContext(ctx, s.db.rebind(
			`UPDATE bet_rounds SET status = 'closed', outcome = ?, closed_at = ? WHERE id = ?`),
			outcome, r.ClosedAt.UnixMilli(), r.ID,
		); err != nil {
			return err
		}
		st.Round = r
		return nil
	})
	return st, err
}

func sumWagers(wagers []Wager) Totals {
	var t Totals
	for _, w := range wagers {
		if w.Side == "yes" {
			t.Yes += w.Amount
		} else {
			t.No += w.Amount
		}
	}
	t.Bettors = len(wagers)
	return t
}

// settle computes payouts. Integer division rounds each share down.
func settle(wagers []Wager, outcome string) []Payout {
	var winPool, losePool int64
	for _, w := range wagers {
		if w.Side == outcome {
			winPool += w.Amount
		} else {
			losePool += w.Amount
		}
	}

	var out []Payout
	if winPool == 0 {
		for _, w := range wagers {
			out = append(out, Payout{User: w.User, Amount: w.Amount})
		}
		return out
	}
	for _, w := range wagers {
		if w.Side != outcome {
			continue
		}
		out = append(out, Payout{User: w.User, Amount: w.Amount + w.Amount*losePool/winPool})
	}
	return out
}
