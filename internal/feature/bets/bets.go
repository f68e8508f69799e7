// Package bets runs yes/no betting rounds on channel points.
package bets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/soyeahso/twitchbot/internal/domain"
	"github.com/soyeahso/twitchbot/internal/feature"
	"github.com/soyeahso/twitchbot/internal/logging"
	"github.com/soyeahso/twitchbot/internal/store"
)

// StartingPoints is the balance of a user who never bet.
const StartingPoints int64 = 1000

const (
	maxWinnersListed = 5
	opTimeout        = 5 * time.Second
	queueSize        = 64
)

var (
	ErrNoOpenRound = store.ErrNoOpenRound
	ErrRoundOpen   = store.ErrRoundOpen
)

// ErrStoreRequired is returned by Factory when bets are enabled without a
// database.
var ErrStoreRequired = errors.New("bets require a store")

// Feature handles "!bet":
//
//	!bet                    round status and own balance
//	!bet points             own balance
//	!bet open <question>    start a round (mods)
//	!bet yes|no <amount>    place a wager
//	!bet close yes|no       settle the round (mods)
//
// Commands run in order on the feature's own worker and answer through the
// response callback.
type Feature struct {
	bets      *store.BetStore
	maxAmount int64
	worker    *feature.Worker
	log       *logging.Logger
	respond   domain.ResponseFunc
}

// New creates the feature. maxAmount <= 0 means no cap.
func New(bets *store.BetStore, maxAmount int64, log *logging.Logger) *Feature {
	return &Feature{
		bets:      bets,
		maxAmount: maxAmount,
		worker:    feature.NewWorker(queueSize, opTimeout),
		log:       log,
	}
}

func (f *Feature) Trigger() string { return "bet" }

func (f *Feature) Setup(respond domain.ResponseFunc) { f.respond = respond }

func (f *Feature) Act(msg domain.Message) {
	args := feature.Args(msg.Text)
	err := f.worker.Submit(func(ctx context.Context) {
		text, err := f.handle(ctx, msg, args)
		if err != nil {
			f.respond(err, nil)
			return
		}
		if text != "" {
			f.respond(nil, domain.Reply(msg, text))
		}
	})
	if err != nil {
		f.log.Warn().Err(err).Str("user", msg.From).Msg("bet command dropped")
		f.respond(err, nil)
	}
}

// Close waits for queued commands to finish.
func (f *Feature) Close() error { return f.worker.Close() }

// handle returns the reply for one command. User mistakes are replies,
// not errors.
func (f *Feature) handle(ctx context.Context, msg domain.Message, args []string) (string, error) {
	if len(args) == 0 {
		return f.status(ctx, msg)
	}

	switch sub := strings.ToLower(args[0]); sub {
	case "points", "balance":
		points, err := f.bets.Balance(ctx, msg.Channel, msg.From, StartingPoints)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s, you have %d points.", feature.DisplayName(msg), points), nil
	case "open":
		if !feature.Privileged(msg) {
			return "", nil
		}
		return f.open(ctx, msg, strings.Join(args[1:], " "))
	case "close":
		if !feature.Privileged(msg) {
			return "", nil
		}
		if len(args) < 2 || !isSide(args[1]) {
			return "Usage: !bet close yes|no", nil
		}
		return f.close(ctx, msg, strings.ToLower(args[1]))
	case "yes", "no":
		if len(args) < 2 {
			return "Usage: !bet yes|no <amount>", nil
		}
		return f.wager(ctx, msg, sub, args[1])
	default:
		return "Usage: !bet [points | yes|no <amount> | open <question> | close yes|no]", nil
	}
}

func (f *Feature) status(ctx context.Context, msg domain.Message) (string, error) {
	points, err := f.bets.Balance(ctx, msg.Channel, msg.From, StartingPoints)
	if err != nil {
		return "", err
	}
	round, err := f.bets.CurrentRound(ctx, msg.Channel)
	if errors.Is(err, ErrNoOpenRound) {
		return fmt.Sprintf("No bet is open. You have %d points.", points), nil
	}
	if err != nil {
		return "", err
	}
	t, err := f.bets.Totals(ctx, round.ID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Bet: %s | yes %d, no %d (%d bettors). You have %d points.",
		round.Question, t.Yes, t.No, t.Bettors, points), nil
}

func (f *Feature) open(ctx context.Context, msg domain.Message, question string) (string, error) {
	if question == "" {
		return "Usage: !bet open <question>", nil
	}
	_, err := f.bets.OpenRound(ctx, msg.Channel, question, msg.From)
	if errors.Is(err, ErrRoundOpen) {
		return "A bet is already open. Close it first.", nil
	}
	if err != nil {
		return "", err
	}
	f.log.Info().Str("channel", msg.Channel).Str("question", question).Msg("bet opened")
	return fmt.Sprintf("Bet open: %s Type !bet yes|no <amount> to join.", question), nil
}

func (f *Feature) close(ctx context.Context, msg domain.Message, outcome string) (string, error) {
	st, err := f.bets.CloseRound(ctx, msg.Channel, outcome, StartingPoints)
	if errors.Is(err, ErrNoOpenRound) {
		return "No bet is open.", nil
	}
	if err != nil {
		return "", err
	}
	f.log.Info().
		Str("channel", msg.Channel).
		Str("outcome", outcome).
		Int("bettors", st.Totals.Bettors).
		Msg("bet closed")
	return settlementText(st, outcome), nil
}

func (f *Feature) wager(ctx context.Context, msg domain.Message, side, rawAmount string) (string, error) {
	name := feature.DisplayName(msg)
	amount, err := strconv.ParseInt(rawAmount, 10, 64)
	if err != nil || amount <= 0 {
		return fmt.Sprintf("%s, the amount must be a positive number.", name), nil
	}
	if f.maxAmount > 0 && amount > f.maxAmount {
		return fmt.Sprintf("%s, the maximum bet is %d points.", name, f.maxAmount), nil
	}

	_, err = f.bets.PlaceWager(ctx, msg.Channel, msg.From, side, amount, StartingPoints)
	switch {
	case errors.Is(err, ErrNoOpenRound):
		return "No bet is open.", nil
	case errors.Is(err, store.ErrAlreadyWagered):
		return fmt.Sprintf("%s, you already bet this round.", name), nil
	case errors.Is(err, store.ErrInsufficientPoints):
		points, berr := f.bets.Balance(ctx, msg.Channel, msg.From, StartingPoints)
		if berr != nil {
			return "", berr
		}
		return fmt.Sprintf("%s, you only have %d points.", name, points), nil
	case err != nil:
		return "", err
	}
	return fmt.Sprintf("%s bet %d on %s.", name, amount, side), nil
}

func settlementText(st store.Settlement, outcome string) string {
	winPool := st.Totals.No
	if outcome == "yes" {
		winPool = st.Totals.Yes
	}
	head := fmt.Sprintf("Bet closed: %s wins.", outcome)
	if st.Totals.Bettors == 0 {
		return head + " Nobody bet."
	}
	if winPool == 0 {
		return head + " No winners, all stakes refunded."
	}

	payouts := append([]store.Payout(nil), st.Payouts...)
	sort.SliceStable(payouts, func(i, j int) bool { return payouts[i].Amount > payouts[j].Amount })
	parts := make([]string, 0, maxWinnersListed)
	for i, p := range payouts {
		if i == maxWinnersListed {
			parts = append(parts, fmt.Sprintf("and %d more", len(payouts)-i))
			break
		}
		parts = append(parts, fmt.Sprintf("%s +%d", p.User, p.Amount))
	}
	return head + " Winners: " + strings.Join(parts, ", ")
}

func isSide(s string) bool {
	s = strings.ToLower(s)
	return s == "yes" || s == "no"
}

// Factory builds the feature when bets are enabled.
func Factory(d feature.Deps) ([]domain.Feature, error) {
	c := d.Config.Bets
	if c == nil || !c.Enabled {
		return nil, nil
	}
	if d.DB == nil {
		return nil, ErrStoreRequired
	}
	return []domain.Feature{New(store.NewBetStore(d.DB), c.MaxAmount, d.Log)}, nil
}
