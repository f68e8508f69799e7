package bets

import (
	"context"
	"testing"
	"time"

	"github.com/soyeahso/twitchbot/internal/config"
	"github.com/soyeahso/twitchbot/internal/domain"
	"github.com/soyeahso/twitchbot/internal/feature"
	"github.com/soyeahso/twitchbot/internal/logging"
	"github.com/soyeahso/twitchbot/internal/store"
	"github.com/soyeahso/twitchbot/internal/tags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(store.DriverSQLite, ":memory:", logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type harness struct {
	f      *Feature
	texts  []string
	errors []error
}

func newHarness(t *testing.T, maxAmount int64) *harness {
	h := &harness{f: New(store.NewBetStore(testDB(t)), maxAmount, logging.Nop())}
	t.Cleanup(func() { h.f.Close() })
	h.f.Setup(func(err error, resp *domain.FeatureResponse) {
		if err != nil {
			h.errors = append(h.errors, err)
		}
		if resp != nil {
			h.texts = append(h.texts, resp.Message.Text)
		}
	})
	return h
}

// say and mod wait for the worker, so the reply (if any) is recorded.
func (h *harness) say(from, text string) string {
	h.f.Act(domain.NewMessage(from, "#streamer", text, nil))
	h.f.worker.Sync()
	return h.last()
}

func (h *harness) mod(text string) string {
	r := tags.NewReader(tags.Parse("@badges=moderator/1", logging.Nop()), logging.Nop())
	h.f.Act(domain.NewMessage("mod", "#streamer", text, r))
	h.f.worker.Sync()
	return h.last()
}

func (h *harness) last() string {
	if len(h.texts) == 0 {
		return ""
	}
	return h.texts[len(h.texts)-1]
}

func TestFullRound(t *testing.T) {
	h := newHarness(t, 0)

	assert.Equal(t, "No bet is open. You have 1000 points.", h.say("alice", "!bet"))
	assert.Equal(t, "Bet open: Will we win? Type !bet yes|no <amount> to join.", h.mod("!bet open Will we win?"))

	assert.Equal(t, "alice bet 100 on yes.", h.say("alice", "!bet yes 100"))
	assert.Equal(t, "bob bet 300 on no.", h.say("bob", "!bet NO 300"))
	assert.Equal(t, "carol bet 200 on yes.", h.say("carol", "!bet yes 200"))
	assert.Equal(t, "Bet: Will we win? | yes 300, no 300 (3 bettors). You have 900 points.", h.say("alice", "!bet"))

	assert.Equal(t, "Bet closed: yes wins. Winners: carol +400, alice +200", h.mod("!bet close yes"))
	assert.Equal(t, "alice, you have 1100 points.", h.say("alice", "!bet points"))
	assert.Equal(t, "bob, you have 700 points.", h.say("bob", "!bet balance"))
	assert.Empty(t, h.errors)
}

func TestWager_Rejections(t *testing.T) {
	h := newHarness(t, 500)

	assert.Equal(t, "No bet is open.", h.say("alice", "!bet yes 10"))
	h.mod("!bet open Coin flip")

	assert.Equal(t, "alice, the amount must be a positive number.", h.say("alice", "!bet yes lots"))
	assert.Equal(t, "alice, the amount must be a positive number.", h.say("alice", "!bet yes -5"))
	assert.Equal(t, "alice, the maximum bet is 500 points.", h.say("alice", "!bet yes 501"))
	assert.Equal(t, "Usage: !bet yes|no <amount>", h.say("alice", "!bet yes"))

	h.say("alice", "!bet yes 500")
	assert.Equal(t, "alice, you already bet this round.", h.say("alice", "!bet no 10"))
	assert.Empty(t, h.errors)
}

func TestWager_InsufficientPoints(t *testing.T) {
	h := newHarness(t, 0)
	h.mod("!bet open Coin flip")
	assert.Equal(t, "alice, you only have 1000 points.", h.say("alice", "!bet yes 1001"))
}

func TestModCommands(t *testing.T) {
	h := newHarness(t, 0)

	h.say("viewer", "!bet open Sneaky?")
	assert.Empty(t, h.texts)
	h.say("viewer", "!bet close yes")
	assert.Empty(t, h.texts)

	assert.Equal(t, "Usage: !bet open <question>", h.mod("!bet open"))
	assert.Equal(t, "No bet is open.", h.mod("!bet close no"))
	h.mod("!bet open First")
	assert.Equal(t, "A bet is already open. Close it first.", h.mod("!bet open Second"))
	assert.Equal(t, "Usage: !bet close yes|no", h.mod("!bet close maybe"))
}

func TestClose_Refunds(t *testing.T) {
	h := newHarness(t, 0)
	h.mod("!bet open Empty?")
	assert.Equal(t, "Bet closed: no wins. Nobody bet.", h.mod("!bet close no"))

	h.mod("!bet open One sided")
	h.say("alice", "!bet yes 100")
	assert.Equal(t, "Bet closed: no wins. No winners, all stakes refunded.", h.mod("!bet close no"))
	assert.Equal(t, "alice, you have 1000 points.", h.say("alice", "!bet points"))
}

func TestUnknownSubcommand(t *testing.T) {
	h := newHarness(t, 0)
	assert.Contains(t, h.say("alice", "!bet dance"), "Usage:")
}

func TestAct_ReturnsBeforeStoreWork(t *testing.T) {
	h := newHarness(t, 0)

	release := make(chan struct{})
	require.NoError(t, h.f.worker.Submit(func(context.Context) { <-release }))

	acted := make(chan struct{})
	go func() {
		h.f.Act(domain.NewMessage("alice", "#streamer", "!bet points", nil))
		close(acted)
	}()
	select {
	case <-acted:
	case <-time.After(time.Second):
		t.Fatal("Act blocked on the store")
	}

	close(release)
	h.f.worker.Sync()
	assert.Equal(t, "alice, you have 1000 points.", h.last())
}

func TestAct_AfterClose(t *testing.T) {
	h := newHarness(t, 0)
	require.NoError(t, h.f.Close())

	h.f.Act(domain.NewMessage("alice", "#streamer", "!bet", nil))
	require.Len(t, h.errors, 1)
	assert.ErrorIs(t, h.errors[0], feature.ErrWorkerClosed)
}

func TestSettlementText_TruncatesWinners(t *testing.T) {
	st := store.Settlement{Totals: store.Totals{Yes: 70, No: 10, Bettors: 8}}
	for _, u := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		st.Payouts = append(st.Payouts, store.Payout{User: u, Amount: 11})
	}
	assert.Equal(t, "Bet closed: yes wins. Winners: a +11, b +11, c +11, d +11, e +11, and 2 more", settlementText(st, "yes"))
}

func TestFactory(t *testing.T) {
	features, err := Factory(feature.Deps{Log: logging.Nop()})
	require.NoError(t, err)
	assert.Empty(t, features)

	cfg := config.FeaturesConfig{Bets: &config.BetsConfig{Enabled: true, MaxAmount: 100}}
	_, err = Factory(feature.Deps{Config: cfg, Log: logging.Nop()})
	assert.ErrorIs(t, err, ErrStoreRequired)

	features, err = Factory(feature.Deps{Config: cfg, DB: testDB(t), Log: logging.Nop()})
	require.NoError(t, err)
	require.Len(t, features, 1)
	t.Cleanup(func() { features[0].(*Feature).Close() })
	assert.Equal(t, "bet", features[0].Trigger())
}
