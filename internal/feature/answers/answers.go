// Package answers replies to fixed triggers with configured text.
package answers

import (
	"sort"
	"strings"

	"github.com/soyeahso/twitchbot/internal/domain"
	"github.com/soyeahso/twitchbot/internal/feature"
)

// Feature answers one trigger. "{user}" in the answer becomes the sender's
// display name.
type Feature struct {
	trigger string
	answer  string
	respond domain.ResponseFunc
}

// New creates an answer for trigger.
func New(trigger, answer string) *Feature {
	return &Feature{trigger: strings.TrimPrefix(trigger, "!"), answer: answer}
}

func (f *Feature) Trigger() string { return f.trigger }

func (f *Feature) Setup(respond domain.ResponseFunc) { f.respond = respond }

func (f *Feature) Act(msg domain.Message) {
	text := strings.ReplaceAll(f.answer, "{user}", feature.DisplayName(msg))
	f.respond(nil, domain.Reply(msg, text))
}

// Factory builds one feature per configured answer, ordered by trigger.
func Factory(d feature.Deps) ([]domain.Feature, error) {
	triggers := make([]string, 0, len(d.Config.Answers))
	for t := range d.Config.Answers {
		triggers = append(triggers, t)
	}
	sort.Strings(triggers)

	out := make([]domain.Feature, 0, len(triggers))
	for _, t := range triggers {
		out = append(out, New(t, d.Config.Answers[t]))
	}
	return out, nil
}
