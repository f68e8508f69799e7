package tags

import (
	"cmp"
	"slices"
)

// Emote is one occurrence of an emote in the message text. Positions are
// inclusive character offsets as sent by Twitch.
type Emote struct {
	ID    string `json:"id"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

func sortEmotes(emotes []Emote) {
	slices.SortFunc(emotes, func(a, b Emote) int {
		if c := cmp.Compare(a.ID, b.ID); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.End, b.End)
	})
}
