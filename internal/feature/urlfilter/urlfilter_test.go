package urlfilter

import (
	"testing"

	"github.com/soyeahso/twitchbot/internal/config"
	"github.com/soyeahso/twitchbot/internal/domain"
	"github.com/soyeahso/twitchbot/internal/feature"
	"github.com/soyeahso/twitchbot/internal/logging"
	"github.com/soyeahso/twitchbot/internal/tags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(f *Feature) *[]string {
	var sent []string
	f.Setup(func(err error, resp *domain.FeatureResponse) {
		if resp != nil {
			sent = append(sent, resp.Message.Text)
		}
	})
	return &sent
}

func withBadges(badges string) *tags.Reader {
	return tags.NewReader(tags.Parse("@badges="+badges, logging.Nop()), logging.Nop())
}

func TestAct_WarnsAndTimesOut(t *testing.T) {
	f := New(nil, "", 10, logging.Nop())
	sent := setup(f)

	f.Act(domain.NewMessage("spammer", "#c", "cheap followers at https://spam.example.com/buy", nil))

	assert.Equal(t, []string{"/timeout spammer 10", "spammer, please don't post links here."}, *sent)
}

func TestAct_WarningOnly(t *testing.T) {
	f := New(nil, "No links {user}!", 0, logging.Nop())
	sent := setup(f)

	f.Act(domain.NewMessage("bob", "#c", "look at bit.ly/abc", nil))
	assert.Equal(t, []string{"No links bob!"}, *sent)
}

func TestAct_AllowedDomains(t *testing.T) {
	f := New([]string{"clips.twitch.tv", "*.youtube.com"}, "", 0, logging.Nop())
	sent := setup(f)

	f.Act(domain.NewMessage("bob", "#c", "https://clips.twitch.tv/Funny and www.youtube.com/watch?v=1", nil))
	assert.Empty(t, *sent)

	f.Act(domain.NewMessage("bob", "#c", "https://clips.twitch.tv/a plus evil.com", nil))
	assert.Len(t, *sent, 1)
}

func TestAct_NoLink(t *testing.T) {
	f := New(nil, "", 10, logging.Nop())
	sent := setup(f)

	for _, text := range []string{
		"hello there",
		"3.14 is pi",
		"end of sentence.next",
		"that is it.Now what",
		"gg.ez wp",
		"i know.right",
	} {
		f.Act(domain.NewMessage("bob", "#c", text, nil))
	}
	assert.Empty(t, *sent)
}

func TestAct_PrivilegedUsersSkipped(t *testing.T) {
	f := New(nil, "", 10, logging.Nop())
	sent := setup(f)

	for _, badges := range []string{"broadcaster/1", "moderator/1", "subscriber/6"} {
		f.Act(domain.NewMessage("vip", "#c", "https://example.com", withBadges(badges)))
	}
	assert.Empty(t, *sent)

	f.Act(domain.NewMessage("viewer", "#c", "https://example.com", withBadges("premium/1")))
	assert.Len(t, *sent, 2)
}

func TestIsLink(t *testing.T) {
	tests := []struct {
		match string
		want  bool
	}{
		{"https://sentence.next", true},
		{"www.example.news", true},
		{"WWW.Example.news", true},
		{"bit.ly/abc", true},
		{"Evil.COM", true},
		{"sentence.next", false},
		{"it.is", false},
		{"gg.ez", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isLink(tt.match, hostOf(tt.match)), tt.match)
	}
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "example.com", hostOf("https://Example.com:8080/x"))
	assert.Equal(t, "bit.ly", hostOf("bit.ly/abc"))
}

func TestFactory(t *testing.T) {
	features, err := Factory(feature.Deps{Log: logging.Nop()})
	require.NoError(t, err)
	assert.Empty(t, features)

	features, err = Factory(feature.Deps{
		Config: config.FeaturesConfig{URLFilter: &config.URLFilterConfig{TimeoutSeconds: 5}},
		Log:    logging.Nop(),
	})
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, "", features[0].Trigger())
}
