package tags

import (
	"testing"

	"github.com/soyeahso/twitchbot/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readerFor(t *testing.T, raw string) *Reader {
	t.Helper()
	return NewReader(Parse(raw, logging.Nop()), logging.Nop())
}

// mapSource is a Source that is not backed by Parse.
type mapSource map[string]string

func (m mapSource) Names() []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	return names
}

func (m mapSource) Get(name string) string { return m[name] }

func TestReader_BroadcasterScenario(t *testing.T) {
	log, buf := captureLogger()
	r := NewReader(Parse("@badge-info=;badges=broadcaster/1;mod=0;room-id=87693901;user-id=87693901", log), log)

	assert.True(t, r.IsBroadcaster())
	assert.Equal(t, int64(87693901), r.RoomID())
	assert.Equal(t, int64(87693901), r.UserID())
	assert.False(t, r.Mod())
	assert.False(t, r.IsMod())
	// badge-info is not a known tag
	assert.Equal(t, 1, countLevel(buf, "warn"))
	assert.Equal(t, 0, countLevel(buf, "error"))
}

func TestReader_StringFields(t *testing.T) {
	r := readerFor(t, "@color=#1E90FF;display-name=Ronni;id=b34ccfc7-4977-403a-8a94-33c6bac34fb8")

	assert.Equal(t, "#1E90FF", r.Color())
	assert.Equal(t, "Ronni", r.DisplayName())
	assert.Equal(t, "b34ccfc7-4977-403a-8a94-33c6bac34fb8", r.MessageID())
}

func TestReader_Badges(t *testing.T) {
	r := readerFor(t, "@badges=moderator/1,subscriber/12,/3,glhf-pledge/1")

	assert.Equal(t, []string{"moderator", "subscriber", "glhf-pledge"}, r.Badges())
	assert.True(t, r.IsMod())
	assert.True(t, r.IsSubscriber())
	assert.False(t, r.IsBroadcaster())
}

func TestReader_BadgeQueriesIgnoreCase(t *testing.T) {
	r := readerFor(t, "@badges=Broadcaster/1,MODERATOR/1,SubScriber/0")

	assert.True(t, r.IsBroadcaster())
	assert.True(t, r.IsMod())
	assert.True(t, r.IsSubscriber())
}

func TestReader_BadgeQueriesIndependentOfRawTags(t *testing.T) {
	r := readerFor(t, "@badges=;mod=1;subscriber=1")

	assert.True(t, r.Mod())
	assert.True(t, r.Subscriber())
	assert.False(t, r.IsMod())
	assert.False(t, r.IsSubscriber())
	assert.Empty(t, r.Badges())
}

func TestReader_Flags(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"0", false},
		{"1", true},
		{"", true},
		{"yes", true},
		{"00", true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			r := readerFor(t, "@emote-only="+tt.value+";mod="+tt.value+";subscriber="+tt.value+";turbo="+tt.value)
			assert.Equal(t, tt.want, r.IsEmoteOnly())
			assert.Equal(t, tt.want, r.Mod())
			assert.Equal(t, tt.want, r.Subscriber())
			assert.Equal(t, tt.want, r.Turbo())
		})
	}
}

func TestReader_Emotes(t *testing.T) {
	r := readerFor(t, "@emotes=99:1-5,13-15/200:7-10")

	assert.Equal(t, []Emote{
		{ID: "200", Start: 7, End: 10},
		{ID: "99", Start: 1, End: 5},
		{ID: "99", Start: 13, End: 15},
	}, r.Emotes())
	assert.True(t, r.HasEmote(Emote{ID: "99", Start: 13, End: 15}))
	assert.False(t, r.HasEmote(Emote{ID: "99", Start: 7, End: 10}))
}

func TestReader_EmotesDuplicatesCollapse(t *testing.T) {
	r := readerFor(t, "@emotes=25:0-4,0-4/25:0-4")
	assert.Len(t, r.Emotes(), 1)
}

func TestReader_EmotesEmpty(t *testing.T) {
	log, buf := captureLogger()
	r := NewReader(Parse("@emotes=", log), log)
	assert.Empty(t, r.Emotes())
	assert.Empty(t, buf.String())
}

func TestReader_Numbers(t *testing.T) {
	r := readerFor(t, "@bits=100;room-id=12.0;user-id=1e3;tmi-sent-ts=1507246572675")

	assert.Equal(t, int64(100), r.Bits())
	assert.Equal(t, int64(12), r.RoomID())
	assert.Equal(t, int64(1000), r.UserID())
	assert.Equal(t, int64(1507246572675), r.SentAt())
}

func TestReader_NumberParseFailure(t *testing.T) {
	log, buf := captureLogger()
	r := NewReader(Parse("@bits=lots;room-id=x;user-id=", log), log)

	assert.Zero(t, r.Bits())
	assert.Zero(t, r.RoomID())
	assert.Zero(t, r.UserID())
	assert.Equal(t, 3, countLevel(buf, "error"))
}

func TestReader_NumberNotFinite(t *testing.T) {
	tests := []string{"NaN", "Inf", "-Inf", "+Infinity", "1e30", "-1e30", "9.3e18"}
	for _, v := range tests {
		t.Run(v, func(t *testing.T) {
			log, buf := captureLogger()
			r := NewReader(Parse("@bits="+v+";room-id="+v+";user-id="+v, log), log)

			assert.Zero(t, r.Bits())
			assert.Zero(t, r.RoomID())
			assert.Zero(t, r.UserID())
			assert.Equal(t, 3, countLevel(buf, "error"))
		})
	}
}

func TestReader_NumberNearInt64Bounds(t *testing.T) {
	log, buf := captureLogger()
	r := NewReader(Parse("@bits=-9.2e18;user-id=9.2e18", log), log)

	assert.Equal(t, int64(-9.2e18), r.Bits())
	assert.Equal(t, int64(9.2e18), r.UserID())
	assert.Zero(t, countLevel(buf, "error"))
}

func TestReader_SentTimestampIsStrictInteger(t *testing.T) {
	log, buf := captureLogger()
	r := NewReader(Parse("@tmi-sent-ts=1.5e12;bits=1.5e2", log), log)

	// the float literal is fine for bits but not for tmi-sent-ts
	assert.Zero(t, r.SentAt())
	assert.Equal(t, int64(150), r.Bits())
	assert.Equal(t, 1, countLevel(buf, "error"))
}

func TestReader_UserType(t *testing.T) {
	tests := []struct {
		value string
		want  UserType
	}{
		{"", Normal},
		{"mod", Moderator},
		{"global_mod", GlobalMod},
		{"admin", Admin},
		{"staff", Staff},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			r := readerFor(t, "@user-type="+tt.value)
			assert.Equal(t, tt.want, r.UserType())
		})
	}
}

func TestReader_UnknownUserType(t *testing.T) {
	log, buf := captureLogger()
	r := NewReader(Parse("@user-type=overlord", log), log)

	assert.Equal(t, Normal, r.UserType())
	assert.Equal(t, 1, countLevel(buf, "warn"))
	assert.Contains(t, buf.String(), "unknown user type")
}

func TestReader_UnknownAndDeprecatedTags(t *testing.T) {
	log, buf := captureLogger()
	r := NewReader(Parse("@client-nonce=abc;sent-ts=123", log), log)

	assert.Equal(t, "abc", r.Raw("client-nonce"))
	assert.Equal(t, 1, countLevel(buf, "warn"))
	assert.Equal(t, 1, countLevel(buf, "info"))
	assert.Contains(t, buf.String(), "Unknown tag")
}

func TestReader_CustomSource(t *testing.T) {
	r := NewReader(mapSource{"BADGES": "subscriber/6", "bits": "5"}, nil)

	assert.True(t, r.IsSubscriber())
	assert.Equal(t, int64(5), r.Bits())
}

func TestReader_NilIsUnprivileged(t *testing.T) {
	var r *Reader
	assert.False(t, r.IsBroadcaster())
	assert.False(t, r.IsMod())
	assert.False(t, r.IsSubscriber())
	assert.False(t, r.IsEmoteOnly())
	assert.Equal(t, "", r.DisplayName())

	assert.Empty(t, r.Badges())
	assert.Empty(t, r.Emotes())
	assert.False(t, r.HasEmote(Emote{ID: "25", Start: 0, End: 4}))
	assert.Equal(t, "", r.Raw("color"))
	assert.Equal(t, "", r.Unescaped("system-msg"))
	assert.Equal(t, "", r.Color())
	assert.Equal(t, "", r.MessageID())
	assert.Zero(t, r.Bits())
	assert.Zero(t, r.RoomID())
	assert.Zero(t, r.UserID())
	assert.Zero(t, r.SentAt())
	assert.False(t, r.Mod())
	assert.False(t, r.Subscriber())
	assert.False(t, r.Turbo())
	assert.Equal(t, Normal, r.UserType())
}

func TestReader_BadgesCopy(t *testing.T) {
	r := readerFor(t, "@badges=moderator/1")
	b := r.Badges()
	require.Len(t, b, 1)
	b[0] = "broadcaster"
	assert.False(t, r.IsBroadcaster())
}

func TestReader_Unescaped(t *testing.T) {
	r := NewReader(Parse(`@system-msg=5\sraiders\sfrom\sfoo`, logging.Nop()), logging.Nop())

	assert.Equal(t, `5\sraiders\sfrom\sfoo`, r.Raw("system-msg"))
	assert.Equal(t, "5 raiders from foo", r.Unescaped("system-msg"))
}
