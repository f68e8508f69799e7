package tags

import (
	"errors"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/soyeahso/twitchbot/internal/logging"
)

var errOutOfRange = errors.New("not a finite number in int64 range")

// Reader is a read-only, typed view over a tag Source. All fields are
// computed once at construction; malformed values degrade to zero values and
// are logged.
type Reader struct {
	src Source

	color       string
	bits        int64
	badges      []string
	displayName string
	emoteOnly   bool
	emotes      map[Emote]struct{}
	messageID   string
	mod         bool
	roomID      int64
	subscriber  bool
	sentAt      int64
	turbo       bool
	userID      int64
	userType    UserType
}

// NewReader projects src into typed fields. log may be nil.
func NewReader(src Source, log *logging.Logger) *Reader {
	if log == nil {
		log = logging.Nop()
	}
	r := &Reader{src: src, emotes: make(map[Emote]struct{})}
	for _, name := range src.Names() {
		r.assign(strings.ToLower(name), src.Get(name), log)
	}
	return r
}

func (r *Reader) assign(name, value string, log *logging.Logger) {
	switch name {
	case "color":
		r.color = value
	case "bits":
		r.bits = parseNumber(name, value, log)
	case "badges":
		r.badges = parseBadges(value)
	case "display-name":
		r.displayName = value
	case "emote-only":
		r.emoteOnly = parseFlag(value)
	case "emotes":
		r.parseEmotes(value, log)
	case "id":
		r.messageID = value
	case "mod":
		r.mod = parseFlag(value)
	case "room-id":
		r.roomID = parseNumber(name, value, log)
	case "subscriber":
		r.subscriber = parseFlag(value)
	case "sent-ts":
		log.Info().Str("tag", name).Str("value", value).Msg("ignoring deprecated tag")
	case "tmi-sent-ts":
		r.sentAt = parseInteger(name, value, log)
	case "turbo":
		r.turbo = parseFlag(value)
	case "user-id":
		r.userID = parseNumber(name, value, log)
	case "user-type":
		ut, ok := userTypes[value]
		if !ok {
			log.Warn().Str("value", value).Msg("unknown user type")
		}
		r.userType = ut
	default:
		log.Warn().Str("tag", name).Str("value", value).Msg("Unknown tag")
	}
}

// parseFlag treats everything except "0" as true.
func parseFlag(value string) bool {
	return value != "0"
}

// parseNumber accepts any finite float literal in int64 range and
// truncates it.
func parseNumber(name, value string, log *logging.Logger) int64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err == nil && (math.IsNaN(f) || math.IsInf(f, 0) || f < math.MinInt64 || f >= math.MaxInt64) {
		err = errOutOfRange
	}
	if err != nil {
		log.Error().Err(err).Str("tag", name).Str("value", value).Msg("failed to parse numeric tag")
		return 0
	}
	return int64(f)
}

// parseInteger only accepts base-10 integers.
func parseInteger(name, value string, log *logging.Logger) int64 {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Error().Err(err).Str("tag", name).Str("value", value).Msg("failed to parse integer tag")
		return 0
	}
	return n
}

func parseBadges(value string) []string {
	var badges []string
	for _, entry := range strings.Split(value, ",") {
		name, _, _ := strings.Cut(entry, "/")
		if name != "" {
			badges = append(badges, name)
		}
	}
	return badges
}

// parseEmotes reads "id:start-end,start-end/id:start-end".
func (r *Reader) parseEmotes(value string, log *logging.Logger) {
	if value == "" {
		return
	}
	for _, group := range strings.Split(value, "/") {
		id, positions, ok := strings.Cut(group, ":")
		if !ok {
			log.Warn().Str("group", group).Msg("emote group without positions")
			continue
		}
		for _, pos := range strings.Split(positions, ",") {
			start, end, _ := strings.Cut(pos, "-")
			r.emotes[Emote{
				ID:    id,
				Start: int(parseInteger("emotes", start, log)),
				End:   int(parseInteger("emotes", end, log)),
			}] = struct{}{}
		}
	}
}

// A nil Reader, as carried by untagged messages, reads as empty: every
// accessor returns its zero value and the badge queries report false.
var empty Reader

func (r *Reader) view() *Reader {
	if r == nil {
		return &empty
	}
	return r
}

// Color is the user's chat color, e.g. "#1E90FF".
func (r *Reader) Color() string { return r.view().color }

// Bits is the cheer amount attached to the message.
func (r *Reader) Bits() int64 { return r.view().bits }

// Badges returns badge names in tag order.
func (r *Reader) Badges() []string { return slices.Clone(r.view().badges) }

// DisplayName is the user's display name.
func (r *Reader) DisplayName() string { return r.view().displayName }

// Emotes returns the emote set ordered by id, then position.
func (r *Reader) Emotes() []Emote {
	set := r.view().emotes
	out := make([]Emote, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	sortEmotes(out)
	return out
}

// HasEmote reports whether e is in the emote set.
func (r *Reader) HasEmote(e Emote) bool {
	_, ok := r.view().emotes[e]
	return ok
}

// MessageID is the unique id of the chat line.
func (r *Reader) MessageID() string { return r.view().messageID }

// Mod is the raw mod tag. Prefer IsMod for permission checks.
func (r *Reader) Mod() bool { return r.view().mod }

// RoomID is the channel's numeric id.
func (r *Reader) RoomID() int64 { return r.view().roomID }

// Subscriber is the raw subscriber tag. Prefer IsSubscriber.
func (r *Reader) Subscriber() bool { return r.view().subscriber }

// SentAt is tmi-sent-ts in Unix milliseconds.
func (r *Reader) SentAt() int64 { return r.view().sentAt }

// Turbo is the raw turbo tag.
func (r *Reader) Turbo() bool { return r.view().turbo }

// UserID is the sender's numeric id.
func (r *Reader) UserID() int64 { return r.view().userID }

// UserType is the sender's chat-wide role.
func (r *Reader) UserType() UserType { return r.view().userType }

// Raw returns the undecoded value of any tag, including unknown ones.
func (r *Reader) Raw(name string) string {
	if src := r.view().src; src != nil {
		return src.Get(name)
	}
	return ""
}

// Unescaped returns the named tag value with IRCv3 escapes decoded.
func (r *Reader) Unescaped(name string) string { return Unescape(r.Raw(name)) }

// IsBroadcaster reports a "broadcaster" badge.
func (r *Reader) IsBroadcaster() bool { return r.hasBadge("broadcaster") }

// IsMod reports a "moderator" badge, independent of the mod tag.
func (r *Reader) IsMod() bool { return r.hasBadge("moderator") }

// IsSubscriber reports a "subscriber" badge, independent of the subscriber tag.
func (r *Reader) IsSubscriber() bool { return r.hasBadge("subscriber") }

// IsEmoteOnly returns the emote-only flag.
func (r *Reader) IsEmoteOnly() bool { return r.view().emoteOnly }

func (r *Reader) hasBadge(name string) bool {
	return slices.ContainsFunc(r.view().badges, func(b string) bool {
		return strings.EqualFold(b, name)
	})
}
