// Package tags parses IRCv3 message tags and projects Twitch tags into typed
// fields.
//
// Values are kept exactly as they appear on the wire. Escape sequences such
// as \s or \: are not decoded by Parse; use Unescape for display purposes.
package tags

import (
	"strings"

	"github.com/lrstanley/girc"
	"github.com/soyeahso/twitchbot/internal/logging"
)

const prefix = "@"

// Source is the read capability a Reader is built from.
type Source interface {
	// Names returns every tag name present, in no particular order.
	Names() []string
	// Get returns the raw value of a tag, or "" when it is absent.
	Get(name string) string
}

// Tags is an immutable mapping from lowercase tag name to raw value.
type Tags struct {
	values map[string]string
}

// Parse converts a raw tag string of the form "@k1=v1;k2=v2" into Tags.
// A string without the leading "@" is logged as an error and yields an empty
// set. Later duplicates overwrite earlier ones. An empty segment, as in a
// trailing ";", is kept as a tag with an empty name.
func Parse(raw string, log *logging.Logger) Tags {
	t := Tags{values: make(map[string]string)}

	if !strings.HasPrefix(raw, prefix) {
		if log == nil {
			log = logging.Nop()
		}
		log.Error().Str("raw", raw).Msg("does not seem to be valid tag")
		return t
	}

	for _, segment := range strings.Split(raw[len(prefix):], ";") {
		name, value, _ := strings.Cut(segment, "=")
		t.values[strings.ToLower(name)] = value
	}
	return t
}

// Names returns all tag names present.
func (t Tags) Names() []string {
	names := make([]string, 0, len(t.values))
	for name := range t.values {
		names = append(names, name)
	}
	return names
}

// Get looks up a tag case-insensitively. Absent tags return "".
func (t Tags) Get(name string) string {
	return t.values[strings.ToLower(name)]
}

// Has reports whether the tag was present, even with an empty value.
func (t Tags) Has(name string) bool {
	_, ok := t.values[strings.ToLower(name)]
	return ok
}

// Len returns the number of tags.
func (t Tags) Len() int {
	return len(t.values)
}

// Unescape decodes the IRCv3 tag value escapes (\: \s \\ \r \n).
func Unescape(value string) string {
	const key = "v"
	decoded, _ := girc.Tags{key: value}.Get(key)
	return decoded
}
