package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSub_TagsSubsystem(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug").Sub("processor")

	log.Info().Str("channel", "#streamer").Msg("response deferred")

	out := buf.String()
	assert.Contains(t, out, `"subsystem":"processor"`)
	assert.Contains(t, out, `"channel":"#streamer"`)
	assert.Contains(t, out, "response deferred")
}

func TestSub_InnermostWins(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "debug").Sub("transport").Sub("irc").Info().Msg("joining channel")
	assert.Contains(t, buf.String(), `"subsystem":"irc"`)
}

func TestLevels_Filter(t *testing.T) {
	tests := []struct {
		level string
		emit  func(*Logger)
		want  bool
	}{
		{"warn", func(l *Logger) { l.Info().Msg("x") }, false},
		{"warn", func(l *Logger) { l.Warn().Msg("x") }, true},
		{"info", func(l *Logger) { l.Debug().Msg("x") }, false},
		{"debug", func(l *Logger) { l.Debug().Msg("x") }, true},
		{"debug", func(l *Logger) { l.Trace().Msg("x") }, false},
		{"trace", func(l *Logger) { l.Trace().Msg("x") }, true},
		{"silent", func(l *Logger) { l.Error().Msg("x") }, false},
		{"bogus", func(l *Logger) { l.Info().Msg("x") }, true},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		tt.emit(New(&buf, tt.level))
		assert.Equal(t, tt.want, buf.Len() > 0, tt.level)
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.Disabled, parseLevel("silent"))
	assert.Equal(t, zerolog.TraceLevel, parseLevel("trace"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("INFO"))
}

func TestValidLevel(t *testing.T) {
	for _, l := range Levels {
		assert.True(t, ValidLevel(l), l)
	}
	assert.False(t, ValidLevel(""))
	assert.False(t, ValidLevel("INFO"))
	assert.False(t, ValidLevel("verbose"))
}

func TestNew_NilWriter(t *testing.T) {
	require.NotNil(t, New(nil, "info"))
}

func TestNop(t *testing.T) {
	log := Nop()
	assert.NotPanics(t, func() {
		log.Error().Msg("dropped")
		log.Sub("child").Warn().Msg("dropped")
	})
}

func TestWriter_JSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	w, closer, err := Writer("json", path)
	require.NoError(t, err)

	log := New(w, "info")
	log.Sub("tags").Error().Str("tag", "bits").Msg("parse failed")
	log.Sub("tags").Debug().Msg("below level")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"subsystem":"tags"`)
	assert.Contains(t, lines[0], `"level":"error"`)
}

func TestWriter_AppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	require.NoError(t, os.WriteFile(path, []byte("{\"earlier\":true}\n"), 0o600))

	w, closer, err := Writer("json", path)
	require.NoError(t, err)
	New(w, "info").Info().Msg("later")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\"earlier\":true}\n"))
	assert.Contains(t, string(data), "later")
}

func TestWriter_NoFile(t *testing.T) {
	w, closer, err := Writer("pretty", "")
	require.NoError(t, err)
	assert.NotNil(t, w)
	assert.NoError(t, closer.Close())
}

func TestWriter_BadPath(t *testing.T) {
	_, _, err := Writer("json", filepath.Join(t.TempDir(), "missing", "bot.log"))
	assert.ErrorContains(t, err, "opening log file")
}
