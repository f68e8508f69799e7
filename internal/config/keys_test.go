package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigPath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"section", "twitch", []string{"twitch"}, false},
		{"two segments", "twitch.channels", []string{"twitch", "channels"}, false},
		{"three segments", "features.alerts.server", []string{"features", "alerts", "server"}, false},
		{"empty", "", nil, true},
		{"empty segment", "twitch..nick", nil, true},
		{"leading dot", ".twitch", nil, true},
		{"trailing dot", "twitch.", nil, true},
		{"unknown section", "gateway.port", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfigPath(tt.input)
			if tt.wantErr {
				var ce *ConfigError
				assert.ErrorAs(t, err, &ce)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsSecret(t *testing.T) {
	assert.True(t, IsSecret([]string{"twitch", "token"}))
	assert.True(t, IsSecret([]string{"features", "alerts", "password"}))
	assert.True(t, IsSecret([]string{"http", "overlayToken"}))
	assert.False(t, IsSecret([]string{"twitch", "nick"}))
	assert.False(t, IsSecret([]string{"twitch"}))
}

func TestRedact(t *testing.T) {
	raw := map[string]any{
		"twitch": map[string]any{
			"nick":         "botname",
			"token":        "oauth:abc123",
			"refreshToken": "${TWITCH_REFRESH}",
			"clientSecret": "",
			"channels":     []any{"#a"},
		},
		"features": map[string]any{
			"alerts": map[string]any{"password": "hunter2", "server": "imap.example.com:993"},
		},
	}

	out := Redact(raw)

	tw := out["twitch"].(map[string]any)
	assert.Equal(t, "botname", tw["nick"])
	assert.Equal(t, Redacted, tw["token"])
	assert.Equal(t, "${TWITCH_REFRESH}", tw["refreshToken"])
	assert.Equal(t, "", tw["clientSecret"])
	assert.Equal(t, []any{"#a"}, tw["channels"])

	alerts := out["features"].(map[string]any)["alerts"].(map[string]any)
	assert.Equal(t, Redacted, alerts["password"])
	assert.Equal(t, "imap.example.com:993", alerts["server"])

	// the input is untouched
	assert.Equal(t, "oauth:abc123", raw["twitch"].(map[string]any)["token"])
}

func TestGetValueAtPath(t *testing.T) {
	root := map[string]any{
		"twitch": map[string]any{
			"port": 6697,
			"oauth": map[string]any{
				"clientId": "abc",
			},
		},
		"simple": "value",
	}

	tests := []struct {
		name string
		path []string
		want any
		ok   bool
	}{
		{"nested value", []string{"twitch", "port"}, 6697, true},
		{"deeply nested", []string{"twitch", "oauth", "clientId"}, "abc", true},
		{"top level", []string{"simple"}, "value", true},
		{"missing key", []string{"nonexistent"}, nil, false},
		{"missing nested", []string{"twitch", "nonexistent"}, nil, false},
		{"non-map intermediate", []string{"simple", "sub"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, ok := GetValueAtPath(root, tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, val)
			}
		})
	}
}

func TestSetValueAtPath(t *testing.T) {
	root := map[string]any{
		"twitch": map[string]any{"port": 6697},
		"store":  "not-a-map",
	}

	SetValueAtPath(root, []string{"twitch", "port"}, 6667)
	SetValueAtPath(root, []string{"features", "bets", "enabled"}, true)
	SetValueAtPath(root, []string{"store", "driver"}, "postgres")

	val, _ := GetValueAtPath(root, []string{"twitch", "port"})
	assert.Equal(t, 6667, val)
	val, _ = GetValueAtPath(root, []string{"features", "bets", "enabled"})
	assert.Equal(t, true, val)
	val, _ = GetValueAtPath(root, []string{"store", "driver"})
	assert.Equal(t, "postgres", val)
}

func TestUnsetValueAtPath(t *testing.T) {
	root := map[string]any{
		"twitch": map[string]any{"port": 6697, "nick": "bot"},
		"store":  "string",
	}

	assert.True(t, UnsetValueAtPath(root, []string{"twitch", "port"}))
	_, found := GetValueAtPath(root, []string{"twitch", "port"})
	assert.False(t, found)
	val, found := GetValueAtPath(root, []string{"twitch", "nick"})
	assert.True(t, found)
	assert.Equal(t, "bot", val)

	assert.False(t, UnsetValueAtPath(root, []string{"twitch", "port"}))
	assert.False(t, UnsetValueAtPath(root, []string{"a", "b", "c"}))
	assert.False(t, UnsetValueAtPath(root, []string{"store", "driver"}))
}
