package config

import (
	"strings"
)

// Redacted replaces secret values in printed config.
const Redacted = "********"

// sections are the top-level keys of config.yaml.
var sections = map[string]bool{
	"twitch":    true,
	"processor": true,
	"features":  true,
	"store":     true,
	"http":      true,
	"logging":   true,
}

// secretPaths are the dotted keys whose values are credentials.
var secretPaths = map[string]bool{
	"twitch.token":             true,
	"twitch.clientSecret":      true,
	"twitch.refreshToken":      true,
	"store.dsn":                true,
	"http.overlayToken":        true,
	"features.alerts.password": true,
}

// ParseConfigPath splits a dotted key such as "twitch.channels" into
// segments. The first segment must name a config section.
func ParseConfigPath(raw string) ([]string, error) {
	if raw == "" {
		return nil, &ConfigError{Message: "empty config path"}
	}
	parts := strings.Split(raw, ".")
	for _, p := range parts {
		if p == "" {
			return nil, &ConfigError{Message: "config path contains empty segment"}
		}
	}
	if !sections[parts[0]] {
		return nil, &ConfigError{Message: "unknown config section: " + parts[0]}
	}
	return parts, nil
}

// IsSecret reports whether path holds a credential.
func IsSecret(path []string) bool {
	return secretPaths[strings.Join(path, ".")]
}

// Redact returns a copy of raw with secret values masked. Environment
// references like ${TWITCH_TOKEN} are shown as written.
func Redact(raw map[string]any) map[string]any {
	return redact(raw, nil)
}

func redact(m map[string]any, prefix []string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		path := append(append([]string{}, prefix...), k)
		switch val := v.(type) {
		case map[string]any:
			out[k] = redact(val, path)
		case string:
			if IsSecret(path) && val != "" && !isEnvRef(val) {
				out[k] = Redacted
			} else {
				out[k] = val
			}
		default:
			out[k] = v
		}
	}
	return out
}

func isEnvRef(s string) bool {
	return strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}")
}

// GetValueAtPath walks a raw config map along path.
func GetValueAtPath(root map[string]any, path []string) (any, bool) {
	current := any(root)
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// SetValueAtPath stores value at path, replacing any non-map value on the
// way with a fresh section.
func SetValueAtPath(root map[string]any, path []string, value any) {
	current := root
	for _, key := range path[:len(path)-1] {
		m, ok := current[key].(map[string]any)
		if !ok {
			m = map[string]any{}
			current[key] = m
		}
		current = m
	}
	current[path[len(path)-1]] = value
}

// UnsetValueAtPath deletes the value at path and reports whether it existed.
func UnsetValueAtPath(root map[string]any, path []string) bool {
	current := root
	for _, key := range path[:len(path)-1] {
		m, ok := current[key].(map[string]any)
		if !ok {
			return false
		}
		current = m
	}
	last := path[len(path)-1]
	if _, ok := current[last]; !ok {
		return false
	}
	delete(current, last)
	return true
}
