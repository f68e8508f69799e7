package config

import (
	"os"
	"path/filepath"
)

const (
	defaultBaseDir = ".twitchbot"
	databaseFile   = "twitchbot.db"
)

// Paths holds the resolved filesystem layout of a twitchbot home.
type Paths struct {
	Base     string // ~/.twitchbot
	Config   string // ~/.twitchbot/config.yaml
	Env      string // ~/.twitchbot/.env
	Logs     string // ~/.twitchbot/logs
	Data     string // ~/.twitchbot/data
	Database string // ~/.twitchbot/data/twitchbot.db
}

// ResolvePaths computes the layout under the user's home directory, or
// under TWITCHBOT_HOME when it is set.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("TWITCHBOT_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}
	return PathsAt(base), nil
}

// PathsAt lays out a home rooted at base.
func PathsAt(base string) Paths {
	data := filepath.Join(base, "data")
	return Paths{
		Base:     base,
		Config:   filepath.Join(base, "config.yaml"),
		Env:      filepath.Join(base, ".env"),
		Logs:     filepath.Join(base, "logs"),
		Data:     data,
		Database: filepath.Join(data, databaseFile),
	}
}

// EnsureDirs creates the base, logs and data directories.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Logs, p.Data} {
		if d == "" {
			continue
		}
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}

// ApplyStoreDefaults points an unset sqlite DSN at the home database.
func (p Paths) ApplyStoreDefaults(cfg *Config) {
	if cfg.Store.Driver == "sqlite" && cfg.Store.DSN == "" {
		cfg.Store.DSN = p.Database
	}
}
