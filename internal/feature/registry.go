// Package feature builds the configured bot features and manages their
// lifecycle.
package feature

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/soyeahso/twitchbot/internal/config"
	"github.com/soyeahso/twitchbot/internal/domain"
	"github.com/soyeahso/twitchbot/internal/hooks"
	"github.com/soyeahso/twitchbot/internal/logging"
	"github.com/soyeahso/twitchbot/internal/store"
)

// ErrUnknownFeature is returned by Lookup for a name nothing was built for.
var ErrUnknownFeature = errors.New("unknown feature")

// Deps are the shared resources handed to factories. DB is nil when no
// feature needs storage.
type Deps struct {
	Config config.FeaturesConfig
	DB     *store.DB
	Hooks  *hooks.Manager
	Log    *logging.Logger
}

// Factory builds the features of one kind from config. It returns no
// features when the kind is not configured.
type Factory func(d Deps) ([]domain.Feature, error)

// Registerer accepts built features; *processor.Processor implements it.
type Registerer interface {
	RegisterFeature(f domain.Feature)
}

type built struct {
	name     string
	features []domain.Feature
}

// Registry holds named factories and the features built from them.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	order     []string // insertion order for deterministic lifecycle
	built     []built
	log       *logging.Logger
}

// NewRegistry creates a feature registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		log:       log.Sub("features"),
	}
}

// Register adds a factory under name.
func (r *Registry) Register(name string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("feature already registered: %s", name)
	}
	r.factories[name] = f
	r.order = append(r.order, name)
	return nil
}

// Build runs every factory in registration order. Features built by an
// earlier call are replaced.
func (r *Registry) Build(d Deps) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.built = nil
	for _, name := range r.order {
		sub := d
		sub.Log = d.Log.Sub(name)
		features, err := r.factories[name](sub)
		if err != nil {
			return fmt.Errorf("build feature %s: %w", name, err)
		}
		if len(features) == 0 {
			r.log.Debug().Str("feature", name).Msg("feature not configured")
			continue
		}
		r.built = append(r.built, built{name: name, features: features})
		r.log.Info().Str("feature", name).Int("instances", len(features)).Msg("feature enabled")
	}
	return nil
}

// Attach registers every built feature on p.
func (r *Registry) Attach(p Registerer) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.built {
		for _, f := range b.features {
			p.RegisterFeature(f)
		}
	}
}

// Lookup returns the features built under name.
func (r *Registry) Lookup(name string) ([]domain.Feature, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.built {
		if b.name == name {
			return b.features, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFeature, name)
}

// CloseAll closes the built features implementing io.Closer, in reverse
// build order.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.built) - 1; i >= 0; i-- {
		b := r.built[i]
		for j := len(b.features) - 1; j >= 0; j-- {
			c, ok := b.features[j].(io.Closer)
			if !ok {
				continue
			}
			r.log.Info().Str("feature", b.name).Msg("closing feature")
			if err := c.Close(); err != nil {
				r.log.Error().Err(err).Str("feature", b.name).Msg("feature close error")
			}
		}
	}
}

// List returns all registered factory names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Enabled returns the names that produced features in the last Build.
func (r *Registry) Enabled() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.built))
	for _, b := range r.built {
		out = append(out, b.name)
	}
	return out
}
