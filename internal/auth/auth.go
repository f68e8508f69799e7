// Package auth resolves the chat password from a static token or an OAuth
// refresh token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/soyeahso/twitchbot/internal/config"
	"github.com/soyeahso/twitchbot/internal/logging"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/twitch"
)

// ErrNoCredentials is returned when neither a token nor a refresh token is
// configured.
var ErrNoCredentials = errors.New("auth: no token or refresh token configured")

const passwordPrefix = "oauth:"

// Resolver produces the IRC server password.
type Resolver struct {
	endpoint oauth2.Endpoint
	log      *logging.Logger
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithEndpoint overrides the Twitch OAuth endpoint.
func WithEndpoint(e oauth2.Endpoint) Option {
	return func(r *Resolver) { r.endpoint = e }
}

// NewResolver creates a resolver using the Twitch endpoint.
func NewResolver(log *logging.Logger, opts ...Option) *Resolver {
	r := &Resolver{endpoint: twitch.Endpoint, log: log.Sub("auth")}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Password returns "oauth:<token>". With a client id and refresh token
// configured a fresh access token is fetched; otherwise the static token is
// used.
func (r *Resolver) Password(ctx context.Context, cfg config.TwitchConfig) (string, error) {
	if cfg.RefreshToken != "" && cfg.ClientID != "" {
		tok, err := r.refresh(ctx, cfg)
		if err != nil {
			return "", err
		}
		return passwordPrefix + tok.AccessToken, nil
	}
	if cfg.Token == "" {
		return "", ErrNoCredentials
	}
	return Normalize(cfg.Token), nil
}

func (r *Resolver) refresh(ctx context.Context, cfg config.TwitchConfig) (*oauth2.Token, error) {
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     r.endpoint,
	}
	tok, err := oc.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	r.log.Info().Time("expiry", tok.Expiry).Msg("access token refreshed")
	if tok.RefreshToken != "" && tok.RefreshToken != cfg.RefreshToken {
		// Twitch rotates refresh tokens for public clients
		r.log.Warn().Msg("refresh token was rotated; update twitch.refreshToken")
	}
	return tok, nil
}

// Normalize returns token with the "oauth:" prefix.
func Normalize(token string) string {
	token = strings.TrimSpace(token)
	if strings.HasPrefix(token, passwordPrefix) {
		return token
	}
	return passwordPrefix + token
}
