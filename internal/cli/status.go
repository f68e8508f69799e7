package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/soyeahso/twitchbot/internal/config"
	"github.com/soyeahso/twitchbot/internal/gateway"
	"github.com/soyeahso/twitchbot/internal/version"
	"github.com/spf13/cobra"
)

const statusTimeout = 3 * time.Second

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the configuration summary and ask a running bot for its health",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "twitchbot %s (commit %s)\n\n", version.Version, version.ShortCommit())
			fmt.Fprintf(out, "Config:  %s\n", paths.Config)
			fmt.Fprintf(out, "Data:    %s\n\n", paths.Data)

			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Fprintf(out, "Config:  error loading: %v\n", err)
				return nil
			}
			printSummary(out, cfg)

			if issues := config.ValidateRunnable(&cfg); len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s\n", issue)
				}
			}

			if cfg.HTTP.Listen == "" {
				fmt.Fprintln(out, "\nBot:     http server disabled, health unavailable")
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
			defer cancel()
			h, err := fetchHealth(ctx, cfg.HTTP.Listen)
			if err != nil {
				fmt.Fprintf(out, "\nBot:     not reachable (%v)\n", err)
				return nil
			}
			fmt.Fprintf(out, "\nBot:     %s version=%s uptime=%s connected=%v pending=%d overlays=%d\n",
				h.Status, h.Version, h.Uptime, h.Connected, h.Pending, h.Overlays)
			if len(h.Features) > 0 {
				fmt.Fprintf(out, "Active:  %s\n", strings.Join(h.Features, ", "))
			}
			return nil
		},
	}
}

func printSummary(out io.Writer, cfg config.Config) {
	server, port := cfg.Twitch.Address()
	fmt.Fprintf(out, "Chat:    transport=%s server=%s:%d tls=%v nick=%s\n",
		cfg.Twitch.Transport, server, port, cfg.Twitch.TLS(), cfg.Twitch.Nick)
	fmt.Fprintf(out, "Joins:   %s\n", strings.Join(cfg.Twitch.Channels, ", "))

	p := cfg.Processor
	fmt.Fprintf(out, "Limits:  %d per %dms, drain %d every %dms\n",
		p.ResponseLimitPerInterval, p.ResponseIntervalInMilliseconds,
		p.MaxNumberOfResponsesPerDelayInterval, p.DelayIntervalInMilliseconds)

	var features []string
	f := cfg.Features
	if len(f.Answers) > 0 {
		features = append(features, fmt.Sprintf("answers(%d)", len(f.Answers)))
	}
	if f.URLFilter != nil {
		features = append(features, "urlfilter")
	}
	if f.Alerts != nil {
		features = append(features, "alerts")
	}
	if f.Bets != nil && f.Bets.Enabled {
		features = append(features, "bets")
	}
	if f.ChatLog {
		features = append(features, "chatlog")
	}
	if len(features) == 0 {
		features = []string{"(none)"}
	}
	fmt.Fprintf(out, "Features: %s\n", strings.Join(features, ", "))
	fmt.Fprintf(out, "Store:   %s\n", cfg.Store.Driver)
}

// fetchHealth queries /healthz of a running bot. A listen address without
// a host is dialled on loopback.
func fetchHealth(ctx context.Context, listen string) (gateway.Health, error) {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return gateway.Health{}, err
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"http://"+net.JoinHostPort(host, port)+"/healthz", nil)
	if err != nil {
		return gateway.Health{}, err
	}
	req.Header.Set("User-Agent", version.UserAgent())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return gateway.Health{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return gateway.Health{}, errors.New(resp.Status)
	}

	var h gateway.Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return gateway.Health{}, fmt.Errorf("decoding health: %w", err)
	}
	return h, nil
}
