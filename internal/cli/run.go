package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/soyeahso/twitchbot/internal/auth"
	"github.com/soyeahso/twitchbot/internal/config"
	"github.com/soyeahso/twitchbot/internal/logging"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var (
		channels  []string
		transport string
		listen    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to chat and run the bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if len(channels) > 0 {
				cfg.Twitch.Channels = channels
			}
			if transport != "" {
				cfg.Twitch.Transport = transport
			}
			if listen != "" {
				cfg.HTTP.Listen = listen
			}

			issues := config.ValidateRunnable(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return err
			}
			paths.ApplyStoreDefaults(&cfg)

			runLog, closer, err := runLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer closer.Close()

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			password, err := auth.NewResolver(runLog).Password(ctx, cfg.Twitch)
			if err != nil {
				return fmt.Errorf("resolving chat credentials: %w", err)
			}
			client, err := newTransport(cfg.Twitch, password, runLog)
			if err != nil {
				return err
			}

			b, err := newBot(cfg, client, runLog)
			if err != nil {
				return err
			}
			return b.run(ctx)
		},
	}

	cmd.Flags().StringSliceVar(&channels, "channel", nil, "channels to join, overriding the config")
	cmd.Flags().StringVar(&transport, "transport", "", "override transport (irc, twitch)")
	cmd.Flags().StringVar(&listen, "listen", "", "override the HTTP listen address")

	return cmd
}

// runLogger builds the bot logger from config. --log-level wins over the
// configured level.
func runLogger(cfg config.LoggingConfig) (*logging.Logger, io.Closer, error) {
	w, closer, err := logging.Writer(cfg.Style, cfg.File)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.Level
	if logLevel != "" {
		level = logLevel
	}
	return logging.New(w, level), closer, nil
}
