package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mattmezza/ticketwatch/internal/notifier"
)

const defaultConfigFile = "config.yaml"

func newRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "ticketwatch",
		Short:         "Watch web pages for keywords and alert when they appear",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd.Context(), configFile)
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", defaultConfigFile, "Path to the configuration file.")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Check all sites repeatedly on the configured interval or schedule",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runDaemon(cmd.Context(), configFile)
			},
		},
		&cobra.Command{
			Use:   "once",
			Short: "Check all sites a single time and exit (for cron or systemd timers)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runOnce(cmd.Context(), configFile)
			},
		},
		&cobra.Command{
			Use:   "test-notification [channel]",
			Short: "Send a sample alert to one channel, or to every channel",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var channel string
				if len(args) > 0 {
					channel = args[0]
				}
				return testNotification(cmd.Context(), configFile, channel)
			},
		},
	)
	return root
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func runDaemon(parent context.Context, configFile string) error {
	ctx, stop := signalContext(parent)
	defer stop()

	a, err := newApp(ctx, configFile)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Schedule != "" {
		a.log.Info().Str("schedule", a.cfg.Schedule).Msg("ticketwatch started")
		err = a.runner.RunSchedule(ctx, a.cfg.Schedule)
	} else {
		a.log.Info().Dur("interval", a.cfg.Interval).Msg("ticketwatch started")
		err = a.runner.RunLoop(ctx, a.cfg.Interval)
	}
	a.log.Info().Msg("ticketwatch shut down")
	return err
}

func runOnce(parent context.Context, configFile string) error {
	ctx, stop := signalContext(parent)
	defer stop()

	a, err := newApp(ctx, configFile)
	if err != nil {
		return err
	}
	defer a.Close()

	a.runner.RunOnce(ctx)
	return nil
}

func testNotification(parent context.Context, configFile, channelName string) error {
	ctx, stop := signalContext(parent)
	defer stop()

	a, err := newApp(ctx, configFile)
	if err != nil {
		return err
	}
	defer a.Close()

	channels := a.dispatcher.Channels()
	if len(channels) == 0 {
		return errors.New("no notification channels were successfully initialized")
	}

	msg := notifier.Message{
		SiteName: "Test Site",
		URL:      "https://example.com/",
		Keyword:  "venta de boletos",
		Event:    notifier.EventFired,
		Time:     time.Now(),
	}

	if channelName != "" {
		n, ok := a.dispatcher.Lookup(channelName)
		if !ok {
			return fmt.Errorf("channel '%s' not found or not initialized. Available channels: %s",
				channelName, strings.Join(channels, ", "))
		}
		return a.dispatcher.SendTo(ctx, n, msg)
	}

	sent := a.dispatcher.Dispatch(ctx, msg)
	a.log.Info().Int("ok", sent).Int("channels", len(channels)).Msg("test notification completed")
	if sent == 0 {
		return errors.New("all notification channels failed")
	}
	return nil
}

// configPathFromEnv lets containers point at a config without flags.
func configPathFromEnv(flagValue string) string {
	if flagValue == defaultConfigFile {
		if p := strings.TrimSpace(os.Getenv("TICKETWATCH_CONFIG")); p != "" {
			return p
		}
	}
	return flagValue
}
