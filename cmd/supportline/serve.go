package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/supportline/internal/api"
	"github.com/zulandar/supportline/internal/config"
	"github.com/zulandar/supportline/internal/notify"
	"github.com/zulandar/supportline/internal/notify/discord"
	"github.com/zulandar/supportline/internal/notify/slack"
	"github.com/zulandar/supportline/internal/orchestrator"
	"github.com/zulandar/supportline/internal/realtime"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the support chat API server",
		Long:  "Serves the HTTP API and websocket rooms, and posts escalation alerts and backlog digests when configured.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to supportline config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides server.port)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	out := cmd.OutOrStdout()
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	dispatch, err := buildDispatcher(cfg.Notify, out)
	if err != nil {
		return err
	}

	hub := realtime.NewHub()
	opts := orchestrator.Opts{
		DB:          gormDB,
		Broadcaster: hub,
		Roles:       cfg.OperatorRoles,
	}
	if dispatch.Len() > 0 {
		opts.Alerter = dispatch
	}
	orch, err := orchestrator.New(opts)
	if err != nil {
		return err
	}
	defer orch.Wait()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	if cfg.Notify.DigestCron != "" && dispatch.Len() > 0 {
		digest, err := notify.NewDigest(gormDB, dispatch, cfg.Notify.DigestCron)
		if err != nil {
			return err
		}
		go digest.Run(ctx)
		fmt.Fprintf(out, "Backlog digest scheduled (%s)\n", cfg.Notify.DigestCron)
	}

	return api.Start(ctx, api.StartOpts{
		DB:           gormDB,
		Orchestrator: orch,
		Hub:          hub,
		Realtime: realtime.HandlerOpts{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			SendBuffer:     cfg.Realtime.SendBuffer,
			WriteTimeout:   cfg.Realtime.WriteTimeout,
			PongTimeout:    cfg.Realtime.PongTimeout,
		},
		Port: cfg.Server.Port,
		Out:  out,
	})
}

// buildDispatcher creates a notifier for every configured platform.
func buildDispatcher(cfg config.NotifyConfig, out io.Writer) (*notify.Dispatcher, error) {
	var notifiers []notify.Notifier
	if cfg.SlackWebhookURL != "" {
		n, err := slack.New(slack.Opts{WebhookURL: cfg.SlackWebhookURL})
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}
	if cfg.DiscordChannelID != "" {
		n, err := discord.New(discord.Opts{BotToken: cfg.DiscordBotToken, ChannelID: cfg.DiscordChannelID})
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}
	if cfg.Command != "" {
		n, err := notify.NewCommand(cfg.Command)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}
	for _, n := range notifiers {
		fmt.Fprintf(out, "Escalation alerts enabled: %s\n", n.Name())
	}
	return notify.NewDispatcher(notifiers...), nil
}
