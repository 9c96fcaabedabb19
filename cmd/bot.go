/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/losparviero/telesh/pkg/audit"
	"github.com/losparviero/telesh/pkg/bus"
	"github.com/losparviero/telesh/pkg/channel"
	"github.com/losparviero/telesh/pkg/channel/telegram"
	"github.com/losparviero/telesh/pkg/config"
	"github.com/losparviero/telesh/pkg/gateway"
	"github.com/losparviero/telesh/pkg/logger"
	"github.com/losparviero/telesh/pkg/relay"
	"github.com/losparviero/telesh/pkg/shorts"
)

// botCmd represents the bot command
var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Shorts relay bot",
	Long:  "Starts Telegram long polling with health and readiness endpoints and relays YouTube Shorts links back as video replies.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.bot")

		adapter, err := telegram.NewAdapter(cfg.Channels.Telegram, slog.Default())
		if err != nil {
			log.Error("Bot configuration invalid", "error", err)
			return
		}

		events := bus.NewEventBus()
		defer events.Close()

		classifier := shorts.NewClassifier(shorts.NewHTTPOracle(nil))
		resolver := shorts.NewResolver(nil, cfg.Relay.Qualities(), slog.Default())
		pipeline := relay.NewPipeline(classifier, resolver, adapter, events, cfg.Relay, slog.Default())

		auditor := audit.New(adapter, cfg.Channels.Telegram, slog.Default())
		defer auditor.Wait()

		handler := relay.Chain(pipeline.Handle,
			relay.Timing(slog.Default()),
			relay.Identity(slog.Default()),
			relay.Audit(auditor),
			relay.Serialize(relay.NewChatLocks()),
		)

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, err := gateway.NewService(cfg, []channel.Adapter{adapter}, channel.Handler(handler), events, log)
		if err != nil {
			log.Error("Failed to initialize gateway service", "error", err)
			return
		}

		log.Info("Bot started", "channel", adapter.Name(), "audit_destination", cfg.Channels.Telegram.LogDestination())
		if err := svc.Run(runCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Bot runtime failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(botCmd)
}
