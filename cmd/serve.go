package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/botkit/internal/events"
	"github.com/ziadkadry99/botkit/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server",
	Long: `Starts the HTTP server the platform delivers commands, status requests
and method callbacks to, and runs the built-in handlers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}

		handlers, err := builtinHandlers()
		if err != nil {
			return fmt.Errorf("registering handlers: %w", err)
		}

		hub := events.NewHub()
		defer hub.Close()

		bot, closeStore, err := buildBot(cfg, log, hub, builtinExceptionHandlers(), handlers)
		if err != nil {
			return err
		}
		defer closeStore()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := bot.Startup(ctx, cfg.Bot.PrefetchTokens); err != nil {
			return fmt.Errorf("starting bot: %w", err)
		}

		srv := server.New(server.Config{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			AllowAll:        cfg.Server.CORSAllowAll,
			VerifyRequests:  cfg.Bot.VerifyRequests,
			EventStream:     cfg.Server.EventStream,
			DisabledMessage: cfg.Bot.DisabledMessage,
		}, bot, hub, log)

		errc := make(chan error, 1)
		go func() { errc <- srv.Start() }()

		var serveErr error
		select {
		case err := <-errc:
			if !errors.Is(err, http.ErrServerClosed) {
				serveErr = err
			}
		case <-ctx.Done():
			log.Info("Shutting down")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("Server shutdown failed", "err", err)
		}
		if err := bot.Shutdown(shutdownCtx); err != nil {
			log.Warn("Bot shutdown failed", "err", err)
		}
		return serveErr
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
