package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	ledgeradapter "github.com/race-of-sloths/sloth-bot-go/internal/adapter/driven/ledger"
	messagesadapter "github.com/race-of-sloths/sloth-bot-go/internal/adapter/driven/messages"
	platformadapter "github.com/race-of-sloths/sloth-bot-go/internal/adapter/driven/platform"
	telegramadapter "github.com/race-of-sloths/sloth-bot-go/internal/adapter/driven/telegram"
	httphandler "github.com/race-of-sloths/sloth-bot-go/internal/adapter/driving/http"
	"github.com/race-of-sloths/sloth-bot-go/internal/application/dispatcher"
	"github.com/race-of-sloths/sloth-bot-go/internal/application/scheduler"
	"github.com/race-of-sloths/sloth-bot-go/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// 1b. Wire the optional Telegram warn+ sink into the default logger
	// before anything else logs, so startup warnings get forwarded too.
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		telegramHandler := telegramadapter.NewHandler(slog.Default().Handler(), cfg.TelegramBotToken, cfg.TelegramChatID)
		slog.SetDefault(slog.New(telegramHandler))
	}

	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"bot_name", cfg.BotName,
		"ledger_contract", cfg.LedgerContract,
		"ledger_mainnet", cfg.LedgerMainnet,
		"event_interval", cfg.EventInterval,
		"maintenance_interval", cfg.MaintenanceInterval,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Wire adapters.
	platformClient, err := platformadapter.NewClient(ctx, cfg.WriteToken, cfg.ReadTokens)
	if err != nil {
		return err
	}

	ledgerClient := ledgeradapter.NewClient(cfg.LedgerContract, cfg.LedgerAccountID, cfg.LedgerSecretKey, cfg.LedgerMainnet)

	messageLoader, err := messagesadapter.Load(cfg.MessageFile, cfg.BotName)
	if err != nil {
		return err
	}

	dispatch := dispatcher.New(platformClient, ledgerClient, messageLoader)

	// 4. Wire the liveness endpoint and its tracker into the scheduler.
	tracker := &httphandler.Tracker{}
	sched := scheduler.New(dispatch, platformClient, ledgerClient,
		scheduler.WithEventInterval(cfg.EventInterval),
		scheduler.WithMaintenanceInterval(cfg.MaintenanceInterval),
		scheduler.WithTickTracker(tracker),
	)

	go sched.Run(ctx)

	// 5. Start the liveness HTTP server.
	healthHandler := httphandler.NewHandler(tracker, slog.Default())
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(healthHandler),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("slothbot started", "listen_addr", cfg.ListenAddr)

	// 6. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 7. Graceful shutdown with 10s timeout for the HTTP server drain. The
	// scheduler itself stops cooperatively once ctx is done (see Run's doc
	// comment: an in-flight tick's per-PR goroutines always finish first).
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
