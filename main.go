package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/room4-2/staybot/booking"
	"github.com/room4-2/staybot/config"
	"github.com/room4-2/staybot/events"
	"github.com/room4-2/staybot/logging"
	"github.com/room4-2/staybot/server"
	"github.com/room4-2/staybot/session"
	"github.com/room4-2/staybot/store"
)

// httpServer is what main needs from the websocket and Twilio servers.
type httpServer interface {
	Start() error
	Shutdown(ctx context.Context) error
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("❌ Server error", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	gateway, closeGateway, err := store.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeGateway(); err != nil {
			logger.Warn("Failed to close booking gateway", zap.Error(err))
		}
	}()

	var notifier booking.Notifier
	if cfg.Events.RabbitMQURL != "" {
		publisher := events.NewPublisher(cfg.Events.RabbitMQURL, cfg.Events.BookingQueue, logger)
		defer publisher.Close()
		notifier = publisher
		logger.Info("📣 Publishing confirmed bookings", zap.String("queue", cfg.Events.BookingQueue))
	}

	// Create session manager
	sessionManager, err := session.NewManager(cfg, session.Deps{
		Gateway:  gateway,
		Notifier: notifier,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("create session manager: %w", err)
	}

	// Start cleanup routine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sessionManager.StartCleanupRoutine(ctx)

	var servers []httpServer
	switch cfg.ServerType {
	case "websocket":
		servers = append(servers, server.NewWebsocketServer(cfg, sessionManager, logger))
	case "twilio":
		servers = append(servers, server.NewTwilioServer(cfg, sessionManager, logger))
	case "both":
		servers = append(servers,
			server.NewWebsocketServer(cfg, sessionManager, logger),
			server.NewTwilioServer(cfg, sessionManager, logger),
		)
	default:
		return fmt.Errorf("unknown SERVER_TYPE: %s", cfg.ServerType)
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv httpServer) {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(srv)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case runErr = <-errCh:
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Server shutdown error", zap.Error(err))
		}
	}
	sessionManager.Shutdown(shutdownCtx)

	return runErr
}
