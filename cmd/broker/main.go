package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chattr/auth"
	"chattr/internal"
	"chattr/moderation"
	"chattr/observability"
	"chattr/projection"
	"chattr/runtime"
	"chattr/runtime/workers"
	"chattr/services"
	"chattr/ws"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Broker terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so every defer executes before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	// A missing .env file is fine: production injects the environment directly.
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := config.CharacterRune()
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Moderation
	wordData, err := moderation.LoadWords()
	if err != nil {
		return exitConfig, fmt.Errorf("load word lists: %w", err)
	}
	logger.Info("Loaded moderation blacklists",
		"words", len(wordData.Words), "languages", wordData.Languages)

	moderator, err := moderation.NewModerator(wordData.Words, charReplacement, logger)
	if err != nil {
		return exitConfig, fmt.Errorf("build moderator: %w", err)
	}

	// 3. Broker core
	monitoring := observability.NewMonitoring(logger)
	store := runtime.NewSessionStore()
	dispatcher := runtime.NewDispatcher(logger, store, monitoring, config.BufferSize)
	hub := runtime.NewHub(logger, store, dispatcher, &moderator, monitoring)
	roomService := services.NewRoomService(hub)

	timelineKeep := config.TimelineKeep
	if timelineKeep <= 0 {
		timelineKeep = 50
	}
	timeline := projection.NewTimeline(timelineKeep)

	// 4. Context & Signals
	// NotifyContext captures OS signals and cancels the context to trigger a shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Supervised background workers
	sup := workers.NewSupervisor(logger)
	sup.Add(
		workers.NewTelemetryWorker(logger, dispatcher.TelemetryEvents(), config.SinkTimeout, timeline),
		workers.NewHeartbeatWorker(logger, monitoring, config.HeartbeatInterval),
	)
	go sup.Run(ctx)

	// 6. Debug endpoint
	if config.DebugPort > 0 {
		logger.Info("Debug endpoint available",
			"url", fmt.Sprintf("http://localhost:%d/stats", config.DebugPort))
		internal.StartDebugServer(config.DebugPort, func() any { return monitoring.GetLatest() })
	}

	// 7. Websocket server
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	verifier := auth.NewVerifier([]byte(config.JWTSecret))
	server := ws.NewServer(logger, roomService, verifier, monitoring, addr, config.ConnectionBufferSize)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(ctx); err != nil {
			errChan <- err
		}
	}()

	// The execution blocks here until either a signal is received or the server crashes.
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		sup.Stop()
		return exitRuntime, err
	}

	logger.Info("Shutting down gracefully...")
	sup.Stop()
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}
