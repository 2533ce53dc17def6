package main

import (
	"context"
	"dispatch-lab/contract"
	"dispatch-lab/domain"
	"dispatch-lab/domain/event"
	grpchealth "dispatch-lab/infrastructure/grpc/health"
	"dispatch-lab/infrastructure/ws"
	"dispatch-lab/internal"
	"dispatch-lab/observability"
	"dispatch-lab/presence"
	"dispatch-lab/runtime"
	"dispatch-lab/runtime/workers"
	"dispatch-lab/services"
	"dispatch-lab/store"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and owns the shutdown sequence,
// deferred cleanups run before main exits.
func run() error {
	// 1. Configuration & Logger
	// A missing .env is fine, the environment alone is enough.
	_ = godotenv.Load()
	config, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Stores
	backend := store.Backend(config.StoreBackend)
	var db *badger.DB
	if backend == store.BadgerBackend {
		if db, err = store.OpenInMemory(); err != nil {
			return fmt.Errorf("database opening failed: %w", err)
		}
		defer func() {
			log.Info("Closing BadgerDB...")
			_ = db.Close()
		}()
	}
	resources, err := store.New[domain.ManagedResource](backend, db, log, "resources")
	if err != nil {
		return err
	}
	messages, err := store.New[domain.ChatMessage](backend, db, log, "messages")
	if err != nil {
		return err
	}

	// 3. Supervision & Orchestration
	telemetry := make(chan event.Event, config.LoopBufferSize)
	supervisor := workers.NewSupervisor(log, config.RestartInterval, telemetry)
	monitoring := observability.NewMonitoringManager(log, config.MetricInterval)
	orchestrator := runtime.NewOrchestrator(log, supervisor, monitoring, telemetry, runtime.UUIDGenerator{},
		runtime.OrchestratorConfig{
			LoopBufferSize:       config.LoopBufferSize,
			MetricInterval:       config.MetricInterval,
			HeartbeatInterval:    config.HeartbeatInterval,
			LowCapacityThreshold: config.LowCapacityThreshold,
			LatencyThreshold:     config.LatencyThreshold,
			ReportInterval:       config.ReportInterval,
		})

	var censor contract.Censor
	if config.ModerationEnabled {
		char, err := internal.CharacterRune(config.CharReplacement)
		if err != nil {
			return err
		}
		moderator, err := orchestrator.PrepareModeration(char)
		if err != nil {
			return fmt.Errorf("moderation setup failed: %w", err)
		}
		censor = moderator
		orchestrator.AddHandlers(event.NewCensoredHandler(log))
	}

	// 4. Hubs
	dashboardRegistry := orchestrator.NewRegistry()
	dashboard := services.NewDashboardService(log, dashboardRegistry, orchestrator.Scheduler(),
		resources, runtime.UUIDGenerator{}, config.ProcessingDelay)
	dashboardHub, err := orchestrator.Bind(dashboardRegistry, dashboard)
	if err != nil {
		return err
	}

	chatRegistry := orchestrator.NewRegistry()
	chat := services.NewChatService(log, chatRegistry, presence.NewSet(), messages,
		services.NewSanitizer(log, censor, telemetry), telemetry)
	if err := chat.SeedWelcome(); err != nil {
		return fmt.Errorf("chat log seeding failed: %w", err)
	}
	chatHub, err := orchestrator.Bind(chatRegistry, chat)
	if err != nil {
		return err
	}

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		_ = orchestrator.Start(ctx)
	}()

	// 6. HTTP & WebSocket
	wsServer := ws.NewServer(log, config.ConnectionBufferSize)
	mux := http.NewServeMux()
	wsServer.Mount(mux,
		ws.Route{Path: "/dashboard", Greeting: "Hello dashboard", Endpoint: dashboardHub},
		ws.Route{Path: "/chat", Greeting: "Hello Chat", Endpoint: chatHub},
	)
	internal.MountDebug(mux, log, db, func() any { return monitoring.GetLatest() }, nil)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 7. gRPC health on the admin port
	adminAddress := fmt.Sprintf("%s:%d", config.Host, config.AdminPort)
	listener, err := net.Listen("tcp", adminAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", adminAddress, err)
	}
	healthServer := grpchealth.NewServer(log, services.DashboardHub, services.ChatHub)

	// Use an error channel to capture Serve() issues
	errChan := make(chan error, 2)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()
	go func() {
		if err := healthServer.Serve(ctx, listener); err != nil {
			errChan <- err
		}
	}()

	// 8. Wait for Stop or Error
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case runErr = <-errChan:
		log.Error("Server failed, shutting down", "error", runErr)
	}
	stop()

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := wsServer.Close(shutdownCtx); err != nil {
		log.Warn("WebSocket connections still open", "error", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown incomplete", "error", err)
	}
	orchestrator.Stop()
	log.Info("Program stopped cleanly")

	return runErr
}
