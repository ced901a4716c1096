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

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/redis/go-redis/v9"

	"wavelink/auth"
	"wavelink/contract"
	"wavelink/ratelimit"
	"wavelink/repositories"
	"wavelink/runtime"
	"wavelink/runtime/workers"
	"wavelink/services"
	"wavelink/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Returning an error instead of calling os.Exit keeps every defer (database
// close, worker shutdown) running on the way out.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Repositories
	conversationRepository := repositories.NewConversationRepository(db, log)
	messageRepository := repositories.NewMessageRepository(db, log)
	notificationRepository := repositories.NewNotificationRepository(db, log)
	userRepository := repositories.NewUserRepository(db)

	// 5. Rate limiting
	bucket := ratelimit.NewTokenBucket(config.RateLimitCapacity, config.RateLimitWindow)
	var limiter contract.Limiter = bucket
	if config.RateLimitBackend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
		})
		defer func() { _ = client.Close() }()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("Redis unreachable at startup, failover will enforce locally", "error", err)
		}
		window := ratelimit.NewRedisWindow(client, config.RateLimitCapacity, config.RateLimitWindow)
		limiter = ratelimit.NewFailover(window, bucket, log)
	}

	// 6. Realtime plumbing & services
	registry := runtime.NewRegistry()
	broadcaster := runtime.NewBroadcaster(registry, log)
	bus := runtime.NewBus(config.EventBufferSize, log)

	conversationService := services.NewConversationService(
		log, conversationRepository, messageRepository, userRepository, bus,
		config.PageSize, config.PageCap,
	)
	notificationService := services.NewNotificationService(log, notificationRepository, broadcaster)

	// 7. Supervision
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewNotifier(log, bus.Events(), notificationService),
		workers.NewBucketSweeper(log, bucket, config.SweepInterval, config.SweepMaxIdle),
	)
	sup.Run(ctx)

	// 8. Gateways & HTTP server
	verifier := auth.NewJWTVerifier(config.JWTSecret)
	mux := http.NewServeMux()
	mux.Handle("/ws/chat", ws.NewGateway(
		log, ws.KindDirect, verifier, conversationService, limiter,
		registry, broadcaster, config.ConnectionBufferSize,
	))
	mux.Handle("/ws/groups", ws.NewGateway(
		log, ws.KindGroup, verifier, conversationService, limiter,
		registry, broadcaster, config.ConnectionBufferSize,
	))

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting realtime server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 9. Wait for Stop or Error
	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case serveErr = <-errChan:
		log.Error("Server failed, shutting down", "error", serveErr)
	}

	// 10. Final Cleanup. A server failure takes the same path so the
	// workers are never abandoned.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	if serveErr != nil {
		return serveErr
	}
	log.Info("Program stopped cleanly")

	return nil
}
