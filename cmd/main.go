package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/chat-service/config"
	"github.com/cwrk-planet/chat-service/internal/postgres"
	"github.com/cwrk-planet/chat-service/internal/service"
	httpx "github.com/cwrk-planet/chat-service/internal/transport/http"
	"github.com/cwrk-planet/chat-service/internal/transport/ws"
	"github.com/cwrk-planet/chat-service/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting chat-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- postgres ---
	ctx := context.Background()
	if cfg.Postgres.Migrate {
		if err := postgres.Migrate(cfg.Postgres.DSN); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}
	db, err := postgres.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	// --- repos ---
	chatRepo := postgres.NewChatRepository(db.Pool)
	memberRepo := postgres.NewMemberRepository(db.Pool)
	stateRepo := postgres.NewStateRepository(db.Pool)
	messageRepo := postgres.NewMessageRepository(db.Pool)
	notifRepo := postgres.NewNotificationRepository(db.Pool)
	userRepo := postgres.NewUserRepository(db.Pool)

	// --- WS hub (он же publisher для сервисов) ---
	hub := ws.NewHub()

	// --- services ---
	notifSvc := service.NewNotificationService(notifRepo, memberRepo, hub, cfg.ProbeInterval())
	presenceSvc := service.NewPresenceService(memberRepo, stateRepo, messageRepo, userRepo, hub)
	chatSvc := service.NewChatService(chatRepo, memberRepo, stateRepo, userRepo, notifSvc, hub)
	messageSvc := service.NewMessageService(messageRepo, stateRepo, userRepo, presenceSvc, notifSvc, hub)
	sweeper := service.NewTypingSweeper(stateRepo, hub, cfg.SweepInterval(), cfg.TypingTimeout())

	// --- WS server ---
	wsServer := ws.NewServer(hub, presenceSvc, messageSvc, memberRepo)

	// --- HTTP ---
	handler := httpx.NewHandler(chatSvc, presenceSvc, messageSvc, notifSvc)
	router := httpx.NewRouter(handler, presenceSvc, wsServer)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- run ---
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	go sweeper.Run(sweepCtx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stopSweeper()
	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
