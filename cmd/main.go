package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/senseboard-backend/internal/ai"
	"github.com/yungbote/senseboard-backend/internal/config"
	"github.com/yungbote/senseboard-backend/internal/db"
	"github.com/yungbote/senseboard-backend/internal/handlers"
	"github.com/yungbote/senseboard-backend/internal/logger"
	"github.com/yungbote/senseboard-backend/internal/observability"
	"github.com/yungbote/senseboard-backend/internal/personalization"
	"github.com/yungbote/senseboard-backend/internal/realtime"
	"github.com/yungbote/senseboard-backend/internal/realtime/bus"
	"github.com/yungbote/senseboard-backend/internal/rooms"
	"github.com/yungbote/senseboard-backend/internal/server"
	"github.com/yungbote/senseboard-backend/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	cfg, err := config.Load(log)
	if err != nil {
		log.Error("Config load failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Tracing
	shutdownOtel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "senseboard-backend",
		Environment: os.Getenv("SENSEBOARD_ENV"),
		Version:     os.Getenv("SENSEBOARD_VERSION"),
	})

	// Personalization store
	log.Info("Setting up personalization store from main...")
	var profileStore *personalization.Store
	sqliteService, err := db.NewSQLiteService(cfg.Personalization.SQLitePath, log)
	if err != nil {
		log.Warn("SQLite init failed; personalization disabled", "error", err)
	} else {
		if err := sqliteService.AutoMigrateAll(); err != nil {
			log.Warn("SQLite auto migration failed", "error", err)
		}
		profileStore = personalization.NewStore(sqliteService.DB(), cfg.Personalization.MaxContextLines, log)
	}

	// Rooms + realtime
	log.Info("Setting up room store and realtime hub from main...")
	roomStore := rooms.NewStore(log)
	hub := realtime.NewHub(log)

	var frameBus bus.Bus
	if cfg.RedisAddr != "" {
		frameBus, err = bus.NewRedisBus(log, cfg.RedisAddr, cfg.RedisChannel)
		if err != nil {
			log.Warn("Redis bus init failed; falling back to local bus", "error", err)
			frameBus = bus.NewLocalBus()
		}
	} else {
		frameBus = bus.NewLocalBus()
	}

	// AI services
	log.Info("Setting up AI services from main...")
	agent, err := services.ResolveAgent(cfg, log)
	if err != nil {
		log.Error("Could not resolve AI provider", "error", err)
		os.Exit(1)
	}
	transcribeRouter := services.NewTranscribeRouter(cfg, log)
	archive := services.NewTranscriptArchive(cfg, log)
	prompts := ai.LoadPrompts("prompts", log)

	engine := ai.NewEngine(cfg, ai.EngineDeps{
		Store:    roomStore,
		Hub:      hub,
		Bus:      frameBus,
		Agent:    agent,
		Prompts:  prompts,
		Profiles: profileStore,
	}, log)
	defer engine.Close()

	// Handlers
	log.Info("Setting up handlers from main...")
	healthHandler := handlers.NewHealthHandler()
	preflightHandler := handlers.NewPreflightHandler(log, engine)
	roomHandler := handlers.NewRoomHandler(log, roomStore, engine)
	aiPatchHandler := handlers.NewAIPatchHandler(log, engine)
	transcribeHandler := handlers.NewTranscribeHandler(log, roomStore, engine, transcribeRouter, archive)
	personalBoardHandler := handlers.NewPersonalBoardHandler(log, engine)
	personalizationHandler := handlers.NewPersonalizationHandler(log, profileStore)
	wsHandler := handlers.NewWSHandler(log, roomStore, engine, hub)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		HealthHandler:          healthHandler,
		PreflightHandler:       preflightHandler,
		RoomHandler:            roomHandler,
		AIPatchHandler:         aiPatchHandler,
		TranscribeHandler:      transcribeHandler,
		PersonalBoardHandler:   personalBoardHandler,
		PersonalizationHandler: personalizationHandler,
		WSHandler:              wsHandler,
	})

	listener, port, err := listenWithScan(cfg.Server.Port, cfg.Server.PortScanSpan, log)
	if err != nil {
		log.Error("No free port in scan range", "start", cfg.Server.Port, "span", cfg.Server.PortScanSpan, "error", err)
		os.Exit(1)
	}
	srv := &http.Server{Handler: router}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server listening", "port", port)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Error("Server failed", "error", err)
	}

	if err := frameBus.Close(); err != nil {
		log.Warn("Bus close failed", "error", err)
	}
	if shutdownOtel != nil {
		_ = shutdownOtel(context.Background())
	}
	log.Info("Shutdown complete")
}

// listenWithScan tries each port in [start, start+span) until one binds.
func listenWithScan(start, span int, log *logger.Logger) (net.Listener, int, error) {
	var lastErr error
	for p := start; p < start+span; p++ {
		l, err := net.Listen("tcp", fmt.Sprintf(":%d", p))
		if err == nil {
			return l, p, nil
		}
		lastErr = err
		log.Warn("Port unavailable; trying next", "port", p, "error", err)
	}
	return nil, 0, lastErr
}
