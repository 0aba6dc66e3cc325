package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/triki-backend/internal/config"
	"github.com/rocketscienceinc/triki-backend/internal/repository"
	"github.com/rocketscienceinc/triki-backend/internal/repository/storage"
	"github.com/rocketscienceinc/triki-backend/internal/repository/storage/sqlite"
	"github.com/rocketscienceinc/triki-backend/internal/service"
	"github.com/rocketscienceinc/triki-backend/internal/telemetry"
	"github.com/rocketscienceinc/triki-backend/internal/tictactoe"
	"github.com/rocketscienceinc/triki-backend/internal/usecase"
	"github.com/rocketscienceinc/triki-backend/transport/rest"
	"github.com/rocketscienceinc/triki-backend/transport/websocket"
)

const shutdownTimeout = 10 * time.Second

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, conf.Telemetry.Endpoint, conf.Telemetry.ServiceName)
	if err != nil {
		return fmt.Errorf("could not set up tracing: %w", err)
	}

	defer func() {
		if err = shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			log.Error("could not flush traces", "error", err)
		}
	}()

	var redisStorage *redis.Client
	if conf.Redis.Enabled {
		redisAddrString := conf.Redis.GetRedisAddr()
		if redisAddrString == "" {
			return ErrAddrNotFound
		}

		redisStorage, err = storage.NewRedis(ctx, redisAddrString)
		if err != nil {
			return fmt.Errorf("could not connect to redis storage: %w", err)
		}

		defer func() {
			if err = redisStorage.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}()
	}

	historyRepo, closeHistory, err := newHistoryRepository(ctx, conf, redisStorage)
	if err != nil {
		return err
	}
	defer closeHistory()

	starter, err := tictactoe.NewStarterPolicy(conf.Game.Starter)
	if err != nil {
		return fmt.Errorf("could not create starter policy: %w", err)
	}

	var roomRepo repository.RoomRepository
	if redisStorage != nil {
		roomRepo = repository.NewRoomRepository(redisStorage, conf.Game.SnapshotTTL)
	}

	historyService := service.NewHistoryService(historyRepo)
	registry := service.NewRoomRegistry(logger, roomRepo, historyService, service.RegistryOptions{
		CodeLength:  conf.Game.CodeLength,
		IdleTimeout: conf.Game.IdleTimeout,
	})

	hub := websocket.NewHub(logger)
	gameUseCase := usecase.NewGameUseCase(logger, registry, historyService, hub, usecase.Options{
		Starter:          starter,
		PersistByDefault: conf.Game.PersistByDefault,
	})

	wsServer := websocket.New(logger, gameUseCase, hub)
	router := rest.NewRouter(rest.NewHandlers(logger, gameUseCase), wsServer.Handler(ctx))

	srv := &http.Server{
		Addr:              ":" + conf.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := srv.ListenAndServe(); httpErr != nil && !errors.Is(httpErr, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", httpErr)
		}
		return nil
	})

	group.Go(func() error {
		return registry.Run(groupCtx, conf.Game.ReapInterval)
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("Application context canceled, shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(groupCtx), shutdownTimeout)
		defer shutdownCancel()

		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			return fmt.Errorf("could not shut down HTTP server: %w", shutdownErr)
		}
		return nil
	})

	if err = group.Wait(); err != nil {
		return err
	}

	return nil
}

// newHistoryRepository - the history backend selected by config and a func releasing it.
func newHistoryRepository(ctx context.Context, conf *config.Config, redisStorage *redis.Client) (repository.HistoryRepository, func(), error) {
	switch conf.History.Backend {
	case config.HistoryRedis:
		return repository.NewRedisHistoryRepository(redisStorage), func() {}, nil
	case config.HistorySQLite:
		sqliteStorage, err := sqlite.New(conf.History.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open sqlite storage: %w", err)
		}

		if err = sqliteStorage.Init(ctx); err != nil {
			_ = sqliteStorage.Close()
			return nil, nil, fmt.Errorf("could not init sqlite storage: %w", err)
		}

		return repository.NewSQLiteHistoryRepository(sqliteStorage.Connection), func() { _ = sqliteStorage.Close() }, nil
	default:
		return repository.NewMemoryHistoryRepository(), func() {}, nil
	}
}
