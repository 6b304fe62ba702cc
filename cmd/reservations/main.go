package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/space-reservations/internal/application"
	"github.com/example/space-reservations/internal/config"
	httptransport "github.com/example/space-reservations/internal/http"
	"github.com/example/space-reservations/internal/persistence/sqlite"
	"github.com/example/space-reservations/internal/persistence/sqlite/migration"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := migration.NewManager(pool.DB(), logger).RunMigrations(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	userRepo := sqlite.NewUserRepository(pool)
	spaceRepo := sqlite.NewSpaceRepository(pool)
	reservationRepo := sqlite.NewReservationRepository(pool)

	authService := application.NewAuthService(userRepo, nil, []byte(cfg.JWTSecret), cfg.TokenTTL, now, logger)
	userService := application.NewUserService(userRepo, nil, idGenerator, now, logger)
	spaceService := application.NewSpaceService(spaceRepo, reservationRepo, idGenerator, now, logger)
	reservationService := application.NewReservationService(reservationRepo, spaceRepo, userRepo, idGenerator, now, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:           httptransport.NewAuthHandler(authService, logger),
		Users:          httptransport.NewUserHandler(userService, logger),
		Spaces:         httptransport.NewSpaceHandler(spaceService, logger),
		Reservations:   httptransport.NewReservationHandler(reservationService, logger),
		AuthMiddleware: httptransport.RequireAuth(authService, logger),
		LoginLimiter:   httptransport.NewLoginRateLimiter(cfg.LoginRatePerMinute, cfg.LoginBurst, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("reservations API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}
