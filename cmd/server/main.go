package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emberhollow/auth-service/config"
	"github.com/emberhollow/auth-service/internal/email"
	"github.com/emberhollow/auth-service/internal/health"
	"github.com/emberhollow/auth-service/internal/infrastructure/postgres"
	"github.com/emberhollow/auth-service/internal/janitor"
	ctxlog "github.com/emberhollow/auth-service/internal/log"
	"github.com/emberhollow/auth-service/internal/metrics"
	"github.com/emberhollow/auth-service/internal/token"
	httptransport "github.com/emberhollow/auth-service/internal/transport/http"
	"github.com/emberhollow/auth-service/internal/transport/http/handler"
	"github.com/emberhollow/auth-service/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
		stop()
		log.Fatalf("migrations: %v", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	userRepo := postgres.NewUserRepository(pool)
	linkRepo := postgres.NewMagicLinkRepository(pool)

	codec, err := token.NewCodec([]byte(cfg.JWTSecret), cfg.JWTAlgorithm, cfg.AccessTokenTTL())
	if err != nil {
		stop()
		log.Fatalf("token codec: %v", err)
	}

	sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)

	authUsecase := usecase.NewAuthUsecase(userRepo, linkRepo, codec, sender, cfg.MagicLinkTTL(), cfg.DefaultOrigin)
	authHandler := handler.NewAuthHandler(authUsecase, logger)

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	jan := janitor.New(linkRepo, cfg.MagicLinkRetention(), logger)
	if err := jan.Start(); err != nil {
		stop()
		log.Fatalf("janitor: %v", err)
	}

	srv := http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, authHandler, authUsecase),
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
	jan.Stop()
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
