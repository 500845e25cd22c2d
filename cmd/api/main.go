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

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	"github.com/guiadoapostador/tipster-api/internal/app"
	"github.com/guiadoapostador/tipster-api/internal/config"
	"github.com/guiadoapostador/tipster-api/internal/observability"
	"github.com/guiadoapostador/tipster-api/internal/platform/logging"
)

func main() {
	// .env is optional; real deployments inject config through the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	appLogger, logShutdown, err := observability.InitBetterStackLogger(cfg, logging.NewJSON(cfg.LogLevel))
	if err != nil {
		panic(err)
	}
	logging.SetDefault(appLogger)

	httpLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slogLevel(cfg.LogLevel),
	}))

	uptraceShutdown, err := observability.InitUptrace(cfg, appLogger)
	if err != nil {
		appLogger.Error("init uptrace", "error", err)
		os.Exit(1)
	}

	pyroscopeStop, err := observability.InitPyroscope(cfg, httpLogger)
	if err != nil {
		appLogger.Error("init pyroscope", "error", err)
		os.Exit(1)
	}

	pprofSrv, err := observability.StartPprofServer(cfg, httpLogger)
	if err != nil {
		appLogger.Error("start pprof server", "error", err)
		os.Exit(1)
	}

	srv, err := app.NewHTTPServer(cfg, appLogger, httpLogger)
	if err != nil {
		appLogger.Error("build app", "error", err)
		os.Exit(1)
	}

	go func() {
		appLogger.Info("http server starting", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("graceful shutdown failed", "error", err)
	}
	if err := observability.StopPprofServer(pprofSrv, httpLogger, 5*time.Second); err != nil {
		appLogger.Error("stop pprof server", "error", err)
	}
	if err := pyroscopeStop(); err != nil {
		appLogger.Error("stop pyroscope", "error", err)
	}
	if err := uptraceShutdown(shutdownCtx); err != nil {
		appLogger.Error("shutdown uptrace", "error", err)
	}
	if err := logShutdown(shutdownCtx); err != nil {
		appLogger.Error("shutdown log shipper", "error", err)
	}

	appLogger.Info("http server stopped")
	_ = appLogger.Sync()
}

func slogLevel(level logging.Level) slog.Level {
	switch {
	case level <= zapcore.DebugLevel:
		return slog.LevelDebug
	case level == zapcore.WarnLevel:
		return slog.LevelWarn
	case level >= zapcore.ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
