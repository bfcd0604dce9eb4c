package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"assettrack/internal/config"
	"assettrack/internal/http/handlers"
	applog "assettrack/internal/log"
	"assettrack/internal/repos"
)

func main() {
	cfg := config.Load()
	logger := applog.Logger()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			logger.WithError(err).WithField("path", cfg.LogFile).Warn("log.file.unavailable")
		} else {
			defer f.Close()
			applog.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		logger.WithError(err).Fatal("db.open")
	}
	defer db.Close()
	if cfg.SeedDemo {
		if err := repos.SeedDemo(db); err != nil {
			logger.WithError(err).Fatal("seed.demo")
		}
	}

	deps := handlers.NewDeps(db, cfg, time.Now)
	app := handlers.NewApp(deps, handlers.AppOptions{AccessLog: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	logger.WithField("port", cfg.Port).Info("server.listen")
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.WithError(err).Fatal("server.listen")
	}
}
