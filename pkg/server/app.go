package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FusionRisk/pkg/config"
	xhttp "FusionRisk/pkg/http"
	pkgkafka "FusionRisk/pkg/kafka"
	applogger "FusionRisk/pkg/logger"
)

// Background is a worker started with the app and stopped on shutdown.
type Background interface {
	Start()
	Stop(ctx context.Context) error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	handler    xhttp.Routes
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	background []Background
	closers    []io.Closer
	httpServer *xhttp.Server
}

// New creates a new App. Closers are closed in reverse order after every
// worker has stopped.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Routes,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	background []Background,
	closers []io.Closer,
) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:        cfg,
		l:          l,
		handler:    handler,
		consumer:   consumer,
		kh:         kh,
		background: background,
		closers:    closers,
	}
}

// Server returns the HTTP server once Start has run.
func (a *App) Server() *xhttp.Server { return a.httpServer }

// Start launches the HTTP server, the Kafka consumer and background workers.
func (a *App) Start() error {
	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(a.l),
	)

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			return err
		}
		a.l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	for _, b := range a.background {
		b.Start()
	}

	return a.httpServer.Start()
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	if err := a.Start(); err != nil {
		a.l.Error("app start error", applogger.Error(err))
		_ = a.Shutdown(context.Background())
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Shutdown stops intake first (HTTP, consumer), then workers, then clients.
func (a *App) Shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	for _, b := range a.background {
		if err := b.Stop(shutdownCtx); err != nil {
			a.l.Warn("background worker stop error", applogger.Error(err))
		}
	}

	// Flush aggregated error logs while the producer is still open.
	a.l.Close()

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.l.Warn("close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
