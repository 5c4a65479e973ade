package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"GammaPulse/internal/usecase"
	pkgch "GammaPulse/pkg/clickhouse"
	"GammaPulse/pkg/config"
	xhttp "GammaPulse/pkg/http"
	pkgkafka "GammaPulse/pkg/kafka"
	applogger "GammaPulse/pkg/logger"
	"GammaPulse/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg           *config.Config
	l             *applogger.Logger
	collector     *usecase.ChainCollector
	consumer      *pkgkafka.Consumer
	kh            pkgkafka.MessageHandler
	queueConsumer *queue.RedisQueue
	chClient      *pkgch.Client
	httpServer    *xhttp.Server
	httpHandler   xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.ChainCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	queueConsumer *queue.RedisQueue,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:           cfg,
		l:             l,
		collector:     collector,
		consumer:      consumer,
		kh:            kh,
		queueConsumer: queueConsumer,
		chClient:      chClient,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start collector (ingest pipeline + spot feed + polling loop)
	go func() {
		if err := a.collector.Start(ctx); err != nil {
			a.l.Error("collector error", applogger.Error(err))
		}
	}()
	a.l.Info("collector started", applogger.Strings("symbols", a.collector.Symbols()))

	// Start scan job workers if Redis queue is configured
	if a.queueConsumer != nil {
		if err := a.queueConsumer.Start(); err != nil {
			a.l.Error("scan queue start error", applogger.Error(err))
		} else {
			a.queueConsumer.StartRetryProcessor()
			a.l.Info("scan queue workers started")
		}
	}

	// Start consumer if the kafka backend is selected
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.l.Info("shutting down...")

	// Stop collector (poll loop, pipeline, spot feed)
	if err := a.collector.Shutdown(ctx); err != nil {
		a.l.Warn("collector stop error", applogger.Error(err))
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	// Stop consumer before closing the stores it writes to
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Stop scan workers
	if a.queueConsumer != nil {
		if err := a.queueConsumer.Stop(ctx); err != nil {
			a.l.Warn("scan queue stop error", applogger.Error(err))
		}
	}

	// Close snapshot processor resources (publisher, scan queue)
	if proc := a.collector.Processor(); proc != nil {
		proc.Close()
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
