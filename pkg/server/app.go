package server

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"StockPulse/internal/handler/api"
	icache "StockPulse/internal/service/cache"
	"StockPulse/internal/usecase"
	pkgch "StockPulse/pkg/clickhouse"
	"StockPulse/pkg/config"
	xhttp "StockPulse/pkg/http"
	pkgkafka "StockPulse/pkg/kafka"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	l           *applogger.Logger
	collector   *usecase.OrderCollector
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	q           *queue.RedisQueue
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	Predictor   *usecase.InventoryPredictor
	History     *usecase.SalesHistoryUseCase
	OrderProc   *usecase.OrderProcessor
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.OrderCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	q *queue.RedisQueue,
) *App {
	return &App{
		cfg:       cfg,
		l:         l,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		chClient:  chClient,
		q:         q,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.l
	if l == nil {
		l, _ = applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	}

	// Setup Echo HTTP server using pkg/http and register routes via handler
	httpHandler := a.httpHandler
	if httpHandler == nil && a.Predictor != nil {
		h := api.NewInventoryEchoHandler(l, a.Predictor, a.History)

		reports := api.NewReportsHandler(a.Predictor)
		reports.SetLogger(l)
		if a.cfg.Redis.Enabled {
			reports.SetCache(icache.NewRedisCache(icache.RedisConfig{
				Addr:     a.cfg.Redis.Addr,
				Password: a.cfg.Redis.Password,
				DB:       a.cfg.Redis.DB,
			}))
		} else {
			reports.SetCache(icache.NewTTLCache())
		}
		h.SetReports(reports)
		httpHandler = h
	}

	a.httpServer = xhttp.NewServer(httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start queue workers draining deferred persistence jobs
	if a.q != nil {
		if err := a.q.Start(); err != nil {
			l.Error("queue start error", applogger.Error(err))
		} else {
			a.q.StartRetryProcessor()
			l.Info("persistence queue started")
		}
	}

	// Start collector when an order feed is configured
	if a.collector != nil && a.cfg.OrderFeed.WebSocketURL != "" {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				l.Error("collector error", applogger.Error(err))
			}
		}()
		l.Info("order collector started", applogger.Strings("stores", a.cfg.OrderFeed.StoreIDs))
	}

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.l
	if l == nil {
		var err error
		l, err = applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
		if err != nil {
			log.Printf("failed to create logger: %v", err)
			return err
		}
	}
	l.Info("shutting down...")

	// Stop collector (pipeline + stream)
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			l.Warn("collector stop error", applogger.Error(err))
		}
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Drain remaining persistence jobs
	if a.q != nil {
		if err := a.q.Stop(shutdownCtx); err != nil {
			l.Warn("queue stop error", applogger.Error(err))
		}
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Close order processor resources (publisher/storage)
	if a.OrderProc != nil {
		a.OrderProc.Close()
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
