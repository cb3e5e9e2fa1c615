/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the shift calendar server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Initialize SQLite store
  3. Choose the submission backend (http, amqp or none)
  4. Reconcile submissions interrupted mid-send
  5. Load the current week into the calendar
  6. Start the tracking refresher
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides SERVER_PORT)
  -db      SQLite database path (overrides DATABASE_PATH)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  See config/config.go. BACKEND_KIND selects the sender:
    http  POST to BACKEND_URL
    amqp  publish to RABBITMQ_QUEUE on RABBITMQ_DSN
    none  weeks are queued; every send fails until a backend is configured

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the refresher
  2. Stop accepting new connections
  3. Wait for active requests to complete (SERVER_SHUTDOWN_TIMEOUT)
  4. Close broker and database connections

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Environment variables
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/httplog/v3"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/warp/shift-calendar/api"
	"github.com/warp/shift-calendar/calendar"
	"github.com/warp/shift-calendar/config"
	"github.com/warp/shift-calendar/store/sqlite"
	"github.com/warp/shift-calendar/submission"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Flags override the environment
	port := flag.Int("port", cfg.Server.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.Database.Path, "SQLite database path")
	flag.Parse()

	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.SlogLevel(),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(slog.String("app", "shift-calendar"))
	slog.SetDefault(logger)

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	sender, closeSender, err := newSender(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSender()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load the current week
	today := calendar.Today(nil)
	weekStart := today.WeekStart()
	initial, err := calendar.Load(ctx, store, weekStart, weekStart.AddDays(6))
	if err != nil {
		return fmt.Errorf("load calendar: %w", err)
	}
	cal := calendar.New(initial, calendar.WithLogger(logger), calendar.WithLoadedRange(weekStart, weekStart.AddDays(6)))

	queue := submission.NewQueue(cal, store, sender, submission.WithLogger(logger))
	if n, err := queue.Reconcile(ctx); err != nil {
		return fmt.Errorf("reconcile submissions: %w", err)
	} else if n > 0 {
		logger.Warn("marked interrupted submissions as failed", "count", n)
	}

	handler := api.NewHandler(cal, store, queue, logger)

	refresher := calendar.NewRefresher(cal, logger)
	refresher.Interval = cfg.RefreshInterval
	refresher.Source = store
	refresher.Range = handler.VisibleRange
	refresher.Start(ctx)
	defer refresher.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      api.NewRouter(handler, logger, cfg.CORSOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr, "db", *dbPath, "backend", cfg.Backend.Kind)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	refresher.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// newSender builds the submission backend named by BACKEND_KIND. The
// returned close function is always safe to call.
func newSender(cfg *config.Config, logger *slog.Logger) (submission.Sender, func(), error) {
	switch cfg.Backend.Kind {
	case config.BackendHTTP:
		return submission.NewHTTPSender(cfg.Backend.URL, cfg.Backend.Timeout, cfg.Backend.ClientVersion), func() {}, nil

	case config.BackendAMQP:
		conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to rabbitmq: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("open rabbitmq channel: %w", err)
		}
		if err := submission.DeclareQueue(ch, cfg.RabbitMQ.Queue); err != nil {
			ch.Close()
			conn.Close()
			return nil, nil, fmt.Errorf("declare queue %s: %w", cfg.RabbitMQ.Queue, err)
		}
		logger.Info("publishing submissions to rabbitmq", "queue", cfg.RabbitMQ.Queue)
		sender := &submission.AMQPSender{
			Channel:        ch,
			Queue:          cfg.RabbitMQ.Queue,
			ClientVersion:  cfg.Backend.ClientVersion,
			PublishTimeout: cfg.RabbitMQ.PublishTimeout,
		}
		return sender, func() {
			ch.Close()
			conn.Close()
		}, nil
	}

	logger.Warn("no submission backend configured; queued weeks will fail to send")
	return submission.SenderFunc(func(context.Context, calendar.WeeklySubmission) error {
		return errors.New("no submission backend configured")
	}), func() {}, nil
}
