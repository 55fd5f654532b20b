package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/mypropai/manage-api/internal/authz"
	"github.com/mypropai/manage-api/internal/config"
	"github.com/mypropai/manage-api/internal/handlers"
	"github.com/mypropai/manage-api/internal/ledger"
	"github.com/mypropai/manage-api/internal/middleware"
	"github.com/mypropai/manage-api/internal/migration"
	"github.com/mypropai/manage-api/internal/notification"
	"github.com/mypropai/manage-api/internal/repository"
	"github.com/mypropai/manage-api/internal/routes"
	"github.com/mypropai/manage-api/internal/temporal"
	"github.com/mypropai/manage-api/internal/temporal/activities"
	"github.com/mypropai/manage-api/internal/temporal/workflows"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	_ "github.com/lib/pq" // PostgreSQL driver
	"go.temporal.io/api/serviceerror"
	tc "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

type application struct {
	config         *config.Config
	db             *sql.DB
	temporalClient tc.Client
	logger         zerolog.Logger
	engine         *ledger.Engine
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	temporalLogger := temporal.NewTemporalAdapter(logger)

	gooseAdapter := migration.NewGooseAdapter(logger)
	goose.SetLogger(gooseAdapter)

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	migration.RunMigrations(cfg.DatabaseURL, logger)

	// Initialize Temporal client.
	temporalClient, err := tc.Dial(tc.Options{
		HostPort: cfg.Temporal.HostPort,
		Logger:   temporalLogger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Unable to create Temporal client")
	}
	defer temporalClient.Close()

	// Posting engine, shared by the cron workflow and the manual trigger.
	ledgerRepo := repository.NewLedgerRepository(db)
	engine := ledger.NewEngine(ledgerRepo, ledger.NewEngineMetrics(), logger, cfg.Scheduler.AssessLateFees)

	// Create the application instance.
	app := &application{
		config:         cfg,
		db:             db,
		temporalClient: temporalClient,
		logger:         logger,
		engine:         engine,
	}

	// Start the Temporal worker in a separate goroutine.
	temporalWorker := app.startTemporalWorker(logger)

	// Schedule the daily posting workflow.
	app.ensureCronWorkflow(logger)

	// Initialize the HTTP router and middleware.
	router := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins([]string{"http://localhost:3000"}),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, temporalWorker, logger)

	logger.Info().Msg("Application terminated.")
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(logger zerolog.Logger) http.Handler {
	// Repositories
	propertyRepo := repository.NewPropertyRepository(app.db)
	unitRepo := repository.NewUnitRepository(app.db)
	leaseRepo := repository.NewLeaseRepository(app.db)
	tenantRepo := repository.NewTenantRepository(app.db)
	resolver := authz.NewOwnershipResolver(app.db)

	// Mailer for portal invites and password resets
	mailer, err := notification.NewSMTPMailer(app.config.Email)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure mailer")
	}

	inviteTTL := time.Duration(app.config.Scheduler.InviteTTLHours) * time.Hour
	resetTTL := time.Duration(app.config.Scheduler.ResetTTLHours) * time.Hour

	// Handlers
	authMiddleware := handlers.NewAuthMiddleware(app.config.JWTSecret)
	propertyHandler := handlers.NewPropertyHandler(propertyRepo, resolver, logger)
	unitHandler := handlers.NewUnitHandler(unitRepo, resolver, logger)
	leaseHandler := handlers.NewLeaseHandler(leaseRepo, tenantRepo, resolver, mailer, inviteTTL, app.config.Email.InviteURLTemplate, logger)
	commHandler := handlers.NewCommunicationHandler(leaseRepo, resolver, logger)
	tenantAuthHandler := handlers.NewTenantAuthHandler(tenantRepo, mailer, resetTTL, app.config.Email.ResetURLTemplate, app.config.JWTSecret, logger)
	portalHandler := handlers.NewTenantPortalHandler(leaseRepo, logger)
	schedulerHandler := handlers.NewSchedulerHandler(app.engine, logger)

	return routes.NewRouter(authMiddleware, propertyHandler, unitHandler, leaseHandler, commHandler, tenantAuthHandler, portalHandler, schedulerHandler)
}

func (app *application) startTemporalWorker(logger zerolog.Logger) worker.Worker {
	activityImpl := &activities.Activities{
		Engine: app.engine,
	}

	w := worker.New(app.temporalClient, temporal.TaskQueueName, worker.Options{})

	w.RegisterWorkflow(workflows.RecurringChargeWorkflow)
	w.RegisterActivity(activityImpl)

	// Start the worker in a goroutine so it doesn't block.
	go func() {
		logger.Info().Msg("Starting Temporal worker...")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("Unable to start worker")
		}
	}()

	return w
}

// ensureCronWorkflow starts the daily posting cron. A fixed workflow ID makes
// the call idempotent across restarts.
func (app *application) ensureCronWorkflow(logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := app.temporalClient.ExecuteWorkflow(ctx, tc.StartWorkflowOptions{
		ID:           temporal.CronWorkflowID,
		TaskQueue:    temporal.TaskQueueName,
		CronSchedule: app.config.Scheduler.CronSchedule,
	}, workflows.RecurringChargeWorkflow)

	var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &alreadyStarted) {
		logger.Info().Msg("Recurring charge cron workflow already scheduled")
		return
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to schedule recurring charge workflow")
	}
	logger.Info().Str("cron", app.config.Scheduler.CronSchedule).Msg("Recurring charge cron workflow scheduled")
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, temporalWorker worker.Worker, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	// Stop the Temporal worker.
	logger.Info().Msg("Stopping Temporal worker...")
	temporalWorker.Stop()
	logger.Info().Msg("Temporal worker stopped.")
}
