// @title           Travel Divider API
// @version         1.0
// @description     Shared trip expenses: allocation, settlement, receipts and activity.
// @BasePath        /api/v1
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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Arcturus91/travel-divider/docs"
	"github.com/Arcturus91/travel-divider/internal/config"
	"github.com/Arcturus91/travel-divider/internal/database"
	"github.com/Arcturus91/travel-divider/internal/expense"
	expensesplit "github.com/Arcturus91/travel-divider/internal/expense/split"
	"github.com/Arcturus91/travel-divider/internal/notification"
	"github.com/Arcturus91/travel-divider/internal/receipt"
	"github.com/Arcturus91/travel-divider/internal/roster"
	"github.com/Arcturus91/travel-divider/internal/settlement"
	"github.com/Arcturus91/travel-divider/internal/trip"
	"github.com/Arcturus91/travel-divider/pkg/logging"
	mw "github.com/Arcturus91/travel-divider/pkg/middleware"
)

func main() {
	// Load .env file
	envErr := godotenv.Load()

	// Load configuration
	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel)
	if envErr != nil {
		logger.Info("no .env file found, using environment variables")
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Money is written as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connection
	db, err := database.Open(ctx, cfg.DBDriver, cfg.DSN(), logger)
	if err != nil {
		return err
	}
	defer db.Close()

	receipts, err := receipt.NewStore(receipt.Options{
		Dir:            cfg.ReceiptsDir,
		SigningKey:     cfg.ReceiptsSigningKey,
		BaseURL:        cfg.PublicBaseURL,
		UploadTTL:      cfg.UploadTTL,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		return err
	}

	rosterStore, err := roster.NewStore(cfg.RosterPath)
	if err != nil {
		return err
	}
	defer rosterStore.Close()

	// Split Strategy Factory (Factory Pattern)
	splitFactory := expensesplit.NewSplitStrategyFactory()

	// Notification feature
	notificationRepo := notification.NewRepository(db)
	notificationService := notification.NewService(notificationRepo)
	notificationHandler := notification.NewHandler(notificationService)

	// Roster feature
	rosterService := roster.NewService(rosterStore)
	rosterHandler := roster.NewHandler(rosterService, logger)

	// Trip feature
	tripRepo := trip.NewRepository(db)
	tripService := trip.NewService(tripRepo)
	tripHandler := trip.NewHandler(tripService, logger)

	// Expense feature (split factory, receipts and activity feed injected)
	expenseRepo := expense.NewRepository(db)
	expenseService := expense.NewService(expenseRepo, receipts, notificationService, splitFactory, cfg.MinParticipants, logger).
		WithTrips(tripService)
	expenseHandler := expense.NewHandler(expenseService, receipts.MaxUploadBytes(), logger)

	// Settlement feature
	settlementService := settlement.NewService(expenseService, rosterService, logger)
	settlementHandler := settlement.NewHandler(settlementService, logger)

	// Receipt objects
	receiptHandler := receipt.NewHandler(receipts, logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORSOptions(cfg.CORSOrigin)))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Mount feature routers
		r.Mount("/trips", tripHandler.Routes())
		r.Mount("/expenses", expenseHandler.Routes())
		r.Mount("/settlements", settlementHandler.Routes())
		r.Mount("/receipts", receiptHandler.Routes())
		r.Mount("/participants", rosterHandler.Routes())
		r.Mount("/notifications", notificationHandler.Routes())
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "db_driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
