package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Simplici0/woodshop/internal/config"
	"github.com/Simplici0/woodshop/internal/db"
	"github.com/Simplici0/woodshop/internal/logging"
	"github.com/Simplici0/woodshop/internal/metrics"
	"github.com/Simplici0/woodshop/internal/migrations"
	"github.com/Simplici0/woodshop/internal/seed"
	"github.com/Simplici0/woodshop/internal/store"
)

const sessionTTL = 7 * 24 * time.Hour

type server struct {
	auth            *authService
	store           *store.Store
	logger          *zap.Logger
	lowStockDefault float64
}

func main() {
	cfg := config.Load()

	logger := logging.Must(logging.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Development: cfg.IsDev(),
	})
	defer logger.Sync()

	for _, w := range cfg.Warnings {
		logger.Warn("configuration", zap.String("warning", w))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("refusing to start", zap.Error(err))
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(database, cfg.MigrationsDir); err != nil {
			logger.Fatal("failed to run database migrations", zap.Error(err))
		}
	}

	stats, err := seed.Run(database, seed.Config{
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
		DemoCatalog:   cfg.IsDev(),
	})
	if err != nil {
		logger.Fatal("failed to seed database", zap.Error(err))
	}
	logger.Info("seed finished", zap.Int("inserts", stats.Inserts), zap.Int("updates", stats.Updates))

	st := store.New(database)
	srv := &server{
		auth:            newAuthService(database, cfg.SessionSecret, sessionTTL),
		store:           st,
		logger:          logger,
		lowStockDefault: cfg.LowStockDefault,
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func (s *server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/admin/rates", s.handleGetRates)
		r.Post("/admin/rates", s.handleUpdateRates)

		r.Route("/api", func(r chi.Router) {
			r.Get("/dashboard", s.handleDashboard)

			r.Get("/clients", listHandler(s, s.store.ListClients))
			r.Post("/clients", createHandler(s, s.store.CreateClient))
			r.Get("/suppliers", listHandler(s, s.store.ListSuppliers))
			r.Post("/suppliers", createHandler(s, s.store.CreateSupplier))
			r.Get("/projects", listHandler(s, s.store.ListProjects))
			r.Post("/projects", createHandler(s, s.store.CreateProject))
			r.Get("/sales", listHandler(s, s.store.ListSales))
			r.Post("/sales", createHandler(s, s.store.CreateSale))
			r.Get("/purchases", listHandler(s, s.store.ListPurchases))
			r.Post("/purchases", createHandler(s, s.store.CreatePurchase))
			r.Get("/transactions", s.handleTransactions)
			r.Post("/transactions", s.handleCreateTransaction)

			r.Route("/products", func(r chi.Router) {
				r.Get("/", s.handleListProducts)
				r.Post("/", s.handleCreateProduct)
				r.Get("/export.csv", s.handleExportProducts)
				r.Post("/import", s.handleImportProducts)
				r.Get("/cycles", s.handleProductCycles)
				r.Get("/{id}", s.handleGetProduct)
				r.Put("/{id}", s.handleUpdateProduct)
				r.Delete("/{id}", s.handleDeleteProduct)
				r.Put("/{id}/components", s.handleSetComponents)
				r.Get("/{id}/cost", s.handleProductCost)
			})

			r.Route("/quotes", func(r chi.Router) {
				r.Get("/", s.handleQuotesList)
				r.Post("/", s.handleCreateQuote)
				r.Get("/{id}", s.handleQuoteDetail)
				r.Get("/{id}/text", s.handleQuoteText)
			})
		})
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DB().PingContext(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
