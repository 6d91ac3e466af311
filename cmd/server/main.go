package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ugobe007/merlin-quote/internal/config"
	"github.com/ugobe007/merlin-quote/internal/db"
	"github.com/ugobe007/merlin-quote/internal/migrations"
	"github.com/ugobe007/merlin-quote/internal/pricing"
	"github.com/ugobe007/merlin-quote/internal/pricing/store"
	"github.com/ugobe007/merlin-quote/internal/seed"
	"github.com/ugobe007/merlin-quote/internal/sizing"
)

type server struct {
	db         *sql.DB
	log        zerolog.Logger
	calculator *sizing.Calculator
	resolver   *pricing.Resolver
	pricing    *store.Store
	adminToken string
}

func main() {
	cfg := config.Load()
	logger := newLogger(cfg)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(database); err != nil {
			logger.Fatal().Err(err).Msg("failed to run database migrations")
		}
	}

	stats, err := seed.Run(database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to seed pricing catalog")
	}
	if stats.Inserts > 0 {
		logger.Info().Int("inserts", stats.Inserts).Msg("seeded default pricing catalog")
	}

	pricingStore := store.New(database, logger)
	if err := pricingStore.Refresh(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("failed to load pricing snapshot")
	}

	srv := &server{
		db:         database,
		log:        logger,
		calculator: sizing.NewCalculator(sizing.MustCatalog()),
		resolver:   pricing.NewResolver(pricingStore),
		pricing:    pricingStore,
		adminToken: cfg.AdminToken,
	}

	addr := ":" + cfg.Port
	logger.Info().Str("addr", addr).Msg("listening")
	if err := http.ListenAndServe(addr, srv.routes()); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var out = zerolog.New(os.Stderr)
	if cfg.IsDev() {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return out.Level(level).With().Timestamp().Str("component", "server").Logger()
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/quotes", s.handleCreateQuote)
		r.Get("/quotes", s.handleListQuotes)
		r.Get("/quotes/{id}", s.handleGetQuote)
		r.Get("/facility-types", s.handleFacilityTypes)
	})
	r.Route("/admin/pricing", func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Get("/tiers/{category}", s.handleAdminTierGet)
		r.Put("/tiers/{category}", s.handleAdminTierPut)
		r.Get("/markups", s.handleAdminMarkupsGet)
		r.Put("/markups", s.handleAdminMarkupsPut)
		r.Post("/refresh", s.handleAdminRefresh)
	})
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
