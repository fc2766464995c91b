package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"github.com/heyimjames/penang-growth-lab-sub002/heuristics"
	"github.com/heyimjames/penang-growth-lab-sub002/internal/config"
	"github.com/heyimjames/penang-growth-lab-sub002/internal/logger"
	"github.com/heyimjames/penang-growth-lab-sub002/internal/ratelimit"
	"github.com/heyimjames/penang-growth-lab-sub002/internal/telemetry"
	"github.com/heyimjames/penang-growth-lab-sub002/letters"
	"github.com/heyimjames/penang-growth-lab-sub002/spam"
	"github.com/heyimjames/penang-growth-lab-sub002/userdata"
)

// adminHeader carries the signed-in email, set by the auth gateway
const adminHeader = "X-User-Email"

type Server struct {
	engine   *heuristics.Engine
	analyzer *spam.Analyzer
	drafter  *letters.Drafter
	limiter  ratelimit.Limiter
	proxies  []netip.Prefix
	timeout  time.Duration
	ping     func(ctx context.Context) error
	closers  []func() error
	now      func() time.Time
	router   *chi.Mux
}

// deps are the collaborators a Server is assembled from
type deps struct {
	users      userdata.Store
	heuristics heuristics.Store
	drafter    *letters.Drafter
	limiter    ratelimit.Limiter
	proxies    []netip.Prefix
	adminEmail string
	timeout    time.Duration
	ping       func(ctx context.Context) error
	closers    []func() error
}

func NewServer(ctx context.Context, cfg config.Config) (*Server, error) {
	d := deps{
		adminEmail: cfg.AdminEmail,
		timeout:    cfg.RequestTimeout,
	}

	proxies, err := ratelimit.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}
	d.proxies = proxies

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		d.users = userdata.NewPostgresStore(db)
		d.heuristics = heuristics.NewPostgresStore(db)
		d.ping = db.PingContext
		d.closers = append(d.closers, db.Close)

	case config.BackendSQLite:
		store, err := userdata.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		d.users = store
		d.heuristics = heuristics.NewInMemoryStore()
		d.closers = append(d.closers, store.Close)

	default:
		d.users = userdata.NewMemoryStore()
		d.heuristics = heuristics.NewInMemoryStore()
	}
	logger.Info("user store ready", "backend", cfg.StoreBackend)

	if cfg.SeedHeuristics {
		if err := heuristics.Seed(d.heuristics); err != nil {
			closeAll(d.closers)
			return nil, fmt.Errorf("failed to seed heuristics: %w", err)
		}
	}

	var caller letters.LLMCaller
	if cfg.AnthropicAPIKey != "" {
		c, err := letters.NewAnthropicCaller(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		if err != nil {
			closeAll(d.closers)
			return nil, err
		}
		caller = c
		logger.Info("letter drafting uses LLM", "model", c.ModelName())
	} else {
		logger.Warn("ANTHROPIC_API_KEY not set, letters use the template")
	}
	d.drafter = letters.NewDrafter(caller, cfg.LLMTimeout)

	if cfg.RedisURL != "" {
		client, err := ratelimit.NewRedisClient(cfg.RedisURL)
		if err != nil {
			closeAll(d.closers)
			return nil, err
		}
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, rate limiting will fail open", "error", err)
		}
		d.limiter = ratelimit.NewRedisLimiter(client, cfg.RateLimitRequests, cfg.RateLimitWindow)
		d.closers = append(d.closers, client.Close)
	} else {
		l := ratelimit.NewMemoryLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
		d.limiter = l
		d.closers = append(d.closers, func() error { l.Stop(); return nil })
	}

	s, err := newServer(d)
	if err != nil {
		closeAll(d.closers)
		return nil, err
	}
	return s, nil
}

func newServer(d deps) (*Server, error) {
	engine, err := heuristics.NewEngine(d.heuristics)
	if err != nil {
		return nil, err
	}

	heuristicList, err := engine.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list heuristics: %w", err)
	}
	logger.Info("heuristics compiled", "count", len(heuristicList))

	if d.timeout <= 0 {
		d.timeout = 60 * time.Second
	}

	s := &Server{
		engine:   engine,
		analyzer: spam.NewAnalyzer(d.users, engine, d.adminEmail),
		drafter:  d.drafter,
		limiter:  d.limiter,
		proxies:  d.proxies,
		timeout:  d.timeout,
		ping:     d.ping,
		closers:  d.closers,
		now:      time.Now,
	}

	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(telemetry.Middleware)
	r.Use(logger.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/api/v1/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(ratelimit.Middleware(s.limiter, s.proxies))
		}

		r.Post("/api/v1/tools/case-strength", s.handleCaseStrength)
		r.Post("/api/v1/tools/payment-protection", s.handlePaymentProtection)
		r.Post("/api/v1/tools/small-claims", s.handleSmallClaims)
		r.Post("/api/v1/tools/mer", s.handleMER)
		r.Post("/api/v1/letters/draft", s.handleDraftLetter)
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Post("/users/{userId}/spam-analysis", s.handleSpamAnalysis)
		r.Get("/users/flagged", s.handleListFlagged)

		r.Route("/heuristics", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/", s.handleListHeuristics)
			r.Post("/", s.handleCreateHeuristic)
			r.Put("/{heuristicId}", s.handleUpdateHeuristic)
			r.Delete("/{heuristicId}", s.handleDeleteHeuristic)
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases the stores and limiter
func (s *Server) Close() error {
	return closeAll(s.closers)
}

func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		if err := s.ping(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	heuristicList, err := s.engine.List()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "failed to list heuristics", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "healthy",
		"heuristics": len(heuristicList),
		"counters":   logger.Counters(),
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	respondJSON(w, status, response)
}

func main() {
	configPath := flag.String("config", "configs/default.yaml", "Path to the YAML config file")
	envFile := flag.String("env", ".env", "Path to a .env file")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warn("unknown log level, using INFO", "level", cfg.LogLevel)
	}
	logger.SetLevel(level)

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		logger.Fatal("failed to set up tracing", "error", err)
	}

	server, err := NewServer(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: server.timeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := server.Close(); err != nil {
		logger.Error("failed to close server resources", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("failed to flush traces", "error", err)
	}

	logger.Info("server stopped")
}
