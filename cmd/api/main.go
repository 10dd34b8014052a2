package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"relentless-frontier/common"
	"relentless-frontier/internal/config"
	"relentless-frontier/internal/frontier"
	"relentless-frontier/internal/logging"
	"relentless-frontier/internal/metrics"
	"relentless-frontier/internal/store"
)

const requestTimeout = 5 * time.Second

type server struct {
	frontier frontier.Frontier
	logger   *zap.Logger
}

func newServer(f frontier.Frontier, logger *zap.Logger) *server {
	return &server{
		frontier: f,
		logger:   logger,
	}
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	logger := logging.Must(cfg.Log.Development).Named("api")
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc, st, err := common.OpenFrontier(ctx, cfg, logger, reg)
	if err != nil {
		logger.Fatal("connect store", zap.Error(err))
	}
	defer func() {
		if err := st.Disconnect(); err != nil {
			logger.Warn("failed to disconnect store", zap.Error(err))
		}
	}()

	srv := newServer(svc, logger)
	if err := srv.prepare(ctx); err != nil {
		logger.Fatal("initialize frontier", zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           srv.routes(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("api shutdown error", zap.Error(err))
		}
	}()

	logger.Info("api listening", zap.String("addr", cfg.API.Addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("api server error", zap.Error(err))
		os.Exit(1)
	}
}

// prepare creates the id counter if it is missing. The api never resets the
// store; that is left to frontierctl init --force.
func (s *server) prepare(ctx context.Context) error {
	return s.frontier.Initialize(ctx, false)
}

func (s *server) routes(g prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(g))
	r.Get("/stats", s.handleStats)
	r.Route("/entries", func(r chi.Router) {
		r.Post("/", s.handleCreateEntry)
		r.Get("/{key}", s.handleGetEntry)
	})
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// handleCreateEntry adds a URL to the frontier.
//
// Method: POST
// Path:   /entries?url=...
// Example:
//
//	curl -X POST "http://localhost:8080/entries?url=https://a.com"
func (s *server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	rawURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if rawURL == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}
	if err := frontier.ValidateURL(rawURL); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := s.frontier.AddEntry(r.Context(), rawURL)
	if err != nil {
		s.writeError(w, "failed to add entry", err)
		return
	}

	writeJSON(w, entry, http.StatusCreated)
}

// handleGetEntry returns one entry by key or id.
//
// Method: GET
// Path:   /entries/{key}
// Example:
//
//	curl "http://localhost:8080/entries/NODE_ENTRY:1"
func (s *server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		http.Error(w, "missing entry key", http.StatusBadRequest)
		return
	}

	entry, ok, err := s.frontier.Get(r.Context(), key)
	if err != nil {
		s.writeError(w, "failed to load entry", err)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	writeJSON(w, entry, http.StatusOK)
}

// handleStats reports the last allocated id and the size of both sets.
//
// Method: GET
// Path:   /stats
func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.frontier.Stats(r.Context())
	if err != nil {
		s.writeError(w, "failed to load stats", err)
		return
	}

	writeJSON(w, stats, http.StatusOK)
}

func (s *server) writeError(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	}
	http.Error(w, msg, status)
}

func statusFor(err error) int {
	var opErr *store.OperationError
	switch {
	case errors.Is(err, frontier.ErrInvalidURL), errors.Is(err, frontier.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotConnected), errors.As(err, &opErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
