// Package common holds the wiring shared by the frontier binaries.
package common

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"relentless-frontier/internal/config"
	"relentless-frontier/internal/frontier"
	"relentless-frontier/internal/metrics"
	"relentless-frontier/internal/store"
)

// ConnectStore builds a RedisStore from cfg and connects it.
func ConnectStore(ctx context.Context, cfg config.Redis) (*store.RedisStore, error) {
	st := store.NewRedisStore(store.Options{
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err := st.Connect(ctx, cfg.Host, cfg.Port, cfg.Password); err != nil {
		return nil, err
	}
	return st, nil
}

// OpenFrontier connects to the store and builds a frontier service on top of
// it. reg may be nil, in which case no metrics are recorded. The caller owns
// the returned store and must Disconnect it.
func OpenFrontier(ctx context.Context, cfg config.Config, logger *zap.Logger, reg prometheus.Registerer) (*frontier.Service, *store.RedisStore, error) {
	st, err := ConnectStore(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}

	opts := []frontier.Option{
		frontier.WithLogger(logger),
		frontier.WithClaimPolicy(ClaimPolicy(cfg.Claim)),
	}
	if reg != nil {
		opts = append(opts, frontier.WithMetrics(metrics.NewFrontier(reg)))
	}
	return frontier.New(st, opts...), st, nil
}

// ClaimPolicy converts the claim section of the config.
func ClaimPolicy(cfg config.Claim) frontier.ClaimPolicy {
	return frontier.ClaimPolicy{MaxScans: cfg.MaxScans, Backoff: cfg.Backoff}
}

// StartMetricsServer serves g on addr until ctx is done.
func StartMetricsServer(ctx context.Context, addr string, g prometheus.Gatherer, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown error", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("metrics listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()
}
