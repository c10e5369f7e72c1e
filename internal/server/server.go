// Package server exposes health and metrics endpoints for operators.
package server

import (
	"context"
	"errors"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"cryptopay-bot/internal/utils"
)

var shutdownTimeout = 5 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

type Server struct {
	srv *http.Server
}

// New builds the ops router. An empty allowlist leaves /metrics open.
func New(addr string, allowed []netip.Prefix, checks map[string]Pinger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      NewRouter(allowed, checks),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
	}
}

func NewRouter(allowed []netip.Prefix, checks map[string]Pinger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthHandler(checks))
	r.Group(func(r chi.Router) {
		if len(allowed) > 0 {
			r.Use(allowlist(allowed))
		}
		r.Handle("/metrics", promhttp.Handler())
	})
	return r
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Failed to shut down ops server cleanly")
		}
	}()

	log.Info().Str("addr", s.srv.Addr).Msg("Ops endpoint listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func healthHandler(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				log.Warn().Err(err).Str("check", name).Msg("Health check failed")
				http.Error(w, name+" unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func allowlist(allowed []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !utils.IsAllowedIP(r.RemoteAddr, allowed) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
