package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"fsubmedia/internal/registry"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Server is a small ops HTTP API running beside the bot:
// liveness plus registry stats.
type Server struct {
	reg  *registry.Registry
	log  *zap.Logger
	http *http.Server
}

func New(reg *registry.Registry, port string, log *zap.Logger) *Server {
	s := &Server{reg: reg, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", s.health)
	r.Get("/stats", s.stats)

	s.http = &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.http.Shutdown(shutdownCtx)
	}()

	s.log.Info("ops api listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error("ops api failed", zap.Error(err))
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	n, err := s.reg.Count(r.Context())
	if err != nil {
		s.log.Error("stats query failed", zap.Error(err))
		http.Error(w, "storage unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int64{"stored_records": n})
}
