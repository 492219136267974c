// Package api serves zone scoring over JSON HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/zonefit/internal/config"
	"github.com/sells-group/zonefit/internal/scorer"
)

// maxBodyBytes caps a score request body.
const maxBodyBytes = 32 << 20

// Server is the HTTP surface over a Scorer.
type Server struct {
	router   chi.Router
	scorer   *scorer.Scorer
	defaults config.ScoreConfig
	http     *http.Server
}

// New builds the router. defaults supplies min score, limit and concurrency
// when a request leaves them out.
func New(s *scorer.Scorer, srv config.ServerConfig, defaults config.ScoreConfig) *Server {
	a := &Server{
		router:   chi.NewRouter(),
		scorer:   s,
		defaults: defaults,
	}

	origins := srv.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.RealIP)
	a.router.Use(logRequests)
	a.router.Use(middleware.Timeout(60 * time.Second))
	a.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	a.router.Get("/health", a.handleHealth)
	a.router.Route("/v1", func(r chi.Router) {
		r.Get("/dimensions", a.handleDimensions)
		r.Post("/score", a.handleScore)
	})

	a.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", srv.Port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return a
}

// Handler returns the root handler.
func (a *Server) Handler() http.Handler { return a.router }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (a *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("api: starting server", zap.String("addr", a.http.Addr))
		errCh <- a.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "api: listen")
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("api: shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "api: shutdown")
	}
	return nil
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
