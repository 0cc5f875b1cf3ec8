// Package web is the browser driver: a single chat page backed by an
// explicit in-memory session store.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"biochat/pkg/ai"
	"biochat/pkg/conversation"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const (
	cookieName      = "biochat_session"
	shutdownTimeout = 5 * time.Second
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Options configures a Server.
type Options struct {
	// Generator answers every session; usually the process-wide *ai.Shared.
	Generator    ai.Generator
	Template     ai.ChatTemplate
	SystemPrompt string
	Model        string
	Defaults     Settings
	// SessionIdle is how long an untouched session is kept. Zero keeps
	// sessions until the process exits.
	SessionIdle time.Duration
	// Loaded reports whether the capability is built, for /healthz.
	Loaded func() bool
}

// Server is the HTTP front-end.
type Server struct {
	mux        *chi.Mux
	store      *Store
	gen        ai.Generator
	metrics    *Metrics
	page       *template.Template
	model      string
	loaded     func() bool
	evictEvery time.Duration
}

// New builds the router and session store.
func New(opts Options) (*Server, error) {
	if opts.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if opts.Template == nil {
		return nil, fmt.Errorf("chat template is required")
	}
	if opts.Defaults == (Settings{}) {
		opts.Defaults = DefaultSettings()
	}

	page, err := template.New("index.html.tmpl").Funcs(template.FuncMap{
		"lower": strings.ToLower,
	}).ParseFS(templateFS, "templates/index.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}

	store := NewStore(func() *conversation.Session {
		return conversation.NewSession(opts.SystemPrompt, opts.Template)
	}, opts.Defaults.Clamp(), opts.SessionIdle)

	evictEvery := opts.SessionIdle / 4
	if evictEvery > 0 && evictEvery < time.Second {
		evictEvery = time.Second
	}

	s := &Server{
		mux:        chi.NewRouter(),
		store:      store,
		gen:        opts.Generator,
		metrics:    NewMetrics(store.Len),
		page:       page,
		model:      opts.Model,
		loaded:     opts.Loaded,
		evictEvery: evictEvery,
	}
	s.mux.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		requestLogger,
	)
	s.setupHandlers()
	return s, nil
}

func (s *Server) setupHandlers() {
	s.mux.Get("/", s.handleIndex)
	s.mux.Post("/ask", s.handleAsk)
	s.mux.Post("/retry", s.handleRetry)
	s.mux.Post("/reset", s.handleReset)
	s.mux.Get("/healthz", s.handleHealth)
	s.mux.Get("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}).ServeHTTP)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.mux }

// Store returns the session store.
func (s *Server) Store() *Store { return s.store }

// Start serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http_server_start", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.store.RunEvictor(gctx, s.evictEvery, func(n int) {
			s.metrics.evictions.Add(float64(n))
		})
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("http_server_shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
