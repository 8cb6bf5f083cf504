// Package server exposes liveness and metrics over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusDown     = "down"

	pingTimeout = 3 * time.Second
)

type (
	Pinger interface {
		Ping(ctx context.Context) error
	}

	Liveness interface {
		Alive(window time.Duration) bool
	}

	Health struct {
		Status   string `json:"status"`
		Database string `json:"database"`
		Bot      string `json:"bot"`
	}
)

type Server struct {
	addr   string
	db     Pinger
	loop   Liveness
	window time.Duration
	logger *log.Entry

	mu       sync.Mutex
	http     *http.Server
	listener net.Listener
}

func New(addr string, db Pinger, loop Liveness, window time.Duration) *Server {
	return &Server{
		addr:   addr,
		db:     db,
		loop:   loop,
		window: window,
		logger: log.WithField("object", "Server"),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", s.health)
	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// Check reports database and update loop state.
func (s *Server) Check(ctx context.Context) Health {
	h := Health{Status: statusOK, Database: statusOK, Bot: statusOK}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		s.logger.WithField("method", "Check").WithField("error", err.Error()).Warn("database ping failed")
		h.Database = statusDown
		h.Status = statusDegraded
	}
	if !s.loop.Alive(s.window) {
		h.Bot = statusDown
		h.Status = statusDegraded
	}
	return h
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	h := s.Check(r.Context())
	code := http.StatusOK
	if h.Status != statusOK {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(h)
}

func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv := s.http
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithField("error", err.Error()).Error("health server stopped")
		}
	}()
	s.logger.WithField("addr", ln.Addr().String()).Info("health server listening")
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.http = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Addr is the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}
