// Package inspect serves a debug view of a running reactive runtime.
//
// A Server is both an http.Handler and a signal.Observer. Attach it to the
// runtime to stream events to websocket clients, and mount it to expose the
// ownership tree, runtime counters and Prometheus metrics:
//
//	srv := inspect.New(nil)
//	loop := eventloop.New(eventloop.WithRuntimeOptions(signal.WithObserver(srv)))
//	srv.SetLoop(loop)
//
// Endpoints:
//
//	GET /healthz        liveness
//	GET /debug/stats    runtime and loop counters
//	GET /debug/tree     ownership trees registered with Track
//	GET /debug/events   websocket stream of runtime events
//	GET /metrics        Prometheus exposition
//
// Runtime state is only read through eventloop.Loop.Do, so handlers never
// touch the runtime from an HTTP goroutine.
package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/space/pkg/eventloop"
	"github.com/vango-dev/space/pkg/signal"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGatherer sets the Prometheus gatherer served on /metrics.
// Default: prometheus.DefaultGatherer
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		if g != nil {
			s.gatherer = g
		}
	}
}

// WithShutdownTimeout bounds graceful shutdown in ListenAndServe.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithClientBuffer sets how many events are buffered per websocket client
// before events are dropped for that client.
func WithClientBuffer(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.clientBuffer = n
		}
	}
}

// Server is the inspector.
type Server struct {
	loop            *eventloop.Loop
	logger          *slog.Logger
	gatherer        prometheus.Gatherer
	router          chi.Router
	upgrader        websocket.Upgrader
	shutdownTimeout time.Duration
	clientBuffer    int

	mu      sync.RWMutex
	roots   map[string]*signal.Node
	clients map[*client]struct{}
	dropped uint64
}

// New creates a Server reading state from loop. The loop may be nil when
// the server is only used as an event broadcaster; the state endpoints
// then answer 503.
func New(loop *eventloop.Loop, opts ...Option) *Server {
	s := &Server{
		loop:            loop,
		logger:          slog.Default(),
		gatherer:        prometheus.DefaultGatherer,
		shutdownTimeout: 5 * time.Second,
		clientBuffer:    64,
		roots:           make(map[string]*signal.Node),
		clients:         make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Debug endpoint; not meant to be exposed publicly
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "inspect")
	s.router = s.routes()
	return s
}

// SetLoop sets the loop read by the state endpoints. It is needed when the
// server must exist before the loop, to be passed as a runtime observer.
func (s *Server) SetLoop(loop *eventloop.Loop) {
	s.mu.Lock()
	s.loop = loop
	s.mu.Unlock()
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/debug", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/tree", s.handleTree)
		r.Get("/tree/{name}", s.handleTree)
		r.Get("/events", s.handleEvents)
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Track registers root under name for /debug/tree. Tracking a name again
// replaces the previous root.
func (s *Server) Track(name string, root *signal.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roots[name] = root
}

// Untrack removes a root registered with Track.
func (s *Server) Untrack(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roots, name)
}

// ClientCount returns the number of connected websocket clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) currentLoop() *eventloop.Loop {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loop
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

// StatsResponse is the body of /debug/stats.
type StatsResponse struct {
	Runtime signal.Stats    `json:"runtime"`
	Loop    eventloop.Stats `json:"loop"`
	Clients int             `json:"clients"`
	Dropped uint64          `json:"dropped_events"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	loop := s.currentLoop()
	if loop == nil {
		http.Error(w, "no event loop", http.StatusServiceUnavailable)
		return
	}

	var resp StatsResponse
	err := loop.Do(r.Context(), func(rt *signal.Runtime) error {
		resp.Runtime = rt.Stats()
		return nil
	})
	if err != nil {
		s.loopError(w, err)
		return
	}
	resp.Loop = loop.Stats()

	s.mu.RLock()
	resp.Clients = len(s.clients)
	resp.Dropped = s.dropped
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, resp)
}

// TreeEntry is one tracked root in /debug/tree.
type TreeEntry struct {
	Name string          `json:"name"`
	Root signal.NodeInfo `json:"root"`
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	loop := s.currentLoop()
	if loop == nil {
		http.Error(w, "no event loop", http.StatusServiceUnavailable)
		return
	}

	name := chi.URLParam(r, "name")

	s.mu.RLock()
	roots := make(map[string]*signal.Node, len(s.roots))
	for k, v := range s.roots {
		if name == "" || k == name {
			roots[k] = v
		}
	}
	s.mu.RUnlock()

	if name != "" && len(roots) == 0 {
		http.Error(w, "unknown root: "+name, http.StatusNotFound)
		return
	}

	names := make([]string, 0, len(roots))
	for k := range roots {
		names = append(names, k)
	}
	sort.Strings(names)

	entries := make([]TreeEntry, 0, len(names))
	err := loop.Do(r.Context(), func(*signal.Runtime) error {
		for _, k := range names {
			entries = append(entries, TreeEntry{Name: k, Root: roots[k].Info()})
		}
		return nil
	})
	if err != nil {
		s.loopError(w, err)
		return
	}

	if name != "" {
		writeJSON(w, http.StatusOK, entries[0])
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) loopError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, eventloop.ErrClosed):
		http.Error(w, "event loop stopped", http.StatusServiceUnavailable)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "request cancelled", http.StatusGatewayTimeout)
	default:
		s.logger.Error("inspect query failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// ListenAndServe serves the inspector on addr until ctx is cancelled, then
// shuts down gracefully and disconnects websocket clients.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("inspector starting", "address", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-ctx.Done():
		s.logger.Info("inspector shutting down")
		s.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
		return nil
	}
}
