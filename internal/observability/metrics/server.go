package metrics

import (
	rtsup "carebot/internal/runtime/supervisor"
	logx "carebot/pkg/logx"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DefaultAddr = "127.0.0.1:9464"
	DefaultPath = "/metrics"
)

// Config controls the optional metrics HTTP server.
//
// Prefer binding to localhost (default); the endpoint has no auth.
type Config struct {
	Enabled bool
	Addr    string
	Path    string
}

func (c Config) normalized() Config {
	c.Addr = strings.TrimSpace(c.Addr)
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	c.Path = strings.TrimSpace(c.Path)
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if !strings.HasPrefix(c.Path, "/") {
		c.Path = "/" + c.Path
	}
	return c
}

// Server serves a Prometheus gatherer. The listener runs under a restarting
// supervisor goroutine so a transient bind failure heals itself.
type Server struct {
	gatherer prometheus.Gatherer
	log      logx.Logger

	mu   sync.Mutex
	cfg  Config
	sup  *rtsup.Supervisor
	addr string // bound address while serving
}

func NewServer(cfg Config, g prometheus.Gatherer, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{cfg: cfg.normalized(), gatherer: g, log: log.With(logx.String("comp", "metrics"))}
}

// Addr returns the bound listen address, or "" when not serving.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Reconfigure applies cfg and starts, stops or restarts the server as
// needed. Safe to call during hot reload.
func (s *Server) Reconfigure(ctx context.Context, cfg Config) {
	cfg = cfg.normalized()
	s.mu.Lock()
	prev := s.cfg
	running := s.sup != nil
	s.cfg = cfg
	s.mu.Unlock()

	switch {
	case !cfg.Enabled:
		if running {
			s.Stop(ctx)
		}
	case !running:
		s.Start(ctx)
	case prev.Addr != cfg.Addr || prev.Path != cfg.Path:
		s.Stop(ctx)
		s.Start(ctx)
	}
}

// Start is idempotent. It returns immediately; serving happens in the
// background until Stop or ctx cancellation.
func (s *Server) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sup != nil || !s.cfg.Enabled {
		return
	}
	s.sup = rtsup.New(ctx,
		rtsup.WithLogger(s.log),
		// metrics are optional; never take the process down.
		rtsup.WithCancelOnError(false),
	)
	cfg := s.cfg
	s.sup.GoRestart("http.serve", func(c context.Context) error {
		return s.serveOnce(c, cfg)
	}, rtsup.WithRestartBackoff(500*time.Millisecond, 10*time.Second))
}

// Stop shuts the server down and waits (bounded by ctx) for it to exit.
func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	sup := s.sup
	s.sup = nil
	s.mu.Unlock()
	if sup == nil {
		return
	}
	if err := sup.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Debug("metrics stop", logx.Err(err))
	}
	s.log.Info("metrics stopped")
}

// Handler returns the HTTP handler serving path and /healthz.
func (s *Server) Handler(path string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) serveOnce(ctx context.Context, cfg Config) error {
	if !isLoopbackAddr(cfg.Addr) {
		s.log.Warn("metrics bound to non-loopback addr", logx.String("addr", cfg.Addr))
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", cfg.Addr)
	if err != nil {
		if ctx.Err() != nil {
			return context.Canceled
		}
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(cfg.Path),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.addr = ""
		s.mu.Unlock()
	}()

	go func() {
		<-ctx.Done()
		cctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = srv.Shutdown(cctx)
		cancel()
	}()

	s.log.Info("metrics started", logx.String("addr", ln.Addr().String()), logx.String("path", cfg.Path))
	err = srv.Serve(ln)
	if ctx.Err() != nil {
		return context.Canceled
	}
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return errors.New("metrics server exited unexpectedly")
	}
	return err
}

func isLoopbackAddr(addr string) bool {
	h, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	h = strings.TrimSpace(h)
	if h == "" {
		// all interfaces
		return false
	}
	if strings.EqualFold(h, "localhost") {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}
