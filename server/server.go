// Package server exposes scans over HTTP.
//
//	GET /adv-scan?target=192.168.0.1-50   plain-text report
//	GET /healthz                          "ok"
//
// Only one scan runs at a time; further requests wait their turn.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"netmap/netutil"
	"netmap/output"
	"netmap/scanner"
	"netmap/target"
)

// Options configures a Server.
type Options struct {
	// Strict rejects unparseable targets with 400 instead of scanning them
	// as a literal host.
	Strict  bool
	Scope   *target.Scope
	Resolve target.Resolver // defaults to netutil.ResolveIPv4
	Logger  *zap.Logger
}

type Server struct {
	engine  *scanner.Engine
	strict  bool
	scope   *target.Scope
	resolve target.Resolver
	active  *semaphore.Weighted
	log     *zap.Logger
}

// New creates a Server that runs scans on engine.
func New(engine *scanner.Engine, opts Options) *Server {
	s := &Server{
		engine:  engine,
		strict:  opts.Strict,
		scope:   opts.Scope,
		resolve: opts.Resolve,
		active:  semaphore.NewWeighted(1),
		log:     opts.Logger,
	}
	if s.resolve == nil {
		s.resolve = netutil.ResolveIPv4
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log = s.log.With(zap.String("component", "server"))
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/adv-scan", s.handleScan)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	raw := strings.TrimSpace(r.URL.Query().Get("target"))
	if raw == "" {
		http.Error(w, "Missing target", http.StatusBadRequest)
		return
	}

	spec, err := target.Interpret(raw, s.strict)
	if err != nil {
		s.log.Info("rejected target", zap.String("target", raw), zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	spec, err = s.scope.Check(spec, s.resolve)
	if err != nil {
		s.log.Warn("target out of scope", zap.String("target", raw), zap.Error(err))
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	// wait for any running scan; give up only if the client leaves first
	if err := s.active.Acquire(r.Context(), 1); err != nil {
		s.log.Info("client left while queued", zap.String("target", raw), zap.Error(err))
		return
	}
	defer s.active.Release(1)

	s.log.Info("scan started",
		zap.String("target", raw),
		zap.Stringer("kind", spec.Kind),
		zap.Int("hosts", spec.Len()),
		zap.String("remote", r.RemoteAddr))

	// a started scan always runs to completion
	rep := s.engine.Scan(context.WithoutCancel(r.Context()), spec.Addresses())

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := output.WriteText(w, rep); err != nil {
		s.log.Warn("write response", zap.Error(err))
	}
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
