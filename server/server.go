// Package server exposes an engine over the network: a Connect service
// (HTTP/JSON and the gRPC protocols), the same service on grpc-go, and a
// language server for editors.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"
	"google.golang.org/grpc"

	"github.com/chazu/stackfx"
	"github.com/chazu/stackfx/namespace"
)

var log = commonlog.GetLogger("stackfx.server")

// Server serves the eval service for one engine.
type Server struct {
	engine   *stackfx.Engine
	sessions *SessionStore
	eval     *EvalService
	mux      *http.ServeMux
	grpc     *grpc.Server

	stopSweeper func()
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	sweepInterval time.Duration
	sessionTTL    time.Duration
}

// WithSessionTTL sets how long an idle session survives and how often
// idle sessions are looked for.
func WithSessionTTL(interval, ttl time.Duration) ServerOption {
	return func(c *serverConfig) {
		c.sweepInterval = interval
		c.sessionTTL = ttl
	}
}

// New creates a Server for engine.
func New(engine *stackfx.Engine, opts ...ServerOption) *Server {
	cfg := &serverConfig{
		sweepInterval: 5 * time.Minute,
		sessionTTL:    30 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	sessions := NewSessionStore(engine)
	s := &Server{
		engine:   engine,
		sessions: sessions,
		eval:     NewEvalService(engine, sessions),
		mux:      http.NewServeMux(),
		grpc:     grpc.NewServer(),
	}

	s.mux.Handle(TypeOfProcedure, connect.NewUnaryHandler(TypeOfProcedure, s.eval.TypeOf))
	s.mux.Handle(RunProcedure, connect.NewUnaryHandler(RunProcedure, s.eval.Run))
	s.mux.Handle(DefineProcedure, connect.NewUnaryHandler(DefineProcedure, s.eval.Define))
	s.mux.Handle(CreateSessionProcedure, connect.NewUnaryHandler(CreateSessionProcedure, s.eval.CreateSession))
	s.mux.Handle(DestroySessionProcedure, connect.NewUnaryHandler(DestroySessionProcedure, s.eval.DestroySession))
	RegisterGRPC(s.grpc, s.eval)

	s.stopSweeper = sessions.StartSweeper(cfg.sweepInterval, cfg.sessionTTL)

	return s
}

// Handler returns the HTTP handler serving the Connect endpoints.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Sessions returns the server's session store.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// ListenAndServe serves Connect on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	hs := &http.Server{Addr: addr, Handler: s.mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}()

	log.Noticef("Connect (HTTP/JSON) listening on http://%s%s", addr, RunProcedure)
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ServeGRPC serves gRPC on lis until ctx is done.
func (s *Server) ServeGRPC(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		s.grpc.GracefulStop()
	}()

	log.Noticef("gRPC listening on %s", lis.Addr())
	return s.grpc.Serve(lis)
}

// Watch reloads the engine's namespace whenever one of paths changes,
// until ctx is done. base supplies the words the files build on. A
// reload that fails leaves the current namespace in place.
func (s *Server) Watch(ctx context.Context, base *namespace.Registry, paths []string) error {
	return namespace.Watch(ctx, base, paths, func(reg *namespace.Registry, err error) {
		if err != nil {
			log.Errorf("namespace reload failed: %s", err)
			return
		}
		s.engine.SetNamespace(reg)
	})
}

// Stop shuts down the server.
func (s *Server) Stop() {
	if s.stopSweeper != nil {
		s.stopSweeper()
	}
	s.grpc.Stop()
}
