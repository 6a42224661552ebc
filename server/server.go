package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/weft/state"
	"github.com/chazu/weft/vm"
)

var log = commonlog.GetLogger("weft.server")

// Server hosts weft sessions over HTTP. It serves the Connect, gRPC and
// gRPC-Web protocols on the same port.
type Server struct {
	sessions *Sessions
	store    *state.Store
	mux      *http.ServeMux
	http     *http.Server
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	store        *state.Store
	handlerOpts  []connect.HandlerOption
	newVM        func() *vm.VM
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// WithStateStore enables SaveState and LoadState against store.
func WithStateStore(store *state.Store) Option {
	return func(c *serverConfig) { c.store = store }
}

// WithHandlerOptions passes options to every Connect handler.
func WithHandlerOptions(opts ...connect.HandlerOption) Option {
	return func(c *serverConfig) { c.handlerOpts = append(c.handlerOpts, opts...) }
}

// WithTimeouts bounds request reads and response writes.
func WithTimeouts(read, write time.Duration) Option {
	return func(c *serverConfig) {
		c.readTimeout = read
		c.writeTimeout = write
	}
}

// New creates a Server whose sessions run VMs built by newVM.
func New(newVM func() *vm.VM, opts ...Option) *Server {
	cfg := &serverConfig{newVM: newVM}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Server{
		sessions: NewSessions(cfg.newVM),
		store:    cfg.store,
		mux:      http.NewServeMux(),
	}

	evalPath, evalHandler := NewEvalServiceHandler(NewEvalService(s.sessions, s.store), cfg.handlerOpts...)
	s.mux.Handle(evalPath, evalHandler)

	s.http = &http.Server{
		Handler:      s.mux,
		ReadTimeout:  cfg.readTimeout,
		WriteTimeout: cfg.writeTimeout,
	}
	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Sessions returns the live session table.
func (s *Server) Sessions() *Sessions {
	return s.sessions
}

// ListenAndServe serves on addr ("host:port" or ":port") until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.http.Addr = addr
	log.Noticef("weft server listening on %s", addr)
	log.Infof("  Connect (HTTP/JSON): http://%s%s", addr, EvaluateProcedure)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and ends every session.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.sessions.Close()
	return err
}
