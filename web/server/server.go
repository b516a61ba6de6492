package server

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	actx "go.hackfix.me/rxplay/app/context"
	"go.hackfix.me/rxplay/web/server/api"
	"go.hackfix.me/rxplay/web/server/middleware"
)

// Server is a wrapper around http.Server with some custom behavior.
type Server struct {
	*http.Server
	logger *slog.Logger
	mx     sync.RWMutex
}

// New returns a new web Server instance that will listen on addr, and serve
// the API endpoints backed by svc.
func New(appCtx *actx.Context, addr string, svc api.Services) *Server {
	logger := appCtx.Logger.With("component", "web-server")
	return &Server{
		Server: &http.Server{
			Handler:           SetupHandlers(appCtx, svc, logger),
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			// Long enough for the slowest pipelines and large uploads.
			WriteTimeout: 5 * time.Minute,
		},
		logger: logger,
	}
}

// ListenAndServe starts the HTTP server. It stores the actual listen address,
// which is convenient when the address is dynamically determined by the
// system (e.g. ':0').
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.Address())
	if err != nil {
		//nolint:wrapcheck // This is fine.
		return err
	}

	s.mx.Lock()
	s.Addr = ln.Addr().String()
	s.mx.Unlock()
	s.logger.Info("started listener", "address", ln.Addr().String())

	//nolint:wrapcheck // This is fine.
	return s.Serve(ln)
}

// Address returns the address the server listens on.
func (s *Server) Address() string {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return s.Addr
}

// SetupHandlers configures the server HTTP handlers, wrapped in the common
// middleware.
func SetupHandlers(appCtx *actx.Context, svc api.Services, logger *slog.Logger) http.Handler {
	mws := []any{
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recover(logger),
	}
	// Metrics must wrap the mux directly, in order to see the matched route.
	if appCtx.Metrics != nil {
		mws = append(mws, middleware.Metrics(appCtx.Metrics))
	}
	mws = append(mws, api.SetupHandlers(svc, logger))

	return middleware.Chain(mws...)
}
