// Package httpserver exposes the store's query surface and the source
// registry over a JSON HTTP API.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uelogd/uelogd/internal/model"
	"github.com/uelogd/uelogd/internal/sources"
)

// Server provides the HTTP query API.
type Server struct {
	addr      string
	store     model.EntryStore
	registry  *sources.Registry
	server    *http.Server
	listener  net.Listener
	serveErr  chan error
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP API server. Default addr is
// "127.0.0.1:8420". registry may be nil, disabling the sources endpoints.
func NewServer(addr string, store model.EntryStore, registry *sources.Registry) *Server {
	if addr == "" {
		addr = "127.0.0.1:8420"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:     addr,
		store:    store,
		registry: registry,
		serveErr: make(chan error, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/logs", s.handleLogs)
	r.GET("/api/search", s.handleSearch)
	r.GET("/api/stats", s.handleStats)
	r.GET("/api/categories", s.handleCategories)
	r.GET("/api/sessions", s.handleSessions)
	r.POST("/api/clear", s.handleClear)

	if s.registry != nil {
		r.GET("/api/sources", s.handleListSources)
		r.POST("/api/sources", s.handleAddSource)
		r.DELETE("/api/sources/:id", s.handleRemoveSource)
	}
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.router(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.startTime = time.Now()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.serveErr <- err
		}
	}()
	return nil
}

// Err delivers a fatal serve failure after Start. A graceful Stop never
// produces one.
func (s *Server) Err() <-chan error {
	return s.serveErr
}

// Addr returns the active listen address. Before Start, it returns the
// configured address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
