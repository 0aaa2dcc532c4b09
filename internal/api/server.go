// Package api serves the support chat operations over HTTP and websocket.
package api

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/supportline/internal/chat"
	"github.com/zulandar/supportline/internal/orchestrator"
	"github.com/zulandar/supportline/internal/realtime"
	"github.com/zulandar/supportline/internal/unread"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// StartOpts holds configuration for the API server.
type StartOpts struct {
	DB           *gorm.DB
	Orchestrator *orchestrator.Orchestrator
	Hub          *realtime.Hub
	Unread       unread.Source // defaults to unread.NewCounter(DB)
	Realtime     realtime.HandlerOpts
	Port         int
	Out          io.Writer
}

// Server binds the HTTP routes to the orchestrator and repositories.
type Server struct {
	db     *gorm.DB
	orch   *orchestrator.Orchestrator
	hub    *realtime.Hub
	unread *unread.Fallback
	ws     realtime.HandlerOpts
}

// NewServer validates opts and fills in defaults.
func NewServer(opts StartOpts) (*Server, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("api: db is required")
	}
	if opts.Orchestrator == nil {
		return nil, fmt.Errorf("api: orchestrator is required")
	}
	if opts.Hub == nil {
		opts.Hub = realtime.NewHub()
	}
	if opts.Unread == nil {
		opts.Unread = unread.NewCounter(opts.DB)
	}
	ws := opts.Realtime
	if ws.RoomExists == nil {
		db := opts.DB
		ws.RoomExists = func(id uint) (bool, error) {
			return chat.Exists(context.Background(), db, id)
		}
	}
	return &Server{
		db:     opts.DB,
		orch:   opts.Orchestrator,
		hub:    opts.Hub,
		unread: unread.WithDefaultOnError(opts.Unread),
		ws:     ws,
	}, nil
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	s.registerRoutes(router)
	return router
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Port <= 0 {
		opts.Port = 8080
	}
	s, err := NewServer(opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: s.Router(),
	}
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("api: %w", err)
	}

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "supportline listening on http://localhost:%d\n", opts.Port)
	}
	return serve(ctx, srv, ln)
}

// serve runs srv on ln until ctx is cancelled. It returns only after
// in-flight requests have drained or shutdownTimeout has passed.
func serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("api: shutdown: %v", err)
		}
	}()

	if err := srv.Serve(ln); err != http.ErrServerClosed {
		return fmt.Errorf("api: %w", err)
	}
	<-drained
	return nil
}
