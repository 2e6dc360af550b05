package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/vas-solutus/tapbridge/internal/manager"
	"github.com/vas-solutus/tapbridge/pkg/component"
	"github.com/vas-solutus/tapbridge/pkg/logger"
)

// Component is the JSON control API. It drives attach and detach through
// the manager and reports daemon status.
type Component struct {
	*component.Base
	logger  *slog.Logger
	addr    string
	manager *manager.Manager
	server  *http.Server
	started time.Time
}

func New(addr string, mgr *manager.Manager) *Component {
	return &Component{
		Base:    component.NewBase("api"),
		logger:  logger.Component(logger.ComponentAPI),
		addr:    addr,
		manager: mgr,
	}
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)
	c.logger.Info("Starting API server", "addr", c.addr)
	c.started = time.Now()

	// Built here so Stop never races the serving goroutine over c.server.
	c.server = &http.Server{
		Addr:    c.addr,
		Handler: c.routes(),
	}

	c.Go(func() {
		c.logger.Info("API server listening", "addr", c.addr)
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.logger.Error("API server error", "error", err)
		}
	})

	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.logger.Info("Stopping API server")

	if c.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.server.Shutdown(shutdownCtx)
	}

	c.StopContext()
	return nil
}

func (c *Component) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/attachments", c.handleList)
	mux.HandleFunc("POST /v1/attachments", c.handleAttach)
	mux.HandleFunc("GET /v1/attachments/{device}", c.handleGet)
	mux.HandleFunc("DELETE /v1/attachments/{device}", c.handleDetach)
	mux.HandleFunc("GET /v1/status", c.handleStatus)

	return mux
}
