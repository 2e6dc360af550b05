package exporter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vas-solutus/tapbridge/internal/manager"
	"github.com/vas-solutus/tapbridge/pkg/component"
	"github.com/vas-solutus/tapbridge/pkg/logger"
)

// Component serves bridge statistics over HTTP in Prometheus exposition
// format.
type Component struct {
	*component.Base
	logger  *slog.Logger
	addr    string
	manager *manager.Manager
	server  *http.Server
}

func New(addr string, mgr *manager.Manager) *Component {
	return &Component{
		Base:    component.NewBase("exporter"),
		logger:  logger.Component(logger.ComponentExporter),
		addr:    addr,
		manager: mgr,
	}
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)
	c.logger.Info("Starting metrics exporter", "addr", c.addr)

	registry := prometheus.NewRegistry()
	registry.MustRegister(newCollector(c.manager, c.logger))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	c.server = &http.Server{
		Addr:    c.addr,
		Handler: mux,
	}

	c.Go(func() {
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.logger.Error("Metrics HTTP server error", "error", err)
		}
	})

	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.logger.Info("Stopping metrics exporter")

	if c.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.server.Shutdown(shutdownCtx)
	}

	c.StopContext()
	return nil
}
