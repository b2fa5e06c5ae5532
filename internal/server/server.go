// Package server exposes the pricing, AMM, strategy and on-chain engines over
// a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/contactkeval/option-amm/internal/amm"
	"github.com/contactkeval/option-amm/internal/config"
	"github.com/contactkeval/option-amm/internal/data"
	"github.com/contactkeval/option-amm/internal/logger"
	"github.com/contactkeval/option-amm/internal/metrics"
	"github.com/contactkeval/option-amm/internal/strategy"
)

// Server wires the engines to gin routes.
type Server struct {
	engine  *amm.Engine
	prov    data.Provider
	metrics *metrics.Metrics
	cfg     config.Config
	router  *gin.Engine
	now     func() time.Time
}

// New builds a Server over cfg. prov may be nil, in which case requests that
// need an underlying price must carry one.
func New(cfg config.Config, prov data.Provider, m *metrics.Metrics) *Server {
	if m == nil {
		m = metrics.New()
	}
	s := &Server{
		engine:  amm.NewEngine(cfg.AMM),
		prov:    prov,
		metrics: m,
		cfg:     cfg,
		now:     time.Now,
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.observe())

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(m.Handler()))

	v1 := r.Group("/api/v1")
	{
		p := v1.Group("/pricing")
		p.POST("/price", s.price)
		p.POST("/greeks", s.greeks)
		p.POST("/iv", s.impliedVolatility)

		a := v1.Group("/amm")
		a.POST("/quote", s.quote)
		a.POST("/slippage", s.slippage)
		a.POST("/simulate", s.simulate)
		a.POST("/ticket", s.ticket)
		a.POST("/chain", s.chain)
		a.POST("/rewards", s.rewards)

		v1.POST("/strategy/analyze", s.analyze)
		v1.POST("/onchain/price", s.onchainPrice)
	}
	s.router = r
	return s
}

// Handler returns the HTTP handler for all routes.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("event=server_start addr=%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Infof("event=server_stop addr=%s", addr)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// observe records request metrics and a debug log line per request.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		s.metrics.ObserveRequest(route, c.Writer.Status(), elapsed)
		logger.Debugf("event=http_request method=%s route=%s status=%d elapsed=%s",
			c.Request.Method, route, c.Writer.Status(), elapsed)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) strategyRange() strategy.Range {
	return strategy.Range{Low: s.cfg.Strategy.RangeLow, High: s.cfg.Strategy.RangeHigh, Steps: s.cfg.Strategy.Steps}
}
