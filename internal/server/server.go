package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/agenthands/snapdiff/internal/core"
	"github.com/agenthands/snapdiff/internal/core/model"
	"github.com/agenthands/snapdiff/internal/observability"
)

const codeBadRequest = "BAD_REQUEST"

type Server struct {
	Engine  *core.Engine
	Metrics *observability.Metrics
}

func NewServer(engine *core.Engine, metrics *observability.Metrics) *Server {
	return &Server{Engine: engine, Metrics: metrics}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.observe)

	r.POST("/compare", s.Compare)
	r.POST("/validate-context", s.ValidateContext)
	r.GET("/health", s.Health)
	r.GET("/metrics", gin.WrapH(s.Metrics.Handler()))

	return r
}

func (s *Server) observe(c *gin.Context) {
	start := time.Now()
	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	status := c.Writer.Status()
	s.Metrics.ObserveRequest(route, strconv.Itoa(status))
	slog.Debug("request served", "method", c.Request.Method, "route", route, "status", status,
		"duration_ms", time.Since(start).Milliseconds())
}

func (s *Server) Compare(c *gin.Context) {
	var req model.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	slog.Info("compare requested", "projects", len(req.Projects))
	resp := s.Engine.Compare(c.Request.Context(), req)
	c.JSON(statusOf(resp.OK), resp)
}

func (s *Server) ValidateContext(c *gin.Context) {
	var req model.ContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	slog.Info("context validation requested", "projects", len(req.Projects))
	resp := s.Engine.ValidateContext(c.Request.Context(), req)
	c.JSON(statusOf(resp.OK), resp)
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": "healthy"})
}

func badRequest(c *gin.Context, err error) {
	slog.Warn("invalid request body", "route", c.FullPath(), "error", err)
	c.JSON(http.StatusBadRequest, gin.H{"ok": false, "code": codeBadRequest, "message": "Invalid request: " + err.Error()})
}

func statusOf(ok bool) int {
	if ok {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}
