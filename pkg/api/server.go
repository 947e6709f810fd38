// rexscan/pkg/api/server.go

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rgehrsitz/rexscan/pkg/compiler"
	"rgehrsitz/rexscan/pkg/logging"
	"rgehrsitz/rexscan/pkg/report"
	"rgehrsitz/rexscan/pkg/resource"
	"rgehrsitz/rexscan/pkg/runtime"
	"rgehrsitz/rexscan/pkg/store"
)

// maxUpload caps the size of an uploaded inventory document.
const maxUpload = 32 << 20

// Server exposes inventory upload and risk queries over HTTP.
type Server struct {
	store    store.Store
	engine   *runtime.Engine
	ingester *resource.Ingester
	router   *gin.Engine
}

// NewServer wires the routes. The store is owned by the caller.
func NewServer(st store.Store, engine *runtime.Engine, ingester *resource.Ingester) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		store:    st,
		engine:   engine,
		ingester: ingester,
		router:   gin.New(),
	}
	s.router.Use(gin.Recovery(), requestLogger())

	s.router.GET("/health", s.handleHealth)
	s.router.POST("/upload", s.handleUpload)
	s.router.POST("/api/resources", s.handleResources)
	s.router.GET("/api/rules", s.handleRules)
	return s
}

// Handler returns the HTTP handler for the server's routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Logger.Info().Str("addr", addr).Msg("HTTP API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logging.Logger.Info().Msg("Shutting down HTTP API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.Logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Handled request")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"rules":     s.engine.Catalog().Len(),
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file part"})
		return
	}
	if file.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No selected file."})
		return
	}
	if file.Size > maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("file exceeds %d bytes", maxUpload)})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUpload))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inv, err := s.ingester.Parse(data)
	if err != nil {
		logging.LogError(logging.Logger, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Your file was not accepted: " + err.Error()})
		return
	}
	if _, err := s.store.PutRecords(c.Request.Context(), inv.All()); err != nil {
		logging.LogError(logging.Logger, logging.NewError(logging.ErrorTypeStore, "failed to store inventory", err, nil))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store inventory"})
		return
	}

	c.JSON(http.StatusOK, fmt.Sprintf("Data has been loaded. %d Items Accepted.", inv.Len()))
}

type resourcesRequest struct {
	Type     string `json:"type" binding:"required"`
	MinScore *int   `json:"min_score"`
}

func (s *Server) handleResources(c *gin.Context) {
	var req resourcesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be JSON with a type field"})
		return
	}
	category, err := resource.ParseCategory(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid resource type"})
		return
	}
	minScore := 0
	if req.MinScore != nil {
		minScore = *req.MinScore
	}

	res, err := s.engine.Scan(c.Request.Context(), s.store, category, minScore)
	if errors.Is(err, runtime.ErrInvalidThreshold) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		logging.LogError(logging.Logger, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "scan failed"})
		return
	}

	body, err := report.MarshalJSON(res.Report)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("X-Run-Id", res.RunID)
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

type ruleView struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"resource_category"`
	Condition    string `json:"condition"`
	ViolationTag string `json:"violation_tag"`
	Weight       int    `json:"weight"`
	Remediation  string `json:"remediation_steps,omitempty"`
}

func (s *Server) handleRules(c *gin.Context) {
	rules := s.engine.Catalog().Rules()
	out := make([]ruleView, 0, len(rules))
	for _, r := range rules {
		out = append(out, ruleView{
			ID:           r.ID,
			Name:         r.Name,
			Category:     string(r.Category),
			Condition:    compiler.String(r.Condition),
			ViolationTag: r.ViolationTag,
			Weight:       r.Weight,
			Remediation:  r.Remediation,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": out, "count": len(out)})
}
