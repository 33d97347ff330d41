package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/02loveslollipop/corrosight/internal/models"
	"github.com/02loveslollipop/corrosight/internal/pipeline"
	"github.com/02loveslollipop/corrosight/internal/store"
	"github.com/02loveslollipop/corrosight/services/api/config"
)

// RunHistory lists recorded pipeline executions.
type RunHistory interface {
	ListRuns(ctx context.Context, limit int) ([]store.RunRow, error)
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg      config.Config
	pipeline *pipeline.Manager
	history  RunHistory
	engine   *gin.Engine
}

// New constructs a server with routes and middleware. history may be nil;
// gatherer backs /metrics.
func New(cfg config.Config, manager *pipeline.Manager, history RunHistory, gatherer prometheus.Gatherer) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())
	engine.Use(corsMiddleware())

	if cfg.BearerToken != "" {
		engine.Use(bearerAuthMiddleware(cfg.BearerToken))
	}

	server := &Server{cfg: cfg, pipeline: manager, history: history, engine: engine}
	server.registerRoutes(gatherer)
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes(gatherer prometheus.Gatherer) {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	s.registerV1Routes()
}

func bearerAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != expected {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func apiVersionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-API-Version", "v1")
		c.Next()
	}
}

// snapshot binds the request to the current snapshot. Every handler reads
// from the one value it returns.
func (s *Server) snapshot(c *gin.Context) (*pipeline.Snapshot, bool) {
	snap := s.pipeline.Snapshot()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no analysis available yet"})
		return nil, false
	}
	c.Header("X-Snapshot-Generation", strconv.FormatUint(snap.Generation, 10))
	return snap, true
}

// pair resolves the :pair route parameter against the bound snapshot.
func (s *Server) pair(c *gin.Context) (*pipeline.Snapshot, *pipeline.PairArtifacts, bool) {
	snap, ok := s.snapshot(c)
	if !ok {
		return nil, nil, false
	}
	rp, err := models.ParseRunPair(c.Param("pair"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, nil, false
	}
	pa, ok := snap.Pair(rp.Key())
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run pair not analysed", "pair": rp.Key()})
		return nil, nil, false
	}
	return snap, pa, true
}

func snapshotMeta(snap *pipeline.Snapshot) gin.H {
	return gin.H{
		"snapshot_id": snap.ID,
		"generation":  snap.Generation,
	}
}

// paginate slices items by the page and limit query parameters.
func paginate[T any](c *gin.Context, items []T, defaultLimit int) ([]T, gin.H) {
	page := 1
	if p := c.Query("page"); p != "" {
		if val, err := strconv.Atoi(p); err == nil && val > 0 {
			page = val
		}
	}

	limit := defaultLimit
	if limit <= 0 {
		limit = 20
	}
	if l := c.Query("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 && val <= 1000 {
			limit = val
		}
	}

	total := len(items)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)

	out := items[start:end]
	if out == nil {
		out = []T{}
	}
	return out, gin.H{
		"page":        page,
		"limit":       limit,
		"total_count": total,
		"total_pages": (total + limit - 1) / limit,
	}
}

// filter keeps the items whose key matches the query parameter, if given.
func filter[T any](c *gin.Context, param string, items []T, key func(T) string) []T {
	want := c.Query(param)
	if want == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if strings.EqualFold(key(it), want) {
			out = append(out, it)
		}
	}
	return out
}
