package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/corrosight/internal/chain"
	"github.com/02loveslollipop/corrosight/internal/pipeline"
)

// handleV1PipelineRun triggers an execution in the background.
// POST /api/v1/pipeline/run
func (s *Server) handleV1PipelineRun(c *gin.Context) {
	// The execution outlives the request.
	err := s.pipeline.Start(context.WithoutCancel(c.Request.Context()))
	if errors.Is(err, pipeline.ErrBusy) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "data": s.pipeline.Status()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"data": gin.H{"accepted": true}})
}

// handleV1PipelineStatus returns the execution state.
// GET /api/v1/pipeline/status
func (s *Server) handleV1PipelineStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.pipeline.Status()})
}

// handleV1PipelineRuns returns recorded executions.
// GET /api/v1/pipeline/runs?limit=20
func (s *Server) handleV1PipelineRuns(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history is not configured"})
		return
	}

	limit := 20
	if l := c.Query("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 && val <= 100 {
			limit = val
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
	defer cancel()

	runs, err := s.history.ListRuns(ctx, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": runs,
		"meta": gin.H{
			"count": len(runs),
		},
	})
}

// handleV1Snapshot describes the published snapshot.
// GET /api/v1/snapshot
func (s *Server) handleV1Snapshot(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": snap,
		"meta": gin.H{
			"pairs":      snap.PairKeys(),
			"has_chains": snap.Chains != nil,
		},
	})
}

// handleV1Dashboard returns the headline numbers of the snapshot.
// GET /api/v1/dashboard
func (s *Server) handleV1Dashboard(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}

	pairs := make(gin.H, len(snap.Pairs)+1)
	for _, key := range snap.PairKeys() {
		pa, _ := snap.Pair(key)
		pairs[key] = gin.H{
			"matching": pa.Matches.Stats,
			"growth":   pa.Growth.Summary,
		}
	}

	data := gin.H{
		"dataset_id":  snap.DatasetID,
		"years":       snap.Years,
		"latest_pair": snap.Latest,
		"pairs":       pairs,
		"failures":    snap.Failures,
	}
	if snap.Integrity != nil {
		data["integrity"] = snap.Integrity.Summary
	}
	if snap.Chains != nil {
		data["chains"] = snap.Chains.Summary
	}

	c.JSON(http.StatusOK, gin.H{"data": data, "meta": snapshotMeta(snap)})
}

func chainsOrNotFound(c *gin.Context, snap *pipeline.Snapshot) (*chain.Result, bool) {
	if snap.Chains == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chains need three consecutive analysed runs"})
		return nil, false
	}
	return snap.Chains, true
}
