package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/corrosight/internal/chain"
	"github.com/02loveslollipop/corrosight/internal/forecast"
	"github.com/02loveslollipop/corrosight/internal/integrity"
	"github.com/02loveslollipop/corrosight/internal/pipeline"
)

// handleV1Chains returns three-run chains.
// GET /api/v1/chains?lifecycle=Growing&flagged=true&page=1&limit=200
func (s *Server) handleV1Chains(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}
	res, ok := chainsOrNotFound(c, snap)
	if !ok {
		return
	}

	chains := filter(c, "lifecycle", res.Chains, func(ch chain.Chain) string { return ch.Lifecycle })
	if f := c.Query("flagged"); f != "" {
		want, err := strconv.ParseBool(f)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flagged parameter"})
			return
		}
		kept := make([]chain.Chain, 0, len(chains))
		for _, ch := range chains {
			if ch.Flagged == want {
				kept = append(kept, ch)
			}
		}
		chains = kept
	}
	page, pagination := paginate(c, chains, s.cfg.DefaultLimit)

	c.JSON(http.StatusOK, gin.H{
		"data":       page,
		"pagination": pagination,
		"meta":       snapshotMeta(snap),
	})
}

// handleV1ChainSummary returns the lifecycle counts across three runs.
// GET /api/v1/chains/summary
func (s *Server) handleV1ChainSummary(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}
	res, ok := chainsOrNotFound(c, snap)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res.Summary, "meta": snapshotMeta(snap)})
}

func (s *Server) report(c *gin.Context) (*pipeline.Snapshot, *integrity.Report, bool) {
	snap, ok := s.snapshot(c)
	if !ok {
		return nil, nil, false
	}
	if snap.Integrity == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "latest run pair was not analysed"})
		return nil, nil, false
	}
	return snap, snap.Integrity, true
}

// handleV1IntegritySummary returns the dashboard counts of the latest pair.
// GET /api/v1/integrity/summary
func (s *Server) handleV1IntegritySummary(c *gin.Context) {
	snap, r, ok := s.report(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": r.Summary, "meta": snapshotMeta(snap)})
}

// handleV1Segments returns segment risk.
// GET /api/v1/integrity/segments?high_risk=true
func (s *Server) handleV1Segments(c *gin.Context) {
	snap, r, ok := s.report(c)
	if !ok {
		return
	}

	segments := r.Segments
	if h := c.Query("high_risk"); h != "" {
		want, err := strconv.ParseBool(h)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid high_risk parameter"})
			return
		}
		kept := make([]integrity.Segment, 0, len(segments))
		for _, seg := range segments {
			if seg.HighRisk == want {
				kept = append(kept, seg)
			}
		}
		segments = kept
	}
	page, pagination := paginate(c, segments, s.cfg.DefaultLimit)

	c.JSON(http.StatusOK, gin.H{
		"data":       page,
		"pagination": pagination,
		"meta":       snapshotMeta(snap),
	})
}

// handleV1Interactions returns B31G interaction clusters.
// GET /api/v1/integrity/interactions?severity=HIGH
func (s *Server) handleV1Interactions(c *gin.Context) {
	snap, r, ok := s.report(c)
	if !ok {
		return
	}

	clusters := filter(c, "severity", r.Interactions, func(cl integrity.Cluster) string { return cl.Severity })
	page, pagination := paginate(c, clusters, s.cfg.DefaultLimit)

	c.JSON(http.StatusOK, gin.H{
		"data":       page,
		"pagination": pagination,
		"meta":       snapshotMeta(snap),
	})
}

// handleV1DigList returns the ranked dig list.
// GET /api/v1/integrity/dig-list?category=IMMEDIATE
func (s *Server) handleV1DigList(c *gin.Context) {
	snap, r, ok := s.report(c)
	if !ok {
		return
	}

	entries := filter(c, "category", r.DigList, func(e integrity.DigEntry) string { return e.Category })
	page, pagination := paginate(c, entries, s.cfg.DefaultLimit)

	c.JSON(http.StatusOK, gin.H{
		"data":       page,
		"pagination": pagination,
		"meta":       gin.H{"counts": r.Summary.DigCounts, "generation": snap.Generation},
	})
}

// handleV1Population returns the population breakdowns.
// GET /api/v1/integrity/population
func (s *Server) handleV1Population(c *gin.Context) {
	snap, r, ok := s.report(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": r.Population, "meta": snapshotMeta(snap)})
}

// handleV1Forecast extrapolates the latest run to a future year.
// GET /api/v1/forecast/:year
func (s *Server) handleV1Forecast(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}

	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return
	}

	f, err := snap.Forecast(year)
	switch {
	case errors.Is(err, forecast.ErrTargetYear):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, pipeline.ErrNoGrowth):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": f, "meta": snapshotMeta(snap)})
}
