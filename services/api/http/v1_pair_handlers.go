package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/corrosight/internal/growth"
	"github.com/02loveslollipop/corrosight/internal/matching"
	"github.com/02loveslollipop/corrosight/internal/models"
)

// handleV1Pairs lists the analysed run pairs with their headline stats.
// GET /api/v1/pairs
func (s *Server) handleV1Pairs(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}

	keys := snap.PairKeys()
	out := make([]gin.H, 0, len(keys))
	for _, key := range keys {
		pa, _ := snap.Pair(key)
		out = append(out, gin.H{
			"pair":     key,
			"direct":   snap.Direct == pa,
			"drift":    pa.Alignment.Drift,
			"matching": pa.Matches.Stats,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"data": out,
		"meta": gin.H{
			"count":       len(out),
			"failures":    snap.Failures,
			"snapshot_id": snap.ID,
			"generation":  snap.Generation,
		},
	})
}

// handleV1Alignment returns the anchors and drift statistics of a pair.
// GET /api/v1/pairs/:pair/alignment
func (s *Server) handleV1Alignment(c *gin.Context) {
	snap, pa, ok := s.pair(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": pa.Alignment, "meta": snapshotMeta(snap)})
}

// handleV1Matches returns a pair's matches.
// GET /api/v1/pairs/:pair/matches?label=HIGH&page=1&limit=200
func (s *Server) handleV1Matches(c *gin.Context) {
	snap, pa, ok := s.pair(c)
	if !ok {
		return
	}

	matches := filter(c, "label", pa.Matches.Matches, func(m matching.Match) string { return m.Label })
	page, pagination := paginate(c, matches, s.cfg.DefaultLimit)

	c.JSON(http.StatusOK, gin.H{
		"data":       page,
		"pagination": pagination,
		"meta":       gin.H{"stats": pa.Matches.Stats, "generation": snap.Generation},
	})
}

type unmatchedKind int

const (
	unmatchedNew unmatchedKind = iota
	unmatchedMissing
	unmatchedRepaired
)

// handleV1Unmatched returns the new, missing or repaired anomalies of a pair.
// GET /api/v1/pairs/:pair/{new,missing,repaired}
func (s *Server) handleV1Unmatched(kind unmatchedKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, pa, ok := s.pair(c)
		if !ok {
			return
		}

		var items []models.Anomaly
		switch kind {
		case unmatchedNew:
			items = pa.Matches.New
		case unmatchedMissing:
			items = pa.Matches.Missing
		case unmatchedRepaired:
			items = pa.Matches.Repaired
		}
		if items == nil {
			items = []models.Anomaly{}
		}
		page, pagination := paginate(c, items, s.cfg.DefaultLimit)

		c.JSON(http.StatusOK, gin.H{
			"data":       page,
			"pagination": pagination,
			"meta":       snapshotMeta(snap),
		})
	}
}

// handleV1Growth returns growth records of a pair.
// GET /api/v1/pairs/:pair/growth?risk=Critical&class=High&outliers=true
func (s *Server) handleV1Growth(c *gin.Context) {
	snap, pa, ok := s.pair(c)
	if !ok {
		return
	}

	records := filter(c, "risk", pa.Growth.Records, func(r growth.Record) string { return r.RiskCategory })
	records = filter(c, "class", records, func(r growth.Record) string { return r.GrowthClass })
	if o := c.Query("outliers"); o != "" {
		want, err := strconv.ParseBool(o)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid outliers parameter"})
			return
		}
		kept := make([]growth.Record, 0, len(records))
		for _, r := range records {
			if r.Outlier() == want {
				kept = append(kept, r)
			}
		}
		records = kept
	}
	page, pagination := paginate(c, records, s.cfg.DefaultLimit)

	c.JSON(http.StatusOK, gin.H{
		"data":       page,
		"pagination": pagination,
		"meta":       gin.H{"summary": pa.Growth.Summary, "generation": snap.Generation},
	})
}

// handleV1GrowthTop returns the highest-risk records of a pair.
// GET /api/v1/pairs/:pair/growth/top?n=20
func (s *Server) handleV1GrowthTop(c *gin.Context) {
	snap, pa, ok := s.pair(c)
	if !ok {
		return
	}

	n := snap.Params.Growth.TopConcerns
	if q := c.Query("n"); q != "" {
		val, err := strconv.Atoi(q)
		if err != nil || val <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid n"})
			return
		}
		n = val
	}

	top := growth.TopConcerns(pa.Growth.Records, n)
	c.JSON(http.StatusOK, gin.H{
		"data": top,
		"meta": gin.H{"count": len(top), "generation": snap.Generation},
	})
}
