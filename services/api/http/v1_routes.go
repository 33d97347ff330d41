package http

// registerV1Routes sets up the v1 API.
// Groups: /api/v1/pipeline, /api/v1/pairs, /api/v1/chains, /api/v1/integrity
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware())

	v1.GET("/snapshot", s.handleV1Snapshot)
	v1.GET("/dashboard", s.handleV1Dashboard)
	v1.GET("/forecast/:year", s.handleV1Forecast)

	// Pipeline control
	pl := v1.Group("/pipeline")
	{
		pl.POST("/run", s.handleV1PipelineRun)
		pl.GET("/status", s.handleV1PipelineStatus)
		pl.GET("/runs", s.handleV1PipelineRuns)
	}

	// Per run pair artifacts, keyed like 2015-2022
	pairs := v1.Group("/pairs")
	{
		pairs.GET("", s.handleV1Pairs)
		pairs.GET("/:pair/alignment", s.handleV1Alignment)
		pairs.GET("/:pair/matches", s.handleV1Matches)
		pairs.GET("/:pair/new", s.handleV1Unmatched(unmatchedNew))
		pairs.GET("/:pair/missing", s.handleV1Unmatched(unmatchedMissing))
		pairs.GET("/:pair/repaired", s.handleV1Unmatched(unmatchedRepaired))
		pairs.GET("/:pair/growth", s.handleV1Growth)
		pairs.GET("/:pair/growth/top", s.handleV1GrowthTop)
	}

	chains := v1.Group("/chains")
	{
		chains.GET("", s.handleV1Chains)
		chains.GET("/summary", s.handleV1ChainSummary)
	}

	integrity := v1.Group("/integrity")
	{
		integrity.GET("/summary", s.handleV1IntegritySummary)
		integrity.GET("/segments", s.handleV1Segments)
		integrity.GET("/interactions", s.handleV1Interactions)
		integrity.GET("/dig-list", s.handleV1DigList)
		integrity.GET("/population", s.handleV1Population)
	}
}
