package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/02loveslollipop/corrosight/internal/chain"
	"github.com/02loveslollipop/corrosight/internal/forecast"
	"github.com/02loveslollipop/corrosight/internal/integrity"
	"github.com/02loveslollipop/corrosight/internal/matching"
	"github.com/02loveslollipop/corrosight/internal/params"
	"github.com/02loveslollipop/corrosight/internal/pipeline"
)

type runOptions struct {
	forecastYear int
	top          int
}

type pairSummary struct {
	Pair     string         `json:"pair"`
	Matching matching.Stats `json:"matching"`
	Anchors  int            `json:"anchors"`
}

type runSummary struct {
	RunID      string                 `json:"run_id"`
	DatasetID  string                 `json:"dataset_id"`
	Years      []int                  `json:"years"`
	Pairs      []pairSummary          `json:"pairs"`
	Failures   []pipeline.PairFailure `json:"failures,omitempty"`
	Integrity  *integrity.Summary     `json:"integrity,omitempty"`
	DigList    []integrity.DigEntry   `json:"dig_list,omitempty"`
	Chains     *chain.Summary         `json:"chains,omitempty"`
	Forecast   *forecast.Summary      `json:"forecast,omitempty"`
	TargetYear int                    `json:"forecast_year,omitempty"`
}

// execute runs the pipeline once and writes a JSON summary to out.
func execute(ctx context.Context, logger *slog.Logger, src pipeline.Source, prm params.Params, recorder pipeline.Recorder, opts runOptions, out io.Writer) error {
	exec := &pipeline.Executor{Params: prm, Logger: logger}
	manager := pipeline.NewManager(src, exec, recorder)

	snap, err := manager.Run(ctx)
	if err != nil {
		return err
	}

	summary, err := summarize(snap, opts)
	if err != nil {
		return err
	}
	logger.Info("analysis complete",
		"dataset", snap.DatasetID,
		"pairs", len(snap.Pairs),
		"matches", snap.TotalMatches(),
		"failures", len(snap.Failures),
	)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func summarize(snap *pipeline.Snapshot, opts runOptions) (runSummary, error) {
	s := runSummary{
		RunID:     snap.ID.String(),
		DatasetID: snap.DatasetID,
		Years:     snap.Years,
		Failures:  snap.Failures,
	}
	for _, key := range snap.PairKeys() {
		pa, _ := snap.Pair(key)
		s.Pairs = append(s.Pairs, pairSummary{Pair: key, Matching: pa.Matches.Stats, Anchors: pa.Alignment.Drift.Anchors})
	}
	if snap.Integrity != nil {
		s.Integrity = &snap.Integrity.Summary
		s.DigList = snap.Integrity.DigList[:min(max(opts.top, 0), len(snap.Integrity.DigList))]
	}
	if snap.Chains != nil {
		s.Chains = &snap.Chains.Summary
	}
	if opts.forecastYear != 0 {
		f, err := snap.Forecast(opts.forecastYear)
		if err != nil {
			return s, fmt.Errorf("forecast %d: %w", opts.forecastYear, err)
		}
		s.Forecast = &f.Summary
		s.TargetYear = f.TargetYear
	}
	return s, nil
}
