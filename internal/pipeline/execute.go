package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/02loveslollipop/corrosight/internal/alignment"
	"github.com/02loveslollipop/corrosight/internal/chain"
	"github.com/02loveslollipop/corrosight/internal/growth"
	"github.com/02loveslollipop/corrosight/internal/integrity"
	"github.com/02loveslollipop/corrosight/internal/matching"
	"github.com/02loveslollipop/corrosight/internal/models"
	"github.com/02loveslollipop/corrosight/internal/observability"
	"github.com/02loveslollipop/corrosight/internal/params"
)

// Executor turns one dataset into a snapshot.
type Executor struct {
	Params  params.Params
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

type pairOutcome struct {
	artifacts *PairArtifacts
	failure   *PairFailure
}

// Execute validates the dataset, analyses every consecutive run pair in
// parallel and, with three or more runs, chains the last three runs and
// analyses their direct first-to-last pair. Integrity analytics cover the
// latest pair. The returned snapshot has no id or generation yet.
func (e *Executor) Execute(ctx context.Context, ds models.Dataset) (*Snapshot, error) {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	started := time.Now()
	if err := ds.Validate(); err != nil {
		return nil, &StageError{Stage: StageValidate, Err: err}
	}
	e.Metrics.ObserveStage(StageValidate, started)

	runs := ds.SortedRuns()
	snap := &Snapshot{
		DatasetID: ds.ID,
		Pairs:     make(map[string]*PairArtifacts, len(runs)-1),
		Params:    e.Params,
	}
	for _, r := range runs {
		snap.Years = append(snap.Years, r.Year)
	}

	type job struct{ earlier, later models.Run }
	jobs := make([]job, 0, len(runs))
	for i := 1; i < len(runs); i++ {
		jobs = append(jobs, job{runs[i-1], runs[i]})
	}
	hasDirect := len(runs) >= 3
	if hasDirect {
		jobs = append(jobs, job{runs[len(runs)-3], runs[len(runs)-1]})
	}

	started = time.Now()
	outcomes := make([]pairOutcome, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	for i, j := range jobs {
		g.Go(func() error {
			out, err := e.analysePair(gctx, j.earlier, j.later)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &StageError{Stage: StagePairs, Err: err}
	}
	e.Metrics.ObserveStage(StagePairs, started)

	for i, out := range outcomes {
		if out.failure != nil {
			logger.Warn("run pair skipped", "pair", out.failure.Pair, "stage", out.failure.Stage, "reason", out.failure.Reason)
			e.Metrics.RecordPairFailure(out.failure.Stage)
			snap.Failures = append(snap.Failures, *out.failure)
			continue
		}
		if hasDirect && i == len(jobs)-1 {
			snap.Direct = out.artifacts
			continue
		}
		snap.Pairs[out.artifacts.Pair.Key()] = out.artifacts
	}

	consecutive := len(runs) - 1
	if latest := outcomes[consecutive-1].artifacts; latest != nil {
		snap.Latest = latest.Pair.Key()
	}

	if hasDirect {
		started = time.Now()
		early, late := outcomes[consecutive-2].artifacts, outcomes[consecutive-1].artifacts
		if early != nil && late != nil {
			var direct *matching.Result
			if snap.Direct != nil {
				direct = snap.Direct.Matches
			}
			chains, err := chain.Build(
				chain.Pair{Matches: early.Matches, Growth: early.Growth},
				chain.Pair{Matches: late.Matches, Growth: late.Growth},
				direct, e.Params.Chain)
			if err != nil {
				return nil, &StageError{Stage: StageChains, Err: err}
			}
			snap.Chains = chains
		}
		e.Metrics.ObserveStage(StageChains, started)
	}

	if latest, ok := snap.LatestPair(); ok {
		started = time.Now()
		snap.Integrity = integrity.Analyze(latest.Growth, latest.Matches.New, e.Params)
		e.Metrics.ObserveStage(StageIntegrity, started)
	}

	logger.Info("pipeline executed",
		"dataset", ds.ID,
		"runs", len(runs),
		"pairs", len(snap.Pairs),
		"failures", len(snap.Failures),
		"chains", chainCount(snap.Chains),
	)
	return snap, nil
}

// analysePair aligns, matches and annotates growth for one pair. Pair-level
// problems come back as a failure; only cancellation is returned as an error.
func (e *Executor) analysePair(ctx context.Context, earlier, later models.Run) (pairOutcome, error) {
	pair := models.RunPair{Earlier: earlier.Year, Later: later.Year}
	fail := func(stage string, err error) (pairOutcome, error) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return pairOutcome{}, ctxErr
		}
		return pairOutcome{failure: &PairFailure{Pair: pair.Key(), Stage: stage, Reason: err.Error()}}, nil
	}

	aligned, err := alignment.Align(earlier, later, e.Params.Alignment)
	if err != nil {
		return fail(StageAlign, err)
	}

	matches, err := matching.Run(ctx, pair,
		aligned.Mapping.Apply(earlier.Anomalies),
		alignment.Identity(later.Anomalies),
		later.RepairZones, e.Params)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return pairOutcome{}, err
		}
		return fail(StageMatch, err)
	}

	return pairOutcome{artifacts: &PairArtifacts{
		Pair:      pair,
		Alignment: aligned,
		Matches:   matches,
		Growth:    growth.Annotate(matches, e.Params.Growth),
	}}, nil
}

func chainCount(r *chain.Result) int {
	if r == nil {
		return 0
	}
	return len(r.Chains)
}
