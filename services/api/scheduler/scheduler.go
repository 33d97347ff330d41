package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/02loveslollipop/corrosight/internal/pipeline"
)

// Starter launches a background pipeline execution.
type Starter interface {
	Start(ctx context.Context) error
}

// Versioned is implemented by sources that can report the revision of the
// data they would load.
type Versioned interface {
	Version(ctx context.Context) (string, error)
}

// Trigger starts an execution on each tick unless the source revision is
// the one the last accepted execution read.
type Trigger struct {
	starter Starter
	source  Versioned
	logger  *slog.Logger

	mu   sync.Mutex
	last string
}

// NewTrigger builds a trigger. source may be nil, in which case every tick
// starts an execution.
func NewTrigger(starter Starter, source Versioned, logger *slog.Logger) *Trigger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trigger{starter: starter, source: source, logger: logger}
}

// Tick runs one scheduling decision and reports whether an execution started.
func (t *Trigger) Tick(ctx context.Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	var version string
	if t.source != nil {
		v, err := t.source.Version(ctx)
		if err != nil {
			t.logger.Warn("resolve dataset version", "err", err)
			return false
		}
		if v == t.last {
			t.logger.Debug("dataset unchanged, skipping run", "version", v)
			return false
		}
		version = v
	}

	switch err := t.starter.Start(ctx); {
	case errors.Is(err, pipeline.ErrBusy):
		t.logger.Info("scheduled run skipped, execution in flight")
		return false
	case err != nil:
		t.logger.Error("start scheduled run", "err", err)
		return false
	}

	t.last = version
	t.logger.Info("scheduled run started", "version", version)
	return true
}

// Schedule registers the trigger on a new cron scheduler using a standard
// five-field spec. The caller starts and stops the returned scheduler.
func Schedule(ctx context.Context, spec string, t *Trigger) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { t.Tick(ctx) }); err != nil {
		return nil, err
	}
	return c, nil
}
