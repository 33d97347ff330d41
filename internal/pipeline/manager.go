package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/02loveslollipop/corrosight/internal/models"
)

// Source loads the dataset an execution analyses.
type Source interface {
	Load(ctx context.Context) (models.Dataset, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (models.Dataset, error)

func (f SourceFunc) Load(ctx context.Context) (models.Dataset, error) {
	return f(ctx)
}

// Run states.
const (
	StateIdle      = "idle"
	StateRunning   = "running"
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
)

// Run statuses recorded in metrics and run history.
const (
	StatusSuccess  = "success"
	StatusFailure  = "failure"
	StatusRejected = "rejected"
)

// RunRecord describes one finished execution.
type RunRecord struct {
	ID         uuid.UUID
	DatasetID  string
	Status     string
	Stage      string
	Error      string
	Generation uint64
	Pairs      int
	Matches    int
	Failures   []PairFailure
	StartedAt  time.Time
	FinishedAt time.Time
}

// Recorder persists run history.
type Recorder interface {
	RecordRun(ctx context.Context, rec RunRecord) error
}

// Status is the operator view of the manager.
type Status struct {
	State      string     `json:"state"`
	RunID      string     `json:"run_id,omitempty"`
	Stage      string     `json:"failed_stage,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	Generation uint64     `json:"generation"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Manager runs at most one execution at a time and publishes each
// successful result as the new current snapshot.
type Manager struct {
	source   Source
	exec     *Executor
	recorder Recorder
	logger   *slog.Logger

	running    atomic.Bool
	current    atomic.Pointer[Snapshot]
	generation atomic.Uint64

	mu     sync.Mutex
	status Status
	wg     sync.WaitGroup
}

// NewManager builds a manager. recorder may be nil.
func NewManager(source Source, exec *Executor, recorder Recorder) *Manager {
	logger := exec.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		source:   source,
		exec:     exec,
		recorder: recorder,
		logger:   logger,
		status:   Status{State: StateIdle},
	}
}

// Snapshot returns the current snapshot, or nil before the first success.
func (m *Manager) Snapshot() *Snapshot {
	return m.current.Load()
}

// Status returns a copy of the current status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Run executes synchronously. It returns ErrBusy if an execution is in flight.
func (m *Manager) Run(ctx context.Context) (*Snapshot, error) {
	if !m.acquire() {
		return nil, ErrBusy
	}
	defer m.running.Store(false)
	return m.execute(ctx)
}

// Start launches an execution in the background and returns once it holds
// the single-flight gate.
func (m *Manager) Start(ctx context.Context) error {
	if !m.acquire() {
		return ErrBusy
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.running.Store(false)
		if _, err := m.execute(ctx); err != nil {
			m.logger.Error("pipeline execution failed", "err", err)
		}
	}()
	return nil
}

// Wait blocks until background executions return.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) acquire() bool {
	if !m.running.CompareAndSwap(false, true) {
		m.exec.Metrics.RecordRun(StatusRejected)
		return false
	}
	return true
}

func (m *Manager) execute(ctx context.Context) (*Snapshot, error) {
	rec := RunRecord{ID: uuid.New(), StartedAt: time.Now().UTC()}
	m.setStatus(func(s *Status) {
		s.State = StateRunning
		s.RunID = rec.ID.String()
		s.StartedAt = &rec.StartedAt
		s.FinishedAt = nil
	})

	snap, err := m.loadAndExecute(ctx, &rec)
	rec.FinishedAt = time.Now().UTC()

	if err != nil {
		rec.Status = StatusFailure
		rec.Error = err.Error()
		var se *StageError
		if errors.As(err, &se) {
			rec.Stage = se.Stage
		}
		m.exec.Metrics.RecordRun(StatusFailure)
		m.setStatus(func(s *Status) {
			s.State = StateFailed
			s.Stage = rec.Stage
			s.LastError = rec.Error
			s.FinishedAt = &rec.FinishedAt
		})
		m.record(ctx, rec)
		return nil, err
	}

	snap.ID = rec.ID
	snap.CreatedAt = rec.FinishedAt
	snap.Generation = m.generation.Add(1)
	m.current.Store(snap)

	rec.Status = StatusSuccess
	rec.Generation = snap.Generation
	rec.Pairs = len(snap.Pairs)
	rec.Matches = snap.TotalMatches()
	rec.Failures = snap.Failures
	m.exec.Metrics.RecordRun(StatusSuccess)
	m.exec.Metrics.PublishMatches(snap.Generation, snap.MatchCounts())
	m.setStatus(func(s *Status) {
		s.State = StateSucceeded
		s.Stage = ""
		s.LastError = ""
		s.Generation = snap.Generation
		s.FinishedAt = &rec.FinishedAt
	})
	m.record(ctx, rec)

	m.logger.Info("snapshot published", "id", snap.ID, "generation", snap.Generation, "dataset", snap.DatasetID)
	return snap, nil
}

func (m *Manager) loadAndExecute(ctx context.Context, rec *RunRecord) (*Snapshot, error) {
	started := time.Now()
	ds, err := m.source.Load(ctx)
	if err != nil {
		return nil, &StageError{Stage: StageLoad, Err: err}
	}
	m.exec.Metrics.ObserveStage(StageLoad, started)
	rec.DatasetID = ds.ID
	return m.exec.Execute(ctx, ds)
}

func (m *Manager) record(ctx context.Context, rec RunRecord) {
	if m.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := m.recorder.RecordRun(ctx, rec); err != nil {
		m.logger.Warn("record pipeline run", "run_id", rec.ID, "err", err)
	}
}

func (m *Manager) setStatus(update func(*Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	update(&m.status)
}
