package pipeline

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when an execution is triggered while another is in flight.
var ErrBusy = errors.New("pipeline execution already in progress")

// Stage names reported in errors, failures, status and metrics.
const (
	StageLoad      = "load"
	StageValidate  = "validate"
	StagePairs     = "pairs"
	StageAlign     = "align"
	StageMatch     = "match"
	StageChains    = "chains"
	StageIntegrity = "integrity"
)

// StageError aborts an execution. The previous snapshot stays published.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// PairFailure records a run pair whose artifacts were skipped.
type PairFailure struct {
	Pair   string `json:"pair"`
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}
