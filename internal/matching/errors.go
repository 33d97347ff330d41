package matching

import (
	"errors"
	"fmt"
)

// ErrAssignmentInfeasible is matched by errors.Is for AssignmentInfeasibleError.
var ErrAssignmentInfeasible = errors.New("assignment infeasible")

// AssignmentInfeasibleError is returned when the solver is handed a problem
// it cannot assign, such as an empty or non-finite weight matrix.
type AssignmentInfeasibleError struct {
	Window int
	Rows   int
	Cols   int
	Reason string
}

func (e *AssignmentInfeasibleError) Error() string {
	return fmt.Sprintf("assignment window %d (%dx%d): %s", e.Window, e.Rows, e.Cols, e.Reason)
}

func (e *AssignmentInfeasibleError) Is(target error) bool {
	return target == ErrAssignmentInfeasible
}
