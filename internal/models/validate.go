package models

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedInput marks datasets rejected before any stage runs.
var ErrMalformedInput = errors.New("malformed input")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the dataset structure and the cross-record rules the tags
// cannot express: distinct run years, finite distances and unique ids per run.
func (d Dataset) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	years := make(map[int]bool, len(d.Runs))
	for _, run := range d.Runs {
		if years[run.Year] {
			return fmt.Errorf("%w: duplicate run year %d", ErrMalformedInput, run.Year)
		}
		years[run.Year] = true

		ids := make(map[string]bool, len(run.Anomalies))
		for _, a := range run.Anomalies {
			if a.RunYear != run.Year {
				return fmt.Errorf("%w: anomaly %s has run year %d inside run %d", ErrMalformedInput, a.ID, a.RunYear, run.Year)
			}
			if math.IsNaN(a.Distance) || math.IsInf(a.Distance, 0) {
				return fmt.Errorf("%w: anomaly %s has non-finite distance", ErrMalformedInput, a.ID)
			}
			if ids[a.ID] {
				return fmt.Errorf("%w: duplicate anomaly id %s in run %d", ErrMalformedInput, a.ID, run.Year)
			}
			ids[a.ID] = true
		}
		for _, gw := range run.GirthWelds {
			if math.IsNaN(gw.Distance) || math.IsInf(gw.Distance, 0) {
				return fmt.Errorf("%w: girth weld in run %d has non-finite distance", ErrMalformedInput, run.Year)
			}
		}
	}
	return nil
}
