// Package services provides business logic and orchestration services.
//
// This file maps each commitment frequency onto the number of months between
// two consecutive schedule lines.
package services

import (
	"fmt"

	"budgeting/internal/core"
)

// StepPolicy advances a schedule from one due date to the next.
type StepPolicy interface {
	// Months returns the distance between consecutive due dates.
	Months() int
}

type monthStep int

func (m monthStep) Months() int { return int(m) }

// stepPolicies maps frequencies to their step. Quarterly is three months,
// yearly twelve.
var stepPolicies = map[core.Frequency]StepPolicy{
	core.Monthly:   monthStep(1),
	core.Quarterly: monthStep(3),
	core.Yearly:    monthStep(12),
}

// GetStepPolicy returns the step policy for a frequency.
func GetStepPolicy(f core.Frequency) (StepPolicy, error) {
	p, ok := stepPolicies[f]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", f)
	}
	return p, nil
}

// DueDate returns the due date of line i of a schedule starting at start.
func DueDate(start core.Date, f core.Frequency, i int) (core.Date, error) {
	p, err := GetStepPolicy(f)
	if err != nil {
		return core.Date{}, err
	}
	return start.AddMonths(i * p.Months()), nil
}
