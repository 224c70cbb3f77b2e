package domain

import "errors"

// ErrNoEvents is returned by EventCount.SuccessRate/FailureRate when no
// events have been observed yet (total == 0); spec.md §3 calls this out as
// an ArithmeticError since the rate is undefined.
var ErrNoEvents = errors.New("domain: event count is empty, rate is undefined")

// EventCount is a point-in-time snapshot of success/failure counts over
// some window. Counts are monotonically non-decreasing within the window
// they were sampled from.
type EventCount struct {
	Success int64
	Failure int64
}

// Total returns Success+Failure.
func (c EventCount) Total() int64 {
	return c.Success + c.Failure
}

// SuccessRate returns Success/Total. It fails with ErrNoEvents when Total
// is zero, matching spec.md §3's "defined only when total>0" rule.
func (c EventCount) SuccessRate() (float64, error) {
	total := c.Total()
	if total == 0 {
		return 0, ErrNoEvents
	}
	return float64(c.Success) / float64(total), nil
}

// FailureRate returns Failure/Total. It fails with ErrNoEvents when Total
// is zero.
func (c EventCount) FailureRate() (float64, error) {
	total := c.Total()
	if total == 0 {
		return 0, ErrNoEvents
	}
	return float64(c.Failure) / float64(total), nil
}
