// Package stats provides the numeric helpers used by the offer filters.
package stats

import (
	"errors"
	"slices"
)

// ErrEmptyInput is returned when a statistic is requested for no values.
var ErrEmptyInput = errors.New("stats: empty input")

// Median returns the median of values. For an even number of values it is
// the mean of the two middle elements. The input slice is not modified.
func Median(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyInput
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2], nil
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2, nil
}
