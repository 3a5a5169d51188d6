package calculator

import (
	"errors"
	"math"
)

// CalculateStdDev returns the sample standard deviation (n-1 denominator).
func CalculateStdDev(values []float64) (float64, error) {
	if len(values) < 2 {
		return 0, errors.New("not enough data for standard deviation")
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1)), nil
}

// RollingStdDev is the rolling counterpart of CalculateStdDev, with the same
// NaN rules as RollingMean.
func RollingStdDev(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	for i := window - 1; i < len(values) && window > 1; i++ {
		w := values[i-window+1 : i+1]
		if hasNaN(w) {
			continue
		}
		if sd, err := CalculateStdDev(w); err == nil {
			out[i] = sd
		}
	}
	return out
}
