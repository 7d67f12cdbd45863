package route

import (
	"fmt"

	"trajectory-builder/internal/geo"
)

// Redistribute splits totalTime across the segments of path in proportion to
// their ground distance. Both returned slices have len(path) entries and start
// with 0.
//
// A path of zero length can only absorb a zero budget; anything else is
// ErrDegeneratePath. A single point has no segment to carry time, so its times
// are all zero whatever totalTime is.
func Redistribute(path []geo.Location, totalTime float64) (times, dists []float64, err error) {
	if totalTime < 0 {
		return nil, nil, fmt.Errorf("%w: %v", ErrNegativeDuration, totalTime)
	}
	n := len(path)
	if n == 0 {
		return nil, nil, nil
	}
	dists = make([]float64, n)
	times = make([]float64, n)
	total := 0.0
	for i := 1; i < n; i++ {
		dists[i] = geo.Distance2D(path[i-1], path[i])
		total += dists[i]
	}
	if total == 0 {
		if totalTime != 0 && n > 1 {
			return nil, nil, fmt.Errorf("%w: %d points, %.3fs to distribute", ErrDegeneratePath, n, totalTime)
		}
		return times, dists, nil
	}
	for i := 1; i < n; i++ {
		times[i] = totalTime * dists[i] / total
	}
	return times, dists, nil
}

// Retime returns a copy of r whose times are redistributed over totalTime.
func Retime(r Result, totalTime float64) (Result, error) {
	times, dists, err := Redistribute(r.Path, totalTime)
	if err != nil {
		return Result{}, err
	}
	r.Times = times
	r.Dists = dists
	return r, nil
}
