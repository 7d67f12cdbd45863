package route

import (
	"context"

	"trajectory-builder/internal/geo"
)

// Euclidean routes along the straight line between start and end. It carries
// distances only; the caller supplies the timing.
type Euclidean struct{}

func (Euclidean) Resolve(_ context.Context, q Query) (Result, error) {
	return geometricResult([]geo.Location{q.Start, q.End}), nil
}

// ManhattanRoute routes along an L-shaped path through a single corner.
type ManhattanRoute struct{}

func (ManhattanRoute) Resolve(_ context.Context, q Query) (Result, error) {
	corner := geo.ManhattanCorner(q.Start, q.End, q.VerticalFirst)
	return geometricResult([]geo.Location{q.Start, corner, q.End}), nil
}

func geometricResult(path []geo.Location) Result {
	return Result{
		Path:  path,
		Times: make([]float64, len(path)),
		Dists: distances(path),
	}
}

func distances(path []geo.Location) []float64 {
	d := make([]float64, len(path))
	for i := 1; i < len(path); i++ {
		d[i] = geo.Distance2D(path[i-1], path[i])
	}
	return d
}
