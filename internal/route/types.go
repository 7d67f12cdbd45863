package route

import (
	"context"
	"errors"
	"fmt"

	"trajectory-builder/internal/geo"
)

var (
	// ErrUnsupportedRoute is returned when no resolver is registered for a
	// (route type, provider) pair.
	ErrUnsupportedRoute = errors.New("unsupported route type / data provider combination")
	// ErrMissingArgument is returned when a required argument (speed, duration,
	// API key, database) is absent.
	ErrMissingArgument = errors.New("missing required argument")
	// ErrDegeneratePath is returned when a non-zero duration must be spread over
	// a path of zero length.
	ErrDegeneratePath = errors.New("degenerate path: zero total distance")
	// ErrNegativeDuration is returned for negative time budgets.
	ErrNegativeDuration = errors.New("negative duration")
	// ErrProvider wraps failures of an external routing provider.
	ErrProvider = errors.New("routing provider failure")
	// ErrMalformedResult flags a resolver result that breaks the result contract.
	ErrMalformedResult = errors.New("malformed route result")
)

// RouteType selects how the path between two locations is built.
type RouteType string

const (
	Euclidean2D RouteType = "euclidean2D"
	Manhattan   RouteType = "manhattan"
	Fastest     RouteType = "fastest"
	Shortest    RouteType = "shortest"
	Pedestrian  RouteType = "pedestrian"
	Cycling     RouteType = "cycling"
	Truck       RouteType = "truck"
	Wheelchair  RouteType = "wheelchair"
)

// Geometric reports whether the route type is built without a provider.
func (t RouteType) Geometric() bool { return t == Euclidean2D || t == Manhattan }

// Provider names a routing data source.
type Provider string

const (
	AnyProvider Provider = ""
	OSRMOnline  Provider = "osrm-online"
	ORSOnline   Provider = "ors-online"
	MapQuest    Provider = "mapquest"
	PgRouting   Provider = "pgrouting"
)

// Extras holds optional road attributes for one waypoint of a resolved path.
// A nil field means the provider did not report it.
type Extras struct {
	Elevation   *float64 `json:"elevation,omitempty"`
	WayName     *string  `json:"wayname,omitempty"`
	WayCategory *string  `json:"waycategory,omitempty"`
	Surface     *string  `json:"surface,omitempty"`
	WayType     *string  `json:"waytype,omitempty"`
	Steepness   *int     `json:"steepness,omitempty"`
	Tollway     *bool    `json:"tollway,omitempty"`
}

// Query is what a resolver is asked to route.
type Query struct {
	Start geo.Location
	End   geo.Location
	// VerticalFirst only applies to Manhattan routes.
	VerticalFirst bool
}

// Result is a resolved route: the path plus segment-wise times and distances.
// Times[i] and Dists[i] describe the segment Path[i-1] -> Path[i]; the first
// entry of both is 0.
type Result struct {
	Path   []geo.Location
	Extras map[int]Extras
	Times  []float64
	Dists  []float64
}

// TotalTime is the sum of the segment times.
func (r Result) TotalTime() float64 { return sum(r.Times) }

// TotalDist is the sum of the segment distances.
func (r Result) TotalDist() float64 { return sum(r.Dists) }

// Validate checks the resolver contract.
func (r Result) Validate() error {
	n := len(r.Path)
	if n == 0 {
		return fmt.Errorf("%w: empty path", ErrMalformedResult)
	}
	if len(r.Times) != n || len(r.Dists) != n {
		return fmt.Errorf("%w: path=%d times=%d dists=%d", ErrMalformedResult, n, len(r.Times), len(r.Dists))
	}
	if r.Times[0] != 0 || r.Dists[0] != 0 {
		return fmt.Errorf("%w: first time/dist entry must be 0", ErrMalformedResult)
	}
	return nil
}

// Resolver produces a route between two locations.
type Resolver interface {
	Resolve(ctx context.Context, q Query) (Result, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, q Query) (Result, error)

func (f ResolverFunc) Resolve(ctx context.Context, q Query) (Result, error) { return f(ctx, q) }

// ElevationSource looks up ground elevation in meters for a location.
type ElevationSource interface {
	Elevation(ctx context.Context, loc geo.Location) (float64, error)
}

func sum(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s
}

func ptr[T any](v T) *T { return &v }
