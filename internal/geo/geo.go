package geo

import (
	"fmt"
	"math"
)

// EarthRadiusM is the mean Earth radius used for all distance calculations.
const EarthRadiusM = 6371000.0

// Location is a geographic position. Alt is metres above ground and defaults to 0.
type Location struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
	Alt float64 `json:"alt" yaml:"alt"`
}

func (l Location) String() string {
	return fmt.Sprintf("(%.6f, %.6f, %.1fm)", l.Lat, l.Lon, l.Alt)
}

// Equal reports whether both locations match in all three coordinates.
func (l Location) Equal(o Location) bool {
	return l.Lat == o.Lat && l.Lon == o.Lon && l.Alt == o.Alt
}

// SameLatLon reports whether both locations share lat/lon, ignoring altitude.
func (l Location) SameLatLon(o Location) bool {
	return l.Lat == o.Lat && l.Lon == o.Lon
}

// WithAlt returns a copy of l at the given altitude.
func (l Location) WithAlt(alt float64) Location {
	l.Alt = alt
	return l
}

// Normalize wraps longitude into [-180, 180) and clamps latitude to [-90, 90].
func Normalize(l Location) Location {
	lon := math.Mod(l.Lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	l.Lon = lon - 180
	if l.Lat > 90 {
		l.Lat = 90
	} else if l.Lat < -90 {
		l.Lat = -90
	}
	return l
}

func toRad(d float64) float64 { return d * math.Pi / 180 }

// Distance2D is the haversine distance in meters, ignoring altitude.
func Distance2D(a, b Location) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusM * c
}

// Distance3D combines the haversine ground distance with the altitude change.
func Distance3D(a, b Location) float64 {
	g := Distance2D(a, b)
	dz := b.Alt - a.Alt
	return math.Sqrt(g*g + dz*dz)
}

// Bearing returns the initial bearing from a to b in degrees [0, 360).
func Bearing(a, b Location) float64 {
	y := math.Sin(toRad(b.Lon-a.Lon)) * math.Cos(toRad(b.Lat))
	x := math.Cos(toRad(a.Lat))*math.Sin(toRad(b.Lat)) - math.Sin(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Cos(toRad(b.Lon-a.Lon))
	brng := math.Atan2(y, x) * 180.0 / math.Pi
	if brng < 0 {
		brng += 360
	}
	return brng
}

// PointAlong returns the point a fraction f of the way from a to b, interpolated
// linearly in lat/lon/alt. f is clamped to [0, 1].
func PointAlong(a, b Location, f float64) Location {
	if f <= 0 {
		return a
	}
	if f >= 1 {
		return b
	}
	return Location{
		Lat: a.Lat + (b.Lat-a.Lat)*f,
		Lon: a.Lon + (b.Lon-a.Lon)*f,
		Alt: a.Alt + (b.Alt-a.Alt)*f,
	}
}

// ManhattanCorner returns the corner of the L-shaped path from start to end.
// With verticalFirst the path moves along the meridian first (lat changes), then
// along the parallel.
func ManhattanCorner(start, end Location, verticalFirst bool) Location {
	if verticalFirst {
		return Location{Lat: end.Lat, Lon: start.Lon, Alt: start.Alt}
	}
	return Location{Lat: start.Lat, Lon: end.Lon, Alt: start.Alt}
}

// CumDistances returns the cumulative ground distance along path, starting at 0.
func CumDistances(path []Location) []float64 {
	n := len(path)
	if n == 0 {
		return nil
	}
	cum := make([]float64, n)
	sum := 0.0
	for i := 1; i < n; i++ {
		sum += Distance2D(path[i-1], path[i])
		cum[i] = sum
	}
	return cum
}

// Interpolate walks path by target distance and returns the position and the
// bearing of the segment it falls on.
func Interpolate(path []Location, cum []float64, dist float64) (Location, float64) {
	n := len(path)
	if n == 0 {
		return Location{}, 0
	}
	if n == 1 {
		return path[0], 0
	}
	total := cum[n-1]
	if dist <= 0 || total == 0 {
		return path[0], Bearing(path[0], path[1])
	}
	if dist >= total {
		return path[n-1], Bearing(path[n-2], path[n-1])
	}
	i := 1
	for i < n && cum[i] < dist {
		i++
	}
	d0, d1 := cum[i-1], cum[i]
	p0, p1 := path[i-1], path[i]
	if d1 == d0 {
		return p0, Bearing(p0, p1)
	}
	return PointAlong(p0, p1, (dist-d0)/(d1-d0)), Bearing(p0, p1)
}
