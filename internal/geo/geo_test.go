package geo

import (
	"math"
	"testing"
)

func TestDistance2D_OneDegreeLatitude(t *testing.T) {
	a := Location{Lat: 0, Lon: 0}
	b := Location{Lat: 1, Lon: 0}
	got := Distance2D(a, b)
	want := EarthRadiusM * math.Pi / 180
	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("Distance2D = %v, want %v", got, want)
	}
	if Distance2D(a, a) != 0 {
		t.Fatalf("distance to self should be 0")
	}
}

func TestDistance3D_IncludesAltitude(t *testing.T) {
	a := Location{Lat: 42, Lon: -78, Alt: 0}
	b := Location{Lat: 42, Lon: -78, Alt: 120}
	if got := Distance3D(a, b); math.Abs(got-120) > 1e-9 {
		t.Fatalf("Distance3D = %v, want 120", got)
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want Location
	}{
		{Location{Lat: 10, Lon: 190}, Location{Lat: 10, Lon: -170}},
		{Location{Lat: 10, Lon: -190}, Location{Lat: 10, Lon: 170}},
		{Location{Lat: 95, Lon: 180}, Location{Lat: 90, Lon: -180}},
		{Location{Lat: -91, Lon: 45, Alt: 3}, Location{Lat: -90, Lon: 45, Alt: 3}},
	}
	for _, c := range cases {
		got := Normalize(c.in)
		if math.Abs(got.Lat-c.want.Lat) > 1e-9 || math.Abs(got.Lon-c.want.Lon) > 1e-9 || got.Alt != c.want.Alt {
			t.Errorf("Normalize(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestBearing_Cardinal(t *testing.T) {
	o := Location{Lat: 0, Lon: 0}
	if b := Bearing(o, Location{Lat: 1, Lon: 0}); math.Abs(b) > 1e-9 {
		t.Errorf("north bearing = %v, want 0", b)
	}
	if b := Bearing(o, Location{Lat: 0, Lon: 1}); math.Abs(b-90) > 1e-9 {
		t.Errorf("east bearing = %v, want 90", b)
	}
	if b := Bearing(o, Location{Lat: 0, Lon: -1}); math.Abs(b-270) > 1e-9 {
		t.Errorf("west bearing = %v, want 270", b)
	}
}

func TestManhattanCorner(t *testing.T) {
	s := Location{Lat: 1, Lon: 2, Alt: 5}
	e := Location{Lat: 3, Lon: 4}
	if c := ManhattanCorner(s, e, true); c != (Location{Lat: 3, Lon: 2, Alt: 5}) {
		t.Errorf("vertical-first corner = %v", c)
	}
	if c := ManhattanCorner(s, e, false); c != (Location{Lat: 1, Lon: 4, Alt: 5}) {
		t.Errorf("horizontal-first corner = %v", c)
	}
}

func TestInterpolate_Midpoint(t *testing.T) {
	path := []Location{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 0, Lon: 2}}
	cum := CumDistances(path)
	if cum[0] != 0 || math.Abs(cum[2]-2*cum[1]) > 1e-6 {
		t.Fatalf("unexpected cumulative distances %v", cum)
	}
	pos, brng := Interpolate(path, cum, cum[1]/2)
	if math.Abs(pos.Lon-0.5) > 1e-9 || pos.Lat != 0 {
		t.Fatalf("Interpolate midpoint = %v, want lon 0.5", pos)
	}
	if math.Abs(brng-90) > 1e-9 {
		t.Fatalf("bearing = %v, want 90", brng)
	}
	if end, _ := Interpolate(path, cum, cum[2]+10); end != path[2] {
		t.Fatalf("past end should clamp to last point, got %v", end)
	}
}

func TestEqualAndSameLatLon(t *testing.T) {
	a := Location{Lat: 1, Lon: 2, Alt: 0}
	b := a.WithAlt(30)
	if a.Equal(b) {
		t.Fatalf("locations with different altitude should not be equal")
	}
	if !a.SameLatLon(b) {
		t.Fatalf("locations should share lat/lon")
	}
}
