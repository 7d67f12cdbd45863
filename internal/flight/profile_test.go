package flight

import (
	"errors"
	"math"
	"testing"

	"trajectory-builder/internal/geo"
)

var (
	origin = geo.Location{Lat: 43.000, Lon: -78.800}
	dest   = geo.Location{Lat: 43.000, Lon: -78.780}
)

func TestBuildSquare(t *testing.T) {
	p, err := Build(Params{
		Type: Square, Start: origin, End: dest, CruiseAltAGL: 100,
		TakeoffSpeedMPS: 5, CruiseSpeedMPS: 20, LandSpeedMPS: 4,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(p) != 4 {
		t.Fatalf("len = %d, want 4", len(p))
	}
	if p[1].Loc != origin.WithAlt(100) || p[2].Loc != dest.WithAlt(100) || p[3].Loc != dest {
		t.Fatalf("unexpected waypoints %+v", p)
	}
	cruise := geo.Distance2D(origin, dest) / 20
	want := 100.0/5 + cruise + 100.0/4
	if math.Abs(p.Duration()-want) > 1e-9 {
		t.Fatalf("Duration = %v, want %v", p.Duration(), want)
	}
	if p[1].ArriveSec != 20 {
		t.Fatalf("top of climb at %v, want 20", p[1].ArriveSec)
	}
}

func TestBuildTrapezoidal(t *testing.T) {
	p, err := Build(Params{
		Type: Trapezoidal, Start: origin, End: dest, CruiseAltAGL: 50,
		TakeoffSpeedMPS: 10, CruiseSpeedMPS: 20, LandSpeedMPS: 10,
		ClimbRateMPS: 5, DescentRateMPS: 5,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(p) != 4 || p[1].Loc.Alt != 50 || p[2].Loc.Alt != 50 {
		t.Fatalf("unexpected profile %+v", p)
	}
	if math.Abs(geo.Distance2D(origin, p[1].Loc)-100) > 0.5 {
		t.Fatalf("climb covers %vm, want ~100m", geo.Distance2D(origin, p[1].Loc))
	}
	if p[1].ArriveSec != 10 {
		t.Fatalf("climb time = %v, want 10", p[1].ArriveSec)
	}
}

func TestBuildTrapezoidal_Infeasible(t *testing.T) {
	_, err := Build(Params{
		Type: Trapezoidal, Start: origin, End: dest, CruiseAltAGL: 5000,
		TakeoffSpeedMPS: 50, CruiseSpeedMPS: 50, LandSpeedMPS: 50,
		ClimbRateMPS: 1, DescentRateMPS: 1,
	})
	if !errors.Is(err, ErrInfeasibleProfile) {
		t.Fatalf("err = %v, want ErrInfeasibleProfile", err)
	}
}

func TestBuildTriangular(t *testing.T) {
	p, err := Build(Params{
		Type: Triangular, Start: origin, End: dest,
		TakeoffSpeedMPS: 10, LandSpeedMPS: 10, ClimbRateMPS: 2, DescentRateMPS: 2,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(p) != 3 {
		t.Fatalf("len = %d, want 3", len(p))
	}
	total := geo.Distance2D(origin, dest)
	wantPeak := total / 10
	if math.Abs(p[1].Loc.Alt-wantPeak) > 1e-6 {
		t.Fatalf("peak = %v, want %v", p[1].Loc.Alt, wantPeak)
	}
	if p[2].Loc != dest {
		t.Fatalf("last waypoint = %v, want %v", p[2].Loc, dest)
	}
}

func TestBuildTriangular_CappedKeepsLevelLeg(t *testing.T) {
	p, err := Build(Params{
		Type: Triangular, Start: origin, End: dest, CruiseAltAGL: 10,
		TakeoffSpeedMPS: 10, LandSpeedMPS: 10, ClimbRateMPS: 2, DescentRateMPS: 2,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(p) != 4 || p[1].Loc.Alt != 10 || p[2].Loc.Alt != 10 {
		t.Fatalf("unexpected capped profile %+v", p)
	}
}

func TestBuild_Errors(t *testing.T) {
	if _, err := Build(Params{Type: "zigzag"}); !errors.Is(err, ErrUnknownProfile) {
		t.Fatalf("err = %v, want ErrUnknownProfile", err)
	}
	if _, err := Build(Params{Type: Square, Start: origin, End: dest, CruiseSpeedMPS: 1, LandSpeedMPS: 1}); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestInsertLoiter(t *testing.T) {
	base, err := Build(Params{
		Type: Square, Start: origin, End: dest, CruiseAltAGL: 100,
		TakeoffSpeedMPS: 5, CruiseSpeedMPS: 20, LandSpeedMPS: 5,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	cases := []struct {
		pos LoiterPosition
		idx int
	}{
		{BeforeTakeoff, 0},
		{TakeoffAtAlt, 1},
		{ArrivalAtAlt, 2},
		{AfterLand, 3},
	}
	for _, c := range cases {
		p, err := InsertLoiter(base, c.pos, 60)
		if err != nil {
			t.Fatalf("InsertLoiter(%s): %v", c.pos, err)
		}
		if p[c.idx].LoiterSec != 60 {
			t.Errorf("%s: loiter on waypoint %d = %v, want 60", c.pos, c.idx, p[c.idx].LoiterSec)
		}
		if math.Abs(p.Duration()-base.Duration()-60) > 1e-9 {
			t.Errorf("%s: duration = %v, want %v", c.pos, p.Duration(), base.Duration()+60)
		}
		for i := 1; i < len(p); i++ {
			legBase := base[i].ArriveSec - base[i-1].DepartSec
			leg := p[i].ArriveSec - p[i-1].DepartSec
			if math.Abs(leg-legBase) > 1e-9 {
				t.Errorf("%s: leg %d changed from %v to %v", c.pos, i, legBase, leg)
			}
		}
	}
	if base[0].LoiterSec != 0 {
		t.Fatalf("InsertLoiter must not mutate its input")
	}
	if _, err := InsertLoiter(base, "hover", 1); !errors.Is(err, ErrUnknownLoiterPosition) {
		t.Fatalf("err = %v, want ErrUnknownLoiterPosition", err)
	}
}
