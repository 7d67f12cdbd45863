package flight

import (
	"errors"
	"fmt"
	"math"

	"trajectory-builder/internal/geo"
)

var (
	ErrUnknownProfile        = errors.New("unknown flight profile")
	ErrUnknownLoiterPosition = errors.New("unknown loiter position")
	ErrInfeasibleProfile     = errors.New("infeasible flight profile")
	ErrInvalidParameter      = errors.New("invalid flight parameter")
)

// ProfileType selects the vertical shape of a flight.
type ProfileType string

const (
	// Square climbs vertically, cruises, then descends vertically.
	Square ProfileType = "square"
	// Triangular climbs and descends at the given rates without a cruise leg.
	Triangular ProfileType = "triangular"
	// Trapezoidal climbs at a rate, cruises at altitude, then descends at a rate.
	Trapezoidal ProfileType = "trapezoidal"
)

// LoiterPosition names where slack time is absorbed.
type LoiterPosition string

const (
	BeforeTakeoff LoiterPosition = "beforeTakeoff"
	TakeoffAtAlt  LoiterPosition = "takeoffAtAlt"
	ArrivalAtAlt  LoiterPosition = "arrivalAtAlt"
	AfterLand     LoiterPosition = "afterLand"
)

func (p LoiterPosition) Valid() bool {
	switch p {
	case BeforeTakeoff, TakeoffAtAlt, ArrivalAtAlt, AfterLand:
		return true
	}
	return false
}

// Waypoint is one pose of a flight profile. Times are seconds from the start of
// the flight: the object arrives at ArriveSec, holds for LoiterSec and leaves
// at DepartSec.
type Waypoint struct {
	Loc       geo.Location
	ArriveSec float64
	LoiterSec float64
	DepartSec float64
}

// Profile is an ordered list of waypoints.
type Profile []Waypoint

// Duration is the total time including loiter.
func (p Profile) Duration() float64 {
	if len(p) == 0 {
		return 0
	}
	return p[len(p)-1].DepartSec
}

// Params describes a flight between two ground locations.
type Params struct {
	Type ProfileType
	// Start and End altitudes are taken as ground level.
	Start geo.Location
	End   geo.Location
	// CruiseAltAGL is the cruise altitude above the start/end ground level, meters.
	CruiseAltAGL float64

	TakeoffSpeedMPS float64 // vertical speed (square) or horizontal speed while climbing
	CruiseSpeedMPS  float64
	LandSpeedMPS    float64 // vertical speed (square) or horizontal speed while descending
	ClimbRateMPS    float64 // triangular / trapezoidal only
	DescentRateMPS  float64 // triangular / trapezoidal only
}

// Build constructs the profile for p with no loiter.
func Build(p Params) (Profile, error) {
	var locs []geo.Location
	var legs []float64
	var err error
	switch p.Type {
	case Square, "":
		locs, legs, err = buildSquare(p)
	case Triangular:
		locs, legs, err = buildTriangular(p)
	case Trapezoidal:
		locs, legs, err = buildTrapezoidal(p)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, p.Type)
	}
	if err != nil {
		return nil, err
	}
	prof := make(Profile, len(locs))
	for i, loc := range locs {
		prof[i].Loc = loc
	}
	retime(prof, legs)
	return prof, nil
}

// retime recomputes the arrive/depart times from leg durations and loiters.
// legs[i] is the duration of the leg arriving at waypoint i; legs[0] is unused.
func retime(p Profile, legs []float64) {
	t := 0.0
	for i := range p {
		if i > 0 {
			t += legs[i]
		}
		p[i].ArriveSec = t
		t += p[i].LoiterSec
		p[i].DepartSec = t
	}
}

// legDurations recovers per-leg durations from an existing profile.
func legDurations(p Profile) []float64 {
	legs := make([]float64, len(p))
	for i := 1; i < len(p); i++ {
		legs[i] = p[i].ArriveSec - p[i-1].DepartSec
	}
	return legs
}

// InsertLoiter returns a copy of p with seconds of loiter added at pos and all
// later times shifted.
func InsertLoiter(p Profile, pos LoiterPosition, seconds float64) (Profile, error) {
	if seconds < 0 {
		return nil, fmt.Errorf("%w: loiter %v", ErrInvalidParameter, seconds)
	}
	if len(p) == 0 {
		return nil, fmt.Errorf("%w: empty profile", ErrInfeasibleProfile)
	}
	var idx int
	switch pos {
	case BeforeTakeoff:
		idx = 0
	case TakeoffAtAlt:
		idx = min(1, len(p)-1)
	case ArrivalAtAlt:
		idx = max(len(p)-2, 0)
	case AfterLand:
		idx = len(p) - 1
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLoiterPosition, pos)
	}
	legs := legDurations(p)
	out := make(Profile, len(p))
	copy(out, p)
	out[idx].LoiterSec += seconds
	retime(out, legs)
	return out, nil
}

func requirePositive(name string, v float64) error {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be > 0, got %v", ErrInvalidParameter, name, v)
	}
	return nil
}

func buildSquare(p Params) ([]geo.Location, []float64, error) {
	for _, c := range []struct {
		name string
		v    float64
	}{
		{"takeoff speed", p.TakeoffSpeedMPS},
		{"cruise speed", p.CruiseSpeedMPS},
		{"land speed", p.LandSpeedMPS},
	} {
		if err := requirePositive(c.name, c.v); err != nil {
			return nil, nil, err
		}
	}
	if p.CruiseAltAGL < 0 {
		return nil, nil, fmt.Errorf("%w: cruise altitude %v", ErrInvalidParameter, p.CruiseAltAGL)
	}
	topStart := p.Start.WithAlt(p.Start.Alt + p.CruiseAltAGL)
	topEnd := p.End.WithAlt(topStart.Alt)
	locs := []geo.Location{p.Start, topStart, topEnd, p.End}
	legs := []float64{
		0,
		math.Abs(topStart.Alt-p.Start.Alt) / p.TakeoffSpeedMPS,
		geo.Distance2D(topStart, topEnd) / p.CruiseSpeedMPS,
		math.Abs(topEnd.Alt-p.End.Alt) / p.LandSpeedMPS,
	}
	return locs, legs, nil
}

// slopedLeg is the horizontal distance and time to change altitude by dAlt at
// the given vertical rate while moving horizontally at speed.
func slopedLeg(dAlt, rate, speed float64) (dist, secs float64) {
	secs = math.Abs(dAlt) / rate
	return secs * speed, secs
}

func checkRates(p Params) error {
	for _, c := range []struct {
		name string
		v    float64
	}{
		{"takeoff speed", p.TakeoffSpeedMPS},
		{"land speed", p.LandSpeedMPS},
		{"climb rate", p.ClimbRateMPS},
		{"descent rate", p.DescentRateMPS},
	} {
		if err := requirePositive(c.name, c.v); err != nil {
			return err
		}
	}
	return nil
}

func buildTrapezoidal(p Params) ([]geo.Location, []float64, error) {
	if err := checkRates(p); err != nil {
		return nil, nil, err
	}
	if err := requirePositive("cruise speed", p.CruiseSpeedMPS); err != nil {
		return nil, nil, err
	}
	total := geo.Distance2D(p.Start, p.End)
	cruiseAlt := p.Start.Alt + p.CruiseAltAGL
	climbDist, climbSecs := slopedLeg(cruiseAlt-p.Start.Alt, p.ClimbRateMPS, p.TakeoffSpeedMPS)
	descDist, descSecs := slopedLeg(cruiseAlt-p.End.Alt, p.DescentRateMPS, p.LandSpeedMPS)
	if climbDist+descDist > total {
		return nil, nil, fmt.Errorf("%w: climb and descent need %.0fm, route is %.0fm", ErrInfeasibleProfile, climbDist+descDist, total)
	}
	frac := func(d float64) float64 {
		if total == 0 {
			return 0
		}
		return d / total
	}
	topClimb := geo.PointAlong(p.Start, p.End, frac(climbDist)).WithAlt(cruiseAlt)
	topDesc := geo.PointAlong(p.Start, p.End, frac(total-descDist)).WithAlt(cruiseAlt)
	locs := []geo.Location{p.Start, topClimb, topDesc, p.End}
	legs := []float64{0, climbSecs, (total - climbDist - descDist) / p.CruiseSpeedMPS, descSecs}
	return locs, legs, nil
}

func buildTriangular(p Params) ([]geo.Location, []float64, error) {
	if err := checkRates(p); err != nil {
		return nil, nil, err
	}
	total := geo.Distance2D(p.Start, p.End)
	if total == 0 {
		return nil, nil, fmt.Errorf("%w: triangular profile needs horizontal distance", ErrInfeasibleProfile)
	}
	// Peak height h above the start satisfies
	// h/climb*takeoff + (h+start-end)/descent*land = total.
	a := p.TakeoffSpeedMPS/p.ClimbRateMPS + p.LandSpeedMPS/p.DescentRateMPS
	h := (total - (p.Start.Alt-p.End.Alt)*p.LandSpeedMPS/p.DescentRateMPS) / a
	if p.CruiseAltAGL > 0 && h > p.CruiseAltAGL {
		h = p.CruiseAltAGL
	}
	peakAlt := p.Start.Alt + h
	if peakAlt < p.End.Alt || h < 0 {
		return nil, nil, fmt.Errorf("%w: cannot reach destination altitude", ErrInfeasibleProfile)
	}
	climbDist, climbSecs := slopedLeg(h, p.ClimbRateMPS, p.TakeoffSpeedMPS)
	descDist, descSecs := slopedLeg(peakAlt-p.End.Alt, p.DescentRateMPS, p.LandSpeedMPS)
	if climbDist+descDist > total*(1+1e-9) {
		return nil, nil, fmt.Errorf("%w: climb and descent need %.0fm, route is %.0fm", ErrInfeasibleProfile, climbDist+descDist, total)
	}
	peak := geo.PointAlong(p.Start, p.End, climbDist/total).WithAlt(peakAlt)
	if total-climbDist-descDist > 1e-6 {
		// Capped at cruise altitude: keep the level stretch between climb and descent.
		topDesc := geo.PointAlong(p.Start, p.End, (total-descDist)/total).WithAlt(peakAlt)
		speed := (p.TakeoffSpeedMPS + p.LandSpeedMPS) / 2
		level := (total - climbDist - descDist) / speed
		return []geo.Location{p.Start, peak, topDesc, p.End}, []float64{0, climbSecs, level, descSecs}, nil
	}
	return []geo.Location{p.Start, peak, p.End}, []float64{0, climbSecs, descSecs}, nil
}
