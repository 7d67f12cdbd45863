package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"trajectory-builder/internal/flight"
	"trajectory-builder/internal/geo"
	"trajectory-builder/internal/route"
)

const tracerName = "trajectory-builder/internal/assignment"

// DefaultTolerance is the distance in meters a resolved endpoint may drift from
// the requested one before a warning is logged.
const DefaultTolerance = 10.0

// Assignment kinds reported to Metrics.
const (
	KindStationary = "stationary"
	KindVertical   = "vertical"
	KindRoute      = "route"
	KindFlight     = "flight"
)

// Metrics receives generator events. A nil Metrics is ignored.
type Metrics interface {
	ResolveObserve(key string, d time.Duration, err error)
	ToleranceWarningInc(key string)
	AssignmentsAdd(kind string, n int)
}

// Generator turns routes and flight profiles into assignments.
type Generator struct {
	Routes *route.Registry
	// Elevation is used for stationary requests that ask for it.
	Elevation route.ElevationSource
	// Tolerance defaults to DefaultTolerance when <= 0.
	Tolerance float64
	Log       logrus.FieldLogger
	Metrics   Metrics
}

// NewGenerator returns a generator using routes and logging to log.
func NewGenerator(routes *route.Registry, log logrus.FieldLogger) *Generator {
	return &Generator{Routes: routes, Tolerance: DefaultTolerance, Log: log}
}

// Request2D describes a ground movement. Zero ExpDurationSec and SpeedMPS mean
// unset; when both are set the duration wins.
type Request2D struct {
	ODID     int
	ObjectID string
	Model    Model

	Start        geo.Location
	End          geo.Location
	StartTimeSec float64

	ExpDurationSec float64
	SpeedMPS       float64

	RouteType     route.RouteType
	Provider      route.Provider
	VerticalFirst bool

	Style     Style
	PopupText *string
	// LookupElevation fills the elevation of a stationary request.
	LookupElevation bool
	// Forever keeps a stationary request in place with no end time.
	Forever         bool
}

// Request3D describes a flight. A nil EarliestLandTimeSec disables loiter.
type Request3D struct {
	ODID     int
	ObjectID string
	Model    Model

	Start        geo.Location
	End          geo.Location
	StartTimeSec float64

	Profile         flight.ProfileType
	CruiseAltAGL    float64
	TakeoffSpeedMPS float64
	CruiseSpeedMPS  float64
	LandSpeedMPS    float64
	ClimbRateMPS    float64
	DescentRateMPS  float64

	EarliestLandTimeSec *float64
	// LoiterPosition defaults to flight.TakeoffAtAlt.
	LoiterPosition flight.LoiterPosition

	Style     Style
	PopupText *string
}

func (g *Generator) log() logrus.FieldLogger {
	if g.Log == nil {
		return logrus.StandardLogger()
	}
	return g.Log
}

func (g *Generator) tolerance() float64 {
	if g.Tolerance <= 0 {
		return DefaultTolerance
	}
	return g.Tolerance
}

func (g *Generator) count(kind string, n int) {
	if g.Metrics != nil && n > 0 {
		g.Metrics.AssignmentsAdd(kind, n)
	}
}

func (r Request2D) row(style Style) Assignment {
	return Assignment{
		ODID:      r.ODID,
		ObjectID:  r.ObjectID,
		Model:     r.Model,
		Map:       style.Map,
		Globe:     style.Globe,
		PopupText: r.PopupText,
	}
}

// Generate2D builds the assignments for a ground movement. It either returns
// the complete, time-ordered sequence or an error and no rows.
func (g *Generator) Generate2D(ctx context.Context, req Request2D) ([]Assignment, error) {
	if req.ExpDurationSec < 0 {
		return nil, fmt.Errorf("odID %d: %w: expected duration %v", req.ODID, route.ErrNegativeDuration, req.ExpDurationSec)
	}
	style := req.Style.withDefaults()
	if req.Start.Equal(req.End) {
		return g.stationary(ctx, req, style)
	}
	if req.Forever {
		return nil, fmt.Errorf("odID %d: %w", req.ODID, ErrForeverMotion)
	}
	if req.Start.SameLatLon(req.End) {
		return g.vertical(req, style)
	}
	if req.RouteType.Geometric() && req.ExpDurationSec <= 0 && req.SpeedMPS <= 0 {
		return nil, fmt.Errorf("odID %d: %w: %s route needs a duration or a speed", req.ODID, route.ErrMissingArgument, req.RouteType)
	}

	res, err := g.resolve(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("odID %d: %w", req.ODID, err)
	}
	g.checkEndpoints(req, res)

	switch {
	case req.ExpDurationSec > 0:
		res, err = route.Retime(res, req.ExpDurationSec)
	case req.SpeedMPS > 0:
		res, err = route.Retime(res, res.TotalDist()/req.SpeedMPS)
	}
	if err != nil {
		return nil, fmt.Errorf("odID %d: retime: %w", req.ODID, err)
	}

	rows := make([]Assignment, 0, len(res.Path)-1)
	t := req.StartTimeSec
	for i := 1; i < len(res.Path); i++ {
		a := req.row(style)
		a.Start, a.End = res.Path[i-1], res.Path[i]
		a.StartTimeSec = t
		t += res.Times[i]
		a.EndTimeSec = t
		if e, ok := res.Extras[i-1]; ok {
			a.applyStartExtras(e)
		}
		if e, ok := res.Extras[i]; ok {
			a.EndElevation = e.Elevation
		}
		rows = append(rows, a)
	}
	g.count(KindRoute, len(rows))
	return rows, nil
}

func (g *Generator) stationary(ctx context.Context, req Request2D, style Style) ([]Assignment, error) {
	a := req.row(style)
	a.Start, a.End = req.Start, req.End
	a.StartTimeSec = req.StartTimeSec
	a.EndTimeSec = req.StartTimeSec + req.ExpDurationSec
	if req.Forever {
		a.EndTimeSec = Forever
	}
	if req.LookupElevation && g.Elevation != nil {
		elev, err := g.Elevation.Elevation(ctx, req.Start)
		if err != nil {
			return nil, fmt.Errorf("odID %d: elevation: %w", req.ODID, err)
		}
		a.StartElevation = &elev
		a.EndElevation = &elev
	}
	g.count(KindStationary, 1)
	return []Assignment{a}, nil
}

// vertical emits a single row for a pure altitude change, timed by the
// duration or by the climb at SpeedMPS.
func (g *Generator) vertical(req Request2D, style Style) ([]Assignment, error) {
	dur := req.ExpDurationSec
	if dur <= 0 {
		if req.SpeedMPS <= 0 {
			return nil, fmt.Errorf("odID %d: %w: altitude change needs a duration or a speed", req.ODID, route.ErrMissingArgument)
		}
		dur = geo.Distance3D(req.Start, req.End) / req.SpeedMPS
	}
	a := req.row(style)
	a.Start, a.End = req.Start, req.End
	a.StartTimeSec = req.StartTimeSec
	a.EndTimeSec = req.StartTimeSec + dur
	g.count(KindVertical, 1)
	return []Assignment{a}, nil
}

func (g *Generator) resolve(ctx context.Context, req Request2D) (route.Result, error) {
	if g.Routes == nil {
		return route.Result{}, fmt.Errorf("%w: no route registry", route.ErrUnsupportedRoute)
	}
	resolver, err := g.Routes.Lookup(req.RouteType, req.Provider)
	if err != nil {
		return route.Result{}, err
	}
	key := route.Key{RouteType: req.RouteType, Provider: req.Provider}.String()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "route.resolve", trace.WithAttributes(
		attribute.String("route.key", key),
		attribute.Int("od_id", req.ODID),
		attribute.String("object_id", req.ObjectID),
	))
	defer span.End()

	start := time.Now()
	res, err := resolver.Resolve(ctx, route.Query{Start: req.Start, End: req.End, VerticalFirst: req.VerticalFirst})
	if err == nil {
		err = res.Validate()
	}
	if err == nil && len(res.Path) < 2 {
		err = fmt.Errorf("%w: %d point path", route.ErrMalformedResult, len(res.Path))
	}
	if g.Metrics != nil {
		g.Metrics.ResolveObserve(key, time.Since(start), err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return route.Result{}, fmt.Errorf("resolve %s: %w", key, err)
	}
	span.SetAttributes(attribute.Int("route.points", len(res.Path)))
	return res, nil
}

// checkEndpoints warns when the resolved route starts or ends too far from the
// requested locations. Generation continues with the resolved endpoints.
func (g *Generator) checkEndpoints(req Request2D, res route.Result) {
	tol := g.tolerance()
	key := route.Key{RouteType: req.RouteType, Provider: req.Provider}.String()
	for _, c := range []struct {
		which     string
		requested geo.Location
		resolved  geo.Location
	}{
		{"start", req.Start, res.Path[0]},
		{"end", req.End, res.Path[len(res.Path)-1]},
	} {
		d := geo.Distance2D(c.requested, c.resolved)
		if d < tol {
			continue
		}
		g.log().WithFields(logrus.Fields{
			"odID":        req.ODID,
			"objectID":    req.ObjectID,
			"route":       key,
			"endpoint":    c.which,
			"requested":   c.requested.String(),
			"resolved":    c.resolved.String(),
			"offset_m":    d,
			"tolerance_m": tol,
		}).Warn("resolved route endpoint differs from requested location")
		if g.Metrics != nil {
			g.Metrics.ToleranceWarningInc(key)
		}
	}
}

// Generate3D builds the assignments for a flight, inserting a hold when the
// flight would land before EarliestLandTimeSec.
func (g *Generator) Generate3D(ctx context.Context, req Request3D) ([]Assignment, error) {
	pos := req.LoiterPosition
	if pos == "" {
		pos = flight.TakeoffAtAlt
	}
	if !pos.Valid() {
		return nil, fmt.Errorf("odID %d: %w: %q", req.ODID, flight.ErrUnknownLoiterPosition, pos)
	}
	_, span := otel.Tracer(tracerName).Start(ctx, "flight.build", trace.WithAttributes(
		attribute.String("flight.profile", string(req.Profile)),
		attribute.Int("od_id", req.ODID),
	))
	defer span.End()

	prof, err := flight.Build(flight.Params{
		Type:            req.Profile,
		Start:           req.Start,
		End:             req.End,
		CruiseAltAGL:    req.CruiseAltAGL,
		TakeoffSpeedMPS: req.TakeoffSpeedMPS,
		CruiseSpeedMPS:  req.CruiseSpeedMPS,
		LandSpeedMPS:    req.LandSpeedMPS,
		ClimbRateMPS:    req.ClimbRateMPS,
		DescentRateMPS:  req.DescentRateMPS,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("odID %d: build flight: %w", req.ODID, err)
	}
	if req.EarliestLandTimeSec != nil {
		landAt := req.StartTimeSec + prof.Duration()
		if slack := *req.EarliestLandTimeSec - landAt; slack > 0 {
			prof, err = flight.InsertLoiter(prof, pos, slack)
			if err != nil {
				return nil, fmt.Errorf("odID %d: loiter: %w", req.ODID, err)
			}
			g.log().WithFields(logrus.Fields{
				"odID":       req.ODID,
				"objectID":   req.ObjectID,
				"loiter_sec": slack,
				"position":   pos,
			}).Debug("inserted loiter")
		}
	}

	style := req.Style.withDefaults()
	base := Request2D{ODID: req.ODID, ObjectID: req.ObjectID, Model: req.Model, PopupText: req.PopupText}
	hold := func(wp flight.Waypoint) Assignment {
		a := base.row(style)
		a.Map, a.Globe = style.loiter()
		a.Start, a.End = wp.Loc, wp.Loc
		a.StartTimeSec = req.StartTimeSec + wp.ArriveSec
		a.EndTimeSec = req.StartTimeSec + wp.DepartSec
		return a
	}

	var rows []Assignment
	if prof[0].LoiterSec > 0 {
		rows = append(rows, hold(prof[0]))
	}
	for i := 1; i < len(prof); i++ {
		prev, wp := prof[i-1], prof[i]
		if !(prev.Loc.Equal(wp.Loc) && wp.ArriveSec == prev.DepartSec) {
			a := base.row(style)
			a.Start, a.End = prev.Loc, wp.Loc
			a.StartTimeSec = req.StartTimeSec + prev.DepartSec
			a.EndTimeSec = req.StartTimeSec + wp.ArriveSec
			rows = append(rows, a)
		}
		if wp.LoiterSec > 0 {
			rows = append(rows, hold(wp))
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("odID %d: %w: flight has no motion", req.ODID, flight.ErrInfeasibleProfile)
	}
	span.SetAttributes(attribute.Int("flight.segments", len(rows)))
	g.count(KindFlight, len(rows))
	return rows, nil
}
