package timeline

import (
	"trajectory-builder/internal/geo"
)

// Pose is where a group's object is at a moment in time.
type Pose struct {
	Loc     geo.Location
	Bearing float64 // degrees, 0 while not moving horizontally
	// Progress is the elapsed fraction of the group's time span, 0 for groups
	// that never end.
	Progress float64
}

// Path returns the group's poses in order: the first start and every end.
func (g Group) Path() []geo.Location {
	if len(g.Assignments) == 0 {
		return nil
	}
	path := make([]geo.Location, 0, len(g.Assignments)+1)
	path = append(path, g.Assignments[0].Start)
	for _, a := range g.Assignments {
		path = append(path, a.End)
	}
	return path
}

// Active reports whether t falls inside the group's time span.
func (g Group) Active(t float64) bool {
	if t < g.StartTimeSec {
		return false
	}
	return g.Forever() || t <= g.EndTimeSec
}

// PositionAt interpolates the object's pose at t. Outside the group's span the
// pose is clamped to the first or last pose and ok is false.
// A row that never ends is stationary, so its pose is its start.
func (g Group) PositionAt(t float64) (pose Pose, ok bool) {
	rows := g.Assignments
	if len(rows) == 0 {
		return Pose{}, false
	}
	ok = g.Active(t)
	if !g.Forever() && g.EndTimeSec > g.StartTimeSec {
		pose.Progress = min(max((t-g.StartTimeSec)/(g.EndTimeSec-g.StartTimeSec), 0), 1)
	}
	if t <= rows[0].StartTimeSec {
		pose.Loc = rows[0].Start
		pose.Bearing = bearing(rows[0].Start, rows[0].End)
		return pose, ok
	}
	for _, a := range rows {
		if !a.Forever() && t > a.EndTimeSec {
			continue
		}
		f := 1.0
		if !a.Forever() && a.EndTimeSec > a.StartTimeSec {
			f = (t - a.StartTimeSec) / (a.EndTimeSec - a.StartTimeSec)
		}
		if a.Forever() {
			f = 0
		}
		pose.Loc = geo.PointAlong(a.Start, a.End, f)
		pose.Bearing = bearing(a.Start, a.End)
		return pose, ok
	}
	last := rows[len(rows)-1]
	pose.Loc = last.End
	pose.Bearing = bearing(last.Start, last.End)
	return pose, ok
}

func bearing(a, b geo.Location) float64 {
	if a.SameLatLon(b) {
		return 0
	}
	return geo.Bearing(a, b)
}
