package timeline

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"trajectory-builder/internal/assignment"
	"trajectory-builder/internal/geo"
)

// ErrDiscontinuous is returned when a group's rows do not chain end-to-start.
var ErrDiscontinuous = errors.New("discontinuous assignment group")

// Action classifies the motion of a group.
type Action string

const (
	Stationary Action = "stationary"
	Vertical   Action = "vertical"
	Move       Action = "move"
)

const (
	timeEpsilon  = 1e-6 // seconds
	coordEpsilon = 1e-9 // degrees / meters
)

// Options controls which groups Decompose returns and in what order.
type Options struct {
	IncludeStationary bool
	IncludeVertical   bool
	// Canonical orders groups by ODID instead of first appearance.
	Canonical bool
}

// Group is one continuous movement of one object.
type Group struct {
	Key          string
	ODID         int
	ObjectID     string
	Action       Action
	Model        assignment.Model
	StartTimeSec float64
	// EndTimeSec is assignment.Forever when any row never ends.
	EndTimeSec float64
	// Index is the group's position in the Decompose result.
	Index       int
	Assignments []assignment.Assignment
}

// Forever reports whether the group never ends.
func (g Group) Forever() bool { return g.EndTimeSec == assignment.Forever }

// Classify returns the action for the rows of a single group.
func Classify(rows []assignment.Assignment) Action {
	if len(rows) != 1 {
		return Move
	}
	a := rows[0]
	switch {
	case a.Start.Equal(a.End):
		return Stationary
	case a.Start.SameLatLon(a.End):
		return Vertical
	default:
		return Move
	}
}

// Decompose groups rows by ODID in first-seen order, checks that each group is
// continuous, classifies it and drops the actions opts does not ask for. A row
// that never ends must be stationary (assignment.ErrForeverMotion).
func Decompose(rows []assignment.Assignment, opts Options) ([]Group, error) {
	var order []int
	byID := make(map[int][]assignment.Assignment)
	for _, r := range rows {
		if _, ok := byID[r.ODID]; !ok {
			order = append(order, r.ODID)
		}
		byID[r.ODID] = append(byID[r.ODID], r)
	}
	if opts.Canonical {
		sort.SliceStable(order, func(i, j int) bool { return order[i] < order[j] })
	}

	groups := make([]Group, 0, len(order))
	for _, id := range order {
		members := byID[id]
		if err := checkContinuity(members); err != nil {
			return nil, fmt.Errorf("odID %d: %w", id, err)
		}
		action := Classify(members)
		if action == Stationary && !opts.IncludeStationary {
			continue
		}
		if action == Vertical && !opts.IncludeVertical {
			continue
		}
		start, end := span(members)
		groups = append(groups, Group{
			Key:          fmt.Sprintf("%d-%s", id, action),
			ODID:         id,
			ObjectID:     members[0].ObjectID,
			Action:       action,
			Model:        members[0].Model,
			StartTimeSec: start,
			EndTimeSec:   end,
			Index:        len(groups),
			Assignments:  members,
		})
	}
	return groups, nil
}

func checkContinuity(rows []assignment.Assignment) error {
	for i, r := range rows {
		if r.Forever() && !r.Start.Equal(r.End) {
			return fmt.Errorf("%w: row %d moves from %s to %s", assignment.ErrForeverMotion, i, r.Start, r.End)
		}
	}
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		if prev.Forever() {
			return fmt.Errorf("%w: row %d follows a row that never ends", ErrDiscontinuous, i)
		}
		if math.Abs(prev.EndTimeSec-cur.StartTimeSec) > timeEpsilon {
			return fmt.Errorf("%w: row %d starts at %v, previous ends at %v", ErrDiscontinuous, i, cur.StartTimeSec, prev.EndTimeSec)
		}
		if !near(prev.End, cur.Start) {
			return fmt.Errorf("%w: row %d starts at %s, previous ends at %s", ErrDiscontinuous, i, cur.Start, prev.End)
		}
		if cur.ObjectID != prev.ObjectID {
			return fmt.Errorf("%w: object changes from %q to %q at row %d", ErrDiscontinuous, prev.ObjectID, cur.ObjectID, i)
		}
	}
	return nil
}

func near(a, b geo.Location) bool {
	return math.Abs(a.Lat-b.Lat) <= coordEpsilon &&
		math.Abs(a.Lon-b.Lon) <= coordEpsilon &&
		math.Abs(a.Alt-b.Alt) <= coordEpsilon
}

func span(rows []assignment.Assignment) (start, end float64) {
	start, end = math.Inf(1), math.Inf(-1)
	for _, r := range rows {
		start = math.Min(start, r.StartTimeSec)
		if r.Forever() {
			return start, assignment.Forever
		}
		end = math.Max(end, r.EndTimeSec)
	}
	return start, end
}
