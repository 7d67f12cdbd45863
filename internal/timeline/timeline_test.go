package timeline

import (
	"context"
	"errors"
	"math"
	"testing"

	"trajectory-builder/internal/assignment"
	"trajectory-builder/internal/geo"
	"trajectory-builder/internal/route"
)

var (
	pA = geo.Location{Lat: 0, Lon: 0}
	pB = geo.Location{Lat: 0, Lon: 1}
	pC = geo.Location{Lat: 1, Lon: 1}
)

func row(od int, start, end geo.Location, t0, t1 float64) assignment.Assignment {
	return assignment.Assignment{ODID: od, ObjectID: "obj", Start: start, End: end, StartTimeSec: t0, EndTimeSec: t1}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		rows []assignment.Assignment
		want Action
	}{
		{"stationary", []assignment.Assignment{row(1, pA, pA, 0, 10)}, Stationary},
		{"vertical", []assignment.Assignment{row(1, pA, pA.WithAlt(50), 0, 10)}, Vertical},
		{"single move", []assignment.Assignment{row(1, pA, pB, 0, 10)}, Move},
		{"multi-row stationary poses", []assignment.Assignment{row(1, pA, pA, 0, 10), row(1, pA, pA, 10, 20)}, Move},
	}
	for _, c := range cases {
		if got := Classify(c.rows); got != c.want {
			t.Errorf("%s: Classify = %s, want %s", c.name, got, c.want)
		}
	}
}

func mixedRows() []assignment.Assignment {
	return []assignment.Assignment{
		row(5, pA, pB, 0, 10),
		row(2, pC, pC, 0, 100),
		row(5, pB, pC, 10, 30),
		row(9, pB, pB.WithAlt(30), 5, 15),
	}
}

func TestDecompose_FilteringAndOrder(t *testing.T) {
	groups, err := Decompose(mixedRows(), Options{})
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	if len(groups) != 1 || groups[0].Action != Move || groups[0].ODID != 5 {
		t.Fatalf("groups = %+v, want only the move group", groups)
	}
	g := groups[0]
	if g.Key != "5-move" || g.StartTimeSec != 0 || g.EndTimeSec != 30 || len(g.Assignments) != 2 || g.Index != 0 {
		t.Fatalf("group = %+v", g)
	}

	groups, err = Decompose(mixedRows(), Options{IncludeStationary: true, IncludeVertical: true})
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	var ids []int
	for i, g := range groups {
		ids = append(ids, g.ODID)
		if g.Index != i {
			t.Fatalf("group %d has Index %d", i, g.Index)
		}
	}
	if len(ids) != 3 || ids[0] != 5 || ids[1] != 2 || ids[2] != 9 {
		t.Fatalf("first-seen order = %v, want [5 2 9]", ids)
	}
	if groups[1].Action != Stationary || groups[2].Action != Vertical {
		t.Fatalf("actions = %s, %s", groups[1].Action, groups[2].Action)
	}

	groups, _ = Decompose(mixedRows(), Options{IncludeStationary: true, IncludeVertical: true, Canonical: true})
	if groups[0].ODID != 2 || groups[1].ODID != 5 || groups[2].ODID != 9 {
		t.Fatalf("canonical order = %d %d %d, want 2 5 9", groups[0].ODID, groups[1].ODID, groups[2].ODID)
	}
}

func TestDecompose_StationaryFlag(t *testing.T) {
	rows := []assignment.Assignment{row(1, pA, pA, 0, 5)}
	without, _ := Decompose(rows, Options{IncludeStationary: false})
	with, _ := Decompose(rows, Options{IncludeStationary: true})
	if len(without) != 0 || len(with) != 1 {
		t.Fatalf("without=%d with=%d, want 0 and 1", len(without), len(with))
	}
}

func TestDecompose_Discontinuous(t *testing.T) {
	cases := map[string][]assignment.Assignment{
		"time gap": {row(1, pA, pB, 0, 10), row(1, pB, pC, 11, 20)},
		"pose gap": {row(1, pA, pB, 0, 10), row(1, pC, pA, 10, 20)},
		"after forever": {
			row(1, pA, pA, 0, assignment.Forever), row(1, pA, pC, 10, 20),
		},
	}
	for name, rows := range cases {
		if _, err := Decompose(rows, Options{}); !errors.Is(err, ErrDiscontinuous) {
			t.Errorf("%s: err = %v, want ErrDiscontinuous", name, err)
		}
	}
}

func TestDecompose_Forever(t *testing.T) {
	rows := []assignment.Assignment{row(3, pA, pB, 0, 10), row(3, pB, pB, 10, assignment.Forever)}
	groups, err := Decompose(rows, Options{})
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	if !groups[0].Forever() || !groups[0].Active(1e9) {
		t.Fatalf("group should never end: %+v", groups[0])
	}
}

func TestDecompose_ForeverMustBeStationary(t *testing.T) {
	rows := []assignment.Assignment{row(3, pA, pB, 0, 10), row(3, pB, pC, 10, assignment.Forever)}
	if _, err := Decompose(rows, Options{}); !errors.Is(err, assignment.ErrForeverMotion) {
		t.Fatalf("err = %v, want ErrForeverMotion", err)
	}
}

func TestDecompose_VerticalFromGenerator(t *testing.T) {
	gen := assignment.NewGenerator(route.NewRegistry(), nil)
	ground := geo.Location{Lat: 1, Lon: 1}
	climb, err := gen.Generate2D(context.Background(), assignment.Request2D{
		ODID: 8, ObjectID: "lift", Start: ground, End: ground.WithAlt(50), ExpDurationSec: 30, RouteType: route.Euclidean2D,
	})
	if err != nil {
		t.Fatalf("Generate2D: %v", err)
	}

	without, err := Decompose(climb, Options{})
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	if len(without) != 0 {
		t.Fatalf("vertical group kept without IncludeVertical: %+v", without)
	}
	groups, err := Decompose(climb, Options{IncludeVertical: true})
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	if len(groups) != 1 || groups[0].Action != Vertical || groups[0].Key != "8-vertical" {
		t.Fatalf("groups = %+v", groups)
	}
	if groups[0].EndTimeSec-groups[0].StartTimeSec != 30 {
		t.Fatalf("span = [%v,%v], want 30 s", groups[0].StartTimeSec, groups[0].EndTimeSec)
	}
	if pose, ok := groups[0].PositionAt(15); !ok || math.Abs(pose.Loc.Alt-25) > 1e-9 || pose.Bearing != 0 {
		t.Fatalf("PositionAt(15) = %+v, %v", pose, ok)
	}
}

func TestGroupPositionAt(t *testing.T) {
	groups, err := Decompose([]assignment.Assignment{row(1, pA, pB, 10, 20), row(1, pB, pC, 20, 40)}, Options{})
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	g := groups[0]

	pose, ok := g.PositionAt(15)
	if !ok || math.Abs(pose.Loc.Lon-0.5) > 1e-12 || pose.Loc.Lat != 0 {
		t.Fatalf("PositionAt(15) = %+v, %v", pose, ok)
	}
	if math.Abs(pose.Bearing-90) > 1e-9 {
		t.Fatalf("bearing = %v, want 90", pose.Bearing)
	}
	if math.Abs(pose.Progress-5.0/30) > 1e-12 {
		t.Fatalf("progress = %v", pose.Progress)
	}

	pose, _ = g.PositionAt(30)
	if math.Abs(pose.Loc.Lat-0.5) > 1e-12 || pose.Loc.Lon != 1 {
		t.Fatalf("PositionAt(30) = %+v", pose.Loc)
	}

	if pose, ok := g.PositionAt(0); ok || pose.Loc != pA {
		t.Fatalf("before start: %+v %v", pose, ok)
	}
	if pose, ok := g.PositionAt(99); ok || pose.Loc != pC || pose.Progress != 1 {
		t.Fatalf("after end: %+v %v", pose, ok)
	}
	if path := g.Path(); len(path) != 3 || path[2] != pC {
		t.Fatalf("Path = %v", path)
	}
}
