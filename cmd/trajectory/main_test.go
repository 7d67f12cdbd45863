package main

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"trajectory-builder/internal/assignment"
	"trajectory-builder/internal/config"
	"trajectory-builder/internal/route"
	"trajectory-builder/internal/scene"
	"trajectory-builder/internal/timeline"
)

const cliScenario = `
nodes:
  - {id: 1, name: Depot, loc: {lat: 0, lon: 0}}
movements:
  - {odID: 1, objectID: truck, routeType: manhattan, start: {lat: 0, lon: 0}, end: {lat: 0.01, lon: 0.02}, expDurationSec: 60}
  - {odID: 2, objectID: truck, routeType: euclidean2D, start: {lat: 0.01, lon: 0.02}, end: {lat: 0, lon: 0}, startTimeSec: 60, speedMPS: 20}
  - {odID: 3, objectID: parked, start: {lat: 1, lon: 1}, end: {lat: 1, lon: 1}, expDurationSec: 30}
flights:
  - odID: 4
    objectID: drone
    start: {lat: 0, lon: 0}
    end: {lat: 0, lon: 0.01}
    profile: square
    cruiseAltAGL: 50
    takeoffSpeedMPS: 5
    cruiseSpeedMPS: 20
    landSpeedMPS: 5
    climbRateMPS: 5
    descentRateMPS: 5
timeline:
  includeStationary: true
`

func TestBuildTable_ScenarioOrder(t *testing.T) {
	sc, err := config.ParseScenario(strings.NewReader(cliScenario))
	if err != nil {
		t.Fatalf("ParseScenario: %v", err)
	}
	log, _ := test.NewNullLogger()
	gen := assignment.NewGenerator(route.NewRegistry(), log)

	table, err := buildTable(context.Background(), gen, sc, 3, log, nil)
	if err != nil {
		t.Fatalf("buildTable: %v", err)
	}
	var order []int
	for _, r := range table.Rows() {
		if len(order) == 0 || order[len(order)-1] != r.ODID {
			order = append(order, r.ODID)
		}
	}
	if want := []int{1, 2, 3, 4}; len(order) != len(want) || order[0] != 1 || order[1] != 2 || order[2] != 3 || order[3] != 4 {
		t.Fatalf("odID order = %v, want %v", order, want)
	}

	groups, err := timeline.Decompose(table.Rows(), sc.Timeline.Options())
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	if len(groups) != 4 || groups[2].Action != timeline.Stationary {
		t.Fatalf("groups = %+v", groups)
	}

	dir := t.TempDir()
	if err := writeOutputs(dir, sc.Nodes, groups, table.Rows()); err != nil {
		t.Fatalf("writeOutputs: %v", err)
	}
	f, err := os.Open(filepath.Join(dir, "assignments.csv"))
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(recs) != table.Len()+1 || len(recs[0]) != len(scene.CSVHeader) {
		t.Fatalf("csv has %d records of width %d", len(recs), len(recs[0]))
	}
	if _, err := os.Stat(filepath.Join(dir, "scene.geojson")); err != nil {
		t.Fatalf("scene.geojson: %v", err)
	}
}

func TestBuildTable_ReportsFailures(t *testing.T) {
	sc, err := config.ParseScenario(strings.NewReader(`
movements:
  - {odID: 1, objectID: a, routeType: manhattan, start: {lat: 0, lon: 0}, end: {lat: 0, lon: 1}, expDurationSec: 10}
  - {odID: 2, objectID: b, routeType: fastest, dataProvider: pgrouting, start: {lat: 0, lon: 0}, end: {lat: 0, lon: 1}}
`))
	if err != nil {
		t.Fatalf("ParseScenario: %v", err)
	}
	log, hook := test.NewNullLogger()
	gen := assignment.NewGenerator(route.NewRegistry(), log)
	failures := 0
	table, err := buildTable(context.Background(), gen, sc, 2, log, func() { failures++ })
	if !errors.Is(err, route.ErrUnsupportedRoute) {
		t.Fatalf("err = %v, want ErrUnsupportedRoute", err)
	}
	if table.Len() != 2 || failures != 1 || len(hook.Entries) != 1 {
		t.Fatalf("rows=%d failures=%d log entries=%d", table.Len(), failures, len(hook.Entries))
	}
}

func TestBuildRegistry(t *testing.T) {
	log, _ := test.NewNullLogger()
	cfg := &config.Config{ORSAPIKey: "k", MapQuestAPIKey: "m"}
	reg, elev := buildRegistry(cfg, nil, log)
	if elev == nil {
		t.Fatalf("expected ORS elevation source")
	}
	for _, k := range []route.Key{
		{RouteType: route.Fastest, Provider: route.OSRMOnline},
		{RouteType: route.Wheelchair, Provider: route.ORSOnline},
		{RouteType: route.Cycling, Provider: route.MapQuest},
	} {
		if _, err := reg.Lookup(k.RouteType, k.Provider); err != nil {
			t.Errorf("Lookup(%s): %v", k, err)
		}
	}
	if _, err := reg.Lookup(route.Truck, route.MapQuest); !errors.Is(err, route.ErrUnsupportedRoute) {
		t.Fatalf("truck/mapquest should be unsupported, got %v", err)
	}
	if _, err := reg.Lookup(route.Fastest, route.PgRouting); !errors.Is(err, route.ErrUnsupportedRoute) {
		t.Fatalf("pgrouting without a database should be unsupported, got %v", err)
	}
}
