package config

import (
	"strings"
	"testing"
	"time"

	"trajectory-builder/internal/flight"
	"trajectory-builder/internal/route"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"DATABASE_URL", "PG_DSN", "PGDATABASE", "NETWORK", "SINK", "KAFKA_BROKERS", "PUBLISH_INTERVAL_MS", "SPEED_MULTIPLIER", "DISTANCE_TOLERANCE_M", "BUILD_WORKERS", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
	if cfg.Sink != SinkNone || cfg.PublishInterval != time.Second || cfg.SpeedMultiplier != 1 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.DistanceTolerance != 10 || cfg.BuildWorkers != 4 {
		t.Fatalf("tolerance=%v workers=%d", cfg.DistanceTolerance, cfg.BuildWorkers)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PG_DSN", "")
	t.Setenv("PGDATABASE", "")
	t.Setenv("NETWORK", "buffalo")
	t.Setenv("PGUSER", "sim")
	t.Setenv("PGPASSWORD", "p@ss")
	t.Setenv("SINK", "Kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("PUBLISH_INTERVAL_MS", "250")
	t.Setenv("REPLAY", "yes")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.HasPrefix(cfg.DatabaseURL, "postgres://sim:p%40ss@") || !strings.Contains(cfg.DatabaseURL, "/postgres?") {
		t.Fatalf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.Sink != SinkKafka || len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("sink=%q brokers=%v", cfg.Sink, cfg.KafkaBrokers)
	}
	if cfg.PublishInterval != 250*time.Millisecond || !cfg.Replay {
		t.Fatalf("interval=%v replay=%v", cfg.PublishInterval, cfg.Replay)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"SPEED_MULTIPLIER":     "-2",
		"BUILD_WORKERS":        "zero",
		"DISTANCE_TOLERANCE_M": "0",
		"SINK":                 "carrier-pigeon",
		"LOG_FORMAT":           "xml",
	}
	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv(k, v)
			if _, err := Load(); err == nil {
				t.Fatalf("%s=%q should fail", k, v)
			}
		})
	}
}

const scenarioYAML = `
nodes:
  - id: 1
    name: Depot
    loc: {lat: 43.0, lon: 181.0}
movements:
  - odID: 1
    objectID: truck
    start: {lat: 43.0, lon: -78.8}
    end: {lat: 43.01, lon: -78.79}
    speedMPS: 12
    routeType: fastest
    dataProvider: ors-online
    style:
      map: {color: blue}
  - odID: 3
    objectID: beacon
    start: {lat: 43.0, lon: -78.8}
    end: {lat: 43.0, lon: -78.8}
    startTimeSec: 120
    forever: true
flights:
  - odID: 2
    objectID: drone
    start: {lat: 43.0, lon: -78.8}
    end: {lat: 43.0, lon: -78.7}
    profile: trapezoidal
    cruiseAltAGL: 120
    takeoffSpeedMPS: 10
    cruiseSpeedMPS: 25
    landSpeedMPS: 10
    climbRateMPS: 3
    descentRateMPS: 3
    earliestLandTimeSec: 900
    loiterPosition: arrivalAtAlt
timeline:
  includeStationary: true
`

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario(strings.NewReader(scenarioYAML))
	if err != nil {
		t.Fatalf("ParseScenario: %v", err)
	}
	if s.Nodes[0].Loc.Lon != -179 {
		t.Fatalf("node longitude not normalized: %v", s.Nodes[0].Loc.Lon)
	}
	req := s.Movements[0].Request()
	if req.RouteType != route.Fastest || req.Provider != route.ORSOnline || req.SpeedMPS != 12 || req.Style.Map.Color != "blue" {
		t.Fatalf("movement request = %+v", req)
	}
	if beacon := s.Movements[1].Request(); !beacon.Forever || beacon.StartTimeSec != 120 {
		t.Fatalf("stationary movement request = %+v", beacon)
	}
	f := s.Flights[0].Request()
	if f.Profile != flight.Trapezoidal || f.EarliestLandTimeSec == nil || *f.EarliestLandTimeSec != 900 || f.LoiterPosition != flight.ArrivalAtAlt {
		t.Fatalf("flight request = %+v", f)
	}
	if opts := s.Timeline.Options(); !opts.IncludeStationary || opts.IncludeVertical {
		t.Fatalf("timeline options = %+v", opts)
	}
}

func TestParseScenario_Rejects(t *testing.T) {
	cases := map[string]string{
		"duplicate odID": `
movements:
  - {odID: 1, objectID: a, routeType: manhattan, start: {lat: 0, lon: 0}, end: {lat: 1, lon: 1}}
flights:
  - {odID: 1, objectID: b}
`,
		"unknown field": `
movements:
  - {odID: 1, objectID: a, colour: red}
`,
		"moving forever": `
movements:
  - {odID: 1, objectID: a, routeType: manhattan, start: {lat: 0, lon: 0}, end: {lat: 1, lon: 1}, expDurationSec: 10, forever: true}
`,
		"missing route type": `
movements:
  - {odID: 1, objectID: a, start: {lat: 0, lon: 0}, end: {lat: 1, lon: 1}}
`,
	}
	for name, doc := range cases {
		if _, err := ParseScenario(strings.NewReader(doc)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}
