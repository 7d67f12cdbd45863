package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"trajectory-builder/internal/assignment"
	"trajectory-builder/internal/flight"
	"trajectory-builder/internal/geo"
	"trajectory-builder/internal/route"
	"trajectory-builder/internal/timeline"
)

// Scenario is the YAML description of what to build.
type Scenario struct {
	Nodes     []assignment.Node `yaml:"nodes"`
	Movements []Movement        `yaml:"movements"`
	Flights   []Flight          `yaml:"flights"`
	Timeline  TimelineOptions   `yaml:"timeline"`
}

// Movement is one ground movement.
type Movement struct {
	ODID            int              `yaml:"odID"`
	ObjectID        string           `yaml:"objectID"`
	Model           assignment.Model `yaml:"model"`
	Start           geo.Location     `yaml:"start"`
	End             geo.Location     `yaml:"end"`
	StartTimeSec    float64          `yaml:"startTimeSec"`
	ExpDurationSec  float64          `yaml:"expDurationSec"`
	SpeedMPS        float64          `yaml:"speedMPS"`
	RouteType       route.RouteType  `yaml:"routeType"`
	DataProvider    route.Provider   `yaml:"dataProvider"`
	VerticalFirst   bool             `yaml:"verticalFirst"`
	Style           assignment.Style `yaml:"style"`
	PopupText       *string          `yaml:"popupText"`
	LookupElevation bool             `yaml:"lookupElevation"`
	// Forever keeps a stationary object in place with no end time.
	Forever         bool             `yaml:"forever"`
}

// Flight is one aerial movement.
type Flight struct {
	ODID                int                   `yaml:"odID"`
	ObjectID            string                `yaml:"objectID"`
	Model               assignment.Model      `yaml:"model"`
	Start               geo.Location          `yaml:"start"`
	End                 geo.Location          `yaml:"end"`
	StartTimeSec        float64               `yaml:"startTimeSec"`
	Profile             flight.ProfileType    `yaml:"profile"`
	CruiseAltAGL        float64               `yaml:"cruiseAltAGL"`
	TakeoffSpeedMPS     float64               `yaml:"takeoffSpeedMPS"`
	CruiseSpeedMPS      float64               `yaml:"cruiseSpeedMPS"`
	LandSpeedMPS        float64               `yaml:"landSpeedMPS"`
	ClimbRateMPS        float64               `yaml:"climbRateMPS"`
	DescentRateMPS      float64               `yaml:"descentRateMPS"`
	EarliestLandTimeSec *float64              `yaml:"earliestLandTimeSec"`
	LoiterPosition      flight.LoiterPosition `yaml:"loiterPosition"`
	Style               assignment.Style      `yaml:"style"`
	PopupText           *string               `yaml:"popupText"`
}

// TimelineOptions mirrors timeline.Options.
type TimelineOptions struct {
	IncludeStationary bool `yaml:"includeStationary"`
	IncludeVertical   bool `yaml:"includeVertical"`
	Canonical         bool `yaml:"canonical"`
}

func (o TimelineOptions) Options() timeline.Options {
	return timeline.Options{
		IncludeStationary: o.IncludeStationary,
		IncludeVertical:   o.IncludeVertical,
		Canonical:         o.Canonical,
	}
}

func (m Movement) Request() assignment.Request2D {
	return assignment.Request2D{
		ODID:            m.ODID,
		ObjectID:        m.ObjectID,
		Model:           m.Model,
		Start:           geo.Normalize(m.Start),
		End:             geo.Normalize(m.End),
		StartTimeSec:    m.StartTimeSec,
		ExpDurationSec:  m.ExpDurationSec,
		SpeedMPS:        m.SpeedMPS,
		RouteType:       m.RouteType,
		Provider:        m.DataProvider,
		VerticalFirst:   m.VerticalFirst,
		Style:           m.Style,
		PopupText:       m.PopupText,
		LookupElevation: m.LookupElevation,
		Forever:         m.Forever,
	}
}

func (f Flight) Request() assignment.Request3D {
	return assignment.Request3D{
		ODID:                f.ODID,
		ObjectID:            f.ObjectID,
		Model:               f.Model,
		Start:               geo.Normalize(f.Start),
		End:                 geo.Normalize(f.End),
		StartTimeSec:        f.StartTimeSec,
		Profile:             f.Profile,
		CruiseAltAGL:        f.CruiseAltAGL,
		TakeoffSpeedMPS:     f.TakeoffSpeedMPS,
		CruiseSpeedMPS:      f.CruiseSpeedMPS,
		LandSpeedMPS:        f.LandSpeedMPS,
		ClimbRateMPS:        f.ClimbRateMPS,
		DescentRateMPS:      f.DescentRateMPS,
		EarliestLandTimeSec: f.EarliestLandTimeSec,
		LoiterPosition:      f.LoiterPosition,
		Style:               f.Style,
		PopupText:           f.PopupText,
	}
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(bytes.NewReader(b))
}

// ParseScenario decodes a scenario, rejecting unknown fields.
func ParseScenario(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Scenario
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	for i := range s.Nodes {
		s.Nodes[i].Loc = geo.Normalize(s.Nodes[i].Loc)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that odIDs are unique, every moving movement names a route
// type and only stationary movements are marked forever.
func (s *Scenario) Validate() error {
	seen := make(map[int]string)
	claim := func(id int, what string) error {
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("scenario: odID %d used by %s and %s", id, prev, what)
		}
		seen[id] = what
		return nil
	}
	for i, m := range s.Movements {
		if err := claim(m.ODID, fmt.Sprintf("movement %d", i)); err != nil {
			return err
		}
		if m.RouteType == "" && !m.Start.SameLatLon(m.End) {
			return fmt.Errorf("scenario: movement %d (odID %d) has no routeType", i, m.ODID)
		}
		if m.ObjectID == "" {
			return fmt.Errorf("scenario: movement %d (odID %d) has no objectID", i, m.ODID)
		}
		if m.Forever && !m.Start.Equal(m.End) {
			return fmt.Errorf("scenario: movement %d (odID %d): %w", i, m.ODID, assignment.ErrForeverMotion)
		}
	}
	for i, f := range s.Flights {
		if err := claim(f.ODID, fmt.Sprintf("flight %d", i)); err != nil {
			return err
		}
		if f.ObjectID == "" {
			return fmt.Errorf("scenario: flight %d (odID %d) has no objectID", i, f.ODID)
		}
	}
	return nil
}
