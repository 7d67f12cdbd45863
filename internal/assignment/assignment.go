package assignment

import (
	"errors"

	"trajectory-builder/internal/geo"
	"trajectory-builder/internal/route"
)

// Forever marks an assignment that never ends. Only stationary rows may use it.
const Forever = -1.0

// ErrForeverMotion is returned when a row that changes pose is asked to never end.
var ErrForeverMotion = errors.New("only stationary assignments may never end")

// Model references the 3D model drawn for an object.
type Model struct {
	File      string  `json:"modelFile" yaml:"file"`
	Scale     float64 `json:"modelScale" yaml:"scale"`
	MinPxSize float64 `json:"modelMinPxSize" yaml:"minPxSize"`
}

// Assignment is one timed segment of an object's movement between two poses.
type Assignment struct {
	ODID     int    `json:"odID"`
	ObjectID string `json:"objectID"`
	Model    Model  `json:"model"`

	StartTimeSec float64      `json:"startTimeSec"`
	EndTimeSec   float64      `json:"endTimeSec"`
	Start        geo.Location `json:"start"`
	End          geo.Location `json:"end"`

	Map   MapStyle   `json:"mapStyle"`
	Globe GlobeStyle `json:"globeStyle"`

	PopupText *string `json:"popupText,omitempty"`

	// Road attributes, only for segments resolved against a road network.
	StartElevation *float64 `json:"startElevation,omitempty"`
	EndElevation   *float64 `json:"endElevation,omitempty"`
	WayName        *string  `json:"wayname,omitempty"`
	WayCategory    *string  `json:"waycategory,omitempty"`
	Surface        *string  `json:"surface,omitempty"`
	WayType        *string  `json:"waytype,omitempty"`
	Steepness      *int     `json:"steepness,omitempty"`
	Tollway        *bool    `json:"tollway,omitempty"`
}

// Forever reports whether the assignment has no end time.
func (a Assignment) Forever() bool { return a.EndTimeSec == Forever }

// Duration is the segment length in seconds, or -1 when it never ends.
func (a Assignment) Duration() float64 {
	if a.Forever() {
		return Forever
	}
	return a.EndTimeSec - a.StartTimeSec
}

// Follows reports whether a starts exactly where and when prev ends.
func (a Assignment) Follows(prev Assignment) bool {
	return !prev.Forever() && prev.EndTimeSec == a.StartTimeSec && prev.End.Equal(a.Start)
}

// applyStartExtras copies the road attributes reported for the segment's
// starting waypoint.
func (a *Assignment) applyStartExtras(e route.Extras) {
	a.StartElevation = e.Elevation
	a.WayName = e.WayName
	a.WayCategory = e.WayCategory
	a.Surface = e.Surface
	a.WayType = e.WayType
	a.Steepness = e.Steepness
	a.Tollway = e.Tollway
}
