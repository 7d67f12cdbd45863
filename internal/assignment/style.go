package assignment

// Default display settings applied to any style field left empty.
const (
	DefaultColor       = "orange"
	DefaultWeight      = 3
	DefaultLineStyle   = "solid"
	DefaultOpacity     = 0.8
	DefaultCurveType   = "straight"
	DefaultLoiterColor = "red"
)

// MapStyle controls how a segment is drawn on a 2D map.
type MapStyle struct {
	Color     string  `json:"color" yaml:"color"`
	Weight    int     `json:"weight" yaml:"weight"`
	LineStyle string  `json:"style" yaml:"style"`
	Opacity   float64 `json:"opacity" yaml:"opacity"`
	CurveType string  `json:"curveType" yaml:"curveType"`
	Curvature float64 `json:"curvature" yaml:"curvature"`
	// Arrows is a pointer so an explicit false survives defaulting.
	Arrows *bool `json:"arrows" yaml:"arrows"`
}

// GlobeStyle controls how a segment is drawn on a 3D globe.
type GlobeStyle struct {
	Color     string  `json:"color" yaml:"color"`
	Weight    int     `json:"weight" yaml:"weight"`
	LineStyle string  `json:"style" yaml:"style"`
	Opacity   float64 `json:"opacity" yaml:"opacity"`
}

// Style carries every display override accepted by the generators.
type Style struct {
	Map   MapStyle   `yaml:"map"`
	Globe GlobeStyle `yaml:"globe"`
	// LoiterColor colors hold segments of a flight on both targets.
	LoiterColor string `yaml:"loiterColor"`
}

// DefaultStyle returns the style used when a request leaves everything unset.
func DefaultStyle() Style {
	return Style{}.withDefaults()
}

func (s Style) withDefaults() Style {
	m := &s.Map
	if m.Color == "" {
		m.Color = DefaultColor
	}
	if m.Weight <= 0 {
		m.Weight = DefaultWeight
	}
	if m.LineStyle == "" {
		m.LineStyle = DefaultLineStyle
	}
	if m.Opacity <= 0 {
		m.Opacity = DefaultOpacity
	}
	if m.CurveType == "" {
		m.CurveType = DefaultCurveType
	}
	if m.Arrows == nil {
		on := true
		m.Arrows = &on
	}
	g := &s.Globe
	if g.Color == "" {
		g.Color = DefaultColor
	}
	if g.Weight <= 0 {
		g.Weight = DefaultWeight
	}
	if g.LineStyle == "" {
		g.LineStyle = DefaultLineStyle
	}
	if g.Opacity <= 0 {
		g.Opacity = DefaultOpacity
	}
	if s.LoiterColor == "" {
		s.LoiterColor = DefaultLoiterColor
	}
	return s
}

// loiter returns the styles for a hold segment.
func (s Style) loiter() (MapStyle, GlobeStyle) {
	m, g := s.Map, s.Globe
	m.Color = s.LoiterColor
	g.Color = s.LoiterColor
	return m, g
}
