package route

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"trajectory-builder/internal/geo"
)

// DefaultORSURL is the hosted OpenRouteService API.
const DefaultORSURL = "https://api.openrouteservice.org"

var orsProfiles = map[RouteType]struct{ profile, preference string }{
	Fastest:    {"driving-car", "fastest"},
	Shortest:   {"driving-car", "shortest"},
	Pedestrian: {"foot-walking", "fastest"},
	Cycling:    {"cycling-regular", "fastest"},
	Truck:      {"driving-hgv", "fastest"},
	Wheelchair: {"wheelchair", "fastest"},
}

var orsSurface = map[int]string{
	0: "Unknown", 1: "Paved", 2: "Unpaved", 3: "Asphalt", 4: "Concrete", 5: "Cobblestone",
	6: "Metal", 7: "Wood", 8: "Compacted Gravel", 9: "Fine Gravel", 10: "Gravel", 11: "Dirt",
	12: "Ground", 13: "Ice", 14: "Paving Stones", 15: "Sand", 16: "Woodchips", 17: "Grass",
	18: "Grass Paver",
}

var orsWayType = map[int]string{
	0: "Unknown", 1: "State Road", 2: "Road", 3: "Street", 4: "Path", 5: "Track",
	6: "Cycleway", 7: "Footway", 8: "Steps", 9: "Ferry", 10: "Construction",
}

// waycategory is a bit field.
var orsWayCategory = []struct {
	bit  int
	name string
}{
	{1, "Highway"}, {2, "Tollways"}, {4, "Steps"}, {8, "Ferry"}, {16, "Unpaved road"},
	{32, "Track"}, {64, "Tunnel"}, {128, "Paved road"}, {256, "Ford"},
}

// ORS resolves routes through OpenRouteService directions, including the
// per-waypoint road attributes ORS reports as extra_info.
type ORS struct {
	BaseURL   string
	APIKey    string
	RouteType RouteType
	Client    *http.Client
}

// NewORS returns an ORS resolver for the given route type.
func NewORS(baseURL, apiKey string, rt RouteType) (*ORS, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: ORS API key", ErrMissingArgument)
	}
	if _, ok := orsProfiles[rt]; !ok {
		return nil, fmt.Errorf("%w: routeType=%q dataProvider=%q", ErrUnsupportedRoute, rt, ORSOnline)
	}
	if baseURL == "" {
		baseURL = DefaultORSURL
	}
	return &ORS{BaseURL: strings.TrimRight(baseURL, "/"), APIKey: apiKey, RouteType: rt, Client: defaultClient()}, nil
}

type orsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
	Elevation   bool        `json:"elevation"`
	ExtraInfo   []string    `json:"extra_info"`
	Preference  string      `json:"preference"`
}

type orsExtra struct {
	Values [][]int `json:"values"`
}

type orsResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Segments []struct {
				Steps []struct {
					Distance  float64 `json:"distance"`
					Duration  float64 `json:"duration"`
					Name      string  `json:"name"`
					WayPoints []int   `json:"way_points"`
				} `json:"steps"`
			} `json:"segments"`
			Extras map[string]orsExtra `json:"extras"`
		} `json:"properties"`
	} `json:"features"`
}

func (o *ORS) Resolve(ctx context.Context, q Query) (Result, error) {
	p := orsProfiles[o.RouteType]
	body := orsRequest{
		Coordinates: [][]float64{{q.Start.Lon, q.Start.Lat}, {q.End.Lon, q.End.Lat}},
		Elevation:   true,
		ExtraInfo:   []string{"surface", "waytype", "steepness", "tollways", "waycategory"},
		Preference:  p.preference,
	}
	url := fmt.Sprintf("%s/v2/directions/%s/geojson", o.BaseURL, p.profile)
	var resp orsResponse
	if err := postJSON(ctx, o.Client, url, map[string]string{"Authorization": o.APIKey}, body, &resp); err != nil {
		return Result{}, err
	}
	if len(resp.Features) == 0 || len(resp.Features[0].Geometry.Coordinates) == 0 {
		return Result{}, fmt.Errorf("%w: ors returned no route", ErrProvider)
	}
	feat := resp.Features[0]

	path := make([]geo.Location, len(feat.Geometry.Coordinates))
	extras := make(map[int]Extras, len(path))
	for i, c := range feat.Geometry.Coordinates {
		if len(c) < 2 {
			return Result{}, fmt.Errorf("%w: ors coordinate %v", ErrProvider, c)
		}
		path[i] = geo.Location{Lat: c[1], Lon: c[0]}
		if len(c) > 2 {
			e := extras[i]
			e.Elevation = ptr(c[2])
			extras[i] = e
		}
	}

	var starts []int
	var durs []float64
	for _, seg := range feat.Properties.Segments {
		for _, st := range seg.Steps {
			if len(st.WayPoints) != 2 {
				continue
			}
			starts = append(starts, st.WayPoints[0])
			durs = append(durs, st.Duration)
			if st.Name == "" || st.Name == "-" {
				continue
			}
			for i := st.WayPoints[0]; i < st.WayPoints[1] && i < len(path); i++ {
				e := extras[i]
				e.WayName = ptr(st.Name)
				extras[i] = e
			}
		}
	}

	applyORSExtras(extras, feat.Properties.Extras, len(path))

	res := Result{
		Path:   path,
		Extras: extras,
		Times:  spreadStepTimes(path, starts, durs),
		Dists:  distances(path),
	}
	return res, nil
}

// applyORSExtras maps the [from, to, value] ranges onto waypoint indices.
func applyORSExtras(extras map[int]Extras, src map[string]orsExtra, n int) {
	for name, ex := range src {
		for _, v := range ex.Values {
			if len(v) != 3 {
				continue
			}
			from, to, val := v[0], v[1], v[2]
			if to == n-1 {
				to = n
			}
			for i := from; i < to && i < n; i++ {
				e := extras[i]
				switch name {
				case "surface":
					e.Surface = ptr(lookupName(orsSurface, val))
				case "waytype":
					e.WayType = ptr(lookupName(orsWayType, val))
				case "steepness":
					e.Steepness = ptr(val)
				case "tollways":
					e.Tollway = ptr(val != 0)
				case "waycategory":
					e.WayCategory = ptr(wayCategoryName(val))
				}
				extras[i] = e
			}
		}
	}
}

func lookupName(m map[int]string, v int) string {
	if s, ok := m[v]; ok {
		return s
	}
	return m[0]
}

func wayCategoryName(v int) string {
	if v == 0 {
		return "No category"
	}
	var names []string
	for _, c := range orsWayCategory {
		if v&c.bit != 0 {
			names = append(names, c.name)
		}
	}
	return strings.Join(names, ", ")
}

type orsElevationResponse struct {
	Geometry []float64 `json:"geometry"`
}

// Elevation looks up the ground elevation of a single point.
func (o *ORS) Elevation(ctx context.Context, loc geo.Location) (float64, error) {
	body := map[string]any{
		"format_in":  "point",
		"format_out": "point",
		"geometry":   []float64{loc.Lon, loc.Lat},
	}
	var resp orsElevationResponse
	if err := postJSON(ctx, o.Client, o.BaseURL+"/elevation/point", map[string]string{"Authorization": o.APIKey}, body, &resp); err != nil {
		return 0, err
	}
	if len(resp.Geometry) < 3 {
		return 0, fmt.Errorf("%w: ors elevation response %v", ErrProvider, resp.Geometry)
	}
	return resp.Geometry[2], nil
}
