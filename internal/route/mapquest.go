package route

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"trajectory-builder/internal/geo"
)

// DefaultMapQuestURL is the MapQuest directions API host.
const DefaultMapQuestURL = "https://www.mapquestapi.com"

var mapquestRouteTypes = map[RouteType]string{
	Fastest:    "fastest",
	Shortest:   "shortest",
	Pedestrian: "pedestrian",
	Cycling:    "bicycle",
}

// MapQuestRoute resolves routes through the MapQuest directions v2 API.
type MapQuestRoute struct {
	BaseURL   string
	APIKey    string
	RouteType RouteType
	Client    *http.Client
}

// NewMapQuest returns a MapQuest resolver for the given route type.
func NewMapQuest(baseURL, apiKey string, rt RouteType) (*MapQuestRoute, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: MapQuest API key", ErrMissingArgument)
	}
	if _, ok := mapquestRouteTypes[rt]; !ok {
		return nil, fmt.Errorf("%w: routeType=%q dataProvider=%q", ErrUnsupportedRoute, rt, MapQuest)
	}
	if baseURL == "" {
		baseURL = DefaultMapQuestURL
	}
	return &MapQuestRoute{BaseURL: strings.TrimRight(baseURL, "/"), APIKey: apiKey, RouteType: rt, Client: defaultClient()}, nil
}

type mapquestResponse struct {
	Info struct {
		StatusCode int      `json:"statuscode"`
		Messages   []string `json:"messages"`
	} `json:"info"`
	Route struct {
		Shape struct {
			ShapePoints     []float64 `json:"shapePoints"`
			ManeuverIndexes []int     `json:"maneuverIndexes"`
		} `json:"shape"`
		Legs []struct {
			Maneuvers []struct {
				Time    float64  `json:"time"`
				Streets []string `json:"streets"`
			} `json:"maneuvers"`
		} `json:"legs"`
	} `json:"route"`
}

func (m *MapQuestRoute) Resolve(ctx context.Context, q Query) (Result, error) {
	v := url.Values{}
	v.Set("key", m.APIKey)
	v.Set("from", fmt.Sprintf("%f,%f", q.Start.Lat, q.Start.Lon))
	v.Set("to", fmt.Sprintf("%f,%f", q.End.Lat, q.End.Lon))
	v.Set("fullShape", "true")
	v.Set("shapeFormat", "raw")
	v.Set("unit", "k")
	v.Set("routeType", mapquestRouteTypes[m.RouteType])

	var resp mapquestResponse
	if err := getJSON(ctx, m.Client, m.BaseURL+"/directions/v2/route?"+v.Encode(), &resp); err != nil {
		return Result{}, err
	}
	if resp.Info.StatusCode != 0 {
		return Result{}, fmt.Errorf("%w: mapquest status %d: %s", ErrProvider, resp.Info.StatusCode, strings.Join(resp.Info.Messages, "; "))
	}
	pts := resp.Route.Shape.ShapePoints
	if len(pts) < 2 || len(pts)%2 != 0 {
		return Result{}, fmt.Errorf("%w: mapquest shape has %d values", ErrProvider, len(pts))
	}
	path := make([]geo.Location, 0, len(pts)/2)
	for i := 0; i+1 < len(pts); i += 2 {
		path = append(path, geo.Location{Lat: pts[i], Lon: pts[i+1]})
	}

	var durs []float64
	var names []string
	for _, leg := range resp.Route.Legs {
		for _, mv := range leg.Maneuvers {
			durs = append(durs, mv.Time)
			name := ""
			if len(mv.Streets) > 0 {
				name = mv.Streets[0]
			}
			names = append(names, name)
		}
	}
	starts := resp.Route.Shape.ManeuverIndexes
	extras := make(map[int]Extras)
	for i, from := range starts {
		if i >= len(names) || names[i] == "" {
			continue
		}
		to := len(path) - 1
		if i+1 < len(starts) {
			to = starts[i+1]
		}
		for j := from; j < to && j < len(path); j++ {
			extras[j] = Extras{WayName: ptr(names[i])}
		}
	}

	return Result{
		Path:   path,
		Extras: extras,
		Times:  spreadStepTimes(path, starts, durs),
		Dists:  distances(path),
	}, nil
}
