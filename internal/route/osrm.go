package route

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"trajectory-builder/internal/geo"
)

// DefaultOSRMURL is the public OSRM demo server.
const DefaultOSRMURL = "https://router.project-osrm.org"

// OSRM resolves car routes through an OSRM /route endpoint.
type OSRM struct {
	BaseURL string
	Profile string
	Client  *http.Client
}

// NewOSRM returns an OSRM resolver for the driving profile.
func NewOSRM(baseURL string) *OSRM {
	if baseURL == "" {
		baseURL = DefaultOSRMURL
	}
	return &OSRM{BaseURL: strings.TrimRight(baseURL, "/"), Profile: "driving", Client: defaultClient()}
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Duration float64 `json:"duration"`
		Distance float64 `json:"distance"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Legs []struct {
			Annotation struct {
				Duration []float64 `json:"duration"`
				Distance []float64 `json:"distance"`
			} `json:"annotation"`
		} `json:"legs"`
	} `json:"routes"`
}

func (o *OSRM) Resolve(ctx context.Context, q Query) (Result, error) {
	url := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?overview=full&geometries=geojson&annotations=duration,distance",
		o.BaseURL, o.Profile, q.Start.Lon, q.Start.Lat, q.End.Lon, q.End.Lat)
	var resp osrmResponse
	if err := getJSON(ctx, o.Client, url, &resp); err != nil {
		return Result{}, err
	}
	if resp.Code != "" && resp.Code != "Ok" {
		return Result{}, fmt.Errorf("%w: osrm %s: %s", ErrProvider, resp.Code, resp.Message)
	}
	if len(resp.Routes) == 0 {
		return Result{}, fmt.Errorf("%w: osrm returned no route", ErrProvider)
	}
	rt := resp.Routes[0]
	path := make([]geo.Location, 0, len(rt.Geometry.Coordinates))
	for _, c := range rt.Geometry.Coordinates {
		if len(c) < 2 {
			return Result{}, fmt.Errorf("%w: osrm coordinate %v", ErrProvider, c)
		}
		path = append(path, geo.Location{Lat: c[1], Lon: c[0]})
	}
	if len(path) == 0 {
		return Result{}, fmt.Errorf("%w: osrm returned empty geometry", ErrProvider)
	}

	var durs, dists []float64
	for _, leg := range rt.Legs {
		durs = append(durs, leg.Annotation.Duration...)
		dists = append(dists, leg.Annotation.Distance...)
	}
	res := Result{Path: path}
	if len(durs) == len(path)-1 && len(dists) == len(path)-1 {
		res.Times = append([]float64{0}, durs...)
		res.Dists = append([]float64{0}, dists...)
		return res, nil
	}
	// Annotations missing: spread the route total by distance.
	res, err := Retime(res, rt.Duration)
	if err != nil {
		return Result{}, fmt.Errorf("%w: osrm route without annotations: %w", ErrProvider, err)
	}
	return res, nil
}
