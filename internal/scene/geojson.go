// Package scene serializes nodes and decomposed timelines for visualization.
package scene

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"trajectory-builder/internal/assignment"
	"trajectory-builder/internal/geo"
	"trajectory-builder/internal/timeline"
)

// Feature kinds set in the "kind" property.
const (
	KindNode  = "node"
	KindGroup = "group"
)

func point(l geo.Location) orb.Point { return orb.Point{l.Lon, l.Lat} }

// FeatureCollection builds one Point per node, one Point per stationary group
// and one LineString per moving or vertical group. Altitudes and per-vertex
// timestamps are carried in properties.
func FeatureCollection(nodes []assignment.Node, groups []timeline.Group) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, n := range nodes {
		f := geojson.NewFeature(point(n.Loc))
		f.ID = fmt.Sprintf("node-%d", n.ID)
		f.Properties["kind"] = KindNode
		f.Properties["id"] = n.ID
		f.Properties["name"] = n.Name
		f.Properties["alt"] = n.Loc.Alt
		if n.Color != "" {
			f.Properties["color"] = n.Color
		}
		if n.PopupText != nil {
			f.Properties["popupText"] = *n.PopupText
		}
		fc.Append(f)
	}
	for _, g := range groups {
		fc.Append(groupFeature(g))
	}
	return fc
}

func groupFeature(g timeline.Group) *geojson.Feature {
	path := g.Path()
	var f *geojson.Feature
	if g.Action == timeline.Stationary {
		f = geojson.NewFeature(point(path[0]))
	} else {
		ls := make(orb.LineString, len(path))
		for i, p := range path {
			ls[i] = point(p)
		}
		f = geojson.NewFeature(ls)
	}
	first := g.Assignments[0]
	alts := make([]float64, len(path))
	for i, p := range path {
		alts[i] = p.Alt
	}
	times := make([]float64, 0, len(path))
	times = append(times, first.StartTimeSec)
	for _, a := range g.Assignments {
		times = append(times, a.EndTimeSec)
	}

	f.ID = g.Key
	props := f.Properties
	props["kind"] = KindGroup
	props["key"] = g.Key
	props["odID"] = g.ODID
	props["objectID"] = g.ObjectID
	props["action"] = string(g.Action)
	props["startTimeSec"] = g.StartTimeSec
	props["endTimeSec"] = g.EndTimeSec
	props["modelFile"] = g.Model.File
	props["modelScale"] = g.Model.Scale
	props["modelMinPxSize"] = g.Model.MinPxSize
	props["altitudes"] = alts
	props["times"] = times
	props["color"] = first.Map.Color
	props["weight"] = first.Map.Weight
	props["style"] = first.Map.LineStyle
	props["opacity"] = first.Map.Opacity
	props["curveType"] = first.Map.CurveType
	props["curvature"] = first.Map.Curvature
	if first.Map.Arrows != nil {
		props["arrows"] = *first.Map.Arrows
	}
	props["globeColor"] = first.Globe.Color
	props["globeWeight"] = first.Globe.Weight
	props["globeStyle"] = first.Globe.LineStyle
	props["globeOpacity"] = first.Globe.Opacity
	if first.PopupText != nil {
		props["popupText"] = *first.PopupText
	}
	return f
}

// WriteGeoJSON writes the scene as an indented GeoJSON feature collection.
func WriteGeoJSON(w io.Writer, nodes []assignment.Node, groups []timeline.Group) error {
	fc := FeatureCollection(nodes, groups)
	b, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal scene: %w", err)
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write scene: %w", err)
	}
	return nil
}
