package scene

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"trajectory-builder/internal/assignment"
)

// CSVHeader is the column order written by WriteCSV.
var CSVHeader = []string{
	"odID", "objectID", "modelFile", "modelScale", "modelMinPxSize",
	"startTimeSec", "endTimeSec",
	"startLat", "startLon", "startAlt", "endLat", "endLon", "endAlt",
	"mapColor", "mapWeight", "mapStyle", "mapOpacity", "mapCurveType", "mapCurvature", "mapArrows",
	"globeColor", "globeWeight", "globeStyle", "globeOpacity",
	"popupText",
	"startElevation", "endElevation", "wayname", "waycategory", "surface", "waytype", "steepness", "tollway",
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return ftoa(*v)
}

func optString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optBool(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}

func record(a assignment.Assignment) []string {
	return []string{
		strconv.Itoa(a.ODID), a.ObjectID, a.Model.File, ftoa(a.Model.Scale), ftoa(a.Model.MinPxSize),
		ftoa(a.StartTimeSec), ftoa(a.EndTimeSec),
		ftoa(a.Start.Lat), ftoa(a.Start.Lon), ftoa(a.Start.Alt),
		ftoa(a.End.Lat), ftoa(a.End.Lon), ftoa(a.End.Alt),
		a.Map.Color, strconv.Itoa(a.Map.Weight), a.Map.LineStyle, ftoa(a.Map.Opacity),
		a.Map.CurveType, ftoa(a.Map.Curvature), optBool(a.Map.Arrows),
		a.Globe.Color, strconv.Itoa(a.Globe.Weight), a.Globe.LineStyle, ftoa(a.Globe.Opacity),
		optString(a.PopupText),
		optFloat(a.StartElevation), optFloat(a.EndElevation),
		optString(a.WayName), optString(a.WayCategory), optString(a.Surface), optString(a.WayType),
		optInt(a.Steepness), optBool(a.Tollway),
	}
}

// WriteCSV writes rows with CSVHeader. Absent optional values are empty cells.
func WriteCSV(w io.Writer, rows []assignment.Assignment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, a := range rows {
		if err := cw.Write(record(a)); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
