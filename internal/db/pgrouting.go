package db

import (
	"context"
	"database/sql"
	"fmt"

	"trajectory-builder/internal/geo"
	"trajectory-builder/internal/route"
)

// PgRouting resolves routes with pgr_dijkstra over an osm2pgrouting schema
// (ways, ways_vertices_pgr).
type PgRouting struct {
	DB        *sql.DB
	RouteType route.RouteType
}

var pgRoutingCosts = map[route.RouteType]string{
	route.Fastest:  "cost_s AS cost, reverse_cost_s AS reverse_cost",
	route.Shortest: "length_m AS cost, CASE WHEN reverse_cost_s < 0 THEN -1 ELSE length_m END AS reverse_cost",
}

// NewPgRouting returns a resolver for fastest or shortest routes.
func NewPgRouting(db *sql.DB, rt route.RouteType) (*PgRouting, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: pgRouting database", route.ErrMissingArgument)
	}
	if _, ok := pgRoutingCosts[rt]; !ok {
		return nil, fmt.Errorf("%w: routeType=%q dataProvider=%q", route.ErrUnsupportedRoute, rt, route.PgRouting)
	}
	return &PgRouting{DB: db, RouteType: rt}, nil
}

// pgrStep is one row of a pgr_dijkstra path: a vertex and the edge leaving it.
// The last vertex has no edge.
type pgrStep struct {
	Lat, Lon float64
	CostS    float64
	LengthM  float64
	Name     string
}

const pgRoutingQuery = `
WITH src AS (
  SELECT id FROM ways_vertices_pgr
  ORDER BY the_geom <-> ST_SetSRID(ST_MakePoint($1, $2), 4326) LIMIT 1
), dst AS (
  SELECT id FROM ways_vertices_pgr
  ORDER BY the_geom <-> ST_SetSRID(ST_MakePoint($3, $4), 4326) LIMIT 1
), path AS (
  SELECT * FROM pgr_dijkstra($5, (SELECT id FROM src), (SELECT id FROM dst), directed := true)
)
SELECT ST_Y(v.the_geom), ST_X(v.the_geom),
       COALESCE(w.cost_s, 0), COALESCE(w.length_m, 0), COALESCE(w.name, '')
FROM path p
JOIN ways_vertices_pgr v ON v.id = p.node
LEFT JOIN ways w ON w.gid = p.edge
ORDER BY p.path_seq`

func (p *PgRouting) Resolve(ctx context.Context, q route.Query) (route.Result, error) {
	cols, err := hasColumns(ctx, p.DB, "public", "ways", "cost_s", "reverse_cost_s", "length_m")
	if err != nil {
		return route.Result{}, fmt.Errorf("%w: %v", route.ErrProvider, err)
	}
	for c, ok := range cols {
		if !ok {
			return route.Result{}, fmt.Errorf("%w: ways table missing column %s", route.ErrProvider, c)
		}
	}
	edges := "SELECT gid AS id, source, target, " + pgRoutingCosts[p.RouteType] + " FROM ways"
	rows, err := p.DB.QueryContext(ctx, pgRoutingQuery, q.Start.Lon, q.Start.Lat, q.End.Lon, q.End.Lat, edges)
	if err != nil {
		return route.Result{}, fmt.Errorf("%w: query pgr_dijkstra: %v", route.ErrProvider, err)
	}
	defer rows.Close()
	var steps []pgrStep
	for rows.Next() {
		var s pgrStep
		if err := rows.Scan(&s.Lat, &s.Lon, &s.CostS, &s.LengthM, &s.Name); err != nil {
			return route.Result{}, fmt.Errorf("%w: scan pgr_dijkstra: %v", route.ErrProvider, err)
		}
		steps = append(steps, s)
	}
	if err := rows.Err(); err != nil {
		return route.Result{}, fmt.Errorf("%w: %v", route.ErrProvider, err)
	}
	return buildPgRoutingResult(steps)
}

// buildPgRoutingResult converts vertex rows into a route result: the segment
// into vertex i takes the cost and name of the edge leaving vertex i-1.
func buildPgRoutingResult(steps []pgrStep) (route.Result, error) {
	if len(steps) < 2 {
		return route.Result{}, fmt.Errorf("%w: pgRouting found no path", route.ErrProvider)
	}
	n := len(steps)
	res := route.Result{
		Path:   make([]geo.Location, n),
		Times:  make([]float64, n),
		Dists:  make([]float64, n),
		Extras: make(map[int]route.Extras),
	}
	for i, s := range steps {
		res.Path[i] = geo.Location{Lat: s.Lat, Lon: s.Lon}
		if i == 0 {
			continue
		}
		prev := steps[i-1]
		res.Times[i] = prev.CostS
		res.Dists[i] = prev.LengthM
		if res.Dists[i] <= 0 {
			res.Dists[i] = geo.Distance2D(res.Path[i-1], res.Path[i])
		}
		if prev.Name != "" {
			name := prev.Name
			res.Extras[i-1] = route.Extras{WayName: &name}
		}
	}
	return res, nil
}
