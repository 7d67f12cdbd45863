package db

import (
	"context"
	"database/sql"
	"fmt"

	"trajectory-builder/internal/assignment"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS scene_nodes (
  run_id     text NOT NULL,
  node_id    integer NOT NULL,
  name       text NOT NULL DEFAULT '',
  lat        double precision NOT NULL,
  lon        double precision NOT NULL,
  alt        double precision NOT NULL DEFAULT 0,
  popup_text text,
  color      text,
  PRIMARY KEY (run_id, node_id)
);
CREATE TABLE IF NOT EXISTS assignments (
  run_id          text NOT NULL,
  seq             integer NOT NULL,
  od_id           integer NOT NULL,
  object_id       text NOT NULL,
  model_file      text NOT NULL DEFAULT '',
  start_time_sec  double precision NOT NULL,
  end_time_sec    double precision NOT NULL,
  start_lat       double precision NOT NULL,
  start_lon       double precision NOT NULL,
  start_alt       double precision NOT NULL,
  end_lat         double precision NOT NULL,
  end_lon         double precision NOT NULL,
  end_alt         double precision NOT NULL,
  map_color       text,
  globe_color     text,
  popup_text      text,
  start_elevation double precision,
  end_elevation   double precision,
  wayname         text,
  waycategory     text,
  surface         text,
  waytype         text,
  steepness       integer,
  tollway         boolean,
  PRIMARY KEY (run_id, seq)
);`

// EnsureSchema creates the output tables when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveNodes stores nodes for a run in one transaction.
func SaveNodes(ctx context.Context, db *sql.DB, runID string, nodes []assignment.Node) error {
	return inTx(ctx, db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO scene_nodes (run_id, node_id, name, lat, lon, alt, popup_text, color)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
ON CONFLICT (run_id, node_id) DO UPDATE SET
  name = EXCLUDED.name, lat = EXCLUDED.lat, lon = EXCLUDED.lon, alt = EXCLUDED.alt,
  popup_text = EXCLUDED.popup_text, color = EXCLUDED.color`)
		if err != nil {
			return fmt.Errorf("prepare insert node: %w", err)
		}
		defer stmt.Close()
		for _, n := range nodes {
			if _, err := stmt.ExecContext(ctx, runID, n.ID, n.Name, n.Loc.Lat, n.Loc.Lon, n.Loc.Alt, n.PopupText, n.Color); err != nil {
				return fmt.Errorf("insert node %d: %w", n.ID, err)
			}
		}
		return nil
	})
}

// SaveAssignments stores rows for a run in one transaction, keeping their order
// in the seq column.
func SaveAssignments(ctx context.Context, db *sql.DB, runID string, rows []assignment.Assignment) error {
	return inTx(ctx, db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO assignments (run_id, seq, od_id, object_id, model_file, start_time_sec, end_time_sec,
  start_lat, start_lon, start_alt, end_lat, end_lon, end_alt, map_color, globe_color, popup_text,
  start_elevation, end_elevation, wayname, waycategory, surface, waytype, steepness, tollway)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
  $17, $18, $19, $20, $21, $22, $23, $24)`)
		if err != nil {
			return fmt.Errorf("prepare insert assignment: %w", err)
		}
		defer stmt.Close()
		for i, a := range rows {
			_, err := stmt.ExecContext(ctx, runID, i, a.ODID, a.ObjectID, a.Model.File, a.StartTimeSec, a.EndTimeSec,
				a.Start.Lat, a.Start.Lon, a.Start.Alt, a.End.Lat, a.End.Lon, a.End.Alt,
				a.Map.Color, a.Globe.Color, a.PopupText,
				a.StartElevation, a.EndElevation, a.WayName, a.WayCategory, a.Surface, a.WayType, a.Steepness, a.Tollway)
			if err != nil {
				return fmt.Errorf("insert assignment %d (odID %d): %w", i, a.ODID, err)
			}
		}
		return nil
	})
}

func inTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
