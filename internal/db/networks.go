package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ResolveLatestNetworkDBName returns the db_name of the most recently imported
// road network whose name contains network, read from
// public.latest_successful_imports on the cluster's meta database.
func ResolveLatestNetworkDBName(ctx context.Context, meta *sql.DB, network string) (string, error) {
	network = strings.TrimSpace(network)
	if network == "" {
		return "", fmt.Errorf("network is required")
	}
	q := `
SELECT db_name
FROM public.latest_successful_imports
WHERE db_name ILIKE '%' || $1 || '%'
ORDER BY imported_at DESC
LIMIT 1`
	var dbName sql.NullString
	if err := meta.QueryRowContext(ctx, q, network).Scan(&dbName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("no road network database like %q", network)
		}
		return "", fmt.Errorf("query latest network import: %w", err)
	}
	if !dbName.Valid || dbName.String == "" {
		return "", fmt.Errorf("empty db_name for road network like %q", network)
	}
	return dbName.String, nil
}
