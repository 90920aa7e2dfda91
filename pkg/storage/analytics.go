package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SnapshotAnalytics writes the resource inventory counts for the given day
// into resource_analytics_daily. Re-running for the same day overwrites the
// previous snapshot, so the job is safe to retry.
func SnapshotAnalytics(ctx context.Context, db *sql.DB, date time.Time) error {
	day := date.UTC().Format("2006-01-02")

	_, err := db.ExecContext(ctx, `
		INSERT INTO resource_analytics_daily
			(snapshot_date, total_resources, active_resources, out_of_service_resources, created_at)
		SELECT $1, COUNT(*),
		       COUNT(CASE WHEN status = 'ACTIVE' THEN 1 END),
		       COUNT(CASE WHEN status = 'OUT_OF_SERVICE' THEN 1 END),
		       $2
		FROM resources
		ON CONFLICT (snapshot_date) DO UPDATE SET
			total_resources = excluded.total_resources,
			active_resources = excluded.active_resources,
			out_of_service_resources = excluded.out_of_service_resources,
			created_at = excluded.created_at
	`, day, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to snapshot analytics for %s: %w", day, err)
	}
	return nil
}

// PruneAnalytics deletes snapshots older than the cutoff and returns how
// many rows were removed.
func PruneAnalytics(ctx context.Context, db *sql.DB, cutoff time.Time) (int64, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM resource_analytics_daily WHERE snapshot_date < $1`,
		cutoff.UTC().Format("2006-01-02"))
	if err != nil {
		return 0, fmt.Errorf("failed to prune analytics snapshots: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned snapshots: %w", err)
	}
	return removed, nil
}
