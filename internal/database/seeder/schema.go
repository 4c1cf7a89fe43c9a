package seeder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"study-sync/internal/database"
)

// ErrSchemaMismatch means a seeder's target table is missing columns, which
// usually means migrations have not been applied yet.
var ErrSchemaMismatch = errors.New("schema mismatch, run migrations before seeding")

// RequireColumns fails with ErrSchemaMismatch listing every column of table
// that is absent from the public schema.
func RequireColumns(ctx context.Context, db database.DB, table string, columns ...string) error {
	if db == nil {
		return errors.New("nil db")
	}
	if table == "" || len(columns) == 0 {
		return fmt.Errorf("require columns: table and columns must be set")
	}

	rows, err := db.Query(ctx,
		`SELECT want FROM unnest($2::text[]) AS want
		 WHERE want NOT IN (
			SELECT column_name FROM information_schema.columns
			WHERE table_schema = 'public' AND table_name = $1
		 )
		 ORDER BY want`,
		table, columns,
	)
	if err != nil {
		return fmt.Errorf("inspect %s columns: %w", table, err)
	}
	defer rows.Close()

	var missing []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return err
		}
		missing = append(missing, col)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s lacks %s", ErrSchemaMismatch, table, strings.Join(missing, ", "))
	}
	return nil
}
