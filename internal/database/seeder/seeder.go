package seeder

import (
	"context"

	"study-sync/internal/database"
)

// Seeder loads fixture rows. Run must be safe to repeat against a database
// that already holds its rows.
type Seeder interface {
	Name() string
	Run(ctx context.Context, db database.DB) error
}
