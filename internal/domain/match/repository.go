package match

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}

type Stats struct {
	ByStatus         map[Status]int
	Total            int
	AvgCompatibility float64
}

// Repository persists matches. InsertCanonical must enforce the one-row-per
// pair constraint and report a violation as ErrDuplicateMatch.
type Repository interface {
	InsertCanonical(ctx context.Context, m Match) (Match, error)
	FindByID(ctx context.Context, id uuid.UUID) (Match, error)
	FindByPair(ctx context.Context, a, b uuid.UUID) (Match, error)
	FindForUser(ctx context.Context, userID uuid.UUID, f ListFilter) ([]Match, int, error)
	PartnerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, respondedAt time.Time) (Match, error)
	BulkExpire(ctx context.Context, now time.Time) (int64, error)
	StatsForUser(ctx context.Context, userID uuid.UUID) (Stats, error)
}
