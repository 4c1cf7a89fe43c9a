package student

import (
	"context"

	"github.com/google/uuid"
)

type Filter struct {
	University string
	Year       int
	Major      string
	Courses    []string
}

// Directory is the source of student profiles.
type Directory interface {
	GetProfile(ctx context.Context, id uuid.UUID) (Profile, error)
	QueryProfiles(ctx context.Context, f Filter, exclude []uuid.UUID, fetchCount int) ([]Profile, error)
	// ApplyRating records a rating and recomputes the rated student's
	// reputation in one atomic step.
	ApplyRating(ctx context.Context, raterID, ratedID uuid.UUID, rating int) (Profile, error)
}
