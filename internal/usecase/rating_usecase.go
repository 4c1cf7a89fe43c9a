package usecase

import (
	"context"
	"errors"

	"study-sync/internal/domain/student"
	"study-sync/internal/observability"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RatingUsecase interface {
	RatePartner(ctx context.Context, raterID, ratedID uuid.UUID, rating int) (student.Profile, error)
}

type Rating struct {
	directory student.Directory
	logger    *zap.Logger
}

func NewRatingUsecase(directory student.Directory, logger *zap.Logger) *Rating {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rating{directory: directory, logger: logger.Named("rating")}
}

// RatePartner folds rating into the rated student's running reputation
// average and returns the updated profile.
func (u *Rating) RatePartner(ctx context.Context, raterID, ratedID uuid.UUID, rating int) (student.Profile, error) {
	if rating < 1 || rating > student.MaxRating {
		return student.Profile{}, invalid("rating", "must be between 1 and %d", student.MaxRating)
	}
	if raterID == uuid.Nil || ratedID == uuid.Nil {
		return student.Profile{}, ErrUserNotFound
	}
	if raterID == ratedID {
		return student.Profile{}, ErrSelfRating
	}

	p, err := u.directory.ApplyRating(ctx, raterID, ratedID, rating)
	if err != nil {
		if errors.Is(err, student.ErrNotFound) {
			return student.Profile{}, ErrUserNotFound
		}
		return student.Profile{}, err
	}
	observability.RecordRating()
	u.logger.Info("rating applied",
		zap.Stringer("rated_id", ratedID),
		zap.Int("ratings_count", p.RatingsCount),
		zap.Float64("reputation", p.Reputation),
	)
	return p, nil
}
