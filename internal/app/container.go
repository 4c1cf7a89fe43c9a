package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"study-sync/internal/config"
	"study-sync/internal/database/migration"
	dbpostgres "study-sync/internal/database/postgres"
	"study-sync/internal/domain/matching"
	"study-sync/internal/infrastructure/cache"
	"study-sync/internal/observability"
	"study-sync/internal/pkg/jwt"
	"study-sync/internal/repository"
	"study-sync/internal/usecase"
	"study-sync/internal/ws"

	"go.uber.org/zap"
)

// Container owns the long-lived dependencies of one process.
type Container struct {
	Config config.Config
	Logger *zap.Logger
	DB     *dbpostgres.Pool
	Redis  *cache.Redis
	Tokens *jwt.HMACService

	Students *repository.PostgresStudentRepository
	Matches  *repository.PostgresMatchRepository
	Scorer   *matching.Scorer

	Hub      *ws.Hub
	Matching *usecase.Matching
	Requests *usecase.MatchRequest
	Ratings  *usecase.Rating
	Sweeper  *usecase.ExpirySweeper
}

func NewContainer(cfg config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	scorer, err := matching.NewScorer(WeightsFromConfig(cfg.Matching))
	if err != nil {
		return nil, err
	}

	db, err := dbpostgres.Connect(ctx, cfg.Database, cfg.App.AppName, logger)
	if err != nil {
		return nil, err
	}

	observability.SetPoolStats(db.Stats)

	if cfg.Database.MigrateOnStart {
		runner := migration.Runner{Logger: logger}
		if err := runner.Run(ctx, db.SQLDB()); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	c := &Container{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Redis:    cache.NewRedis(ctx, cfg.Redis, logger),
		Tokens:   jwt.NewHMACService(cfg.JWT.AccessSecret, cfg.JWT.AccessExpiresIn),
		Students: repository.NewPostgresStudentRepository(db),
		Matches:  repository.NewPostgresMatchRepository(db),
		Scorer:   scorer,
		Hub:      ws.NewHub(logger),
	}

	c.Matching = usecase.NewMatchingUsecase(c.Students, c.Matches, scorer, c.Redis, usecase.MatchingOptions{
		MinScore:            cfg.Matching.MinCompatibility,
		CandidateMultiplier: cfg.Matching.CandidateMultiplier,
		ScoreConcurrency:    cfg.Matching.ScoreConcurrency,
		CacheTTL:            cfg.Matching.SuggestionsCache,
	}, logger)
	c.Requests = usecase.NewMatchRequestUsecase(c.Students, c.Matches, scorer, c.Redis, ws.NewMatchNotifier(c.Hub), cfg.Matching.MatchTTL, logger)
	c.Ratings = usecase.NewRatingUsecase(c.Students, logger)
	c.Sweeper = usecase.NewExpirySweeper(c.Matches, c.Redis, usecase.SweeperOptions{
		Interval: cfg.Matching.SweepInterval,
		LockTTL:  cfg.Matching.SweepLockTTL,
	}, logger)

	return c, nil
}

func WeightsFromConfig(c config.MatchingConfig) matching.Weights {
	return matching.Weights{
		CourseOverlap: c.WeightCourseOverlap,
		StudyStyle:    c.WeightStudyStyle,
		Availability:  c.WeightAvailability,
		Location:      c.WeightLocation,
		Goals:         c.WeightGoals,
	}
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.DB != nil {
		errs = append(errs, c.DB.Close())
	}
	return errors.Join(errs...)
}
