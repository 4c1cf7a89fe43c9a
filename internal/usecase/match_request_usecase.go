package usecase

import (
	"context"
	"errors"
	"time"

	"study-sync/internal/domain/match"
	"study-sync/internal/domain/matching"
	"study-sync/internal/domain/student"
	"study-sync/internal/observability"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type PagedMatches struct {
	Items []match.Match
	Page  int
	Limit int
	Total int
}

type MatchRequestUsecase interface {
	CreateMatchRequest(ctx context.Context, initiatorID, targetID uuid.UUID) (match.Match, error)
	RespondToMatch(ctx context.Context, matchID, userID uuid.UUID, action match.Action) (match.Match, error)
	ListMatches(ctx context.Context, userID uuid.UUID, status *match.Status, page, limit int) (PagedMatches, error)
	GetMatchStats(ctx context.Context, userID uuid.UUID) (match.Stats, error)
}

type MatchRequest struct {
	directory student.Directory
	matches   match.Repository
	scorer    *matching.Scorer
	cache     SuggestionCache
	events    dispatcher
	ttl       time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewMatchRequestUsecase(directory student.Directory, matches match.Repository, scorer *matching.Scorer, cache SuggestionCache, notifier MatchNotifier, ttl time.Duration, logger *zap.Logger) *MatchRequest {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("match_request")
	if ttl <= 0 {
		ttl = match.DefaultTTL
	}
	return &MatchRequest{
		directory: directory,
		matches:   matches,
		scorer:    scorer,
		cache:     cache,
		events:    newDispatcher(notifier, logger),
		ttl:       ttl,
		now:       time.Now,
		logger:    logger,
	}
}

func (u *MatchRequest) CreateMatchRequest(ctx context.Context, initiatorID, targetID uuid.UUID) (match.Match, error) {
	if initiatorID != uuid.Nil && initiatorID == targetID {
		observability.RecordMatchRequest("self")
		return match.Match{}, match.ErrSelfMatch
	}

	initiator, err := loadProfile(ctx, u.directory, initiatorID)
	if err != nil {
		return match.Match{}, err
	}
	target, err := loadProfile(ctx, u.directory, targetID)
	if err != nil {
		return match.Match{}, err
	}
	if target.HasBlocked(initiatorID) {
		observability.RecordMatchRequest("blocked")
		return match.Match{}, ErrBlocked
	}

	res := u.scorer.Score(initiator, target)
	if res.Degraded {
		u.logger.Warn("compatibility scoring degraded",
			zap.Stringer("initiator_id", initiatorID),
			zap.Stringer("target_id", targetID),
		)
	}

	m, err := match.New(initiatorID, targetID, res.Compatibility(), u.now(), u.ttl)
	if err != nil {
		return match.Match{}, err
	}

	saved, err := u.matches.InsertCanonical(ctx, m)
	if err != nil {
		if errors.Is(err, match.ErrDuplicateMatch) {
			observability.RecordMatchRequest("duplicate")
			return match.Match{}, err
		}
		observability.RecordMatchRequest("error")
		return match.Match{}, err
	}
	observability.RecordMatchRequest("created")

	u.invalidate(ctx, saved)
	u.events.dispatch(ctx, EventMatchCreated, saved)
	return saved, nil
}

func (u *MatchRequest) RespondToMatch(ctx context.Context, matchID, userID uuid.UUID, action match.Action) (match.Match, error) {
	if action != match.ActionAccept && action != match.ActionReject {
		return match.Match{}, match.ErrInvalidAction
	}

	current, err := u.matches.FindByID(ctx, matchID)
	if err != nil {
		return match.Match{}, err
	}

	next, err := current.Respond(userID, action, u.now())
	if err != nil {
		return match.Match{}, err
	}

	saved, err := u.matches.UpdateStatus(ctx, next.ID, next.Status, *next.RespondedAt)
	if err != nil {
		return match.Match{}, err
	}
	observability.RecordTransition(string(saved.Status), 1)

	u.invalidate(ctx, saved)
	if saved.Status == match.StatusAccepted {
		u.events.dispatch(ctx, EventMatchAccepted, saved)
	} else {
		u.events.dispatch(ctx, EventMatchDeclined, saved)
	}
	return saved, nil
}

func (u *MatchRequest) ListMatches(ctx context.Context, userID uuid.UUID, status *match.Status, page, limit int) (PagedMatches, error) {
	if userID == uuid.Nil {
		return PagedMatches{}, ErrUserNotFound
	}
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = DefaultPageLimit
	}
	if page < 1 {
		return PagedMatches{}, invalid("page", "must be positive")
	}
	if limit < 1 || limit > MaxPageLimit {
		return PagedMatches{}, invalid("limit", "must be between 1 and %d", MaxPageLimit)
	}

	items, total, err := u.matches.FindForUser(ctx, userID, match.ListFilter{
		Status: status,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return PagedMatches{}, err
	}
	if items == nil {
		items = []match.Match{}
	}
	return PagedMatches{Items: items, Page: page, Limit: limit, Total: total}, nil
}

func (u *MatchRequest) GetMatchStats(ctx context.Context, userID uuid.UUID) (match.Stats, error) {
	if userID == uuid.Nil {
		return match.Stats{}, ErrUserNotFound
	}
	return u.matches.StatsForUser(ctx, userID)
}

// invalidate drops cached suggestions of both participants since the pair is
// no longer eligible for either of them.
func (u *MatchRequest) invalidate(ctx context.Context, m match.Match) {
	if u.cache == nil {
		return
	}
	for _, id := range []uuid.UUID{m.UserA, m.UserB} {
		if err := u.cache.DeleteByPattern(ctx, SuggestionsCachePattern(id)); err != nil {
			u.logger.Debug("suggestion cache invalidation failed", zap.Stringer("user_id", id), zap.Error(err))
		}
	}
}
