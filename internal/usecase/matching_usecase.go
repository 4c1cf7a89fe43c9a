package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"study-sync/internal/domain/match"
	"study-sync/internal/domain/matching"
	"study-sync/internal/domain/student"
	"study-sync/internal/observability"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultSuggestionLimit = 10
	MaxSuggestionLimit     = 50
	maxFilterCourses       = 20
)

var courseCodeRe = regexp.MustCompile(`^[A-Z0-9][A-Z0-9._-]{0,19}$`)

type SuggestionFilter struct {
	University string
	Year       int
	Major      string
	Courses    []string
}

// RankedCandidate is a suggested partner together with how well they fit.
type RankedCandidate struct {
	Profile       student.Profile    `json:"profile"`
	Score         float64            `json:"score"`
	Breakdown     matching.Breakdown `json:"breakdown"`
	CommonCourses []string           `json:"common_courses"`
	Reason        string             `json:"reason"`
}

type MatchingUsecase interface {
	FindMatches(ctx context.Context, requesterID uuid.UUID, f SuggestionFilter, limit int) ([]RankedCandidate, error)
	GetCompatibility(ctx context.Context, userID, partnerID uuid.UUID) (matching.ScoreResult, error)
}

type MatchingOptions struct {
	// MinScore <= 0 selects matching.DefaultMinScore.
	MinScore            float64
	CandidateMultiplier int
	ScoreConcurrency    int
	CacheTTL            time.Duration
}

type Matching struct {
	directory student.Directory
	matches   match.Repository
	scorer    *matching.Scorer
	cache     SuggestionCache
	opts      MatchingOptions
	logger    *zap.Logger
}

func NewMatchingUsecase(directory student.Directory, matches match.Repository, scorer *matching.Scorer, cache SuggestionCache, opts MatchingOptions, logger *zap.Logger) *Matching {
	if opts.CandidateMultiplier <= 0 {
		opts.CandidateMultiplier = 3
	}
	if opts.ScoreConcurrency <= 0 {
		opts.ScoreConcurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matching{
		directory: directory,
		matches:   matches,
		scorer:    scorer,
		cache:     cache,
		opts:      opts,
		logger:    logger.Named("matching"),
	}
}

// FindMatches suggests up to limit partners for requesterID, best first.
func (u *Matching) FindMatches(ctx context.Context, requesterID uuid.UUID, f SuggestionFilter, limit int) ([]RankedCandidate, error) {
	if requesterID == uuid.Nil {
		return nil, ErrUserNotFound
	}
	f, limit, err := normalizeSuggestionFilter(f, limit)
	if err != nil {
		return nil, err
	}

	key := SuggestionsCacheKey(requesterID, f, limit)
	if u.cache != nil {
		var cached []RankedCandidate
		hit, err := u.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			u.logger.Debug("suggestion cache read failed", zap.Error(err))
		}
		observability.RecordSuggestionCache(hit)
		if hit {
			return cached, nil
		}
	}

	requester, candidates, err := u.retrieveCandidates(ctx, requesterID, f, limit)
	if err != nil {
		return nil, err
	}

	partners, err := u.matches.PartnerIDs(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	exclude := make(map[uuid.UUID]struct{}, len(partners))
	for _, id := range partners {
		exclude[id] = struct{}{}
	}

	start := time.Now()
	scored, err := u.scorer.ScoreBatch(ctx, requester, candidates, u.opts.ScoreConcurrency)
	if err != nil {
		return nil, err
	}
	degraded := 0
	for _, sc := range scored {
		if sc.Result.Degraded {
			degraded++
			u.logger.Warn("compatibility scoring degraded",
				zap.Stringer("requester_id", requesterID),
				zap.Stringer("candidate_id", sc.ID()),
			)
		}
	}
	observability.RecordScoring(time.Since(start), len(candidates), degraded)

	minScore := u.opts.MinScore
	if minScore <= 0 {
		minScore = matching.DefaultMinScore
	}
	ranked := matching.Rank(scored, matching.RankOptions{
		MinScore: minScore,
		Exclude:  exclude,
		Limit:    limit,
	})

	out := make([]RankedCandidate, 0, len(ranked))
	for _, sc := range ranked {
		out = append(out, RankedCandidate{
			Profile:       sc.Profile,
			Score:         sc.Result.Total,
			Breakdown:     sc.Result.Breakdown,
			CommonCourses: sc.Result.CommonCourses,
			Reason:        sc.Result.Reason,
		})
	}

	if u.cache != nil {
		if err := u.cache.SetJSON(ctx, key, out, u.opts.CacheTTL); err != nil {
			u.logger.Debug("suggestion cache write failed", zap.Error(err))
		}
	}
	return out, nil
}

// retrieveCandidates loads the requester and an over-fetched candidate pool
// with self and blocks in either direction already removed.
func (u *Matching) retrieveCandidates(ctx context.Context, requesterID uuid.UUID, f SuggestionFilter, limit int) (student.Profile, []student.Profile, error) {
	requester, err := u.profile(ctx, requesterID)
	if err != nil {
		return student.Profile{}, nil, err
	}

	candidates, err := u.directory.QueryProfiles(ctx, student.Filter{
		University: f.University,
		Year:       f.Year,
		Major:      f.Major,
		Courses:    f.Courses,
	}, requester.ExclusionSet(), limit*u.opts.CandidateMultiplier)
	if err != nil {
		return student.Profile{}, nil, err
	}
	return requester, candidates, nil
}

func (u *Matching) GetCompatibility(ctx context.Context, userID, partnerID uuid.UUID) (matching.ScoreResult, error) {
	if userID == partnerID {
		return matching.ScoreResult{}, match.ErrSelfMatch
	}
	me, err := u.profile(ctx, userID)
	if err != nil {
		return matching.ScoreResult{}, err
	}
	partner, err := u.profile(ctx, partnerID)
	if err != nil {
		return matching.ScoreResult{}, err
	}

	res := u.scorer.Score(me, partner)
	if res.Degraded {
		observability.RecordDegraded(1)
		u.logger.Warn("compatibility scoring degraded",
			zap.Stringer("user_id", userID),
			zap.Stringer("partner_id", partnerID),
		)
	}
	return res, nil
}

func (u *Matching) profile(ctx context.Context, id uuid.UUID) (student.Profile, error) {
	return loadProfile(ctx, u.directory, id)
}

func loadProfile(ctx context.Context, dir student.Directory, id uuid.UUID) (student.Profile, error) {
	if id == uuid.Nil {
		return student.Profile{}, ErrUserNotFound
	}
	p, err := dir.GetProfile(ctx, id)
	if err != nil {
		if errors.Is(err, student.ErrNotFound) {
			return student.Profile{}, ErrUserNotFound
		}
		return student.Profile{}, err
	}
	return p, nil
}

func normalizeSuggestionFilter(f SuggestionFilter, limit int) (SuggestionFilter, int, error) {
	if limit == 0 {
		limit = DefaultSuggestionLimit
	}
	if limit < 1 || limit > MaxSuggestionLimit {
		return f, 0, invalid("limit", "must be between 1 and %d", MaxSuggestionLimit)
	}
	if f.Year < 0 || f.Year > student.MaxYear {
		return f, 0, invalid("year", "must be between 0 and %d", student.MaxYear)
	}
	if len(f.Courses) > maxFilterCourses {
		return f, 0, invalid("courses", "at most %d courses", maxFilterCourses)
	}

	out := SuggestionFilter{
		University: normalizeSearchValue(f.University),
		Year:       f.Year,
		Major:      normalizeSearchValue(f.Major),
	}
	seen := make(map[string]struct{}, len(f.Courses))
	for _, raw := range f.Courses {
		code := student.NormalizeCourseCode(raw)
		if code == "" {
			continue
		}
		if !courseCodeRe.MatchString(code) {
			return f, 0, invalid("courses", "malformed course code %q", raw)
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out.Courses = append(out.Courses, code)
	}
	return out, limit, nil
}

func normalizeSearchValue(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
