package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	suggestionsKeyPrefix = "matches:suggestions:"
	SweepLockKey         = "matches:sweep:lock"
)

type SuggestionCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// SweepLock is a best-effort distributed lock. When Available reports false
// callers proceed without locking.
type SweepLock interface {
	Available() bool
	SetIfNotExists(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string, value string) error
}

type suggestionsKeyInput struct {
	University string   `json:"university"`
	Year       int      `json:"year"`
	Major      string   `json:"major"`
	Courses    []string `json:"courses"`
	Limit      int      `json:"limit"`
}

// SuggestionsCacheKey expects a filter that has already been normalized.
func SuggestionsCacheKey(userID uuid.UUID, f SuggestionFilter, limit int) string {
	in := suggestionsKeyInput{
		University: normalizeSearchValue(f.University),
		Year:       f.Year,
		Major:      normalizeSearchValue(f.Major),
		Courses:    f.Courses,
		Limit:      limit,
	}
	b, _ := json.Marshal(in)
	sum := sha256.Sum256(b)
	return suggestionsKeyPrefix + userID.String() + ":" + hex.EncodeToString(sum[:])
}

func SuggestionsCachePattern(userID uuid.UUID) string {
	return suggestionsKeyPrefix + userID.String() + ":*"
}
