package match

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusAccepted, StatusRejected, StatusExpired:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown match status %q", s)
}

func (s Status) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusExpired
}

type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
)

const DefaultTTL = 7 * 24 * time.Hour

var (
	ErrNotFound               = errors.New("match not found")
	ErrSelfMatch              = errors.New("cannot match a user with themselves")
	ErrDuplicateMatch         = errors.New("match already exists for this pair")
	ErrUnauthorizedTransition = errors.New("unauthorized match transition")
	ErrUserNotInMatch         = errors.New("user is not a participant of this match")
	ErrInvalidAction          = errors.New("invalid match action")
)

type Breakdown struct {
	CourseOverlap float64 `json:"course_overlap"`
	StudyStyle    float64 `json:"study_style"`
	Availability  float64 `json:"availability"`
	Location      float64 `json:"location"`
	Goals         float64 `json:"goals"`
}

// Match links two students. UserA is always the smaller id.
type Match struct {
	ID                 uuid.UUID
	UserA              uuid.UUID
	UserB              uuid.UUID
	InitiatorID        uuid.UUID
	CompatibilityScore float64
	Breakdown          Breakdown
	CommonCourses      []string
	Reason             string
	Status             Status
	CreatedAt          time.Time
	RespondedAt        *time.Time
	ExpiresAt          time.Time
}

// Compatibility is the scorer output persisted with a match.
type Compatibility struct {
	Score         float64
	Breakdown     Breakdown
	CommonCourses []string
	Reason        string
}

// CanonicalPair orders two ids so that a pair has a single representation.
func CanonicalPair(x, y uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(x[:], y[:]) <= 0 {
		return x, y
	}
	return y, x
}

// New builds a pending, canonically ordered match initiated by initiator.
func New(initiator, target uuid.UUID, c Compatibility, now time.Time, ttl time.Duration) (Match, error) {
	if initiator == uuid.Nil || target == uuid.Nil {
		return Match{}, ErrUserNotInMatch
	}
	if initiator == target {
		return Match{}, ErrSelfMatch
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	a, b := CanonicalPair(initiator, target)
	now = now.UTC()
	return Match{
		ID:                 uuid.New(),
		UserA:              a,
		UserB:              b,
		InitiatorID:        initiator,
		CompatibilityScore: clampScore(c.Score),
		Breakdown:          c.Breakdown,
		CommonCourses:      c.CommonCourses,
		Reason:             c.Reason,
		Status:             StatusPending,
		CreatedAt:          now,
		ExpiresAt:          now.Add(ttl),
	}, nil
}

func (m Match) HasUser(userID uuid.UUID) bool {
	return userID != uuid.Nil && (m.UserA == userID || m.UserB == userID)
}

func (m Match) OtherParticipant(userID uuid.UUID) (uuid.UUID, error) {
	switch {
	case userID == uuid.Nil:
		return uuid.Nil, ErrUserNotInMatch
	case m.UserA == userID:
		return m.UserB, nil
	case m.UserB == userID:
		return m.UserA, nil
	}
	return uuid.Nil, ErrUserNotInMatch
}

// Respond applies a participant's accept/reject. A caller outside the pair,
// or a response to a match that is no longer pending, is an unauthorized
// transition.
func (m Match) Respond(userID uuid.UUID, action Action, now time.Time) (Match, error) {
	var next Status
	switch action {
	case ActionAccept:
		next = StatusAccepted
	case ActionReject:
		next = StatusRejected
	default:
		return m, ErrInvalidAction
	}
	if !m.HasUser(userID) {
		return m, fmt.Errorf("%w: user %s is not a participant", ErrUnauthorizedTransition, userID)
	}
	if m.Status != StatusPending {
		return m, fmt.Errorf("%w: match is %s", ErrUnauthorizedTransition, m.Status)
	}
	if IsExpired(m, now) {
		return m, fmt.Errorf("%w: match expired at %s", ErrUnauthorizedTransition, m.ExpiresAt.Format(time.RFC3339))
	}
	at := now.UTC()
	m.Status = next
	m.RespondedAt = &at
	return m, nil
}

// IsExpired reports whether m is expired at now, including pending matches
// the sweeper has not reached yet.
func IsExpired(m Match, now time.Time) bool {
	if m.Status == StatusExpired {
		return true
	}
	return m.Status == StatusPending && m.ExpiresAt.Before(now)
}

func AgeInDays(m Match, now time.Time) int {
	if now.Before(m.CreatedAt) {
		return 0
	}
	return int(now.Sub(m.CreatedAt).Hours() / 24)
}

func clampScore(s float64) float64 {
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
