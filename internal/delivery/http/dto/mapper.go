package dto

import (
	"time"

	"study-sync/internal/domain/match"
	"study-sync/internal/domain/matching"
	"study-sync/internal/usecase"

	"github.com/google/uuid"
)

func NewBreakdownResponse(b match.Breakdown) BreakdownResponse {
	return BreakdownResponse{
		CourseOverlap: b.CourseOverlap,
		StudyStyle:    b.StudyStyle,
		Availability:  b.Availability,
		Location:      b.Location,
		Goals:         b.Goals,
	}
}

// NewMatchResponse renders m from the point of view of viewer.
func NewMatchResponse(m match.Match, viewer uuid.UUID, now time.Time) MatchResponse {
	partner, _ := m.OtherParticipant(viewer)
	return MatchResponse{
		ID:                 m.ID,
		UserA:              m.UserA,
		UserB:              m.UserB,
		InitiatorID:        m.InitiatorID,
		PartnerID:          partner,
		CompatibilityScore: m.CompatibilityScore,
		Breakdown:          NewBreakdownResponse(m.Breakdown),
		CommonCourses:      nonNil(m.CommonCourses),
		Reason:             m.Reason,
		Status:             string(m.Status),
		CreatedAt:          m.CreatedAt,
		RespondedAt:        m.RespondedAt,
		ExpiresAt:          m.ExpiresAt,
		AgeDays:            match.AgeInDays(m, now),
	}
}

func NewSuggestionResponse(c usecase.RankedCandidate) SuggestionResponse {
	return SuggestionResponse{
		UserID:        c.Profile.ID,
		University:    c.Profile.University,
		Major:         c.Profile.Major,
		Year:          c.Profile.Year,
		Courses:       nonNil(c.Profile.Courses),
		Reputation:    c.Profile.Reputation,
		Score:         c.Score,
		Breakdown:     NewBreakdownResponse(c.Breakdown),
		CommonCourses: nonNil(c.CommonCourses),
		Reason:        c.Reason,
	}
}

func NewCompatibilityResponse(partnerID uuid.UUID, r matching.ScoreResult) CompatibilityResponse {
	return CompatibilityResponse{
		PartnerID:     partnerID,
		Score:         r.Total,
		Breakdown:     NewBreakdownResponse(r.Breakdown),
		CommonCourses: nonNil(r.CommonCourses),
		Reason:        r.Reason,
		Degraded:      r.Degraded,
	}
}

func NewMatchStatsResponse(s match.Stats) MatchStatsResponse {
	by := make(map[string]int, len(s.ByStatus))
	for _, st := range []match.Status{match.StatusPending, match.StatusAccepted, match.StatusRejected, match.StatusExpired} {
		by[string(st)] = s.ByStatus[st]
	}
	return MatchStatsResponse{ByStatus: by, Total: s.Total, AvgCompatibility: s.AvgCompatibility}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
