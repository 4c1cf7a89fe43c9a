package dto

import (
	"time"

	"github.com/google/uuid"
)

type BreakdownResponse struct {
	CourseOverlap float64 `json:"course_overlap"`
	StudyStyle    float64 `json:"study_style"`
	Availability  float64 `json:"availability"`
	Location      float64 `json:"location"`
	Goals         float64 `json:"goals"`
}

type MatchResponse struct {
	ID                 uuid.UUID         `json:"id"`
	UserA              uuid.UUID         `json:"user_a"`
	UserB              uuid.UUID         `json:"user_b"`
	InitiatorID        uuid.UUID         `json:"initiator_id"`
	PartnerID          uuid.UUID         `json:"partner_id"`
	CompatibilityScore float64           `json:"compatibility_score"`
	Breakdown          BreakdownResponse `json:"breakdown"`
	CommonCourses      []string          `json:"common_courses"`
	Reason             string            `json:"reason"`
	Status             string            `json:"status"`
	CreatedAt          time.Time         `json:"created_at"`
	RespondedAt        *time.Time        `json:"responded_at"`
	ExpiresAt          time.Time         `json:"expires_at"`
	AgeDays            int               `json:"age_days"`
}

type SuggestionResponse struct {
	UserID        uuid.UUID         `json:"user_id"`
	University    string            `json:"university"`
	Major         string            `json:"major"`
	Year          int               `json:"year"`
	Courses       []string          `json:"courses"`
	Reputation    float64           `json:"reputation"`
	Score         float64           `json:"compatibility_score"`
	Breakdown     BreakdownResponse `json:"breakdown"`
	CommonCourses []string          `json:"common_courses"`
	Reason        string            `json:"reason"`
}

type CompatibilityResponse struct {
	PartnerID     uuid.UUID         `json:"partner_id"`
	Score         float64           `json:"compatibility_score"`
	Breakdown     BreakdownResponse `json:"breakdown"`
	CommonCourses []string          `json:"common_courses"`
	Reason        string            `json:"reason"`
	Degraded      bool              `json:"degraded"`
}

type MatchStatsResponse struct {
	ByStatus         map[string]int `json:"by_status"`
	Total            int            `json:"total"`
	AvgCompatibility float64        `json:"avg_compatibility"`
}
