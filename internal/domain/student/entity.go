package student

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("student not found")

const (
	StudyLocationOnline   = "online"
	StudyLocationInPerson = "in_person"
	StudyLocationHybrid   = "hybrid"
)

const (
	MinIntensity = 1
	MaxIntensity = 5
	MinGroupSize = 1
	MaxGroupSize = 10
	MaxYear      = 8
	MaxRating    = 5
)

// Profile is the read-only view of a student the matching engine consumes.
// The directory owns it; the engine only writes back ratings.
type Profile struct {
	ID         uuid.UUID
	University string
	Major      string
	Year       int

	Courses      []string
	Preferences  StudyPreferences
	Availability Availability
	Location     Location
	Goals        []string

	Reputation       float64
	TotalRatingScore float64
	RatingsCount     int

	BlockedUsers []uuid.UUID
	BlockedBy    []uuid.UUID

	IsActive   bool
	IsVerified bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// StudyPreferences fields are all optional. A nil pointer or empty slice
// means the student never answered and the factor is skipped.
type StudyPreferences struct {
	Intensity     *int
	GroupSize     *int
	Environment   *string
	Methods       []string
	StudyLocation *string
}

func (p StudyPreferences) IsEmpty() bool {
	return p.Intensity == nil && p.GroupSize == nil && p.Environment == nil && len(p.Methods) == 0 && p.StudyLocation == nil
}

func (p StudyPreferences) PrefersOnline() bool {
	return p.StudyLocation != nil && *p.StudyLocation == StudyLocationOnline
}

// Availability maps a weekday to time slot labels such as "18:00-20:00".
type Availability map[time.Weekday][]string

func (a Availability) IsEmpty() bool {
	for _, slots := range a {
		if len(slots) > 0 {
			return false
		}
	}
	return true
}

type Location struct {
	Campus string
	City   string
	State  string
}

func (l Location) IsEmpty() bool {
	return strings.TrimSpace(l.Campus) == "" && strings.TrimSpace(l.City) == "" && strings.TrimSpace(l.State) == ""
}

// Validate reports data that the scorer cannot interpret.
func (p Profile) Validate() error {
	if p.ID == uuid.Nil {
		return errors.New("profile: missing id")
	}
	if p.Year < 0 || p.Year > MaxYear {
		return fmt.Errorf("profile %s: year %d out of range", p.ID, p.Year)
	}
	prefs := p.Preferences
	if prefs.Intensity != nil && (*prefs.Intensity < MinIntensity || *prefs.Intensity > MaxIntensity) {
		return fmt.Errorf("profile %s: intensity %d out of range", p.ID, *prefs.Intensity)
	}
	if prefs.GroupSize != nil && (*prefs.GroupSize < MinGroupSize || *prefs.GroupSize > MaxGroupSize) {
		return fmt.Errorf("profile %s: group size %d out of range", p.ID, *prefs.GroupSize)
	}
	if prefs.StudyLocation != nil {
		switch *prefs.StudyLocation {
		case StudyLocationOnline, StudyLocationInPerson, StudyLocationHybrid:
		default:
			return fmt.Errorf("profile %s: unknown study location %q", p.ID, *prefs.StudyLocation)
		}
	}
	for day := range p.Availability {
		if day < time.Sunday || day > time.Saturday {
			return fmt.Errorf("profile %s: invalid weekday %d", p.ID, day)
		}
	}
	return nil
}

// ExclusionSet is every id that must never be suggested to p: p itself and
// anyone on either side of a block.
func (p Profile) ExclusionSet() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, 1+len(p.BlockedUsers)+len(p.BlockedBy))
	out := make([]uuid.UUID, 0, 1+len(p.BlockedUsers)+len(p.BlockedBy))
	add := func(id uuid.UUID) {
		if id == uuid.Nil {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	add(p.ID)
	for _, id := range p.BlockedUsers {
		add(id)
	}
	for _, id := range p.BlockedBy {
		add(id)
	}
	return out
}

func (p Profile) HasBlocked(id uuid.UUID) bool {
	for _, b := range p.BlockedUsers {
		if b == id {
			return true
		}
	}
	return false
}

// NormalizeCourseCode upper-cases and strips whitespace: " cs 101" -> "CS101".
func NormalizeCourseCode(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(code), ""))
}
