package matching

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"study-sync/internal/domain/match"
	"study-sync/internal/domain/student"
)

const (
	neutralScore = 0.5

	maxCourseBonus  = 0.3
	courseBonusStep = 3.0
	minBonusCourses = 2

	intensitySpan = float64(student.MaxIntensity - student.MinIntensity)
	groupSizeSpan = float64(student.MaxGroupSize - student.MinGroupSize)

	oneOnlineScore  = 0.6
	sameCampusScore = 1.0
	sameCityScore   = 0.8
	sameStateScore  = 0.4
	farAwayScore    = 0.2

	strongThreshold   = 0.7
	moderateThreshold = 0.4

	DegradedReason = "Unable to calculate compatibility"
	fallbackReason = "Potential study partner"
)

var ErrInvalidWeights = errors.New("invalid scoring weights")

// Weights is an immutable weighting scheme for the five factors.
type Weights struct {
	CourseOverlap float64
	StudyStyle    float64
	Availability  float64
	Location      float64
	Goals         float64
}

func DefaultWeights() Weights {
	return Weights{
		CourseOverlap: 0.40,
		StudyStyle:    0.20,
		Availability:  0.15,
		Location:      0.15,
		Goals:         0.10,
	}
}

func (w Weights) Validate() error {
	parts := []float64{w.CourseOverlap, w.StudyStyle, w.Availability, w.Location, w.Goals}
	sum := 0.0
	for _, p := range parts {
		if p < 0 || math.IsNaN(p) {
			return fmt.Errorf("%w: negative weight %v", ErrInvalidWeights, p)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("%w: weights sum to %.4f, want 1", ErrInvalidWeights, sum)
	}
	return nil
}

type Breakdown = match.Breakdown

type ScoreResult struct {
	Total         float64
	Breakdown     Breakdown
	CommonCourses []string
	Reason        string
	Degraded      bool
}

func (r ScoreResult) Compatibility() match.Compatibility {
	return match.Compatibility{
		Score:         r.Total,
		Breakdown:     r.Breakdown,
		CommonCourses: r.CommonCourses,
		Reason:        r.Reason,
	}
}

// Scorer computes pairwise compatibility. It holds no mutable state and is
// safe for concurrent use.
type Scorer struct {
	weights Weights
}

func NewScorer(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: w}, nil
}

// Score returns the compatibility of a and b. Malformed profiles degrade the
// pair to a zero score instead of failing.
func (s *Scorer) Score(a, b student.Profile) ScoreResult {
	if err := a.Validate(); err != nil {
		return degraded()
	}
	if err := b.Validate(); err != nil {
		return degraded()
	}

	courses, common := courseOverlap(a.Courses, b.Courses)
	bd := Breakdown{
		CourseOverlap: courses,
		StudyStyle:    studyStyle(a.Preferences, b.Preferences),
		Availability:  availability(a.Availability, b.Availability),
		Location:      location(a, b),
		Goals:         goals(a.Goals, b.Goals),
	}

	w := s.weights
	total := w.CourseOverlap*bd.CourseOverlap +
		w.StudyStyle*bd.StudyStyle +
		w.Availability*bd.Availability +
		w.Location*bd.Location +
		w.Goals*bd.Goals

	return ScoreResult{
		Total:         round2(clamp01(total)),
		Breakdown:     bd,
		CommonCourses: common,
		Reason:        reason(bd),
	}
}

func degraded() ScoreResult {
	return ScoreResult{Total: 0, Reason: DegradedReason, Degraded: true}
}

func courseOverlap(a, b []string) (float64, []string) {
	setA := toSet(a, student.NormalizeCourseCode)
	setB := toSet(b, student.NormalizeCourseCode)
	if len(setA) == 0 || len(setB) == 0 {
		return 0, []string{}
	}

	common := intersection(setA, setB)
	union := len(setA) + len(setB) - len(common)
	score := float64(len(common)) / float64(union)
	if len(common) >= minBonusCourses {
		score += math.Min(float64(len(common))/courseBonusStep, maxCourseBonus)
	}
	return math.Min(score, 1), common
}

func studyStyle(a, b student.StudyPreferences) float64 {
	if a.IsEmpty() && b.IsEmpty() {
		return neutralScore
	}

	var sum float64
	var n int
	if a.Intensity != nil && b.Intensity != nil {
		sum += 1 - math.Abs(float64(*a.Intensity-*b.Intensity))/intensitySpan
		n++
	}
	if a.GroupSize != nil && b.GroupSize != nil {
		sum += 1 - math.Abs(float64(*a.GroupSize-*b.GroupSize))/groupSizeSpan
		n++
	}
	if a.Environment != nil && b.Environment != nil {
		if normalizeTag(*a.Environment) == normalizeTag(*b.Environment) {
			sum++
		}
		n++
	}
	if len(a.Methods) > 0 && len(b.Methods) > 0 {
		sum += jaccard(toSet(a.Methods, normalizeTag), toSet(b.Methods, normalizeTag))
		n++
	}
	if n == 0 {
		return neutralScore
	}
	return clamp01(sum / float64(n))
}

func availability(a, b student.Availability) float64 {
	if a.IsEmpty() || b.IsEmpty() {
		return neutralScore
	}

	overlap := 0
	possible := 0
	for day, slotsA := range a {
		slotsB, ok := b[day]
		if !ok || len(slotsA) == 0 || len(slotsB) == 0 {
			continue
		}
		setA := toSet(slotsA, normalizeTag)
		setB := toSet(slotsB, normalizeTag)
		overlap += len(intersection(setA, setB))
		possible += max(len(setA), len(setB))
	}
	if possible == 0 {
		return 0
	}
	return clamp01(float64(overlap) / float64(possible))
}

func location(a, b student.Profile) float64 {
	onlineA := a.Preferences.PrefersOnline()
	onlineB := b.Preferences.PrefersOnline()
	switch {
	case onlineA && onlineB:
		return 1
	case onlineA != onlineB:
		return oneOnlineScore
	}

	la, lb := a.Location, b.Location
	if la.IsEmpty() || lb.IsEmpty() {
		return neutralScore
	}
	switch {
	case sameField(la.Campus, lb.Campus):
		return sameCampusScore
	case sameField(la.City, lb.City):
		return sameCityScore
	case sameField(la.State, lb.State):
		return sameStateScore
	}
	return farAwayScore
}

func goals(a, b []string) float64 {
	setA := toSet(a, normalizeTag)
	setB := toSet(b, normalizeTag)
	if len(setA) == 0 || len(setB) == 0 {
		return neutralScore
	}
	return jaccard(setA, setB)
}

type reasonRule struct {
	value    float64
	strong   string
	moderate string
}

func reason(bd Breakdown) string {
	rules := []reasonRule{
		{bd.CourseOverlap, "Many courses in common", "Some courses in common"},
		{bd.StudyStyle, "Very similar study styles", "Compatible study styles"},
		{bd.Availability, "Great schedule overlap", "Some schedule overlap"},
		{bd.Location, "Study close to each other", "Reasonably close by"},
	}

	picked := make([]string, 0, 2)
	for _, r := range rules {
		if len(picked) == 2 {
			break
		}
		switch {
		case r.value > strongThreshold:
			picked = append(picked, r.strong)
		case r.value > moderateThreshold:
			picked = append(picked, r.moderate)
		}
	}
	switch len(picked) {
	case 0:
		return fallbackReason
	case 1:
		return picked[0]
	}
	return picked[0] + " and " + lowerFirst(picked[1])
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	common := 0
	for k := range a {
		if _, ok := b[k]; ok {
			common++
		}
	}
	return float64(common) / float64(len(a)+len(b)-common)
}

func intersection(a, b map[string]struct{}) []string {
	out := make([]string, 0)
	for k := range a {
		if _, ok := b[k]; ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func toSet(items []string, norm func(string) string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		it = norm(it)
		if it == "" {
			continue
		}
		out[it] = struct{}{}
	}
	return out
}

func sameField(a, b string) bool {
	a, b = normalizeTag(a), normalizeTag(b)
	return a != "" && a == b
}

func normalizeTag(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
