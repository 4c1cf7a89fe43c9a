package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"study-sync/internal/domain/match"
	"study-sync/internal/domain/student"

	"github.com/google/uuid"
)

type memDirectory struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]student.Profile
	lastF    student.Filter
	lastEx   []uuid.UUID
	lastN    int
	err      error
}

func newMemDirectory(ps ...student.Profile) *memDirectory {
	d := &memDirectory{profiles: map[uuid.UUID]student.Profile{}}
	for _, p := range ps {
		d.profiles[p.ID] = p
	}
	return d
}

func (d *memDirectory) GetProfile(_ context.Context, id uuid.UUID) (student.Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.profiles[id]
	if !ok {
		return student.Profile{}, student.ErrNotFound
	}
	return p, nil
}

func (d *memDirectory) QueryProfiles(_ context.Context, f student.Filter, exclude []uuid.UUID, n int) ([]student.Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastF, d.lastEx, d.lastN = f, exclude, n
	if d.err != nil {
		return nil, d.err
	}

	skip := map[uuid.UUID]bool{}
	for _, id := range exclude {
		skip[id] = true
	}
	out := make([]student.Profile, 0)
	for _, p := range d.profiles {
		if skip[p.ID] || !p.IsActive || !p.IsVerified {
			continue
		}
		if f.University != "" && p.University != f.University {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (d *memDirectory) ApplyRating(_ context.Context, _, ratedID uuid.UUID, rating int) (student.Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.profiles[ratedID]
	if !ok {
		return student.Profile{}, student.ErrNotFound
	}
	p.TotalRatingScore += float64(rating)
	p.RatingsCount++
	p.Reputation = p.TotalRatingScore / float64(p.RatingsCount)
	d.profiles[ratedID] = p
	return p, nil
}

type memMatches struct {
	mu   sync.Mutex
	rows map[[2]uuid.UUID]match.Match
}

func newMemMatches(ms ...match.Match) *memMatches {
	r := &memMatches{rows: map[[2]uuid.UUID]match.Match{}}
	for _, m := range ms {
		r.rows[[2]uuid.UUID{m.UserA, m.UserB}] = m
	}
	return r
}

func (r *memMatches) InsertCanonical(_ context.Context, m match.Match) (match.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]uuid.UUID{m.UserA, m.UserB}
	if cur, ok := r.rows[key]; ok && cur.Status != match.StatusExpired {
		return match.Match{}, match.ErrDuplicateMatch
	}
	r.rows[key] = m
	return m, nil
}

func (r *memMatches) FindByID(_ context.Context, id uuid.UUID) (match.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.rows {
		if m.ID == id {
			return m, nil
		}
	}
	return match.Match{}, match.ErrNotFound
}

func (r *memMatches) FindByPair(_ context.Context, x, y uuid.UUID) (match.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, b := match.CanonicalPair(x, y)
	m, ok := r.rows[[2]uuid.UUID{a, b}]
	if !ok {
		return match.Match{}, match.ErrNotFound
	}
	return m, nil
}

func (r *memMatches) FindForUser(_ context.Context, userID uuid.UUID, f match.ListFilter) ([]match.Match, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]match.Match, 0)
	for _, m := range r.rows {
		if !m.HasUser(userID) {
			continue
		}
		if f.Status != nil && m.Status != *f.Status {
			continue
		}
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if f.Offset >= total {
		return []match.Match{}, total, nil
	}
	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return all[f.Offset:end], total, nil
}

func (r *memMatches) PartnerIDs(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uuid.UUID, 0)
	for _, m := range r.rows {
		if other, err := m.OtherParticipant(userID); err == nil {
			out = append(out, other)
		}
	}
	return out, nil
}

func (r *memMatches) UpdateStatus(_ context.Context, id uuid.UUID, status match.Status, at time.Time) (match.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, m := range r.rows {
		if m.ID != id {
			continue
		}
		if m.Status != match.StatusPending || !m.ExpiresAt.After(at) {
			return match.Match{}, fmt.Errorf("%w: match is %s", match.ErrUnauthorizedTransition, m.Status)
		}
		m.Status = status
		m.RespondedAt = &at
		r.rows[key] = m
		return m, nil
	}
	return match.Match{}, match.ErrNotFound
}

func (r *memMatches) BulkExpire(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for key, m := range r.rows {
		if m.Status == match.StatusPending && m.ExpiresAt.Before(now) {
			m.Status = match.StatusExpired
			r.rows[key] = m
			n++
		}
	}
	return n, nil
}

func (r *memMatches) StatsForUser(_ context.Context, userID uuid.UUID) (match.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := match.Stats{ByStatus: map[match.Status]int{}}
	sum := 0.0
	for _, m := range r.rows {
		if !m.HasUser(userID) {
			continue
		}
		st.ByStatus[m.Status]++
		st.Total++
		sum += m.CompatibilityScore
	}
	if st.Total > 0 {
		st.AvgCompatibility = sum / float64(st.Total)
	}
	return st, nil
}

func (r *memMatches) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) GetJSON(_ context.Context, key string, out any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, out)
}

func (c *memCache) SetJSON(_ context.Context, key string, v any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.data[key] = b
	return nil
}

func (c *memCache) DeleteByPattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

func (c *memCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

type memLock struct {
	mu       sync.Mutex
	held     map[string]string
	down     bool
	err      error
	released int
}

func newMemLock() *memLock { return &memLock{held: map[string]string{}} }

func (l *memLock) Available() bool { return !l.down }

func (l *memLock) SetIfNotExists(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if _, ok := l.held[key]; ok {
		return false, nil
	}
	l.held[key] = value
	return true, nil
}

func (l *memLock) Release(_ context.Context, key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == value {
		delete(l.held, key)
		l.released++
	}
	return nil
}

type recordingNotifier struct {
	events chan string
	err    error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{events: make(chan string, 16)}
}

func (n *recordingNotifier) record(event string, m match.Match) error {
	n.events <- event + ":" + m.ID.String()
	return n.err
}

func (n *recordingNotifier) MatchCreated(_ context.Context, m match.Match) error {
	return n.record(EventMatchCreated, m)
}

func (n *recordingNotifier) MatchAccepted(_ context.Context, m match.Match) error {
	return n.record(EventMatchAccepted, m)
}

func (n *recordingNotifier) MatchDeclined(_ context.Context, m match.Match) error {
	return n.record(EventMatchDeclined, m)
}

func intPtr(v int) *int { return &v }

func statusPtr(s match.Status) *match.Status { return &s }

func newStudent(courses ...string) student.Profile {
	return student.Profile{
		ID:         uuid.New(),
		University: "State University",
		Major:      "Computer Science",
		Year:       2,
		Courses:    courses,
		Preferences: student.StudyPreferences{
			Intensity: intPtr(3),
			GroupSize: intPtr(2),
		},
		Availability: student.Availability{time.Monday: {"18:00-20:00"}},
		Location:     student.Location{Campus: "North", City: "Austin", State: "TX"},
		IsActive:     true,
		IsVerified:   true,
	}
}
