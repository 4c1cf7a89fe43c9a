package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"study-sync/internal/database"
	"study-sync/internal/domain/student"

	"github.com/google/uuid"
)

var _ student.Directory = (*PostgresStudentRepository)(nil)

type PostgresStudentRepository struct {
	db database.DB
}

func NewPostgresStudentRepository(db database.DB) *PostgresStudentRepository {
	return &PostgresStudentRepository{db: db}
}

const studentColumns = `s.id, s.university, s.major, s.year, s.courses,
	s.study_intensity, s.preferred_group_size, s.study_environment, s.study_methods, s.study_location,
	s.availability, s.campus, s.city, s.state, s.goals,
	s.reputation, s.total_rating_score, s.ratings_count,
	s.is_active, s.is_verified, s.created_at, s.updated_at`

const blockColumns = `COALESCE((SELECT array_agg(b.blocked_id::text) FROM student_blocks b WHERE b.blocker_id = s.id), '{}'::text[]),
	COALESCE((SELECT array_agg(b.blocker_id::text) FROM student_blocks b WHERE b.blocked_id = s.id), '{}'::text[])`

func (r *PostgresStudentRepository) GetProfile(ctx context.Context, id uuid.UUID) (student.Profile, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+studentColumns+`, `+blockColumns+`
		 FROM students s
		 WHERE s.id = $1`,
		id,
	)
	p, err := scanProfile(row, true)
	if err != nil {
		if database.IsNoRows(err) {
			return student.Profile{}, student.ErrNotFound
		}
		return student.Profile{}, err
	}
	return p, nil
}

// QueryProfiles returns active, verified students matching f. Block lists
// are not loaded for candidates; the requester's exclusion set already
// removed both directions of every block.
func (r *PostgresStudentRepository) QueryProfiles(ctx context.Context, f student.Filter, exclude []uuid.UUID, fetchCount int) ([]student.Profile, error) {
	if fetchCount <= 0 {
		fetchCount = 30
	}

	where := []string{"s.is_active", "s.is_verified"}
	args := make([]any, 0, 6)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if v := strings.TrimSpace(f.University); v != "" {
		where = append(where, "s.university = "+next(v))
	}
	if f.Year > 0 {
		where = append(where, "s.year = "+next(f.Year))
	}
	if v := strings.TrimSpace(f.Major); v != "" {
		where = append(where, "s.major = "+next(v))
	}
	if len(f.Courses) > 0 {
		where = append(where, "s.courses && "+next(f.Courses)+"::text[]")
	}
	if len(exclude) > 0 {
		where = append(where, "s.id <> ALL("+next(uuidStrings(exclude))+"::uuid[])")
	}

	q := `SELECT ` + studentColumns + `
		 FROM students s
		 WHERE ` + strings.Join(where, " AND ") + `
		 ORDER BY s.reputation DESC, s.id ASC
		 LIMIT ` + next(fetchCount)

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]student.Profile, 0, fetchCount)
	for rows.Next() {
		p, err := scanProfile(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresStudentRepository) ApplyRating(ctx context.Context, raterID, ratedID uuid.UUID, rating int) (student.Profile, error) {
	if rating < 1 || rating > student.MaxRating {
		return student.Profile{}, fmt.Errorf("rating %d out of range", rating)
	}

	var out student.Profile
	err := database.WithTx(ctx, r.db, func(tx database.Tx) error {
		n, err := tx.Exec(ctx,
			`UPDATE students
			 SET total_rating_score = total_rating_score + $2,
			     ratings_count = ratings_count + 1,
			     reputation = (total_rating_score + $2) / (ratings_count + 1),
			     updated_at = now()
			 WHERE id = $1`,
			ratedID, rating,
		)
		if err != nil {
			return err
		}
		if n == 0 {
			return student.ErrNotFound
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO study_ratings (id, rater_id, rated_id, rating) VALUES ($1, $2, $3, $4)`,
			uuid.New(), raterID, ratedID, rating,
		); err != nil {
			return err
		}

		p, err := scanProfile(tx.QueryRow(ctx,
			`SELECT `+studentColumns+`, `+blockColumns+`
			 FROM students s
			 WHERE s.id = $1`,
			ratedID,
		), true)
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return student.Profile{}, err
	}
	return out, nil
}

func scanProfile(row database.Row, withBlocks bool) (student.Profile, error) {
	var (
		p             student.Profile
		intensity     *int16
		groupSize     *int16
		year          int16
		availability  []byte
		blockedUsers  []string
		blockedBy     []string
		ratingsCount  int32
		environment   *string
		studyLocation *string
	)

	dest := []any{
		&p.ID, &p.University, &p.Major, &year, &p.Courses,
		&intensity, &groupSize, &environment, &p.Preferences.Methods, &studyLocation,
		&availability, &p.Location.Campus, &p.Location.City, &p.Location.State, &p.Goals,
		&p.Reputation, &p.TotalRatingScore, &ratingsCount,
		&p.IsActive, &p.IsVerified, &p.CreatedAt, &p.UpdatedAt,
	}
	if withBlocks {
		dest = append(dest, &blockedUsers, &blockedBy)
	}
	if err := row.Scan(dest...); err != nil {
		return student.Profile{}, err
	}

	p.Year = int(year)
	p.RatingsCount = int(ratingsCount)
	if intensity != nil {
		v := int(*intensity)
		p.Preferences.Intensity = &v
	}
	if groupSize != nil {
		v := int(*groupSize)
		p.Preferences.GroupSize = &v
	}
	p.Preferences.Environment = environment
	p.Preferences.StudyLocation = studyLocation

	avail, err := decodeAvailability(availability)
	if err != nil {
		return student.Profile{}, fmt.Errorf("student %s: %w", p.ID, err)
	}
	p.Availability = avail

	if p.BlockedUsers, err = parseUUIDs(blockedUsers); err != nil {
		return student.Profile{}, err
	}
	if p.BlockedBy, err = parseUUIDs(blockedBy); err != nil {
		return student.Profile{}, err
	}
	return p, nil
}

// decodeAvailability reads {"monday": ["18:00-20:00"], ...}. Unknown day
// names are kept out of the map rather than failing the whole profile.
func decodeAvailability(raw []byte) (student.Availability, error) {
	if len(raw) == 0 {
		return student.Availability{}, nil
	}
	var byName map[string][]string
	if err := json.Unmarshal(raw, &byName); err != nil {
		return nil, fmt.Errorf("decode availability: %w", err)
	}
	out := make(student.Availability, len(byName))
	for name, slots := range byName {
		day, ok := weekdayByName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		out[day] = append(out[day], slots...)
	}
	return out, nil
}

var weekdayByName = func() map[string]time.Weekday {
	m := make(map[string]time.Weekday, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		m[strings.ToLower(d.String())] = d
	}
	return m
}()

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
