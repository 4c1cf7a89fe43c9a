package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"study-sync/internal/database"
	"study-sync/internal/domain/match"

	"github.com/google/uuid"
)

var _ match.Repository = (*PostgresMatchRepository)(nil)

type PostgresMatchRepository struct {
	db database.DB
}

func NewPostgresMatchRepository(db database.DB) *PostgresMatchRepository {
	return &PostgresMatchRepository{db: db}
}

const matchColumns = `id, user_a, user_b, initiator_id, compatibility_score, breakdown,
	common_courses, reason, status, created_at, responded_at, expires_at`

// InsertCanonical stores m, which must already be canonically ordered. An
// existing expired row for the same pair is recycled in place; any other
// existing row makes the insert a no-op reported as ErrDuplicateMatch.
func (r *PostgresMatchRepository) InsertCanonical(ctx context.Context, m match.Match) (match.Match, error) {
	if m.UserA == m.UserB {
		return match.Match{}, match.ErrSelfMatch
	}
	if a, b := match.CanonicalPair(m.UserA, m.UserB); a != m.UserA || b != m.UserB {
		return match.Match{}, fmt.Errorf("insert match %s: pair is not canonical", m.ID)
	}

	breakdown, err := json.Marshal(m.Breakdown)
	if err != nil {
		return match.Match{}, err
	}
	courses := m.CommonCourses
	if courses == nil {
		courses = []string{}
	}

	row := r.db.QueryRow(ctx,
		`INSERT INTO matches (
			id, user_a, user_b, initiator_id, compatibility_score, breakdown,
			common_courses, reason, status, created_at, responded_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9, $10, NULL, $11)
		ON CONFLICT ON CONSTRAINT matches_pair_key DO UPDATE SET
			id = EXCLUDED.id,
			initiator_id = EXCLUDED.initiator_id,
			compatibility_score = EXCLUDED.compatibility_score,
			breakdown = EXCLUDED.breakdown,
			common_courses = EXCLUDED.common_courses,
			reason = EXCLUDED.reason,
			status = EXCLUDED.status,
			created_at = EXCLUDED.created_at,
			responded_at = NULL,
			expires_at = EXCLUDED.expires_at
		WHERE matches.status = 'expired'
		RETURNING `+matchColumns,
		m.ID, m.UserA, m.UserB, m.InitiatorID, m.CompatibilityScore, string(breakdown),
		courses, m.Reason, string(m.Status), m.CreatedAt, m.ExpiresAt,
	)

	out, err := scanMatch(row)
	if err != nil {
		if database.IsNoRows(err) || database.IsUniqueViolation(err, "") {
			return match.Match{}, match.ErrDuplicateMatch
		}
		return match.Match{}, err
	}
	return out, nil
}

func (r *PostgresMatchRepository) FindByID(ctx context.Context, id uuid.UUID) (match.Match, error) {
	m, err := scanMatch(r.db.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id))
	if err != nil {
		if database.IsNoRows(err) {
			return match.Match{}, match.ErrNotFound
		}
		return match.Match{}, err
	}
	return m, nil
}

func (r *PostgresMatchRepository) FindByPair(ctx context.Context, x, y uuid.UUID) (match.Match, error) {
	a, b := match.CanonicalPair(x, y)
	m, err := scanMatch(r.db.QueryRow(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE user_a = $1 AND user_b = $2`,
		a, b,
	))
	if err != nil {
		if database.IsNoRows(err) {
			return match.Match{}, match.ErrNotFound
		}
		return match.Match{}, err
	}
	return m, nil
}

func (r *PostgresMatchRepository) FindForUser(ctx context.Context, userID uuid.UUID, f match.ListFilter) ([]match.Match, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var status any
	if f.Status != nil {
		status = string(*f.Status)
	}

	var total int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM matches
		 WHERE (user_a = $1 OR user_b = $1)
		   AND ($2::text IS NULL OR status = $2::text)`,
		userID, status,
	).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []match.Match{}, 0, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+matchColumns+`
		 FROM matches
		 WHERE (user_a = $1 OR user_b = $1)
		   AND ($2::text IS NULL OR status = $2::text)
		 ORDER BY created_at DESC, id ASC
		 LIMIT $3 OFFSET $4`,
		userID, status, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]match.Match, 0, limit)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// PartnerIDs lists everyone userID has a match with, in any status.
func (r *PostgresMatchRepository) PartnerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx,
		`SELECT CASE WHEN user_a = $1 THEN user_b ELSE user_a END
		 FROM matches
		 WHERE user_a = $1 OR user_b = $1`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus moves a still-pending, unexpired match to status. A match that
// moved on concurrently, or expired, yields ErrUnauthorizedTransition.
func (r *PostgresMatchRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status match.Status, respondedAt time.Time) (match.Match, error) {
	m, err := scanMatch(r.db.QueryRow(ctx,
		`UPDATE matches
		 SET status = $2, responded_at = $3
		 WHERE id = $1 AND status = 'pending' AND expires_at > $3
		 RETURNING `+matchColumns,
		id, string(status), respondedAt.UTC(),
	))
	if err == nil {
		return m, nil
	}
	if !database.IsNoRows(err) {
		return match.Match{}, err
	}

	current, err := r.FindByID(ctx, id)
	if err != nil {
		return match.Match{}, err
	}
	return match.Match{}, fmt.Errorf("%w: match is %s", match.ErrUnauthorizedTransition, current.Status)
}

func (r *PostgresMatchRepository) BulkExpire(ctx context.Context, now time.Time) (int64, error) {
	return r.db.Exec(ctx,
		`UPDATE matches
		 SET status = 'expired'
		 WHERE status = 'pending' AND expires_at < $1`,
		now.UTC(),
	)
}

func (r *PostgresMatchRepository) StatsForUser(ctx context.Context, userID uuid.UUID) (match.Stats, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(compatibility_score), 0)
		 FROM matches
		 WHERE user_a = $1 OR user_b = $1
		 GROUP BY status`,
		userID,
	)
	if err != nil {
		return match.Stats{}, err
	}
	defer rows.Close()

	out := match.Stats{ByStatus: map[match.Status]int{
		match.StatusPending:  0,
		match.StatusAccepted: 0,
		match.StatusRejected: 0,
		match.StatusExpired:  0,
	}}
	var scoreSum float64
	for rows.Next() {
		var (
			status string
			count  int
			sum    float64
		)
		if err := rows.Scan(&status, &count, &sum); err != nil {
			return match.Stats{}, err
		}
		out.ByStatus[match.Status(status)] = count
		out.Total += count
		scoreSum += sum
	}
	if err := rows.Err(); err != nil {
		return match.Stats{}, err
	}
	if out.Total > 0 {
		out.AvgCompatibility = scoreSum / float64(out.Total)
	}
	return out, nil
}

func scanMatch(row database.Row) (match.Match, error) {
	var (
		m         match.Match
		breakdown []byte
		status    string
	)
	if err := row.Scan(
		&m.ID, &m.UserA, &m.UserB, &m.InitiatorID, &m.CompatibilityScore, &breakdown,
		&m.CommonCourses, &m.Reason, &status, &m.CreatedAt, &m.RespondedAt, &m.ExpiresAt,
	); err != nil {
		return match.Match{}, err
	}
	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &m.Breakdown); err != nil {
			return match.Match{}, fmt.Errorf("match %s: decode breakdown: %w", m.ID, err)
		}
	}
	m.Status = match.Status(status)
	return m, nil
}
