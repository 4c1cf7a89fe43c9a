package repository

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"study-sync/internal/config"
	"study-sync/internal/database"
	"study-sync/internal/database/migration"
	dbpostgres "study-sync/internal/database/postgres"
	"study-sync/internal/domain/match"
	"study-sync/internal/domain/student"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDecodeAvailability(t *testing.T) {
	a, err := decodeAvailability([]byte(`{"Monday": ["18:00-20:00"], "friday": ["09:00-11:00", "13:00-15:00"], "someday": ["x"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"18:00-20:00"}, a[time.Monday])
	assert.Len(t, a[time.Friday], 2)
	assert.Len(t, a, 2)

	a, err = decodeAvailability(nil)
	require.NoError(t, err)
	assert.True(t, a.IsEmpty())

	_, err = decodeAvailability([]byte(`[1,2]`))
	require.Error(t, err)
}

func TestParseUUIDs(t *testing.T) {
	id := uuid.New()
	out, err := parseUUIDs([]string{id.String()})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, out)

	_, err = parseUUIDs([]string{"nope"})
	require.Error(t, err)
}

func connectTestDB(t *testing.T, ctx context.Context) database.DB {
	t.Helper()

	host := firstNonEmpty(os.Getenv("STUDYSYNC_TEST_DB_HOST"), os.Getenv("DB_HOST"))
	port := firstNonEmpty(os.Getenv("STUDYSYNC_TEST_DB_PORT"), os.Getenv("DB_PORT"))
	name := firstNonEmpty(os.Getenv("STUDYSYNC_TEST_DB_NAME"), os.Getenv("DB_NAME"))
	user := firstNonEmpty(os.Getenv("STUDYSYNC_TEST_DB_USER"), os.Getenv("DB_USER"))
	pass := firstNonEmpty(os.Getenv("STUDYSYNC_TEST_DB_PASSWORD"), os.Getenv("DB_PASSWORD"))
	ssl := firstNonEmpty(os.Getenv("STUDYSYNC_TEST_DB_SSL_MODE"), os.Getenv("DB_SSL_MODE"), "disable")

	if host == "" || port == "" || name == "" || user == "" {
		t.Skip("missing test DB env vars: set STUDYSYNC_TEST_DB_HOST/PORT/NAME/USER/PASSWORD")
	}

	db, err := dbpostgres.Connect(ctx, config.DatabaseConfig{
		DBHost:     host,
		DBPort:     port,
		DBName:     name,
		DBUser:     user,
		DBPassword: pass,
		DBSSLMode:  ssl,
	}, "study-sync-test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migration.Runner{Logger: zap.NewNop()}.Run(ctx, db.SQLDB()))
	return db
}

func insertStudent(t *testing.T, ctx context.Context, db database.DB, courses ...string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(ctx,
		`INSERT INTO students (id, email, university, major, year, courses, availability, is_active, is_verified)
		 VALUES ($1, $2, 'Test University', 'Computer Science', 2, $3, '{"monday": ["18:00-20:00"]}'::jsonb, TRUE, TRUE)`,
		id, id.String()+"@test.local", courses,
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		bg := context.Background()
		_, _ = db.Exec(bg, `DELETE FROM matches WHERE user_a = $1 OR user_b = $1`, id)
		_, _ = db.Exec(bg, `DELETE FROM study_ratings WHERE rater_id = $1 OR rated_id = $1`, id)
		_, _ = db.Exec(bg, `DELETE FROM student_blocks WHERE blocker_id = $1 OR blocked_id = $1`, id)
		_, _ = db.Exec(bg, `DELETE FROM students WHERE id = $1`, id)
	})
	return id
}

func TestIntegration_StudentDirectory(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db := connectTestDB(t, ctx)
	repo := NewPostgresStudentRepository(db)

	me := insertStudent(t, ctx, db, "CS101", "MATH201")
	peer := insertStudent(t, ctx, db, "CS101")
	blocked := insertStudent(t, ctx, db, "CS101")
	_, err := db.Exec(ctx, `INSERT INTO student_blocks (blocker_id, blocked_id) VALUES ($1, $2)`, me, blocked)
	require.NoError(t, err)

	p, err := repo.GetProfile(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{blocked}, p.BlockedUsers)
	assert.Equal(t, []string{"18:00-20:00"}, p.Availability[time.Monday])

	_, err = repo.GetProfile(ctx, uuid.New())
	require.ErrorIs(t, err, student.ErrNotFound)

	got, err := repo.QueryProfiles(ctx, student.Filter{University: "Test University", Courses: []string{"CS101"}}, p.ExclusionSet(), 50)
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(got))
	for _, c := range got {
		ids = append(ids, c.ID)
	}
	assert.Contains(t, ids, peer)
	assert.NotContains(t, ids, me)
	assert.NotContains(t, ids, blocked)

	rated, err := repo.ApplyRating(ctx, me, peer, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, rated.RatingsCount)
	assert.InDelta(t, 4.0, rated.Reputation, 1e-9)

	rated, err = repo.ApplyRating(ctx, me, peer, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, rated.RatingsCount)
	assert.InDelta(t, 3.0, rated.Reputation, 1e-9)
}

func TestIntegration_MatchRepository(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db := connectTestDB(t, ctx)
	repo := NewPostgresMatchRepository(db)

	x := insertStudent(t, ctx, db, "CS101")
	y := insertStudent(t, ctx, db, "CS101")
	now := time.Now().UTC().Truncate(time.Microsecond)

	m, err := match.New(y, x, match.Compatibility{Score: 0.62, CommonCourses: []string{"CS101"}}, now, time.Hour)
	require.NoError(t, err)
	saved, err := repo.InsertCanonical(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, m.ID, saved.ID)

	dup, err := match.New(x, y, match.Compatibility{Score: 0.5}, now, time.Hour)
	require.NoError(t, err)
	_, err = repo.InsertCanonical(ctx, dup)
	require.ErrorIs(t, err, match.ErrDuplicateMatch)

	byPair, err := repo.FindByPair(ctx, x, y)
	require.NoError(t, err)
	assert.Equal(t, m.ID, byPair.ID)

	partners, err := repo.PartnerIDs(ctx, x)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{y}, partners)

	n, err := repo.BulkExpire(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	_, err = repo.UpdateStatus(ctx, m.ID, match.StatusAccepted, now)
	require.ErrorIs(t, err, match.ErrUnauthorizedTransition)

	again, err := match.New(x, y, match.Compatibility{Score: 0.7}, now, time.Hour)
	require.NoError(t, err)
	recycled, err := repo.InsertCanonical(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, again.ID, recycled.ID)
	assert.Equal(t, match.StatusPending, recycled.Status)
	assert.Equal(t, x, recycled.InitiatorID)

	accepted, err := repo.UpdateStatus(ctx, again.ID, match.StatusAccepted, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, match.StatusAccepted, accepted.Status)
	require.NotNil(t, accepted.RespondedAt)

	items, total, err := repo.FindForUser(ctx, y, match.ListFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)

	stats, err := repo.StatsForUser(ctx, x)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ByStatus[match.StatusAccepted])
	assert.InDelta(t, 0.7, stats.AvgCompatibility, 1e-9)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
