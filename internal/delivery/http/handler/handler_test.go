package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"study-sync/internal/delivery/http/middleware"
	"study-sync/internal/domain/match"
	"study-sync/internal/domain/matching"
	"study-sync/internal/domain/student"
	"study-sync/internal/pkg/jwt"
	"study-sync/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMatching struct {
	gotFilter usecase.SuggestionFilter
	gotLimit  int
	ranked    []usecase.RankedCandidate
	score     matching.ScoreResult
	err       error
}

func (f *fakeMatching) FindMatches(_ context.Context, _ uuid.UUID, filter usecase.SuggestionFilter, limit int) ([]usecase.RankedCandidate, error) {
	f.gotFilter, f.gotLimit = filter, limit
	return f.ranked, f.err
}

func (f *fakeMatching) GetCompatibility(_ context.Context, _, _ uuid.UUID) (matching.ScoreResult, error) {
	return f.score, f.err
}

type fakeRequests struct {
	created   match.Match
	gotAction match.Action
	gotStatus *match.Status
	paged     usecase.PagedMatches
	stats     match.Stats
	err       error
}

func (f *fakeRequests) CreateMatchRequest(_ context.Context, _, _ uuid.UUID) (match.Match, error) {
	return f.created, f.err
}

func (f *fakeRequests) RespondToMatch(_ context.Context, _, _ uuid.UUID, action match.Action) (match.Match, error) {
	f.gotAction = action
	return f.created, f.err
}

func (f *fakeRequests) ListMatches(_ context.Context, _ uuid.UUID, status *match.Status, _, _ int) (usecase.PagedMatches, error) {
	f.gotStatus = status
	return f.paged, f.err
}

func (f *fakeRequests) GetMatchStats(_ context.Context, _ uuid.UUID) (match.Stats, error) {
	return f.stats, f.err
}

type fakeRating struct {
	profile student.Profile
	err     error
}

func (f *fakeRating) RatePartner(_ context.Context, _, _ uuid.UUID, _ int) (student.Profile, error) {
	return f.profile, f.err
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	app    *fiber.App
	token  string
	userID uuid.UUID
}

func newTestServer(t *testing.T, m *fakeMatching, r *fakeRequests, rt *fakeRating) testServer {
	t.Helper()

	tokens := jwt.NewHMACService("test-secret", time.Hour)
	userID := uuid.New()
	token, err := tokens.GenerateAccessToken(userID, "ana@example.edu")
	require.NoError(t, err)

	app := fiber.New(fiber.Config{StructValidator: middleware.NewStructValidator()})
	app.Use(middleware.NewErrorMiddleware(nil).Middleware())
	protected := app.Group("/api/v1", middleware.NewAuthMiddleware(tokens).Middleware())
	NewMatchHandler(m, r).RegisterRoutes(protected)
	NewRatingHandler(rt).RegisterRoutes(protected)

	return testServer{app: app, token: token, userID: userID}
}

func (s testServer) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Authorization", "Bearer "+s.token)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestMatchHandler_RequiresToken(t *testing.T) {
	s := newTestServer(t, &fakeMatching{}, &fakeRequests{}, &fakeRating{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/matches/stats", nil)

	resp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestMatchHandler_Suggestions(t *testing.T) {
	partner := student.Profile{ID: uuid.New(), University: "State University", Courses: []string{"CS101"}}
	m := &fakeMatching{ranked: []usecase.RankedCandidate{{Profile: partner, Score: 0.82, Reason: "Strong course overlap"}}}
	s := newTestServer(t, m, &fakeRequests{}, &fakeRating{})

	status, env := s.do(t, http.MethodGet, "/api/v1/matches/suggestions?university=State%20University&courses=CS101,%20MATH201&limit=5", "")
	require.Equal(t, fiber.StatusOK, status)

	assert.Equal(t, "State University", m.gotFilter.University)
	assert.Equal(t, []string{"CS101", "MATH201"}, m.gotFilter.Courses)
	assert.Equal(t, 5, m.gotLimit)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.Len(t, out, 1)
	assert.Equal(t, partner.ID.String(), out[0]["user_id"])
	assert.InDelta(t, 0.82, out[0]["compatibility_score"], 1e-9)
}

func TestMatchHandler_SuggestionsValidationError(t *testing.T) {
	m := &fakeMatching{err: &usecase.ValidationError{Field: "limit", Reason: "must be between 1 and 50"}}
	s := newTestServer(t, m, &fakeRequests{}, &fakeRating{})

	status, env := s.do(t, http.MethodGet, "/api/v1/matches/suggestions?limit=500", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, string(env.Data), "limit")
}

func TestMatchHandler_Create(t *testing.T) {
	target := uuid.New()
	r := &fakeRequests{}
	s := newTestServer(t, &fakeMatching{}, r, &fakeRating{})

	created, err := match.New(s.userID, target, match.Compatibility{Score: 0.7}, time.Now(), match.DefaultTTL)
	require.NoError(t, err)
	r.created = created

	status, env := s.do(t, http.MethodPost, "/api/v1/matches", `{"target_id":"`+target.String()+`"}`)
	require.Equal(t, fiber.StatusCreated, status)

	var out map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, target.String(), out["partner_id"])
	assert.Equal(t, "pending", out["status"])
}

func TestMatchHandler_CreateRejectsBadBody(t *testing.T) {
	s := newTestServer(t, &fakeMatching{}, &fakeRequests{}, &fakeRating{})

	status, _ := s.do(t, http.MethodPost, "/api/v1/matches", `{"target_id":"not-a-uuid"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestMatchHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{usecase.ErrUserNotFound, fiber.StatusNotFound},
		{match.ErrSelfMatch, fiber.StatusBadRequest},
		{match.ErrDuplicateMatch, fiber.StatusConflict},
		{usecase.ErrBlocked, fiber.StatusForbidden},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			s := newTestServer(t, &fakeMatching{}, &fakeRequests{err: tc.err}, &fakeRating{})
			status, env := s.do(t, http.MethodPost, "/api/v1/matches", `{"target_id":"`+uuid.NewString()+`"}`)
			assert.Equal(t, tc.want, status)
			assert.Equal(t, tc.want, env.Status)
		})
	}
}

func TestMatchHandler_Respond(t *testing.T) {
	r := &fakeRequests{}
	s := newTestServer(t, &fakeMatching{}, r, &fakeRating{})
	m, err := match.New(uuid.New(), s.userID, match.Compatibility{}, time.Now(), match.DefaultTTL)
	require.NoError(t, err)
	r.created = m

	status, _ := s.do(t, http.MethodPost, "/api/v1/matches/"+m.ID.String()+"/respond", `{"action":"accept"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, match.ActionAccept, r.gotAction)

	status, _ = s.do(t, http.MethodPost, "/api/v1/matches/"+m.ID.String()+"/respond", `{"action":"maybe"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	r.err = match.ErrUnauthorizedTransition
	status, _ = s.do(t, http.MethodPost, "/api/v1/matches/"+m.ID.String()+"/respond", `{"action":"reject"}`)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestMatchHandler_ListAndStats(t *testing.T) {
	r := &fakeRequests{
		paged: usecase.PagedMatches{Items: []match.Match{}, Page: 1, Limit: 20, Total: 0},
		stats: match.Stats{ByStatus: map[match.Status]int{match.StatusPending: 2}, Total: 2, AvgCompatibility: 0.6},
	}
	s := newTestServer(t, &fakeMatching{}, r, &fakeRating{})

	status, _ := s.do(t, http.MethodGet, "/api/v1/matches?status=pending", "")
	require.Equal(t, fiber.StatusOK, status)
	require.NotNil(t, r.gotStatus)
	assert.Equal(t, match.StatusPending, *r.gotStatus)

	status, _ = s.do(t, http.MethodGet, "/api/v1/matches?status=bogus", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, env := s.do(t, http.MethodGet, "/api/v1/matches/stats", "")
	require.Equal(t, fiber.StatusOK, status)
	var out struct {
		ByStatus map[string]int `json:"by_status"`
		Total    int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, 2, out.ByStatus["pending"])
	assert.Equal(t, 0, out.ByStatus["expired"])
	assert.Equal(t, 2, out.Total)
}

func TestRatingHandler_Rate(t *testing.T) {
	rated := student.Profile{ID: uuid.New(), Reputation: 4.5, RatingsCount: 2}
	s := newTestServer(t, &fakeMatching{}, &fakeRequests{}, &fakeRating{profile: rated})

	status, env := s.do(t, http.MethodPost, "/api/v1/ratings", `{"rated_user_id":"`+rated.ID.String()+`","rating":5}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(env.Data), `"ratings_count":2`)

	status, _ = s.do(t, http.MethodPost, "/api/v1/ratings", `{"rated_user_id":"`+rated.ID.String()+`","rating":9}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList("  "))
	assert.Equal(t, []string{"a", "b"}, splitList("a, ,b,"))
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	cases := []struct {
		name string
		deps map[string]Pinger
		want int
	}{
		{"all up", map[string]Pinger{"database": stubPinger{}, "redis": stubPinger{}}, fiber.StatusOK},
		{"redis down", map[string]Pinger{"database": stubPinger{}, "redis": stubPinger{err: errors.New("redis unavailable")}}, fiber.StatusOK},
		{"database down", map[string]Pinger{"database": stubPinger{err: errors.New("refused")}}, fiber.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			NewHealthHandler(tc.deps).RegisterRoutes(app)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}
