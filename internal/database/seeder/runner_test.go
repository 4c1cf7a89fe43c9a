package seeder

import (
	"context"
	"errors"
	"testing"

	"study-sync/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDB satisfies database.DB for seeders that never touch it.
type stubDB struct{ database.DB }

type recordingSeeder struct {
	name string
	err  error
	ran  *[]string
}

func (s recordingSeeder) Name() string { return s.name }

func (s recordingSeeder) Run(context.Context, database.DB) error {
	*s.ran = append(*s.ran, s.name)
	return s.err
}

func TestRunner_StopsAtFirstFailure(t *testing.T) {
	var ran []string
	boom := errors.New("boom")
	r := Runner{Seeders: []Seeder{
		recordingSeeder{name: "students", ran: &ran},
		nil,
		recordingSeeder{name: "ratings", err: boom, ran: &ran},
		recordingSeeder{name: "never", ran: &ran},
	}}

	err := r.Run(context.Background(), stubDB{})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "seed ratings")
	assert.Equal(t, []string{"students", "ratings"}, ran)
}

func TestRunner_RejectsNilDBAndCancelledContext(t *testing.T) {
	var ran []string
	r := Runner{Seeders: []Seeder{recordingSeeder{name: "students", ran: &ran}}}

	require.Error(t, r.Run(context.Background(), nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, r.Run(ctx, stubDB{}), context.Canceled)
	assert.Empty(t, ran)
}

func TestStudentID_IsStable(t *testing.T) {
	assert.Equal(t, StudentID("ana@example.edu"), StudentID("ana@example.edu"))
	assert.NotEqual(t, StudentID("ana@example.edu"), StudentID("ben@example.edu"))
}
