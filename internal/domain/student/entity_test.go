package student

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile_Validate(t *testing.T) {
	ok := Profile{ID: uuid.New(), Year: 2}
	require.NoError(t, ok.Validate())

	bad := ok
	n := 0
	bad.Preferences.GroupSize = &n
	require.Error(t, bad.Validate())

	loc := "library"
	bad = ok
	bad.Preferences.StudyLocation = &loc
	require.Error(t, bad.Validate())

	require.Error(t, Profile{}.Validate())
}

func TestProfile_ExclusionSet(t *testing.T) {
	me, blocked, blocker := uuid.New(), uuid.New(), uuid.New()
	p := Profile{
		ID:           me,
		BlockedUsers: []uuid.UUID{blocked, blocker},
		BlockedBy:    []uuid.UUID{blocker, uuid.Nil},
	}

	assert.Equal(t, []uuid.UUID{me, blocked, blocker}, p.ExclusionSet())
	assert.True(t, p.HasBlocked(blocked))
	assert.False(t, p.HasBlocked(me))
}

func TestNormalizeCourseCode(t *testing.T) {
	assert.Equal(t, "CS101", NormalizeCourseCode(" cs 101 "))
	assert.Equal(t, "", NormalizeCourseCode("   "))
}
