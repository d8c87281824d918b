package store

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timoknapp/sports-meet/pkg/models"
)

// Runs against a real database only when MEET_TEST_POSTGRES_DSN is set.
func TestPostgresBackend(t *testing.T) {
	dsn := os.Getenv("MEET_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("MEET_TEST_POSTGRES_DSN not set")
	}
	backend, err := NewPostgresBackend(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	s := New(backend)
	s.Reset()
	t.Cleanup(s.Reset)

	_, found, err := backend.Load(KeyClasses)
	require.NoError(t, err)
	assert.False(t, found)

	c := s.Classes.Add(&models.Class{Name: "3-2", Grade: "3"})
	require.True(t, s.Classes.Update(c.ID, Patch{"teacher": "Mr. Ito"}))

	got, ok := s.Classes.Find(c.ID)
	require.True(t, ok)
	assert.Equal(t, "Mr. Ito", got.Teacher)
	assert.Equal(t, int64(0), s.PersistenceFailures())
}
