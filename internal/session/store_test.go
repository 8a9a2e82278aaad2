package session

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "nested", FileName))
}

func TestStore_SaveThenClear(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save(7, "alice", "Admin"))
	assert.True(t, s.IsLoggedIn())

	role, ok := s.Role()
	assert.True(t, ok)
	assert.Equal(t, "Admin", role)

	name, ok := s.Username()
	assert.True(t, ok)
	assert.Equal(t, "alice", name)

	id, ok := s.UserID()
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)

	require.NoError(t, s.Clear())
	assert.False(t, s.IsLoggedIn())

	_, ok = s.Role()
	assert.False(t, ok)
	_, ok = s.Username()
	assert.False(t, ok)
	_, ok = s.UserID()
	assert.False(t, ok)
}

func TestStore_EmptyIsLoggedOut(t *testing.T) {
	s := newTestStore(t)
	assert.False(t, s.IsLoggedIn())
	assert.NoError(t, s.Clear(), "clearing an absent session is a no-op")
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, NewStore(path).Save(2, "user", "User"))

	reopened := NewStore(path)
	assert.True(t, reopened.IsLoggedIn())
	role, _ := reopened.Role()
	assert.Equal(t, "User", role)
}

func TestStore_LastWriterWins(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(1, "admin", "Admin"))
	require.NoError(t, s.Save(2, "user", "User"))

	name, _ := s.Username()
	role, _ := s.Role()
	id, _ := s.UserID()
	assert.Equal(t, "user", name)
	assert.Equal(t, "User", role)
	assert.Equal(t, int64(2), id)
}

func TestStore_ConcurrentSavesStayConsistent(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			name := "admin"
			role := "Admin"
			if id%2 == 0 {
				name, role = "user", "User"
			}
			assert.NoError(t, s.Save(id, name, role))
		}(int64(i))
	}
	wg.Wait()

	name, _ := s.Username()
	role, _ := s.Role()
	if name == "admin" {
		assert.Equal(t, "Admin", role)
	} else {
		assert.Equal(t, "User", role)
	}
}

func TestStore_CorruptFileIsLoggedOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := NewStore(path)
	assert.False(t, s.IsLoggedIn())
	_, ok := s.Username()
	assert.False(t, ok)
}
