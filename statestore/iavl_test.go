package statestore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *IAVLStore {
	t.Helper()
	s, err := NewMemoryIAVLStore(100)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreSetGet(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set([]byte("app/paused"), []byte{1}))

	value, err := s.Get([]byte("app/paused"))
	require.NoError(t, err)
	require.Equal(t, []byte{1}, value)

	value, err = s.Get([]byte("missing"))
	require.NoError(t, err)
	require.Nil(t, value)

	has, err := s.Has([]byte("app/paused"))
	require.NoError(t, err)
	require.True(t, has)
}

func TestStoreSetValidation(t *testing.T) {
	s := newTestStore(t)

	require.Error(t, s.Set(nil, []byte("v")))
	require.Error(t, s.Set([]byte("k"), nil))
	require.Error(t, s.Delete(nil))
}

func TestStoreCommitAdvancesVersion(t *testing.T) {
	s := newTestStore(t)
	require.Zero(t, s.Version())

	require.NoError(t, s.Set([]byte("k"), []byte("v1")))
	hash1, v1, err := s.Commit()
	require.NoError(t, err)
	require.EqualValues(t, 1, v1)
	require.NotEmpty(t, hash1)

	require.NoError(t, s.Set([]byte("k"), []byte("v2")))
	hash2, v2, err := s.Commit()
	require.NoError(t, err)
	require.EqualValues(t, 2, v2)
	require.NotEqual(t, hash1, hash2)
	require.EqualValues(t, 2, s.Version())
}

func TestStoreLoadVersionDiscardsStaged(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set([]byte("k"), []byte("committed")))
	_, v, err := s.Commit()
	require.NoError(t, err)

	// Staged but never committed; a reload must drop it.
	require.NoError(t, s.Set([]byte("k"), []byte("aborted")))
	require.NoError(t, s.LoadVersion(v))

	value, err := s.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("committed"), value)
}

func TestStoreGetVersioned(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set([]byte("k"), []byte("v1")))
	_, v1, err := s.Commit()
	require.NoError(t, err)

	require.NoError(t, s.Set([]byte("k"), []byte("v2")))
	_, _, err = s.Commit()
	require.NoError(t, err)

	old, err := s.GetVersioned([]byte("k"), v1)
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), old)

	require.True(t, s.VersionExists(v1))
	require.False(t, s.VersionExists(99))
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := NewIAVLStore(dir, 100)
	require.NoError(t, err)
	require.NoError(t, s.Set([]byte("k"), []byte("v")))
	_, v, err := s.Commit()
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := NewIAVLStore(dir, 100)
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, v, reopened.Version())
	value, err := reopened.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), value)
}
