package diskstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Destroy() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)

	leaf, err := s.Put("k", []byte("hello"))
	require.NoError(t, err)
	assert.DirExists(t, leaf)
	assert.FileExists(t, filepath.Join(leaf, valueFile))
	assert.FileExists(t, filepath.Join(leaf, timeFile))

	got, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), got)
}

func TestGetMissReturnsFalseNotError(t *testing.T) {
	s := newTestStore(t)
	got, ok, err := s.Get("nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestPutOverwriteReplacesValue(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Put("k", []byte("one"))
	require.NoError(t, err)
	_, err = s.Put("k", []byte("two"))
	require.NoError(t, err)

	got, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("two"), got)
}

func TestEvictRemovesFilesAndSharedPrefixSurvives(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Put("k1", []byte("v1"))
	require.NoError(t, err)
	_, err = s.Put("k2", []byte("v2"))
	require.NoError(t, err)

	removed, err := s.Evict("k1")
	require.NoError(t, err)
	assert.True(t, removed)

	_, ok, err := s.Get("k1")
	require.NoError(t, err)
	assert.False(t, ok)

	// k2 must be untouched even if it shared upper directory segments.
	got, ok, err := s.Get("k2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), got)

	removed, err = s.Evict("k1")
	require.NoError(t, err)
	assert.False(t, removed, "evicting an absent key a second time is not an error")
}

func TestCountTracksResidentKeys(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, 0, s.Count())

	_, err := s.Put("a", []byte("1"))
	require.NoError(t, err)
	_, err = s.Put("b", []byte("2"))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Count())

	_, err = s.Evict("a")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count())
}

func TestDestroyRemovesBaseDir(t *testing.T) {
	fsRoot := t.TempDir()
	s, err := New(fsRoot)
	require.NoError(t, err)

	_, err = s.Put("a", []byte("1"))
	require.NoError(t, err)

	base := s.BaseDir()
	require.NoError(t, s.Destroy())

	_, statErr := os.Stat(base)
	assert.True(t, os.IsNotExist(statErr))
	assert.Equal(t, 0, s.Count())
}
