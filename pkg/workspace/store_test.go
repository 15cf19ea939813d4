package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestNewStoreRejectsMissingRoot(t *testing.T) {
	_, err := NewStore("")
	assert.Error(t, err)

	_, err = NewStore(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

func TestResolveRelativeAndAbsolute(t *testing.T) {
	store := newTestStore(t)

	abs, err := store.Resolve("a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Root(), "a", "b.txt"), abs)

	abs, err = store.Resolve(filepath.Join(store.Root(), "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Root(), "c.txt"), abs)
}

func TestResolveRejectsEscapes(t *testing.T) {
	store := newTestStore(t)

	cases := []string{
		"../outside.txt",
		"a/../../outside.txt",
		"/etc/passwd",
		filepath.Dir(store.Root()),
	}
	for _, path := range cases {
		_, err := store.Resolve(path)
		assert.Error(t, err, "path %q should be rejected", path)
	}

	_, err := store.Resolve("")
	assert.Error(t, err)
}

func TestWriteReadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	abs, err := store.Resolve("dir/sub/file.txt")
	require.NoError(t, err)

	content := []byte("x=1\n")
	require.NoError(t, store.Write(abs, content))

	got, err := store.Read(abs)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestWriteReplacesAndTruncates(t *testing.T) {
	store := newTestStore(t)

	abs, err := store.Resolve("file.txt")
	require.NoError(t, err)

	require.NoError(t, store.Write(abs, []byte("first version")))
	require.NoError(t, store.Write(abs, []byte("")))

	got, err := store.Read(abs)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	store := newTestStore(t)

	abs, err := store.Resolve("file.txt")
	require.NoError(t, err)
	require.NoError(t, store.Write(abs, []byte("content")))

	entries, err := os.ReadDir(store.Root())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "file.txt", entries[0].Name())
}

func TestReadMissingFile(t *testing.T) {
	store := newTestStore(t)

	abs, err := store.Resolve("nope.txt")
	require.NoError(t, err)

	_, err = store.Read(abs)
	assert.True(t, os.IsNotExist(err))
}
