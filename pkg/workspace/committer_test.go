package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return dir
}

func TestNewGitCommitterRequiresRepo(t *testing.T) {
	_, err := NewGitCommitter(t.TempDir())
	assert.Error(t, err)
}

func TestGitCommitterRecordsChange(t *testing.T) {
	dir := initRepo(t)
	committer, err := NewGitCommitter(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("x=1\n"), 0644))

	hash, err := committer.Record("a.py", "bridge: apply changes to a.py (+4B -0B)")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	commit, err := repo.CommitObject(plumbing.NewHash(hash))
	require.NoError(t, err)
	assert.Equal(t, "bridge: apply changes to a.py (+4B -0B)", commit.Message)
	assert.Equal(t, "workspace-bridge", commit.Author.Name)
}

func TestGitCommitterStagesOnlyTargetFile(t *testing.T) {
	dir := initRepo(t)
	committer, err := NewGitCommitter(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("x=1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("dirty\n"), 0644))

	hash, err := committer.Record("a.py", "only a.py")
	require.NoError(t, err)

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	commit, err := repo.CommitObject(plumbing.NewHash(hash))
	require.NoError(t, err)
	tree, err := commit.Tree()
	require.NoError(t, err)

	_, err = tree.File("a.py")
	assert.NoError(t, err)
	_, err = tree.File("unrelated.txt")
	assert.Error(t, err, "files changed out of band must not be part of the recorded change")
}

func TestGitCommitterCleanWorktree(t *testing.T) {
	dir := initRepo(t)
	committer, err := NewGitCommitter(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("x=1\n"), 0644))
	first, err := committer.Record("a.py", "first")
	require.NoError(t, err)

	// Recording again with nothing changed reports the existing revision.
	second, err := committer.Record("a.py", "second")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLogCommitter(t *testing.T) {
	rev, err := LogCommitter{}.Record("a.py", "anything")
	require.NoError(t, err)
	assert.Empty(t, rev)
}
