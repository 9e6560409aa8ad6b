package scan

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(filepath.Base(path)), 0o644))
}

func TestFilesSingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	writeFile(t, path)

	res, err := Files(path)
	require.NoError(t, err)
	assert.False(t, res.IsDir)
	assert.Equal(t, []string{path}, res.Files)
}

func TestFilesUnreadableSingleFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	path := filepath.Join(t.TempDir(), "secret.txt")
	writeFile(t, path)
	require.NoError(t, os.Chmod(path, 0o000))

	_, err := Files(path)

	var enumErr *EnumerationError
	require.True(t, errors.As(err, &enumErr))
	assert.Equal(t, path, enumErr.Path)
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestFilesDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "photos")
	writeFile(t, filepath.Join(root, "a.jpg"))
	writeFile(t, filepath.Join(root, "sub", "b.jpg"))
	writeFile(t, filepath.Join(root, "sub", "deeper", "c.jpg"))
	writeFile(t, filepath.Join(root, ".hidden"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	res, err := Files(root)
	require.NoError(t, err)
	assert.True(t, res.IsDir)
	assert.Equal(t, []string{
		filepath.Join(root, ".hidden"),
		filepath.Join(root, "a.jpg"),
		filepath.Join(root, "sub", "b.jpg"),
		filepath.Join(root, "sub", "deeper", "c.jpg"),
	}, res.Files)
}

func TestFilesEmptyDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))

	_, err := Files(root)
	assert.ErrorIs(t, err, ErrEmptyDirectory)
}

func TestFilesMissingRoot(t *testing.T) {
	_, err := Files(filepath.Join(t.TempDir(), "nope"))

	var enumErr *EnumerationError
	require.True(t, errors.As(err, &enumErr))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFilesUnreadableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ok.txt"))
	locked := filepath.Join(root, "locked")
	writeFile(t, filepath.Join(locked, "secret.txt"))
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	_, err := Files(root)

	var enumErr *EnumerationError
	require.True(t, errors.As(err, &enumErr))
	assert.Equal(t, locked, enumErr.Path)
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestFilesSymlinkCycle(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "dir", "file.txt"))
	require.NoError(t, os.Symlink(root, filepath.Join(root, "dir", "loop")))

	res, err := Files(root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "dir", "file.txt")}, res.Files)
}

func TestFilesSymlinkAliasKeepsTarget(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "z", "x.txt"))
	require.NoError(t, os.Symlink(filepath.Join(root, "z"), filepath.Join(root, "a")))

	res, err := Files(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a", "x.txt"),
		filepath.Join(root, "z", "x.txt"),
	}, res.Files)
}

func TestFilesFollowsSymlinks(t *testing.T) {
	base := t.TempDir()
	outside := filepath.Join(base, "outside")
	writeFile(t, filepath.Join(outside, "x.txt"))

	root := filepath.Join(base, "root")
	writeFile(t, filepath.Join(root, "y.txt"))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "linked")))
	require.NoError(t, os.Symlink(filepath.Join(base, "gone"), filepath.Join(root, "dangling")))

	res, err := Files(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "linked", "x.txt"),
		filepath.Join(root, "y.txt"),
	}, res.Files)
}
