package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o600))

	dst := filepath.Join(t.TempDir(), "nested", "dst.txt")
	require.NoError(t, CopyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestCopyFileMissingSource(t *testing.T) {
	err := CopyFile(filepath.Join(t.TempDir(), "absent"), filepath.Join(t.TempDir(), "dst"))
	require.Error(t, err)
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "a", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "top.txt"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a", "b", "deep.txt"), []byte("2"), 0o644))

	dst := filepath.Join(t.TempDir(), "out")
	n, err := CopyTree(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(filepath.Join(dst, "a", "b", "deep.txt"))
	require.NoError(t, err)
	assert.Equal(t, "2", string(data))
}

func TestCountFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b"), []byte("x"), 0o644))

	n, err := CountFiles(root)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = CountFiles(filepath.Join(root, "missing"))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	assert.False(t, Exists(path))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	assert.True(t, Exists(path))
}
