package safeio

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadFileUnderRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))

	fsys, err := New(dir)
	require.NoError(t, err)
	got, err := fsys.ReadFile("a.txt")
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
}

func TestRejectsEscapes(t *testing.T) {
	fsys, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = fsys.ReadFile("../outside.txt")
	require.Error(t, err)
	_, err = fsys.ReadFile(string(filepath.Separator) + "etc" + string(filepath.Separator) + "passwd")
	require.Error(t, err)
	err = fsys.WriteFile("../escape.txt", []byte("x"), 0o644)
	require.Error(t, err)
}

func TestRejectsSymlinkOut(t *testing.T) {
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("s"), 0o644))
	root := t.TempDir()
	link := filepath.Join(root, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	fsys, err := New(root)
	require.NoError(t, err)
	_, err = fsys.ReadFile(filepath.Join("link", "secret.txt"))
	require.Error(t, err, "symlinked path must not escape the root")
}

func TestWriteCreatesParents(t *testing.T) {
	fsys, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, fsys.WriteFile(filepath.Join("deep", "nested", "f.txt"), []byte("x"), 0o644))
	got, err := fsys.ReadFile(filepath.Join("deep", "nested", "f.txt"))
	require.NoError(t, err)
	require.Equal(t, "x", string(got))
}

func TestWalkDirOverFS(t *testing.T) {
	dir := t.TempDir()
	fsys, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, fsys.WriteFile(filepath.Join("p", "a.txt"), []byte("1"), 0o644))
	require.NoError(t, fsys.WriteFile(filepath.Join("p", "sub", "b.txt"), []byte("2"), 0o644))

	var seen []string
	err = fs.WalkDir(fsys, "p", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			seen = append(seen, path)
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"p/a.txt", "p/sub/b.txt"}, seen)
}
