package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.xlsx"), []byte("bbb"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.XLS"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("n"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir.xlsx"), 0o755))

	l := NewLocal(root)
	ctx := context.Background()

	ok, err := l.Exists(ctx, "b.xlsx")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Exists(ctx, filepath.Join(root, "b.xlsx"))
	require.NoError(t, err)
	assert.True(t, ok, "absolute paths are used as is")

	ok, err = l.Exists(ctx, "missing.xlsx")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Exists(ctx, "dir.xlsx")
	require.NoError(t, err)
	assert.False(t, ok, "directories are not templates")

	info, err := l.Stat(ctx, "b.xlsx")
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.Size())

	data, err := l.Read(ctx, "b.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []byte("bbb"), data)

	_, err = l.Read(ctx, "missing.xlsx")
	assert.ErrorIs(t, err, os.ErrNotExist)

	files, err := l.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.XLS"), filepath.Join(root, "b.xlsx")}, files)
}

func TestLocal_ReadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLocal(t.TempDir()).Read(ctx, "x.xlsx")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocal_ListMissingRoot(t *testing.T) {
	files, err := NewLocal(filepath.Join(t.TempDir(), "nope")).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}
