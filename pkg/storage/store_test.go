package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ToolmanP/forumactif-archiver/pkg/utils"
)

func exercise(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrNoState)

	require.NoError(t, s.Save(ctx, []byte(`{"version":1}`)))
	b, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, `{"version":1}`, string(b))

	require.NoError(t, s.Save(ctx, []byte(`{"version":2}`)))
	b, err = s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, `{"version":2}`, string(b))

	require.NoError(t, s.Reset(ctx))
	_, err = s.Load(ctx)
	require.ErrorIs(t, err, ErrNoState)
	require.NoError(t, s.Reset(ctx))

	require.NoError(t, s.Close())
}

func TestFileStore(t *testing.T) {
	exercise(t, NewFileStore(filepath.Join(t.TempDir(), "state", "save.json")))
}

func TestFileStoreLeavesNoTemporaryFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(filepath.Join(dir, "save.json"))
	require.NoError(t, s.Save(context.Background(), []byte("a")))
	require.NoError(t, s.Save(context.Background(), []byte("b")))

	matches, err := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "save.json")}, matches)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "state.db"), "lalf")
	require.NoError(t, err)
	exercise(t, s)
}

func TestSQLiteStoreKeys(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")
	a, err := NewSQLiteStore(ctx, path, "a")
	require.NoError(t, err)
	defer a.Close()
	b, err := NewSQLiteStore(ctx, path, "b")
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Save(ctx, []byte("first")))
	_, err = b.Load(ctx)
	require.ErrorIs(t, err, ErrNoState)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(context.Background(), utils.StateConfig{Backend: "file", Path: filepath.Join(dir, "save.json")})
	require.NoError(t, err)
	require.IsType(t, &FileStore{}, s)

	s, err = Open(context.Background(), utils.StateConfig{Backend: "sqlite", Path: filepath.Join(dir, "save.db"), Key: "lalf"})
	require.NoError(t, err)
	require.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(context.Background(), utils.StateConfig{Backend: "etcd"})
	require.Error(t, err)
}
