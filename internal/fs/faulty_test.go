package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaultyFS(t *testing.T) {
	dir := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.AddRule("bad", Fault{FailAfterBytes: 4, FailOnSync: true})

	good, err := ffs.CreateTemp(dir, "good-*")
	require.NoError(t, err)
	_, err = good.Write([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, good.Sync())
	require.NoError(t, good.Close())

	bad, err := ffs.CreateTemp(dir, "bad-*")
	require.NoError(t, err)
	_, err = bad.Write([]byte("abc"))
	require.NoError(t, err)
	_, err = bad.Write([]byte("de"))
	require.ErrorIs(t, err, ErrInjected)
	require.ErrorIs(t, bad.Sync(), ErrInjected)
	require.NoError(t, bad.Close())

	data, err := os.ReadFile(bad.Name())
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}

func TestFaultyFS_Rename(t *testing.T) {
	dir := t.TempDir()
	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule("stuck", Fault{FailAfterBytes: -1, FailOnRename: true})

	f, err := ffs.CreateTemp(dir, "stuck-*")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.ErrorIs(t, ffs.Rename(f.Name(), filepath.Join(dir, "dst")), ErrInjected)
	require.NoError(t, ffs.Remove(f.Name()))
}
