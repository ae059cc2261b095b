package fsx

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir_Idempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames", "my_video")

	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))

	fi, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())

	entries, err := os.ReadDir(filepath.Dir(dir))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEnsureDir_FileInTheWay(t *testing.T) {
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "frames")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := EnsureDir(filepath.Join(blocker, "video"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFilesystem))
	assert.True(t, IsFilesystem(err))

	var fe *FilesystemError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "mkdir", fe.Op)
}

func TestWriteFileAtomic_Replaces(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	require.NoError(t, WriteFileAtomic(dir, "a.json", []byte("first")))
	require.NoError(t, WriteFileAtomic(dir, "a.json", []byte("second")))

	b, err := os.ReadFile(filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriteAtomic_WriterErrorLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("encode failed")

	err := WriteAtomic(dir, "frame_0s.png", func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	require.ErrorIs(t, err, boom)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
