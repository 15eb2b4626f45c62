package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalFolderManager_CreateFolder(t *testing.T) {
	baseDir := t.TempDir()
	fm := NewLocalFolderManager(baseDir, zap.NewNop())
	ctx := context.Background()

	t.Run("creates folder for trip id", func(t *testing.T) {
		path, err := fm.CreateFolder(ctx, "6A3847A3-14F5-4C7E-A5D1-26C7FB0BF6EF")
		require.NoError(t, err)
		assert.DirExists(t, path)
		assert.Equal(t, filepath.Join(baseDir, "6A3847A3-14F5-4C7E-A5D1-26C7FB0BF6EF"), path)
	})

	t.Run("existing folder returns same path", func(t *testing.T) {
		first, err := fm.CreateFolder(ctx, "trip-1")
		require.NoError(t, err)
		second, err := fm.CreateFolder(ctx, "trip-1")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		_, err := fm.CreateFolder(ctx, "")
		assert.Error(t, err)

		_, err = fm.CreateFolder(ctx, "../..")
		assert.Error(t, err)
	})

	t.Run("traversal stays inside base", func(t *testing.T) {
		path, err := fm.CreateFolder(ctx, "../../../etc/passwd")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(baseDir, "etcpasswd"), path)
		assert.NotContains(t, path, "..")
	})
}

func TestLocalFolderManager_ExistsAndDelete(t *testing.T) {
	baseDir := t.TempDir()
	fm := NewLocalFolderManager(baseDir, zap.NewNop())
	ctx := context.Background()

	assert.False(t, fm.Exists("trip-1"))
	assert.False(t, fm.Exists(""))

	path, err := fm.CreateFolder(ctx, "trip-1")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(path, "receipt.pdf"), []byte("pdf"), 0644))
	assert.True(t, fm.Exists("trip-1"))

	require.NoError(t, fm.Delete(ctx, "trip-1"))
	assert.NoDirExists(t, path)
	assert.NoError(t, fm.Delete(ctx, "trip-1"))
	assert.Error(t, fm.Delete(ctx, ""))
	assert.DirExists(t, baseDir)
}

func TestLocalFolderManager_SanitizeName(t *testing.T) {
	fm := NewLocalFolderManager(t.TempDir(), zap.NewNop())

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"keeps valid characters", "ABC123-XYZ", "ABC123-XYZ"},
		{"removes path separators", "../../../etc/passwd", "etcpasswd"},
		{"removes special characters", "test<>:\"|?*file", "testfile"},
		{"preserves underscores and hyphens", "test_file-name", "test_file-name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, fm.SanitizeName(tt.input))
		})
	}
}

func TestLocalFileStorage_SaveReadDelete(t *testing.T) {
	baseDir := t.TempDir()
	fs := NewLocalFileStorage(baseDir, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, fs.Save(ctx, "trip-1/a-1_receipt.pdf", []byte("receipt")))
	assert.True(t, fs.Exists(ctx, "trip-1/a-1_receipt.pdf"))
	assert.FileExists(t, filepath.Join(baseDir, "trip-1", "a-1_receipt.pdf"))

	content, err := fs.Read(ctx, "trip-1/a-1_receipt.pdf")
	require.NoError(t, err)
	assert.Equal(t, "receipt", string(content))

	require.NoError(t, fs.Delete(ctx, "trip-1/a-1_receipt.pdf"))
	assert.False(t, fs.Exists(ctx, "trip-1/a-1_receipt.pdf"))
	assert.NoError(t, fs.Delete(ctx, "trip-1/a-1_receipt.pdf"))

	_, err = fs.Read(ctx, "trip-1/missing.pdf")
	assert.Error(t, err)
}

func TestLocalFileStorage_RejectsEscapes(t *testing.T) {
	baseDir := t.TempDir()
	fs := NewLocalFileStorage(filepath.Join(baseDir, "docs"), zap.NewNop())
	ctx := context.Background()

	for _, path := range []string{"../outside.txt", "trip-1/../../outside.txt", "", "."} {
		t.Run(path, func(t *testing.T) {
			assert.Error(t, fs.Save(ctx, path, []byte("x")))
			assert.False(t, fs.Exists(ctx, path))
		})
	}
	assert.NoFileExists(t, filepath.Join(baseDir, "outside.txt"))
}
