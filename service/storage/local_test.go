package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/khaledhikmat/dfd-go/service/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type archiveConfig struct {
	config.IService
	folder string
}

func (c archiveConfig) GetArchiveFolder() string {
	return c.folder
}

func TestLocalStoreFileCopiesUnderKey(t *testing.T) {
	src := filepath.Join(t.TempDir(), "Clip.MP4")
	require.NoError(t, os.WriteFile(src, []byte("frames"), 0644))

	archive := filepath.Join(t.TempDir(), "archive")
	svc := NewLocal(archiveConfig{folder: archive})

	url, err := svc.StoreFile(context.Background(), src, "abc123")
	require.NoError(t, err)

	target := filepath.Join(archive, "abc123.mp4")
	assert.Equal(t, "file://"+target, url)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "frames", string(data))

	// source stays put
	_, err = os.Stat(src)
	assert.NoError(t, err)
}

func TestLocalStoreFileMissingSource(t *testing.T) {
	svc := NewLocal(archiveConfig{folder: t.TempDir()})
	_, err := svc.StoreFile(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"), "k")
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "video/mp4", contentType(".mp4"))
	assert.Equal(t, "application/octet-stream", contentType(".bin"))
}
