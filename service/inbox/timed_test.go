package inbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inboxConfig struct {
	config.IService
	folder string
}

func (c inboxConfig) GetInboxFolder() string {
	return c.folder
}

func (c inboxConfig) GetInboxPeriodicTimeout() int {
	return 1
}

func mp4Only(name string) bool {
	return strings.HasSuffix(name, ".mp4")
}

func newTimedForTest(t *testing.T) (*timedService, string) {
	folder := t.TempDir()
	svc := NewTimed(context.Background(), inboxConfig{folder: folder}, mp4Only).(*timedService)
	return svc, folder
}

func TestScanDeliversStableAcceptedFilesOnce(t *testing.T) {
	svc, folder := newTimedForTest(t)
	require.NoError(t, os.WriteFile(filepath.Join(folder, "clip.mp4"), []byte("video"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "notes.txt"), []byte("text"), 0644))

	// first sighting only records the size
	uploads, err := svc.scan()
	require.NoError(t, err)
	assert.Empty(t, uploads)

	uploads, err = svc.scan()
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, "clip.mp4", uploads[0].Filename)
	assert.Equal(t, filepath.Join(folder, "clip.mp4"), uploads[0].Path)

	uploads, err = svc.scan()
	require.NoError(t, err)
	assert.Empty(t, uploads)
}

func TestScanWaitsForGrowingFiles(t *testing.T) {
	svc, folder := newTimedForTest(t)
	path := filepath.Join(folder, "growing.mp4")

	require.NoError(t, os.WriteFile(path, []byte("a"), 0644))
	_, err := svc.scan()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("abc"), 0644))
	uploads, err := svc.scan()
	require.NoError(t, err)
	assert.Empty(t, uploads)

	uploads, err = svc.scan()
	require.NoError(t, err)
	assert.Len(t, uploads, 1)
}

func TestSubscribeTwiceFails(t *testing.T) {
	svc, _ := newTimedForTest(t)
	defer svc.Close()

	_, err := svc.Subscribe()
	require.NoError(t, err)
	_, err = svc.Subscribe()
	assert.Error(t, err)

	require.NoError(t, svc.Unsubscribe())
	assert.Error(t, svc.Unsubscribe())
}

func TestPublishReachesSubscriber(t *testing.T) {
	svc, _ := newTimedForTest(t)
	defer svc.Close()

	stream, err := svc.Subscribe()
	require.NoError(t, err)

	go func() {
		_ = svc.Publish([]model.Upload{{Path: "/tmp/x.mp4", Filename: "x.mp4"}})
	}()

	select {
	case uploads := <-stream:
		require.Len(t, uploads, 1)
		assert.Equal(t, "x.mp4", uploads[0].Filename)
	case <-time.After(2 * time.Second):
		t.Fatal("published upload never arrived")
	}
}
