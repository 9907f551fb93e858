package pipeline

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/khaledhikmat/dfd-go/service/config"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type testConfig struct {
	config.IService
	interval int
	maxBytes int64
	folder   string
}

func (c testConfig) GetModelParameters() config.ModelParameters {
	return config.ModelParameters{
		Device:    "cpu",
		ImageSize: 8,
		Threshold: DefaultThreshold,
	}
}

func (c testConfig) GetSampleInterval() int {
	return c.interval
}

func (c testConfig) GetMaxUploadBytes() int64 {
	return c.maxBytes
}

func (c testConfig) GetDetectionsLogFile() string {
	return ""
}

func (c testConfig) GetDataFolder() string {
	return c.folder
}

// stubDecoder claims total frames but only delivers available of them.
type stubDecoder struct {
	mu        sync.Mutex
	total     int
	available int
	reads     int
	closed    bool
	frame     gocv.Mat
}

func newStubDecoder(total, available int) *stubDecoder {
	return &stubDecoder{
		total:     total,
		available: available,
		frame:     gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 128, 255, 0), 16, 16, gocv.MatTypeCV8UC3),
	}
}

func (d *stubDecoder) TotalFrames() int {
	return d.total
}

func (d *stubDecoder) Read(dst *gocv.Mat) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.reads >= d.available {
		return false
	}
	d.reads++
	d.frame.CopyTo(dst)
	return true
}

func (d *stubDecoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	return d.frame.Close()
}

func (d *stubDecoder) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func openerFor(dec Decoder) Opener {
	return func(string) (Decoder, error) {
		return dec, nil
	}
}

func writeVideoFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}
