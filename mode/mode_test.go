package mode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/pipeline"
	"github.com/khaledhikmat/dfd-go/service/config"
	"github.com/khaledhikmat/dfd-go/service/data"
	"github.com/khaledhikmat/dfd-go/service/inbox"
	"github.com/khaledhikmat/dfd-go/service/inference"
	"github.com/khaledhikmat/dfd-go/service/ledger"
	"github.com/khaledhikmat/dfd-go/service/metrics"
	"github.com/khaledhikmat/dfd-go/service/webhook"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

type modeConfig struct {
	config.IService
	folder string
}

func (c modeConfig) GetDataFolder() string { return c.folder }
func (c modeConfig) GetInboxFolder() string { return filepath.Join(c.folder, "inbox") }
func (c modeConfig) GetInboxPeriodicTimeout() int { return 1 }
func (c modeConfig) GetMaxUploadBytes() int64 { return 1 << 20 }
func (c modeConfig) GetSampleInterval() int { return 8 }
func (c modeConfig) GetDetectionsLogFile() string { return "" }
func (c modeConfig) GetMetricsPort() int { return 0 }
func (c modeConfig) GetWatchMaxWorkers() int { return 2 }
func (c modeConfig) GetModeMaxShutdownTime() int { return 1 }
func (c modeConfig) GetModelParameters() config.ModelParameters {
	return config.ModelParameters{Device: "cpu", ImageSize: 8, Threshold: 0.5}
}

func newServices(t *testing.T, ledgerSvc ledger.IService) (pipeline.ServicesFactory, modeConfig) {
	cfg := modeConfig{folder: t.TempDir()}
	return pipeline.ServicesFactory{
		CfgSvc:     cfg,
		DataSvc:    data.NewFilesDB(cfg),
		LedgerSvc:  ledgerSvc,
		WebhookSvc: webhook.NewFake(nil),
		NewInferenceSvc: func() (inference.IService, error) {
			return inference.NewFake(func(int) (float32, error) { return 0, nil }), nil
		},
	}, cfg
}

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func TestRegisterThenVerify(t *testing.T) {
	svcs, _ := newServices(t, ledger.NewFake(nil))
	path := writeFile(t, "speech.mp4", []byte("authentic footage"))
	hash, err := pipeline.ContentHash(path)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	require.NoError(t, Register(context.Background(), svcs, Request{Path: path, Description: "official", Out: out}, nil))
	assert.Contains(t, out.String(), hash)
	assert.Contains(t, out.String(), "success")

	out.Reset()
	require.NoError(t, Verify(context.Background(), svcs, Request{Path: path, JSON: true, Out: out}, nil))

	var record model.LedgerRecord
	require.NoError(t, json.Unmarshal(out.Bytes(), &record))
	assert.True(t, record.Registered)
	assert.Equal(t, "official", record.Description)

	out.Reset()
	require.NoError(t, Count(context.Background(), svcs, Request{Out: out}, nil))
	assert.Equal(t, "1 registered videos\n", out.String())
}

func TestRegisterTwiceIsRefused(t *testing.T) {
	svcs, _ := newServices(t, ledger.NewFake(nil))
	path := writeFile(t, "clip.mp4", []byte("x"))

	require.NoError(t, Register(context.Background(), svcs, Request{Path: path, Out: &bytes.Buffer{}}, nil))

	out := &bytes.Buffer{}
	err := Register(context.Background(), svcs, Request{Path: path, Out: out}, nil)
	assert.ErrorIs(t, err, ledger.ErrAlreadyRegistered)
	assert.Contains(t, out.String(), "already registered")
}

func TestVerifyUnknownAndExplicitHash(t *testing.T) {
	svcs, _ := newServices(t, ledger.NewFake(nil))

	out := &bytes.Buffer{}
	hash := strings.Repeat("ab", 32)
	require.NoError(t, Verify(context.Background(), svcs, Request{Hash: hash, Out: out}, nil))
	assert.Contains(t, out.String(), "not registered")
}

func TestVerifyLedgerOutage(t *testing.T) {
	svcs, _ := newServices(t, ledger.NewFake(errors.New("rpc down")))

	out := &bytes.Buffer{}
	err := Verify(context.Background(), svcs, Request{Path: writeFile(t, "a.mp4", []byte("x")), Out: out}, nil)
	assert.Error(t, err)
	assert.Contains(t, out.String(), "rpc down")
}

func TestDetectReportsModelLoadFailure(t *testing.T) {
	svcs, _ := newServices(t, ledger.NewFake(nil))
	svcs.NewInferenceSvc = func() (inference.IService, error) {
		return nil, inference.ErrModelLoad
	}

	out := &bytes.Buffer{}
	err := Detect(context.Background(), svcs, Request{Path: "whatever.mp4", Out: out}, nil)
	assert.ErrorIs(t, err, pipeline.ErrModelLoad)
	assert.Contains(t, out.String(), pipeline.Reason(pipeline.ErrModelLoad))
}

func TestDetectMissingFileJSON(t *testing.T) {
	svcs, _ := newServices(t, ledger.NewFake(nil))

	out := &bytes.Buffer{}
	err := Detect(context.Background(), svcs, Request{Path: filepath.Join(t.TempDir(), "gone.mp4"), JSON: true, Out: out}, nil)
	assert.ErrorIs(t, err, pipeline.ErrUnreadableVideo)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &payload))
	assert.Equal(t, pipeline.Reason(pipeline.ErrUnreadableVideo), payload["reason"])
}

func TestHistory(t *testing.T) {
	svcs, _ := newServices(t, ledger.NewFake(nil))

	now := time.Now()
	for i, name := range []string{"old.mp4", "mid.mp4", "new.mp4"} {
		require.NoError(t, svcs.DataSvc.NewAnalysis(model.VideoAnalysis{
			ID:         name,
			Filename:   name,
			Hash:       strings.Repeat(string(rune('a'+i)), 64),
			AnalyzedAt: now.Add(time.Duration(i) * time.Minute),
			Result:     model.DetectionResult{IsFake: i == 1, FrameCount: 3},
		}))
	}

	out := &bytes.Buffer{}
	require.NoError(t, History(context.Background(), svcs, Request{Limit: 2, Out: out}, nil))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "new.mp4")
	assert.Contains(t, lines[1], "FAKE")

	out.Reset()
	require.NoError(t, History(context.Background(), svcs, Request{Hash: strings.Repeat("a", 64), JSON: true, Out: out}, nil))
	var analyses []model.VideoAnalysis
	require.NoError(t, json.Unmarshal(out.Bytes(), &analyses))
	require.Len(t, analyses, 1)
	assert.Equal(t, "old.mp4", analyses[0].ID)

	out.Reset()
	err := History(context.Background(), svcs, Request{Hash: strings.Repeat("f", 64), Out: out}, nil)
	assert.ErrorIs(t, err, data.ErrNotFound)
}

func errorsFileContains(cfg modeConfig, needle string) bool {
	b, err := os.ReadFile(filepath.Join(cfg.folder, "errors.json"))
	return err == nil && strings.Contains(string(b), needle)
}

type closeTracker struct {
	inference.IService
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return c.IService.Close()
}

type countingInbox struct {
	inbox.IService
	subscribes int
	closes     int
}

func (c *countingInbox) Subscribe() (<-chan []model.Upload, error) {
	c.subscribes++
	return c.IService.Subscribe()
}

func (c *countingInbox) Close() error {
	c.closes++
	return c.IService.Close()
}

func TestWatchFailsWhenAnyClassifierCannotLoad(t *testing.T) {
	svcs, cfg := newServices(t, ledger.NewFake(nil))

	first := &closeTracker{IService: inference.NewFake(func(int) (float32, error) { return 0, nil })}
	loads := 0
	svcs.NewInferenceSvc = func() (inference.IService, error) {
		loads++
		if loads == 1 {
			return first, nil
		}
		return nil, errors.New("weights corrupted")
	}

	canx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inboxSvc := &countingInbox{IService: inbox.NewTimed(canx, cfg, pipeline.IsAllowedVideo)}
	svcs.InboxSvc = inboxSvc

	done := make(chan error, 1)
	go func() {
		done <- Watch(canx, svcs, Request{}, pipeline.SimpleAlerter)
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, inference.ErrModelLoad)
		assert.Contains(t, err.Error(), "weights corrupted")
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not fail on classifier load")
	}

	assert.Equal(t, 2, loads)
	assert.True(t, first.closed)
	assert.Equal(t, 0, inboxSvc.subscribes)
	assert.Equal(t, 1, inboxSvc.closes)
}

func TestWatchKeepsModelLoadSentinel(t *testing.T) {
	svcs, cfg := newServices(t, ledger.NewFake(nil))
	svcs.NewInferenceSvc = func() (inference.IService, error) {
		return nil, inference.ErrModelLoad
	}

	canx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inboxSvc := &countingInbox{IService: inbox.NewTimed(canx, cfg, pipeline.IsAllowedVideo)}
	svcs.InboxSvc = inboxSvc

	err := Watch(canx, svcs, Request{}, pipeline.SimpleAlerter)
	assert.ErrorIs(t, err, inference.ErrModelLoad)
	assert.Equal(t, 0, inboxSvc.subscribes)
}

func TestWatchScreensPublishedUploads(t *testing.T) {
	svcs, cfg := newServices(t, ledger.NewFake(nil))

	canx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inboxSvc := inbox.NewTimed(canx, cfg, pipeline.IsAllowedVideo)
	svcs.InboxSvc = inboxSvc

	done := make(chan error, 1)
	go func() {
		done <- Watch(canx, svcs, Request{}, pipeline.SimpleAlerter)
	}()

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.ActiveWorkers) == 2
	}, 3*time.Second, 20*time.Millisecond)

	// not a decodable video, so the worker reports a screening error
	path := writeFile(t, "garbage.mp4", []byte("definitely not a video container"))
	require.NoError(t, inboxSvc.Publish([]model.Upload{{Path: path, Filename: "garbage.mp4"}}))

	require.Eventually(t, func() bool {
		return errorsFileContains(cfg, "error screening video: garbage.mp4")
	}, 5*time.Second, 20*time.Millisecond)
	assert.True(t, errorsFileContains(cfg, "could not be opened as a video"))

	cancel()
	<-done
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.ActiveWorkers) == 0
	}, 3*time.Second, 20*time.Millisecond)

	b, err := os.ReadFile(filepath.Join(cfg.folder, "worker-stats.json"))
	require.NoError(t, err)
	var stats []model.WorkerStats
	require.NoError(t, json.Unmarshal(b, &stats))
	total := 0
	for _, s := range stats {
		total += s.Errors
	}
	assert.Equal(t, 1, total)
}

func TestVerifyUppercaseHashFindsRegisteredVideo(t *testing.T) {
	svcs, _ := newServices(t, ledger.NewFake(nil))
	path := writeFile(t, "speech.mp4", []byte("authentic footage"))
	hash, err := pipeline.ContentHash(path)
	require.NoError(t, err)

	require.NoError(t, Register(context.Background(), svcs, Request{Path: path, Description: "official", Out: &bytes.Buffer{}}, nil))

	out := &bytes.Buffer{}
	require.NoError(t, Verify(context.Background(), svcs, Request{Hash: strings.ToUpper(hash), JSON: true, Out: out}, nil))

	var record model.LedgerRecord
	require.NoError(t, json.Unmarshal(out.Bytes(), &record))
	assert.True(t, record.Registered)
	assert.Equal(t, hash, record.Hash)
}
