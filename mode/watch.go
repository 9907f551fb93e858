package mode

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/pipeline"
	"github.com/khaledhikmat/dfd-go/service/inference"
	"github.com/khaledhikmat/dfd-go/service/lgr"
	"github.com/khaledhikmat/dfd-go/service/metrics"
	"golang.org/x/xerrors"
)

const (
	// Uploads beyond this many waiting for a worker are dropped
	watchQueueSize = 100
	statsPeriod    = time.Minute
)

// Watch screens every video that lands in the inbox until cancelled. Each
// worker owns its own classifier handle. All handles are loaded before the
// inbox is subscribed; if any fails to load, nothing is consumed and the
// error wraps ErrModelLoad.
func Watch(canxCtx context.Context, svcs pipeline.ServicesFactory, req Request, alerter pipeline.Alerter) error {
	defer svcs.InboxSvc.Close()

	handles, err := loadClassifiers(svcs, svcs.CfgSvc.GetWatchMaxWorkers())
	if err != nil {
		lgr.Logger.Error("watcher could not load classifiers", slog.Any("error", err))
		return err
	}

	uploadStream, err := svcs.InboxSvc.Subscribe()
	if err != nil {
		for _, h := range handles {
			h.Close()
		}
		return err
	}

	// Create an error stream
	errorStream := make(chan interface{})

	// Create watcher stats stream
	statsStream := make(chan interface{})

	// Alerter functions must comply with Alerter signature (check pipeline/type.go)
	alertStream := alerter(canxCtx, svcs, errorStream, statsStream)

	if port := svcs.CfgSvc.GetMetricsPort(); port > 0 {
		srv := metrics.StartServer(port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	jobs := make(chan model.Upload, watchQueueSize)
	for i, infer := range handles {
		go worker(canxCtx, i, svcs, infer, req, jobs, alertStream, errorStream, statsStream)
	}

	var watcherStartTime = time.Now().Unix()
	watcherStats := model.WatcherStats{}

	// Wait for cancellation, timeout or uploads
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"watcher context cancelled",
			)
			goto resume

		case uploads := <-uploadStream:
			for _, upload := range uploads {
				watcherStats.TotalUploads++

				select {
				case jobs <- upload:
					watcherStats.TotalDispatched++
				default:
					watcherStats.TotalDropped++
					procError(svcs.DataSvc, model.GenError("watcher",
						nil,
						map[string]interface{}{"path": upload.Path},
						"screening queue is full. dropping upload: %s",
						upload.Filename))
				}
			}

			lgr.Logger.Debug(
				"watcher dispatched uploads",
				slog.Int("uploads", len(uploads)),
				slog.Int("queued", len(jobs)),
			)

		case <-time.After(statsPeriod):
			watcherStats.TotalRunningTime = time.Now().Unix() - watcherStartTime
			watcherStats.Timestamp = time.Now().Unix()
			procStats(svcs.DataSvc, watcherStats)

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}

	// Wait in a non-blocking way for the shutdown period so that workers can
	// report their final stats and errors
resume:
	lgr.Logger.Info(
		"watcher is waiting for all go routines to exit",
	)

	watcherStats.TotalRunningTime = time.Now().Unix() - watcherStartTime
	watcherStats.Timestamp = time.Now().Unix()
	procStats(svcs.DataSvc, watcherStats)

	timer := time.NewTimer(time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime()) * time.Second)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			lgr.Logger.Info(
				"watcher shutdown waiting period expired. Exiting now",
				slog.Duration("period", time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime())*time.Second),
			)

			return nil

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}
}

func worker(canxCtx context.Context,
	id int,
	svcs pipeline.ServicesFactory,
	infer inference.IService,
	req Request,
	jobs <-chan model.Upload,
	alertStream chan pipeline.AlertData,
	errorStream chan interface{},
	statsStream chan interface{}) {
	defer infer.Close()

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	startTime := time.Now()
	totalProcTime := 0.0
	stats := model.WorkerStats{
		Name:   "watchWorker",
		Worker: id,
	}

	defer func() {
		stats.Uptime = int64(time.Since(startTime).Seconds())
		stats.Timestamp = time.Now().Unix()
		statsStream <- stats
	}()

	lgr.Logger.Info("watch worker started",
		slog.Int("worker", id),
		slog.String("device", infer.Device()),
	)

	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"watch worker context cancelled",
				slog.Int("worker", id),
			)
			return

		case upload := <-jobs:
			procStart := time.Now()
			stats.Videos++

			analysis, err := pipeline.Analyze(canxCtx, svcs, infer, upload, pipeline.WithSampleInterval(req.Interval))
			totalProcTime += time.Since(procStart).Seconds()
			stats.AvgProcTime = totalProcTime / float64(stats.Videos)

			if err != nil {
				stats.Errors++
				errorStream <- model.GenError("watch_worker",
					err,
					map[string]interface{}{
						"worker": id,
						"path":   upload.Path,
						"reason": pipeline.Reason(err),
					},
					"error screening video: %s",
					upload.Filename)
				continue
			}

			stats.Frames += analysis.Result.FrameCount
			if !analysis.Result.IsFake {
				continue
			}

			stats.Fakes++
			select {
			case <-canxCtx.Done():
				return
			case alertStream <- pipeline.AlertData{
				Analysis:  analysis,
				Timestamp: time.Now(),
			}:
			}
		}
	}
}

// loadClassifiers loads one classifier per worker. On failure the handles
// already loaded are closed.
func loadClassifiers(svcs pipeline.ServicesFactory, n int) ([]inference.IService, error) {
	handles := make([]inference.IService, 0, n)
	for i := 0; i < n; i++ {
		infer, err := svcs.NewInferenceSvc()
		if err != nil {
			for _, h := range handles {
				h.Close()
			}
			if errors.Is(err, inference.ErrModelLoad) {
				return nil, xerrors.Errorf("worker %d: %w", i, err)
			}
			return nil, xerrors.Errorf("worker %d: %v: %w", i, err, inference.ErrModelLoad)
		}
		handles = append(handles, infer)
	}
	return handles, nil
}
