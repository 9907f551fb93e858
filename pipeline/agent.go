package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/inference"
	"github.com/khaledhikmat/dfd-go/service/lgr"
	"github.com/khaledhikmat/dfd-go/service/metrics"
	"github.com/natefinch/lumberjack"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var (
	detectionLogger     *lumberjack.Logger
	detectionLoggerOnce sync.Once
)

// Analyze screens one uploaded video: validate, hash, detect, consult the
// ledger, archive when a storage service is set and persist the outcome.
// The detector itself never touches the ledger; ledger failures are recorded
// on the analysis and do not fail it.
func Analyze(ctx context.Context, svcs ServicesFactory, infer inference.IService, upload model.Upload, opts ...Option) (model.VideoAnalysis, error) {
	tracer := otel.Tracer("pipeline")
	ctx, span := tracer.Start(ctx, "Analyze")
	defer span.End()

	if upload.Filename == "" {
		upload.Filename = filepath.Base(upload.Path)
	}

	analysis := model.VideoAnalysis{
		ID:         uuid.NewString(),
		Filename:   upload.Filename,
		Path:       upload.Path,
		AnalyzedAt: time.Now().UTC(),
	}
	span.SetAttributes(attribute.String("analysis.id", analysis.ID))

	if err := ValidateUpload(upload.Path, svcs.CfgSvc.GetMaxUploadBytes()); err != nil {
		metrics.VideosScreenedTotal.WithLabelValues("rejected").Inc()
		return analysis, err
	}

	hashStart := time.Now()
	_, hashSpan := tracer.Start(ctx, "hash")
	hash, err := ContentHash(upload.Path)
	hashSpan.End()
	if err != nil {
		metrics.VideosScreenedTotal.WithLabelValues("error").Inc()
		return analysis, err
	}
	metrics.StageDuration.WithLabelValues("hash").Observe(time.Since(hashStart).Seconds())
	analysis.Hash = hash
	span.SetAttributes(attribute.String("video.hash", hash))

	detector := NewDetector(svcs.CfgSvc, infer, opts...)
	analysis.Interval = detector.Interval()

	result, err := detector.Detect(ctx, upload.Path)
	if err != nil {
		metrics.VideosScreenedTotal.WithLabelValues("error").Inc()
		return analysis, err
	}
	analysis.Result = result
	analysis.FakePercent = math.Round(result.AverageFakeProbability*10000) / 100

	ledgerStart := time.Now()
	record, err := svcs.LedgerSvc.Lookup(ctx, hash)
	if err != nil {
		lgr.Logger.Warn("ledger lookup failed",
			slog.String("hash", hash),
			slog.Any("error", err),
		)
		analysis.LedgerError = err.Error()
		metrics.LedgerRequestsTotal.WithLabelValues("lookup", "error").Inc()
	} else {
		analysis.Ledger = record
		metrics.LedgerRequestsTotal.WithLabelValues("lookup", "ok").Inc()
	}
	metrics.StageDuration.WithLabelValues("ledger").Observe(time.Since(ledgerStart).Seconds())

	if svcs.StorageSvc != nil {
		url, err := svcs.StorageSvc.StoreFile(ctx, upload.Path, analysis.ID)
		if err != nil {
			lgr.Logger.Error("failed to archive video",
				slog.String("id", analysis.ID),
				slog.String("path", upload.Path),
				slog.Any("error", err),
			)
		} else {
			analysis.ArchiveURL = url
		}
	}

	if err := svcs.DataSvc.NewAnalysis(analysis); err != nil {
		lgr.Logger.Error("failed to store analysis",
			slog.String("id", analysis.ID),
			slog.Any("error", err),
		)
	}

	logDetection(svcs.CfgSvc.GetDetectionsLogFile(), analysis)

	verdict := "real"
	if result.IsFake {
		verdict = "fake"
	}
	metrics.VideosScreenedTotal.WithLabelValues(verdict).Inc()

	lgr.Logger.Info("video screened",
		slog.String("id", analysis.ID),
		slog.String("file", analysis.Filename),
		slog.String("hash", hash),
		slog.String("verdict", verdict),
		slog.Float64("fakePercent", analysis.FakePercent),
		slog.Int("frames", result.FrameCount),
		slog.Bool("registered", analysis.Ledger.Registered),
	)

	return analysis, nil
}

func logDetection(filename string, analysis model.VideoAnalysis) {
	if filename == "" {
		return
	}

	detectionLoggerOnce.Do(func() {
		detectionLogger = &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     7,    // days
			Compress:   true, // compress old logs
		}
	})

	jsonData, err := json.Marshal(analysis)
	if err != nil {
		lgr.Logger.Error("error marshaling detection", slog.Any("error", err))
		return
	}

	if _, err := detectionLogger.Write(append(jsonData, '\n')); err != nil {
		lgr.Logger.Error("error writing to detection log file", slog.Any("error", err))
	}
}
