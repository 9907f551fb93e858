package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/config"
	"github.com/khaledhikmat/dfd-go/service/inference"
	"github.com/khaledhikmat/dfd-go/service/lgr"
	"github.com/khaledhikmat/dfd-go/service/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/xerrors"
)

// Detector runs the frame-sampling classification pipeline over video files.
// It holds a classifier handle and is therefore not safe for concurrent use.
type Detector struct {
	open      Opener
	infer     inference.IService
	prep      Preprocessor
	interval  int
	threshold float64
}

type Option func(*Detector)

// WithSampleInterval overrides the configured sampling interval. Values
// below 1 are ignored.
func WithSampleInterval(n int) Option {
	return func(d *Detector) {
		if n >= 1 {
			d.interval = n
		}
	}
}

func WithOpener(open Opener) Option {
	return func(d *Detector) {
		d.open = open
	}
}

func NewDetector(cfgSvc config.IService, infer inference.IService, opts ...Option) *Detector {
	params := cfgSvc.GetModelParameters()

	d := &Detector{
		open:      OpenVideo,
		infer:     infer,
		prep:      NewPreprocessor(params.ImageSize),
		interval:  cfgSvc.GetSampleInterval(),
		threshold: params.Threshold,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *Detector) Interval() int {
	return d.interval
}

// Detect scores every interval-th frame of the video at path and returns the
// mean fake probability. The decoder is closed on every return path.
func (d *Detector) Detect(ctx context.Context, path string) (model.DetectionResult, error) {
	tracer := otel.Tracer("pipeline")
	ctx, span := tracer.Start(ctx, "Detector.Detect", trace.WithAttributes(
		attribute.String("video.path", path),
		attribute.Int("sample.interval", d.interval),
	))
	defer span.End()

	result, err := d.detect(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.DetectionResult{}, err
	}

	span.SetAttributes(
		attribute.Int("frames.sampled", result.FrameCount),
		attribute.Float64("fake.probability", result.AverageFakeProbability),
	)
	return result, nil
}

func (d *Detector) detect(ctx context.Context, path string) (model.DetectionResult, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return model.DetectionResult{}, xerrors.Errorf("%s: %v: %w", path, err, ErrUnreadableVideo)
	}
	if !fi.Mode().IsRegular() || fi.Size() == 0 {
		return model.DetectionResult{}, xerrors.Errorf("%s is empty or not a regular file: %w", path, ErrUnreadableVideo)
	}

	tracer := otel.Tracer("pipeline")
	_, openSpan := tracer.Start(ctx, "open")
	dec, err := d.open(path)
	openSpan.End()
	if err != nil {
		if errors.Is(err, ErrUnreadableVideo) {
			return model.DetectionResult{}, err
		}
		return model.DetectionResult{}, xerrors.Errorf("%s: %v: %w", path, err, ErrUnreadableVideo)
	}
	defer dec.Close()

	sampler := NewFrameSampler(dec, d.prep, d.infer, d.interval)
	scores, err := d.sample(ctx, sampler)
	if err != nil {
		return model.DetectionResult{}, err
	}

	if sampler.Decoded() == 0 {
		return model.DetectionResult{}, xerrors.Errorf("%s: container claims %d frames but none decoded: %w", path, dec.TotalFrames(), ErrUnsupportedCodec)
	}

	if sampler.Decoded() < dec.TotalFrames() {
		lgr.Logger.Warn("decoder stopped before claimed frame count",
			slog.String("path", path),
			slog.Int("claimed", dec.TotalFrames()),
			slog.Int("decoded", sampler.Decoded()),
		)
	}

	_, aggSpan := tracer.Start(ctx, "aggregate")
	result, err := Aggregate(scores, d.threshold)
	aggSpan.End()
	if err != nil {
		return model.DetectionResult{}, xerrors.Errorf("%s: lower the sampling interval or check the video: %w", path, err)
	}

	lgr.Logger.Debug("video scored",
		slog.String("path", path),
		slog.Int("decoded", sampler.Decoded()),
		slog.Int("sampled", result.FrameCount),
		slog.Float64("avgFakeProbability", result.AverageFakeProbability),
		slog.Bool("isFake", result.IsFake),
	)

	return result, nil
}

func (d *Detector) sample(ctx context.Context, sampler *FrameSampler) ([]model.FrameScore, error) {
	ctx, span := otel.Tracer("pipeline").Start(ctx, "sample")
	start := time.Now()
	defer func() {
		span.SetAttributes(
			attribute.Int("frames.decoded", sampler.Decoded()),
			attribute.Int("frames.sampled", sampler.Sampled()),
		)
		span.End()

		metrics.FramesDecodedTotal.Add(float64(sampler.Decoded()))
		metrics.FramesSampledTotal.Add(float64(sampler.Sampled()))
		metrics.StageDuration.WithLabelValues("sample").Observe(time.Since(start).Seconds())
	}()

	scores := []model.FrameScore{}
	for score, err := range sampler.Scores(ctx) {
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		scores = append(scores, score)
	}

	return scores, nil
}
