package pipeline

import (
	"context"
	"iter"
	"math"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/inference"
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

// CanSkipFrame reports whether the frame at index is decoded but not scored.
// Selection is by position in the stream, never by timestamp.
func CanSkipFrame(index, interval int) bool {
	return index%interval != 0
}

// FrameSampler walks a decoder from frame 0 and scores every interval-th
// frame. Skipped frames are still decoded. A sampler can be consumed once.
type FrameSampler struct {
	dec      Decoder
	prep     Preprocessor
	infer    inference.IService
	interval int

	consumed bool
	decoded  int
	sampled  int
}

func NewFrameSampler(dec Decoder, prep Preprocessor, infer inference.IService, interval int) *FrameSampler {
	if interval < 1 {
		interval = 1
	}

	return &FrameSampler{
		dec:      dec,
		prep:     prep,
		infer:    infer,
		interval: interval,
	}
}

// Decoded is the number of frames read from the decoder so far.
func (s *FrameSampler) Decoded() int {
	return s.decoded
}

// Sampled is the number of frames scored so far.
func (s *FrameSampler) Sampled() int {
	return s.sampled
}

// Scores lazily yields one score per selected frame. Iteration ends at the
// claimed frame count or when the decoder stops delivering frames, whichever
// comes first; a decoder that claims no frame count is read until it stops.
// The first error is yielded once and ends the sequence.
func (s *FrameSampler) Scores(ctx context.Context) iter.Seq2[model.FrameScore, error] {
	return func(yield func(model.FrameScore, error) bool) {
		if s.consumed {
			yield(model.FrameScore{}, ErrSamplerConsumed)
			return
		}
		s.consumed = true

		img := gocv.NewMat()
		defer img.Close() // Crucial to close the image to avoid memory leaks

		total := s.dec.TotalFrames()
		for i := 0; total <= 0 || i < total; i++ {
			if err := ctx.Err(); err != nil {
				yield(model.FrameScore{}, err)
				return
			}

			if ok := s.dec.Read(&img); !ok || img.Empty() {
				return
			}
			s.decoded++

			if CanSkipFrame(i, s.interval) {
				continue
			}

			prob, err := s.score(img)
			if err != nil {
				yield(model.FrameScore{}, xerrors.Errorf("frame %d: %w", i, err))
				return
			}
			s.sampled++

			if !yield(model.FrameScore{Index: i, Probability: prob}, nil) {
				return
			}
		}
	}
}

func (s *FrameSampler) score(frame gocv.Mat) (float64, error) {
	blob, err := s.prep.Blob(frame)
	if err != nil {
		return 0, err
	}
	defer blob.Close()

	logit, err := s.infer.Infer(blob)
	if err != nil {
		return 0, err
	}

	return sigmoid(float64(logit)), nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
