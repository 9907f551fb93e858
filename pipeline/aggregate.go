package pipeline

import (
	"github.com/khaledhikmat/dfd-go/model"
)

// DefaultThreshold is the probability above which a video is judged fake.
const DefaultThreshold = 0.5

// Aggregate reduces per-frame scores to a verdict using the arithmetic mean.
// The comparison against threshold is strict.
func Aggregate(scores []model.FrameScore, threshold float64) (model.DetectionResult, error) {
	if len(scores) == 0 {
		return model.DetectionResult{}, ErrInsufficientFrames
	}

	sum := 0.0
	for _, s := range scores {
		sum += s.Probability
	}
	avg := sum / float64(len(scores))

	return model.DetectionResult{
		AverageFakeProbability: avg,
		IsFake:                 avg > threshold,
		FrameCount:             len(scores),
	}, nil
}
