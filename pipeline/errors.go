package pipeline

import (
	"errors"

	"github.com/khaledhikmat/dfd-go/service/inference"
)

var (
	ErrUnreadableVideo    = errors.New("video file is unreadable")
	ErrUnsupportedCodec   = errors.New("video could not be decoded")
	ErrInsufficientFrames = errors.New("no frames were sampled")
	ErrUnsupportedFormat  = errors.New("unsupported video format")
	ErrFileTooLarge       = errors.New("video file is too large")
	ErrSamplerConsumed    = errors.New("frame sampler already consumed")

	ErrModelLoad = inference.ErrModelLoad
	ErrInference = inference.ErrInference
)

// Reason maps a pipeline failure to the message shown to the person who
// uploaded the video. Each failure class gets its own wording.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedFormat):
		return "Invalid file type. Allowed: " + allowedExtensionList()
	case errors.Is(err, ErrFileTooLarge):
		return "The video exceeds the maximum upload size."
	case errors.Is(err, ErrUnreadableVideo):
		return "The file could not be opened as a video. Check that it exists and is a valid video file."
	case errors.Is(err, ErrUnsupportedCodec):
		return "The video could not be decoded. The codec may be unsupported or the file corrupt."
	case errors.Is(err, ErrInsufficientFrames):
		return "No frames were processed. Lower the sampling interval or check the video."
	case errors.Is(err, ErrModelLoad):
		return "The detection model is not available."
	case errors.Is(err, ErrInference):
		return "Detection failed while scoring frames."
	default:
		return "Detection error: " + err.Error()
	}
}
