package inference

import (
	"errors"

	"gocv.io/x/gocv"
)

var (
	ErrModelLoad = errors.New("model could not be loaded")
	ErrInference = errors.New("inference failed")
)

// IService is a loaded binary classifier. Infer takes a preprocessed
// 1x3xHxW blob and returns the raw logit of the "fake" class.
// A handle is single-writer: gocv nets are not thread-safe, so each worker
// must load its own.
type IService interface {
	Infer(blob gocv.Mat) (float32, error)
	Device() string
	Close() error
}
