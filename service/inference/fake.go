package inference

import (
	"sync"

	"gocv.io/x/gocv"
)

// LogitFunc returns the logit for the n-th call (0-based) to Infer.
type LogitFunc func(call int) (float32, error)

type fakeService struct {
	mu     sync.Mutex
	fn     LogitFunc
	calls  int
	closed bool
}

func NewFake(fn LogitFunc) IService {
	return &fakeService{fn: fn}
}

func (svc *fakeService) Infer(_ gocv.Mat) (float32, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	call := svc.calls
	svc.calls++
	return svc.fn(call)
}

func (svc *fakeService) Device() string {
	return "fake"
}

func (svc *fakeService) Close() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.closed = true
	return nil
}
