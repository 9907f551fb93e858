package webhook

import (
	"context"
	"sync"
)

// Recorder keeps every posted payload in memory.
type Recorder struct {
	mu       sync.Mutex
	Err      error
	payloads []map[string]interface{}
}

func NewFake(err error) *Recorder {
	return &Recorder{
		Err: err,
	}
}

func (svc *Recorder) Post(_ context.Context, payload map[string]interface{}) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.Err != nil {
		return svc.Err
	}
	svc.payloads = append(svc.payloads, payload)
	return nil
}

func (svc *Recorder) Payloads() []map[string]interface{} {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	out := make([]map[string]interface{}, len(svc.payloads))
	copy(out, svc.payloads)
	return out
}
