package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/khaledhikmat/dfd-go/model"
)

type fakeLedger struct {
	mu      sync.Mutex
	records map[string]model.LedgerRecord
	lookupErr error
}

// NewFake returns an in-memory ledger. A non-nil lookupErr makes every
// Lookup fail, which is how an unreachable chain looks to callers.
func NewFake(lookupErr error, seed ...model.LedgerRecord) IService {
	svc := &fakeLedger{
		records:   map[string]model.LedgerRecord{},
		lookupErr: lookupErr,
	}
	for _, r := range seed {
		r.Hash = normalizeHash(r.Hash)
		r.Registered = true
		svc.records[r.Hash] = r
	}
	return svc
}

func (svc *fakeLedger) Lookup(_ context.Context, hash string) (model.LedgerRecord, error) {
	hash = normalizeHash(hash)
	if svc.lookupErr != nil {
		return model.LedgerRecord{}, svc.lookupErr
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	if r, ok := svc.records[hash]; ok {
		return r, nil
	}
	return model.LedgerRecord{Hash: hash}, nil
}

func (svc *fakeLedger) Register(_ context.Context, hash, description string) (model.Receipt, error) {
	hash = normalizeHash(hash)
	if err := validateHash(hash); err != nil {
		return model.Receipt{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	if _, ok := svc.records[hash]; ok {
		return model.Receipt{}, fmt.Errorf("%s: %w", hash, ErrAlreadyRegistered)
	}

	now := time.Now().UTC()
	svc.records[hash] = model.LedgerRecord{
		Hash:         hash,
		Registered:   true,
		Description:  description,
		Uploader:     "fake",
		RegisteredAt: now,
	}
	return newReceipt(hash, description, int64(len(svc.records)), now), nil
}

func (svc *fakeLedger) Count(_ context.Context) (int, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return len(svc.records), nil
}
