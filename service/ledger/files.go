package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/config"
)

type filesLedger struct {
	CfgSvc config.IService
	mu     sync.Mutex
}

// NewFiles keeps the registry in ledger.json under the data folder. Entries
// are append-only, mirroring an on-chain registry.
func NewFiles(cfgSvc config.IService) IService {
	return &filesLedger{
		CfgSvc: cfgSvc,
	}
}

func (svc *filesLedger) Lookup(ctx context.Context, hash string) (model.LedgerRecord, error) {
	hash = normalizeHash(hash)
	if err := ctx.Err(); err != nil {
		return model.LedgerRecord{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	records, err := svc.load()
	if err != nil {
		return model.LedgerRecord{}, err
	}

	for _, r := range records {
		if r.Hash == hash {
			return r, nil
		}
	}

	return model.LedgerRecord{Hash: hash}, nil
}

func (svc *filesLedger) Register(ctx context.Context, hash, description string) (model.Receipt, error) {
	hash = normalizeHash(hash)
	if err := ctx.Err(); err != nil {
		return model.Receipt{}, err
	}
	if err := validateHash(hash); err != nil {
		return model.Receipt{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	records, err := svc.load()
	if err != nil {
		return model.Receipt{}, err
	}

	for _, r := range records {
		if r.Hash == hash {
			return model.Receipt{}, fmt.Errorf("%s: %w", hash, ErrAlreadyRegistered)
		}
	}

	now := time.Now().UTC()
	records = append(records, model.LedgerRecord{
		Hash:         hash,
		Registered:   true,
		Description:  description,
		Uploader:     svc.CfgSvc.GetLedgerUploader(),
		RegisteredAt: now,
	})

	if err := svc.save(records); err != nil {
		return model.Receipt{}, err
	}

	return newReceipt(hash, description, int64(len(records)), now), nil
}

func (svc *filesLedger) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	records, err := svc.load()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (svc *filesLedger) file() string {
	return filepath.Join(svc.CfgSvc.GetDataFolder(), "ledger.json")
}

func (svc *filesLedger) load() ([]model.LedgerRecord, error) {
	records := []model.LedgerRecord{}

	data, err := os.ReadFile(svc.file())
	if errors.Is(err, os.ErrNotExist) {
		return records, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("corrupt ledger file %s: %w", svc.file(), err)
	}
	return records, nil
}

func (svc *filesLedger) save(records []model.LedgerRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(svc.CfgSvc.GetDataFolder(), 0755); err != nil {
		return err
	}

	tmp := svc.file() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, svc.file())
}
