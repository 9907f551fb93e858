package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/khaledhikmat/dfd-go/model"
)

var (
	ErrAlreadyRegistered = errors.New("hash already registered")
	ErrInvalidHash       = errors.New("invalid content hash")
)

// IService is the registry of known-authentic content hashes. Contract
// semantics, signing and nonce handling belong to the implementation.
type IService interface {
	// Lookup never fails for an unknown hash; it returns Registered=false
	Lookup(ctx context.Context, hash string) (model.LedgerRecord, error)
	Register(ctx context.Context, hash, description string) (model.Receipt, error)
	Count(ctx context.Context) (int, error)
}

// normalizeHash folds a hex digest to the lowercase form ContentHash emits.
func normalizeHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}

func validateHash(hash string) error {
	if len(hash) != sha256.Size*2 {
		return fmt.Errorf("%q: %w", hash, ErrInvalidHash)
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return fmt.Errorf("%q: %w", hash, ErrInvalidHash)
	}
	return nil
}

func newReceipt(hash, description string, block int64, now time.Time) model.Receipt {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%d", hash, description, block, now.UnixNano())))
	return model.Receipt{
		TxID:        "0x" + hex.EncodeToString(sum[:]),
		Hash:        hash,
		BlockNumber: block,
		Status:      "success",
		Timestamp:   now,
	}
}
