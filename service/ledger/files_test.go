package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/khaledhikmat/dfd-go/service/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledgerConfig struct {
	config.IService
	folder string
}

func (c ledgerConfig) GetDataFolder() string {
	return c.folder
}

func (c ledgerConfig) GetLedgerUploader() string {
	return "0xuploader"
}

var testHash = strings.Repeat("ab", 32)

func TestFilesLedgerRegisterThenLookup(t *testing.T) {
	ctx := context.Background()
	cfg := ledgerConfig{folder: t.TempDir()}
	svc := NewFiles(cfg)

	before, err := svc.Lookup(ctx, testHash)
	require.NoError(t, err)
	assert.False(t, before.Registered)

	receipt, err := svc.Register(ctx, testHash, "press footage")
	require.NoError(t, err)
	assert.Equal(t, "success", receipt.Status)
	assert.True(t, strings.HasPrefix(receipt.TxID, "0x"))
	assert.Len(t, receipt.TxID, 66)
	assert.Equal(t, int64(1), receipt.BlockNumber)

	// a second instance sees the persisted entry
	after, err := NewFiles(cfg).Lookup(ctx, testHash)
	require.NoError(t, err)
	assert.True(t, after.Registered)
	assert.Equal(t, "press footage", after.Description)
	assert.Equal(t, "0xuploader", after.Uploader)
	assert.False(t, after.RegisteredAt.IsZero())

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFilesLedgerRefusesDuplicates(t *testing.T) {
	ctx := context.Background()
	svc := NewFiles(ledgerConfig{folder: t.TempDir()})

	_, err := svc.Register(ctx, testHash, "first")
	require.NoError(t, err)

	_, err = svc.Register(ctx, testHash, "second")
	assert.True(t, errors.Is(err, ErrAlreadyRegistered))

	record, err := svc.Lookup(ctx, testHash)
	require.NoError(t, err)
	assert.Equal(t, "first", record.Description)
}

func TestRegisterRejectsMalformedHash(t *testing.T) {
	svc := NewFiles(ledgerConfig{folder: t.TempDir()})

	for _, hash := range []string{"", "abc", strings.Repeat("zz", 32)} {
		_, err := svc.Register(context.Background(), hash, "x")
		assert.True(t, errors.Is(err, ErrInvalidHash), hash)
	}
}

func TestFakeLedger(t *testing.T) {
	ctx := context.Background()

	down := NewFake(errors.New("chain unreachable"))
	_, err := down.Lookup(ctx, testHash)
	assert.Error(t, err)

	seeded := NewFake(nil)
	_, err = seeded.Register(ctx, testHash, "demo")
	require.NoError(t, err)
	_, err = seeded.Register(ctx, testHash, "demo")
	assert.True(t, errors.Is(err, ErrAlreadyRegistered))
}

func TestLedgerHashesAreCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	upper := strings.ToUpper(testHash)

	for name, svc := range map[string]IService{
		"files": NewFiles(ledgerConfig{folder: t.TempDir()}),
		"fake":  NewFake(nil),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(ctx, testHash, "lowercase")
			require.NoError(t, err)

			record, err := svc.Lookup(ctx, upper)
			require.NoError(t, err)
			assert.True(t, record.Registered)
			assert.Equal(t, testHash, record.Hash)

			_, err = svc.Register(ctx, " "+upper, "again")
			assert.True(t, errors.Is(err, ErrAlreadyRegistered))
		})
	}
}
