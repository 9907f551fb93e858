package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"golang.org/x/xerrors"
)

const hashChunkSize = 64 * 1024

// ContentHash returns the lowercase hex SHA-256 of the file's bytes. It is
// the file's identity for ledger lookups and does not depend on its name.
func ContentHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", xerrors.Errorf("hash %s: %v: %w", path, err, ErrUnreadableVideo)
	}
	defer f.Close()

	return HashReader(f)
}

func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
