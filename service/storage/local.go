package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/khaledhikmat/dfd-go/service/config"
)

type localService struct {
	CfgSvc config.IService
}

func NewLocal(cfgsvc config.IService) IService {
	return &localService{
		CfgSvc: cfgsvc,
	}
}

// StoreFile copies the file into the archive folder as <key><ext>. The
// source is left in place.
func (svc *localService) StoreFile(ctx context.Context, fileName, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	folder := svc.CfgSvc.GetArchiveFolder()
	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", fmt.Errorf("create archive folder: %w", err)
	}

	src, err := os.Open(fileName)
	if err != nil {
		return "", err
	}
	defer src.Close()

	target := filepath.Join(folder, key+strings.ToLower(filepath.Ext(fileName)))
	dst, err := os.Create(target)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(target)
		return "", fmt.Errorf("copy %s: %w", fileName, err)
	}

	if err := dst.Close(); err != nil {
		return "", err
	}

	return "file://" + target, nil
}
