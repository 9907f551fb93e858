package storage

import "context"

// IService archives a screened video under key and returns where it landed.
type IService interface {
	StoreFile(ctx context.Context, fileName, key string) (string, error)
}
