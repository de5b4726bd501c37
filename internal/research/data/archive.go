package data

import (
	"context"
	"fmt"

	"github.com/lk2023060901/market-research-backend/internal/pkg/minio"
	"github.com/lk2023060901/market-research-backend/internal/research/biz"
	"github.com/lk2023060901/market-research-backend/internal/research/types"
)

type objectStore interface {
	PutJSON(ctx context.Context, objectName string, v any) (int64, error)
	GetJSON(ctx context.Context, objectName string, v any) error
}

// Archive keeps full collections as JSON objects
type Archive struct {
	store objectStore
}

// NewArchive creates an archive backed by the minio bucket of client
func NewArchive(client *minio.Client) biz.Archive {
	return &Archive{store: client}
}

// Save writes c under key
func (a *Archive) Save(ctx context.Context, key string, c *types.Collection) error {
	if _, err := a.store.PutJSON(ctx, key, c); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Load reads the collection stored under key
func (a *Archive) Load(ctx context.Context, key string) (*types.Collection, error) {
	var c types.Collection
	if err := a.store.GetJSON(ctx, key, &c); err != nil {
		if minio.IsNotFound(err) {
			return nil, biz.ErrCollectionNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return &c, nil
}
