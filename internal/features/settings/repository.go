package settings

import (
	"context"
	"errors"

	"apex-dashboard/internal/config"
	"apex-dashboard/internal/database"
)

// SettingsRepository reads and writes the raw config entry.
type SettingsRepository interface {
	// Get returns nil, nil when nothing has been stored yet.
	Get(ctx context.Context) ([]byte, error)
	Put(ctx context.Context, raw []byte) error
}

type SettingsRepositoryImpl struct {
	Store database.KVStore
	Key   string
}

func NewSettingsRepository(store database.KVStore, cfg *config.Config) SettingsRepository {
	return &SettingsRepositoryImpl{
		Store: store,
		Key:   cfg.ConfigKey,
	}
}

func (r *SettingsRepositoryImpl) Get(ctx context.Context) ([]byte, error) {
	raw, err := r.Store.Get(ctx, r.Key)
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return raw, nil
}

func (r *SettingsRepositoryImpl) Put(ctx context.Context, raw []byte) error {
	return r.Store.Set(ctx, r.Key, raw)
}
