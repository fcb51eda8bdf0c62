package commands

import (
	"context"
	"testing"

	"apex-dashboard/internal/config"
	"apex-dashboard/internal/database"

	"go.uber.org/zap"
)

type closingStore struct {
	database.KVStore
	closed int
}

func (s *closingStore) Close(ctx context.Context) error {
	s.closed++
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		StoreDriver: "memory",
		ConfigKey:   "apex-dashboard-config",
		KeyStoreKey: "apex-dashboard-key",
		Columns:     12,
		RowHeight:   110,
		Gap:         16,
	}
}

func TestSessionCloseReleasesStore(t *testing.T) {
	kv := &closingStore{KVStore: database.NewMemoryStore()}
	s := newSession(context.Background(), testConfig(), zap.NewNop(), kv)
	if s.service.State().ActiveDashboardID != "personal" {
		t.Fatal("session did not load the default dashboard")
	}

	s.close(context.Background())
	if kv.closed != 1 {
		t.Errorf("store closed %d times, want 1", kv.closed)
	}
}

func TestSessionCloseWithoutConnection(t *testing.T) {
	s := newSession(context.Background(), testConfig(), zap.NewNop(), database.NewMemoryStore())
	s.close(context.Background())
}
