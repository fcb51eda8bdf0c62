package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"apex-dashboard/internal/common/models"
	"apex-dashboard/internal/config"
	"apex-dashboard/internal/database"
	"apex-dashboard/internal/features/vault"

	"go.uber.org/zap"
)

// countingRepository records every Put so tests can assert write counts.
type countingRepository struct {
	SettingsRepository
	puts int
}

func (r *countingRepository) Put(ctx context.Context, raw []byte) error {
	r.puts++
	return r.SettingsRepository.Put(ctx, raw)
}

type fixture struct {
	kv    database.KVStore
	repo  *countingRepository
	store *ConfigStoreImpl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		StoreDriver: "memory",
		ConfigKey:   "apex-dashboard-config",
		KeyStoreKey: "apex-dashboard-key",
	}
	kv := database.NewMemoryStore()
	repo := &countingRepository{SettingsRepository: NewSettingsRepository(kv, cfg)}
	v := vault.NewVaultService(kv, cfg, zap.NewNop())
	store := NewConfigStore(repo, v, cfg, zap.NewNop()).(*ConfigStoreImpl)
	return &fixture{kv: kv, repo: repo, store: store}
}

func (f *fixture) raw(t *testing.T) []byte {
	t.Helper()
	raw, err := f.kv.Get(context.Background(), "apex-dashboard-config")
	if err != nil {
		t.Fatalf("reading stored config: %v", err)
	}
	return raw
}

func sampleConfig() *models.Config {
	cfg := models.DefaultConfig()
	cfg.Normalize()
	cfg.DataSources = map[models.WidgetType]models.ProviderConfig{
		models.WidgetWeather: {"refreshMs": float64(5000), "city": "Lisbon"},
	}
	return cfg
}

func TestLoadWithoutStoredConfigReturnsDefaults(t *testing.T) {
	f := newFixture(t)

	cfg, err := f.store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	personal, ok := cfg.Dashboards["personal"]
	if !ok {
		t.Fatal("default config has no personal dashboard")
	}
	if len(personal.Widgets) != 4 {
		t.Errorf("personal has %d widgets, want 4", len(personal.Widgets))
	}

	// Mutating the result must not leak into later defaults.
	personal.Widgets[0].Position.X = 7
	again, _ := f.store.Load(context.Background())
	if again.Dashboards["personal"].Widgets[0].Position.X != 1 {
		t.Error("Load returned a shared default instance")
	}
	if f.repo.puts != 0 {
		t.Errorf("Load wrote %d times, want 0", f.repo.puts)
	}
}

func TestSaveLoadPlain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfg := sampleConfig()

	if err := f.store.Save(ctx, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !bytes.Contains(f.raw(t), []byte(`"Command Calendar"`)) {
		t.Error("plain save should store readable JSON")
	}

	loaded, err := f.store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, loaded) {
		t.Errorf("loaded config differs\n got: %+v\nwant: %+v", loaded, cfg)
	}
}

func TestSaveLoadEncrypted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfg := sampleConfig()
	cfg.EncryptionEnabled = true

	if err := f.store.Save(ctx, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	raw := f.raw(t)
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("stored document is not an envelope: %v", err)
	}
	if !env.Encrypted || env.Payload.IV == "" || env.Payload.Ciphertext == "" {
		t.Errorf("unexpected envelope: %s", raw)
	}
	if bytes.Contains(raw, []byte("Command Calendar")) {
		t.Error("encrypted envelope leaks plaintext")
	}

	loaded, err := f.store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, loaded) {
		t.Errorf("loaded config differs\n got: %+v\nwant: %+v", loaded, cfg)
	}
	if !f.store.Status(ctx).Encrypted || f.store.Status(ctx).KeyFingerprint == "" {
		t.Error("status should report encryption with a key fingerprint")
	}
}

func TestDisablingEncryptionWritesPlaintextImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfg := sampleConfig()

	cfg.EncryptionEnabled = true
	if err := f.store.Save(ctx, cfg); err != nil {
		t.Fatal(err)
	}
	cfg.EncryptionEnabled = false
	if err := f.store.Save(ctx, cfg); err != nil {
		t.Fatal(err)
	}

	raw := f.raw(t)
	if isEnvelope(raw) {
		t.Fatalf("stale envelope still stored: %s", raw)
	}
	if !bytes.Contains(raw, []byte(`"encryptionEnabled":false`)) {
		t.Errorf("plain document missing flag: %s", raw)
	}
}

func TestLoadAcceptsLegacyDataField(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plain, _ := json.Marshal(sampleConfig())
	payload, err := f.store.Vault.Encrypt(ctx, string(plain))
	if err != nil {
		t.Fatal(err)
	}
	legacy := `{"encrypted":true,"payload":{"iv":"` + payload.IV + `","data":"` + payload.Ciphertext + `"}}`
	if err := f.kv.Set(ctx, "apex-dashboard-config", []byte(legacy)); err != nil {
		t.Fatal(err)
	}

	cfg, err := f.store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ActiveDashboardID != "personal" {
		t.Errorf("ActiveDashboardID = %q, want personal", cfg.ActiveDashboardID)
	}
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name       string
		stored     func(t *testing.T, f *fixture) string
		decryption bool
	}{
		{
			name:   "malformed json",
			stored: func(*testing.T, *fixture) string { return `{"dashboards":` },
		},
		{
			name: "tampered ciphertext",
			stored: func(t *testing.T, f *fixture) string {
				payload, err := f.store.Vault.Encrypt(context.Background(), `{"dashboards":{}}`)
				if err != nil {
					t.Fatal(err)
				}
				ct := []byte(payload.Ciphertext)
				if ct[0] == 'A' {
					ct[0] = 'B'
				} else {
					ct[0] = 'A'
				}
				return `{"encrypted":true,"payload":{"iv":"` + payload.IV + `","ciphertext":"` + string(ct) + `"}}`
			},
			decryption: true,
		},
		{
			name:       "envelope without payload",
			stored:     func(*testing.T, *fixture) string { return `{"encrypted":true}` },
			decryption: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			if err := f.kv.Set(ctx, "apex-dashboard-config", []byte(tt.stored(t, f))); err != nil {
				t.Fatal(err)
			}

			cfg, err := f.store.Load(ctx)
			if !errors.Is(err, ErrConfigLoad) {
				t.Fatalf("error = %v, want ErrConfigLoad", err)
			}
			if cfg != nil {
				t.Error("Load returned a config alongside an error")
			}
			if tt.decryption && !errors.Is(err, vault.ErrDecryption) {
				t.Errorf("error = %v, want it to wrap ErrDecryption", err)
			}
		})
	}
}

func TestWriteDropsStaleSnapshots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfg := sampleConfig()

	cfg.Dashboards["personal"].Widgets[0].Position.X = 3
	older, err := f.store.Snapshot(cfg)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Dashboards["personal"].Widgets[0].Position.X = 5
	newer, err := f.store.Snapshot(cfg)
	if err != nil {
		t.Fatal(err)
	}

	if err := f.store.Write(ctx, newer); err != nil {
		t.Fatal(err)
	}
	if err := f.store.Write(ctx, older); err != nil {
		t.Fatal(err)
	}

	loaded, err := f.store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if x := loaded.Dashboards["personal"].Widgets[0].Position.X; x != 5 {
		t.Errorf("stored x = %d, want 5 from the newest snapshot", x)
	}
	if f.repo.puts != 1 {
		t.Errorf("puts = %d, want 1", f.repo.puts)
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	f := newFixture(t)
	cfg := sampleConfig()

	snap, err := f.store.Snapshot(cfg)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Dashboards["personal"].Widgets[0].Title = "changed"
	if snap.Config.Dashboards["personal"].Widgets[0].Title != "Command Calendar" {
		t.Error("snapshot shares memory with the live config")
	}
}

func TestUnchangedDocumentIsNotRewritten(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfg := sampleConfig()

	for i := 0; i < 3; i++ {
		if err := f.store.Save(ctx, cfg); err != nil {
			t.Fatal(err)
		}
	}
	if f.repo.puts != 1 {
		t.Errorf("puts = %d, want 1", f.repo.puts)
	}

	rev := f.store.Revision()
	cfg.ActiveRole = models.RoleViewer
	if err := f.store.Save(ctx, cfg); err != nil {
		t.Fatal(err)
	}
	if f.repo.puts != 2 {
		t.Errorf("puts = %d, want 2 after a change", f.repo.puts)
	}
	if f.store.Revision() == rev {
		t.Error("revision did not change with the document")
	}
	if !strings.Contains(string(f.raw(t)), `"activeRole":"viewer"`) {
		t.Error("stored document missing the new role")
	}
}
