package settings

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"apex-dashboard/internal/common/models"
	"apex-dashboard/internal/config"
	"apex-dashboard/internal/features/vault"
	"apex-dashboard/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"lukechampine.com/blake3"
)

// ErrConfigLoad wraps decryption and parse failures while loading. Callers
// fall back to the default document.
var ErrConfigLoad = errors.New("config load failed")

type ConfigStore interface {
	Load(ctx context.Context) (*models.Config, error)
	Save(ctx context.Context, cfg *models.Config) error
	// Snapshot copies cfg and stamps it. Take snapshots while holding
	// whatever lock guards cfg; Write them afterwards.
	Snapshot(cfg *models.Config) (Snapshot, error)
	Write(ctx context.Context, snap Snapshot) error
	Revision() string
	Status(ctx context.Context) StorageStatus
}

type ConfigStoreImpl struct {
	Repo   SettingsRepository
	Vault  vault.VaultService
	Driver string
	log    *zap.Logger

	generation atomic.Uint64

	mu        sync.Mutex
	written   uint64 // generation of the last snapshot handled by Write
	persisted string // revision of the stored document
	revision  string // revision of the last loaded or saved document
	encrypted bool
}

func NewConfigStore(repo SettingsRepository, v vault.VaultService, cfg *config.Config, log *zap.Logger) ConfigStore {
	return &ConfigStoreImpl{
		Repo:   repo,
		Vault:  v,
		Driver: cfg.StoreDriver,
		log:    log,
	}
}

func (s *ConfigStoreImpl) Load(ctx context.Context) (*models.Config, error) {
	raw, err := s.Repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reading store: %w", ErrConfigLoad, err)
	}

	if len(raw) == 0 {
		cfg := models.DefaultConfig()
		plain, err := json.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfigLoad, err)
		}
		s.mu.Lock()
		s.revision = revision(plain)
		s.encrypted = false
		s.mu.Unlock()
		metrics.ConfigLoads.WithLabelValues("default").Inc()
		return cfg, nil
	}

	plain := raw
	encrypted := isEnvelope(raw)
	if encrypted {
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("%w: envelope: %w", ErrConfigLoad, err)
		}
		text, err := s.Vault.Decrypt(ctx, env.Payload.vaultPayload())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfigLoad, err)
		}
		plain = []byte(text)
	}

	var cfg models.Config
	if err := json.Unmarshal(plain, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config: %w", ErrConfigLoad, err)
	}

	rev := revision(plain)
	s.mu.Lock()
	s.revision = rev
	s.persisted = rev
	s.encrypted = encrypted
	s.mu.Unlock()

	metrics.ConfigLoads.WithLabelValues("stored").Inc()
	s.log.Debug("config loaded", zap.Bool("encrypted", encrypted), zap.String("revision", rev))
	return &cfg, nil
}

func (s *ConfigStoreImpl) Snapshot(cfg *models.Config) (Snapshot, error) {
	clone, err := cfg.Clone()
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Generation: s.generation.Add(1), Config: clone}, nil
}

func (s *ConfigStoreImpl) Save(ctx context.Context, cfg *models.Config) error {
	snap, err := s.Snapshot(cfg)
	if err != nil {
		return err
	}
	return s.Write(ctx, snap)
}

func (s *ConfigStoreImpl) Write(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Generation <= s.written {
		metrics.ConfigSaves.WithLabelValues("stale").Inc()
		s.log.Debug("dropping stale config write",
			zap.Uint64("generation", snap.Generation),
			zap.Uint64("written", s.written))
		return nil
	}

	timer := prometheus.NewTimer(metrics.SaveDuration)
	defer timer.ObserveDuration()

	plain, err := json.Marshal(snap.Config)
	if err != nil {
		metrics.ConfigSaves.WithLabelValues("error").Inc()
		return fmt.Errorf("serializing config: %w", err)
	}

	rev := revision(plain)
	if rev == s.persisted {
		s.written = snap.Generation
		metrics.ConfigSaves.WithLabelValues("unchanged").Inc()
		return nil
	}

	raw := plain
	if snap.Config.EncryptionEnabled {
		payload, err := s.Vault.Encrypt(ctx, string(plain))
		if err != nil {
			metrics.ConfigSaves.WithLabelValues("error").Inc()
			return fmt.Errorf("encrypting config: %w", err)
		}
		raw, err = json.Marshal(Envelope{
			Encrypted: true,
			Payload:   EnvelopePayload{IV: payload.IV, Ciphertext: payload.Ciphertext},
		})
		if err != nil {
			metrics.ConfigSaves.WithLabelValues("error").Inc()
			return err
		}
	}

	if err := s.Repo.Put(ctx, raw); err != nil {
		metrics.ConfigSaves.WithLabelValues("error").Inc()
		return fmt.Errorf("writing config: %w", err)
	}

	s.written = snap.Generation
	s.persisted = rev
	s.revision = rev
	s.encrypted = snap.Config.EncryptionEnabled
	metrics.ConfigSaves.WithLabelValues("written").Inc()
	return nil
}

func (s *ConfigStoreImpl) Revision() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

func (s *ConfigStoreImpl) Status(ctx context.Context) StorageStatus {
	s.mu.Lock()
	status := StorageStatus{
		Driver:     s.Driver,
		Encrypted:  s.encrypted,
		Revision:   s.revision,
		Generation: s.written,
	}
	s.mu.Unlock()

	if status.Encrypted {
		if fp, err := s.Vault.Fingerprint(ctx); err == nil {
			status.KeyFingerprint = fp
		}
	}
	return status
}

func revision(plain []byte) string {
	sum := blake3.Sum256(plain)
	return hex.EncodeToString(sum[:16])
}
