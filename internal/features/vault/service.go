package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"

	"apex-dashboard/internal/config"
	"apex-dashboard/internal/database"

	"go.uber.org/zap"
	"lukechampine.com/blake3"
)

const (
	keySize   = 32
	nonceSize = 12
)

// ErrDecryption means the payload could not be authenticated or decoded.
// No plaintext is ever returned alongside it.
var ErrDecryption = errors.New("decryption failed")

// Payload is the base64 form of one encrypted message.
type Payload struct {
	IV         string `json:"iv"`
	Ciphertext string `json:"ciphertext"`
}

type VaultService interface {
	GetOrCreateKey(ctx context.Context) ([]byte, error)
	Encrypt(ctx context.Context, plaintext string) (Payload, error)
	Decrypt(ctx context.Context, payload Payload) (string, error)
	Fingerprint(ctx context.Context) (string, error)
}

// VaultServiceImpl keeps an AES-256-GCM key in the KV store. The key is
// created lazily, once per process: concurrent first calls wait on mu and
// observe the same key.
type VaultServiceImpl struct {
	store  database.KVStore
	keyKey string
	log    *zap.Logger
	rand   io.Reader

	mu  sync.Mutex
	key []byte
}

func NewVaultService(store database.KVStore, cfg *config.Config, log *zap.Logger) VaultService {
	return newVault(store, cfg.KeyStoreKey, log, rand.Reader)
}

func newVault(store database.KVStore, keyKey string, log *zap.Logger, r io.Reader) *VaultServiceImpl {
	return &VaultServiceImpl{
		store:  store,
		keyKey: keyKey,
		log:    log,
		rand:   r,
	}
}

func (s *VaultServiceImpl) GetOrCreateKey(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		return append([]byte(nil), s.key...), nil
	}

	stored, err := s.store.Get(ctx, s.keyKey)
	switch {
	case err == nil:
		raw, decodeErr := base64.StdEncoding.DecodeString(string(stored))
		if decodeErr != nil {
			return nil, fmt.Errorf("%w: decoding stored key: %v", ErrDecryption, decodeErr)
		}
		if len(raw) != keySize {
			return nil, fmt.Errorf("%w: stored key has %d bytes, want %d", ErrDecryption, len(raw), keySize)
		}
		s.key = raw
	case errors.Is(err, database.ErrKeyNotFound):
		raw := make([]byte, keySize)
		if _, err := io.ReadFull(s.rand, raw); err != nil {
			return nil, fmt.Errorf("generating key: %w", err)
		}
		encoded := base64.StdEncoding.EncodeToString(raw)
		if err := s.store.Set(ctx, s.keyKey, []byte(encoded)); err != nil {
			return nil, fmt.Errorf("persisting key: %w", err)
		}
		s.key = raw
		s.log.Info("generated dashboard encryption key", zap.String("fingerprint", fingerprint(raw)))
	default:
		return nil, fmt.Errorf("reading key: %w", err)
	}

	return append([]byte(nil), s.key...), nil
}

func (s *VaultServiceImpl) aead(ctx context.Context) (cipher.AEAD, error) {
	key, err := s.GetOrCreateKey(ctx)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (s *VaultServiceImpl) Encrypt(ctx context.Context, plaintext string) (Payload, error) {
	gcm, err := s.aead(ctx)
	if err != nil {
		return Payload{}, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(s.rand, nonce); err != nil {
		return Payload{}, fmt.Errorf("generating nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return Payload{
		IV:         base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(sealed),
	}, nil
}

func (s *VaultServiceImpl) Decrypt(ctx context.Context, payload Payload) (string, error) {
	nonce, err := base64.StdEncoding.DecodeString(payload.IV)
	if err != nil {
		return "", fmt.Errorf("%w: iv: %v", ErrDecryption, err)
	}
	if len(nonce) != nonceSize {
		return "", fmt.Errorf("%w: iv has %d bytes", ErrDecryption, len(nonce))
	}
	sealed, err := base64.StdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext: %v", ErrDecryption, err)
	}

	gcm, err := s.aead(ctx)
	if err != nil {
		return "", err
	}

	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return string(plain), nil
}

func (s *VaultServiceImpl) Fingerprint(ctx context.Context) (string, error) {
	key, err := s.GetOrCreateKey(ctx)
	if err != nil {
		return "", err
	}
	return fingerprint(key), nil
}

func fingerprint(key []byte) string {
	sum := blake3.Sum256(key)
	return hex.EncodeToString(sum[:8])
}
