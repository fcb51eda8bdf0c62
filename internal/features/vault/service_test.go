package vault

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"apex-dashboard/internal/database"

	"go.uber.org/zap"
)

func newTestVault(store database.KVStore) *VaultServiceImpl {
	return newVault(store, "apex-dashboard-key", zap.NewNop(), rand.Reader)
}

func TestGetOrCreateKeyIsIdempotent(t *testing.T) {
	store := database.NewMemoryStore()
	v := newTestVault(store)
	ctx := context.Background()

	first, err := v.GetOrCreateKey(ctx)
	if err != nil {
		t.Fatalf("GetOrCreateKey failed: %v", err)
	}
	if len(first) != 32 {
		t.Fatalf("key length = %d, want 32", len(first))
	}

	second, err := v.GetOrCreateKey(ctx)
	if err != nil {
		t.Fatalf("second GetOrCreateKey failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("GetOrCreateKey returned different keys")
	}

	// A fresh process reading the same store must see the persisted key.
	reloaded, err := newTestVault(store).GetOrCreateKey(ctx)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !bytes.Equal(first, reloaded) {
		t.Error("reloaded key differs from the persisted one")
	}

	stored, _ := store.Get(ctx, "apex-dashboard-key")
	if string(stored) != base64.StdEncoding.EncodeToString(first) {
		t.Error("key entry is not the base64 of the raw key")
	}
}

func TestGetOrCreateKeyConcurrentFirstUse(t *testing.T) {
	v := newTestVault(database.NewMemoryStore())
	ctx := context.Background()

	keys := make([][]byte, 16)
	var wg sync.WaitGroup
	for i := range keys {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k, err := v.GetOrCreateKey(ctx)
			if err != nil {
				t.Errorf("GetOrCreateKey failed: %v", err)
				return
			}
			keys[i] = k
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(keys); i++ {
		if !bytes.Equal(keys[0], keys[i]) {
			t.Fatalf("goroutine %d saw a different key", i)
		}
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	v := newTestVault(database.NewMemoryStore())
	ctx := context.Background()

	inputs := []string{
		"",
		"plain ascii",
		`{"encryptionEnabled":true,"dashboards":{}}`,
		"ünïcödé · 72° 🚀",
	}
	for _, in := range inputs {
		payload, err := v.Encrypt(ctx, in)
		if err != nil {
			t.Fatalf("Encrypt(%q) failed: %v", in, err)
		}
		out, err := v.Decrypt(ctx, payload)
		if err != nil {
			t.Fatalf("Decrypt failed for %q: %v", in, err)
		}
		if out != in {
			t.Errorf("round trip = %q, want %q", out, in)
		}
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	v := newTestVault(database.NewMemoryStore())
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		payload, err := v.Encrypt(ctx, "same message")
		if err != nil {
			t.Fatal(err)
		}
		iv, _ := base64.StdEncoding.DecodeString(payload.IV)
		if len(iv) != 12 {
			t.Fatalf("iv length = %d, want 12", len(iv))
		}
		if seen[payload.IV] {
			t.Fatal("nonce reused")
		}
		seen[payload.IV] = true
	}
}

func TestDecryptDetectsTampering(t *testing.T) {
	v := newTestVault(database.NewMemoryStore())
	ctx := context.Background()

	payload, err := v.Encrypt(ctx, "server-1 at x=9")
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := base64.StdEncoding.DecodeString(payload.Ciphertext)

	for bit := 0; bit < len(raw)*8; bit++ {
		tampered := append([]byte(nil), raw...)
		tampered[bit/8] ^= 1 << (bit % 8)

		out, err := v.Decrypt(ctx, Payload{IV: payload.IV, Ciphertext: base64.StdEncoding.EncodeToString(tampered)})
		if !errors.Is(err, ErrDecryption) {
			t.Fatalf("bit %d: error = %v, want ErrDecryption", bit, err)
		}
		if out != "" {
			t.Fatalf("bit %d: returned plaintext %q on failure", bit, out)
		}
	}
}

func TestDecryptRejectsMalformedInput(t *testing.T) {
	v := newTestVault(database.NewMemoryStore())
	ctx := context.Background()
	good, _ := v.Encrypt(ctx, "x")

	tests := []struct {
		name    string
		payload Payload
	}{
		{"bad iv base64", Payload{IV: "%%%", Ciphertext: good.Ciphertext}},
		{"bad ciphertext base64", Payload{IV: good.IV, Ciphertext: "not base64!"}},
		{"short iv", Payload{IV: base64.StdEncoding.EncodeToString([]byte("short")), Ciphertext: good.Ciphertext}},
		{"empty", Payload{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Decrypt(ctx, tt.payload); !errors.Is(err, ErrDecryption) {
				t.Errorf("error = %v, want ErrDecryption", err)
			}
		})
	}
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	ctx := context.Background()
	payload, err := newTestVault(database.NewMemoryStore()).Encrypt(ctx, "secret layout")
	if err != nil {
		t.Fatal(err)
	}

	other := newTestVault(database.NewMemoryStore())
	if _, err := other.Decrypt(ctx, payload); !errors.Is(err, ErrDecryption) {
		t.Errorf("error = %v, want ErrDecryption", err)
	}
}

func TestFingerprintIsStable(t *testing.T) {
	v := newTestVault(database.NewMemoryStore())
	ctx := context.Background()

	a, err := v.Fingerprint(ctx)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := v.Fingerprint(ctx)
	if a != b || len(a) != 16 {
		t.Errorf("fingerprints %q and %q, want equal 16-char hex", a, b)
	}
}

func TestCorruptStoredKeyIsDecryptionError(t *testing.T) {
	tests := []struct {
		name   string
		stored string
	}{
		{"bad base64", "not base64!"},
		{"wrong length", base64.StdEncoding.EncodeToString([]byte("short"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := database.NewMemoryStore()
			if err := store.Set(context.Background(), "apex-dashboard-key", []byte(tt.stored)); err != nil {
				t.Fatal(err)
			}
			_, err := newTestVault(store).GetOrCreateKey(context.Background())
			if !errors.Is(err, ErrDecryption) {
				t.Errorf("error = %v, want ErrDecryption", err)
			}
		})
	}
}
