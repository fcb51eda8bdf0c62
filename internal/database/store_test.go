package database

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func exerciseStore(t *testing.T, store KVStore) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrKeyNotFound", err)
	}

	if err := store.Set(ctx, "apex-dashboard-config", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(ctx, "apex-dashboard-config", []byte(`{"a":2}`)); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	got, err := store.Get(ctx, "apex-dashboard-config")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, []byte(`{"a":2}`)) {
		t.Errorf("Get = %s, want last write", got)
	}

	if err := store.Delete(ctx, "apex-dashboard-config"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "apex-dashboard-config"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get after delete error = %v, want ErrKeyNotFound", err)
	}
	if err := store.Delete(ctx, "apex-dashboard-config"); err != nil {
		t.Errorf("deleting a missing key should succeed, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	store := NewMemoryStore()
	value := []byte("abc")
	if err := store.Set(context.Background(), "k", value); err != nil {
		t.Fatal(err)
	}
	value[0] = 'z'

	got, _ := store.Get(context.Background(), "k")
	if string(got) != "abc" {
		t.Errorf("stored value aliased caller slice: %s", got)
	}
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	exerciseStore(t, store)
}

func TestFileStoreSanitizesKeys(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	p := store.path("../escape/key")
	if filepath.Dir(p) != dir {
		t.Errorf("path %s escapes store directory %s", p, dir)
	}
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLStore("sqlite", filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("NewSQLStore failed: %v", err)
	}
	defer store.Close(context.Background())
	exerciseStore(t, store)
}

func TestNewSQLStoreRejectsUnknownDriver(t *testing.T) {
	if _, err := NewSQLStore("oracle", "dsn"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}
