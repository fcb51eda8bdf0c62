package system

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"apex-dashboard/internal/config"
	"apex-dashboard/internal/database"
	"apex-dashboard/internal/logger"

	"github.com/gofiber/fiber/v2"
)

type brokenStore struct{ database.KVStore }

func (brokenStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func newApp(store database.KVStore) *fiber.App {
	app, _ := newAppWithLogs(store)
	return app
}

func newAppWithLogs(store database.KVStore) (*fiber.App, *logger.LogBuffer) {
	cfg := &config.Config{AppId: "apex-dashboard", StoreDriver: "memory", ConfigKey: "cfg", SkipAuth: true}
	logs := logger.NewLogBuffer(10)
	app := fiber.New()
	NewSystemApi(NewSystemController(store, cfg, logs), cfg).Setup(app)
	return app, logs
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		store  database.KVStore
		status int
		want   string
	}{
		{"empty store is healthy", database.NewMemoryStore(), fiber.StatusOK, "healthy"},
		{"store failure degrades", brokenStore{}, fiber.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := newApp(tt.store).Test(httptest.NewRequest("GET", "/api/health", nil))
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var body map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["status"] != tt.want {
				t.Errorf("status field = %v, want %s", body["status"], tt.want)
			}
		})
	}
}

func TestCurrentUserInDevMode(t *testing.T) {
	resp, err := newApp(database.NewMemoryStore()).Test(httptest.NewRequest("GET", "/api/me", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		UserID string   `json:"user_id"`
		Roles  []string `json:"roles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.UserID != "dev-admin-id" || len(body.Roles) != 1 || body.Roles[0] != "admin" {
		t.Errorf("unexpected claims %+v", body)
	}
}

func TestRecentLogs(t *testing.T) {
	app, logs := newAppWithLogs(database.NewMemoryStore())
	logs.Add(logger.LogEntry{Level: "warn", Message: "first"})
	logs.Add(logger.LogEntry{Level: "error", Message: "second"})
	logs.Close()

	resp, err := app.Test(httptest.NewRequest("GET", "/api/logs?limit=1", nil))
	if err != nil {
		t.Fatal(err)
	}
	var entries []logger.LogEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Message != "second" {
		t.Errorf("entries = %+v", entries)
	}
}
