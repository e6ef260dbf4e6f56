package backend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sfms/internal/cache"
	"sfms/internal/config"
	"sfms/internal/records"
	"sfms/internal/records/memory"
	"sfms/internal/storage"
)

const testSeed = `
categories:
  - code: G1
    label: Individual and dependent relatives
    annual_limit: "9000"
users:
  - id: u1
    email: u1@example.com
    full_name: User One
    weekly_reports: true
debts:
  - id: d1
    user_id: u1
    name: Car loan
    principal: "12000"
    apr: "12"
    term_months: 12
tax_profiles:
  - user_id: u1
    assessment_year: 2025
    claims:
      - category_id: G1
        amount: "1000"
`

func writeSeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(testSeed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestCreateMemoryBackendWithCache(t *testing.T) {
	manager := cache.NewManager(nil)
	f := NewFactory(nil, manager)

	res, err := f.CreateBackend(context.Background(), Config{
		Type:     MemoryBackend,
		SeedFile: writeSeed(t),
		Cache:    MemoryCache,
		CacheTTL: time.Minute,
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Close()

	if _, ok := res.Store.(*records.CachedStore); !ok {
		t.Fatalf("expected cached store, got %T", res.Store)
	}
	cats, err := res.Store.ListReliefCategories(context.Background())
	if err != nil || len(cats) != 1 || cats[0].Code != "G1" {
		t.Fatalf("unexpected categories: %v err=%v", cats, err)
	}
}

func TestCreateMemoryBackendWithoutCache(t *testing.T) {
	res, err := NewFactory(nil, nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, Cache: NoCache})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if _, ok := res.Store.(*memory.Store); !ok {
		t.Fatalf("expected bare memory store, got %T", res.Store)
	}
	cats, _ := res.Store.ListReliefCategories(context.Background())
	if len(cats) != len(memory.DefaultCategories()) {
		t.Fatalf("expected default categories, got %d", len(cats))
	}
}

func TestCreateSQLiteBackendImportsSeed(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sfms.db")
	res, err := NewFactory(nil, nil).CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: dbPath,
		SeedFile:     writeSeed(t),
		Cache:        NoCache,
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Close()

	if _, ok := res.Store.(*storage.SQLiteRepository); !ok {
		t.Fatalf("expected sqlite repository, got %T", res.Store)
	}
	debts, err := res.Store.ListDebts(context.Background(), "u1")
	if err != nil || len(debts) != 1 {
		t.Fatalf("unexpected debts: %v err=%v", debts, err)
	}
	profile, err := res.Store.GetTaxProfile(context.Background(), "u1", 2025)
	if err != nil || len(profile.Claims) != 1 {
		t.Fatalf("unexpected profile: %+v err=%v", profile, err)
	}
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"unknown type", Config{Type: "mongo"}, "invalid backend type"},
		{"sqlite without path", Config{Type: SQLiteBackend}, "SQLite database path is required"},
		{"postgres without url", Config{Type: PostgresBackend}, "database URL is required"},
		{"sheets without credentials", Config{Type: SheetsBackend, GoogleSpreadsheetID: "x"}, "must be provided"},
		{"redis without addr", Config{Type: MemoryBackend, Cache: RedisCache, CacheTTL: time.Minute}, "redis address is required"},
		{"memory cache without ttl", Config{Type: MemoryBackend, Cache: MemoryCache}, "invalid cache TTL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFactory(nil, nil).CreateBackend(context.Background(), tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:  "postgres",
		DatabaseURL:  "postgres://localhost/sfms",
		CacheBackend: "redis",
		RedisAddr:    "localhost:6379",
		CacheTTL:     time.Minute,
	}
	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if got.Type != PostgresBackend || got.DatabaseURL != cfg.DatabaseURL || got.Cache != RedisCache {
		t.Fatalf("unexpected backend config: %+v", got)
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "nope"}); err == nil {
		t.Fatal("expected error for invalid backend")
	}
}
