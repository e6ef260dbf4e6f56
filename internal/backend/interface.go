package backend

import (
	"context"
	"time"

	"sfms/internal/records"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult contains the record store and an optional cleanup function.
type BackendResult struct {
	Store   records.Store
	Cleanup CleanupFunc
}

// Close runs the cleanup function if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates record stores based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type     BackendType
	SeedFile string

	// SQLite
	SQLiteDBPath string

	// Postgres
	DatabaseURL string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Category cache
	Cache     CacheType
	CacheTTL  time.Duration
	RedisAddr string
}

// BackendType represents the type of record store
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	SheetsBackend   BackendType = "sheets"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend, SheetsBackend:
		return true
	default:
		return false
	}
}

// CacheType selects how relief category definitions are cached.
type CacheType string

const (
	MemoryCache CacheType = "memory"
	RedisCache  CacheType = "redis"
	NoCache     CacheType = "none"
)
