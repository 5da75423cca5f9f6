package db

import (
	"context"
	"testing"

	"github.com/atharvakonge/paper-trading-simulator/internal/logger"
)

// SetupTestDB opens a private in-memory SQLite store closed at test end.
func SetupTestDB(t testing.TB) *Store {
	t.Helper()
	s, err := Open(context.Background(), "sqlite", ":memory:", logger.Nop())
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}
