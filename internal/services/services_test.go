package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/convoy-chat/go-backend/internal/domain"
	"github.com/convoy-chat/go-backend/internal/repo"
)

// newTestDB opens a throwaway on-disk SQLite database with the full schema
// migrated. Each test gets its own file under t.TempDir().
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("services_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// memCodeStore is an in-memory CodeStore for tests.
type memCodeStore struct {
	mu    sync.Mutex
	codes map[string]string
}

func newMemCodeStore() *memCodeStore {
	return &memCodeStore{codes: make(map[string]string)}
}

func (s *memCodeStore) SetCode(ctx context.Context, email, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[email] = code
	return nil
}

func (s *memCodeStore) GetCode(ctx context.Context, email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[email], nil
}

func (s *memCodeStore) DeleteCode(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, email)
	return nil
}

// joinGroup adds a membership row directly, bypassing the invite flow.
func joinGroup(t *testing.T, s *GroupService, groupID, userID string) {
	t.Helper()
	if _, err := repo.AddGroupMember(context.Background(), s.DB, groupID, userID); err != nil {
		t.Fatalf("join group: %v", err)
	}
}

// seedUser inserts an account directly, bypassing the verification flow.
func seedUser(t *testing.T, db *gorm.DB, username, email string) *domain.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), db, username, email, "x", "")
	if err != nil {
		t.Fatalf("seed user %q: %v", email, err)
	}
	return u
}
