package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-alert-relay/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("registration_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func strPtr(s string) *string { return &s }

func TestSaveRegistration_Error_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	r, err := SaveRegistration(context.Background(), db, nil, "0xabc", 1)
	if err == nil || r != nil {
		t.Fatalf("expected error saving without table, got r=%v err=%v", r, err)
	}
}

func TestSaveRegistration_RoundTrip(t *testing.T) {
	db := newTestDB(t, &domain.Registration{})

	start := time.Now().UTC().Add(-time.Minute)
	r, err := SaveRegistration(context.Background(), db, strPtr("node.eth"), "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", 42)
	if err != nil {
		t.Fatalf("SaveRegistration: %v", err)
	}
	if r.Address != "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed" || r.ChatID != 42 {
		t.Fatalf("unexpected fields: %+v", r)
	}
	if r.CreatedAt.Before(start) {
		t.Fatalf("CreatedAt seems unset: %v", r.CreatedAt)
	}

	got, err := GetRegistration(context.Background(), db, r.Address)
	if err != nil {
		t.Fatalf("GetRegistration: %v", err)
	}
	if got.ENS == nil || *got.ENS != "node.eth" || got.ChatID != 42 {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestSaveRegistration_UpsertOverwrites(t *testing.T) {
	db := newTestDB(t, &domain.Registration{})
	ctx := context.Background()
	addr := "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"

	if _, err := SaveRegistration(ctx, db, strPtr("old.eth"), addr, 1); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if _, err := SaveRegistration(ctx, db, nil, addr, 2); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := GetRegistration(ctx, db, addr)
	if err != nil {
		t.Fatalf("GetRegistration: %v", err)
	}
	if got.ChatID != 2 {
		t.Fatalf("upsert did not overwrite chat: %+v", got)
	}
	if got.ENS != nil {
		t.Fatalf("upsert did not overwrite ens: %+v", got)
	}

	var count int64
	if err := db.Model(&domain.Registration{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single row after upsert, got %d", count)
	}
}

func TestGetRegistration_NotFound(t *testing.T) {
	db := newTestDB(t, &domain.Registration{})
	_, err := GetRegistration(context.Background(), db, "0xmissing")
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindRegistrationByChat_OldestWins(t *testing.T) {
	db := newTestDB(t, &domain.Registration{})
	ctx := context.Background()

	// Two rows for the same chat: the tolerated duplicate-chat gap.
	t1 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	older := domain.Registration{Address: "0xaaa", ChatID: 7, CreatedAt: t1}
	newer := domain.Registration{Address: "0xbbb", ChatID: 7, CreatedAt: t1.Add(time.Hour)}
	for _, r := range []domain.Registration{newer, older} {
		if err := db.Create(&r).Error; err != nil {
			t.Fatalf("seed %s: %v", r.Address, err)
		}
	}

	got, err := FindRegistrationByChat(ctx, db, 7)
	if err != nil {
		t.Fatalf("FindRegistrationByChat: %v", err)
	}
	if got.Address != "0xaaa" {
		t.Fatalf("expected oldest row, got %+v", got)
	}

	if _, err := FindRegistrationByChat(ctx, db, 99); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown chat, got %v", err)
	}
}

func TestDeleteRegistration_Idempotent(t *testing.T) {
	db := newTestDB(t, &domain.Registration{})
	ctx := context.Background()
	addr := "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"

	if _, err := SaveRegistration(ctx, db, nil, addr, 1); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := DeleteRegistration(ctx, db, addr); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := GetRegistration(ctx, db, addr); err != ErrNotFound {
		t.Fatalf("row survived delete: %v", err)
	}
	// Deleting again is not an error.
	if err := DeleteRegistration(ctx, db, addr); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}
