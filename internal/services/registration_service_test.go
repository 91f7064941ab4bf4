package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-alert-relay/internal/domain"
	"github.com/tbourn/go-alert-relay/internal/eth"
	"github.com/tbourn/go-alert-relay/internal/repo"
)

const (
	addrLower    = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	addrChecksum = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	addrOther    = "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"
)

// repoShim proxies the repo free functions, mirroring the production wiring.
type repoShim struct{}

func (repoShim) SaveRegistration(ctx context.Context, db *gorm.DB, ens *string, address string, chatID int64) (*domain.Registration, error) {
	return repo.SaveRegistration(ctx, db, ens, address, chatID)
}
func (repoShim) GetRegistration(ctx context.Context, db *gorm.DB, address string) (*domain.Registration, error) {
	return repo.GetRegistration(ctx, db, address)
}
func (repoShim) FindRegistrationByChat(ctx context.Context, db *gorm.DB, chatID int64) (*domain.Registration, error) {
	return repo.FindRegistrationByChat(ctx, db, chatID)
}
func (repoShim) DeleteRegistration(ctx context.Context, db *gorm.DB, address string) error {
	return repo.DeleteRegistration(ctx, db, address)
}

// fakeResolver resolves names from a static table; everything else fails.
type fakeResolver map[string]string

func (f fakeResolver) Resolve(_ context.Context, name string) (string, error) {
	if addr, ok := f[name]; ok {
		return addr, nil
	}
	return "", eth.ErrResolutionFailed
}

func newServiceDB(t *testing.T) *gorm.DB {
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
	if err := db.AutoMigrate(&domain.Registration{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newRegService(t *testing.T, resolver eth.Resolver) *RegistrationService {
	t.Helper()
	if resolver == nil {
		resolver = fakeResolver{}
	}
	return NewRegistrationService(newServiceDB(t), repoShim{}, resolver)
}

func TestResolveIdentifier(t *testing.T) {
	svc := newRegService(t, fakeResolver{"node.eth": addrLower})
	ctx := context.Background()

	ens, addr, err := svc.ResolveIdentifier(ctx, "node.eth")
	if err != nil {
		t.Fatalf("resolve name: %v", err)
	}
	if ens == nil || *ens != "node.eth" || addr != addrLower {
		t.Fatalf("unexpected resolution: ens=%v addr=%q", ens, addr)
	}

	ens, addr, err = svc.ResolveIdentifier(ctx, addrChecksum)
	if err != nil {
		t.Fatalf("resolve address: %v", err)
	}
	if ens != nil || addr != addrLower {
		t.Fatalf("address input must not produce an alias: ens=%v addr=%q", ens, addr)
	}

	if _, _, err := svc.ResolveIdentifier(ctx, "unknown.eth"); !errors.Is(err, ErrResolutionFailed) {
		t.Fatalf("expected ErrResolutionFailed, got %v", err)
	}
	if _, _, err := svc.ResolveIdentifier(ctx, "0xnothex"); !errors.Is(err, ErrInvalidIdentifier) {
		t.Fatalf("expected ErrInvalidIdentifier, got %v", err)
	}
}

func TestRegisterAndLookup(t *testing.T) {
	svc := newRegService(t, nil)
	ctx := context.Background()

	reg, err := svc.Register(ctx, 42, addrChecksum)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.Address != addrLower {
		t.Fatalf("address not canonicalized: %q", reg.Address)
	}

	// Reverse lookup by chat.
	got, err := svc.FindByChat(ctx, 42)
	if err != nil {
		t.Fatalf("FindByChat: %v", err)
	}
	if got.Address != addrLower || got.ENS != nil {
		t.Fatalf("unexpected registration: %+v", got)
	}

	// Lookup by identifier tolerates any input case.
	chatID, err := svc.FindByIdentifier(ctx, addrChecksum)
	if err != nil {
		t.Fatalf("FindByIdentifier: %v", err)
	}
	if chatID != 42 {
		t.Fatalf("chatID = %d, want 42", chatID)
	}
}

func TestFindByIdentifier_NotRegistered(t *testing.T) {
	svc := newRegService(t, nil)
	if _, err := svc.FindByIdentifier(context.Background(), addrOther); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
}

func TestFindByChat_NotRegistered(t *testing.T) {
	svc := newRegService(t, nil)
	if _, err := svc.FindByChat(context.Background(), 1); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
}

func TestReplace_SwapsRegistration(t *testing.T) {
	svc := newRegService(t, nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, 7, addrLower); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Replace(ctx, 7, addrLower, addrOther); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	// Old binding is gone, new one points at the same chat.
	if _, err := svc.FindByIdentifier(ctx, addrLower); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("old address still registered: %v", err)
	}
	chatID, err := svc.FindByIdentifier(ctx, addrOther)
	if err != nil {
		t.Fatalf("FindByIdentifier(new): %v", err)
	}
	if chatID != 7 {
		t.Fatalf("chatID = %d, want 7", chatID)
	}
}

func TestReplace_SameIdentifierSucceeds(t *testing.T) {
	// Delete-then-save means old==new is not a conflict.
	svc := newRegService(t, nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, 7, addrLower); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Replace(ctx, 7, addrLower, addrChecksum); err != nil {
		t.Fatalf("Replace with same identifier: %v", err)
	}
	chatID, err := svc.FindByIdentifier(ctx, addrLower)
	if err != nil {
		t.Fatalf("FindByIdentifier: %v", err)
	}
	if chatID != 7 {
		t.Fatalf("chatID = %d, want 7", chatID)
	}
}

func TestDelete_Idempotent(t *testing.T) {
	svc := newRegService(t, nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, 3, addrLower); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.Delete(ctx, addrLower); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, addrLower); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, err := svc.FindByChat(ctx, 3); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("registration survived delete: %v", err)
	}
}
