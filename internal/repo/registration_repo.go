// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Registration model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a registration is not found, functions return
//     gorm.ErrRecordNotFound (also exported here as ErrNotFound).
//   - On DB errors (connectivity issues, etc.) the raw gorm error is
//     propagated; the relay never retries at this layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-alert-relay/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// SaveRegistration upserts a Registration keyed by address. Any prior row at
// that address is overwritten (idempotent by address). The address is
// expected to already be in canonical lowercase form; callers normalize
// before persisting. CreatedAt is set to UTC on every save.
func SaveRegistration(ctx context.Context, db *gorm.DB, ens *string, address string, chatID int64) (*domain.Registration, error) {
	r := &domain.Registration{
		Address:   address,
		ENS:       ens,
		ChatID:    chatID,
		CreatedAt: time.Now().UTC(),
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			UpdateAll: true,
		}).
		Create(r).Error
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetRegistration fetches the registration for a canonical lowercase
// address. Returns ErrNotFound if no row exists.
func GetRegistration(ctx context.Context, db *gorm.DB, address string) (*domain.Registration, error) {
	var r domain.Registration
	err := db.WithContext(ctx).
		Where("address = ?", address).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// FindRegistrationByChat reverse-looks-up the registration bound to chatID.
//
// chatID uniqueness is not enforced by the schema (a race between two /start
// flows from two devices can produce two rows pointing at the same chat);
// this returns the oldest match, which is the tolerated behavior for that
// known data-hygiene gap. Returns ErrNotFound if no row exists.
func FindRegistrationByChat(ctx context.Context, db *gorm.DB, chatID int64) (*domain.Registration, error) {
	var r domain.Registration
	err := db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at asc").
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteRegistration removes the registration keyed by address. Deleting a
// non-existent key is not an error (idempotent).
func DeleteRegistration(ctx context.Context, db *gorm.DB, address string) error {
	return db.WithContext(ctx).
		Where("address = ?", address).
		Delete(&domain.Registration{}).Error
}
