// Registration lifecycle service.
//
// This file implements the RegistrationService, which owns the lifecycle of
// address→chat bindings. It resolves ENS names on demand, normalizes
// addresses to their canonical lowercase form before every store access, and
// coordinates repository operations for registering, looking up, replacing,
// and deleting registrations.
//
// Service-level errors (ErrNotRegistered, ErrInvalidIdentifier,
// ErrResolutionFailed) are returned for predictable cases so the bot
// dispatcher and HTTP handlers can map them to user-visible results
// consistently. Raw DB errors are propagated untouched (store-unavailable is
// a dependency failure, never retried here).
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-alert-relay/internal/domain"
	"github.com/tbourn/go-alert-relay/internal/eth"
)

// RegistrationRepo defines the repository contract required by
// RegistrationService. Implementations are responsible for persistence of
// the Registration aggregate.
type RegistrationRepo interface {
	// SaveRegistration upserts a registration keyed by address.
	SaveRegistration(ctx context.Context, db *gorm.DB, ens *string, address string, chatID int64) (*domain.Registration, error)

	// GetRegistration fetches a registration by canonical lowercase address.
	GetRegistration(ctx context.Context, db *gorm.DB, address string) (*domain.Registration, error)

	// FindRegistrationByChat reverse-looks-up the registration for a chat.
	FindRegistrationByChat(ctx context.Context, db *gorm.DB, chatID int64) (*domain.Registration, error)

	// DeleteRegistration removes a registration by address (idempotent).
	DeleteRegistration(ctx context.Context, db *gorm.DB, address string) error
}

// RegistrationService provides registration-level operations on top of the
// repository and the ENS resolver. It enforces canonical addressing so case
// variation in user input never causes a lookup miss.
type RegistrationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the registration repository used by this service.
	Repo RegistrationRepo
	// Resolver converts ENS names to addresses. Resolution is lazy and
	// uncached; ownership of a name can change on chain at any time.
	Resolver eth.Resolver
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(db *gorm.DB, repo RegistrationRepo, resolver eth.Resolver) *RegistrationService {
	return &RegistrationService{DB: db, Repo: repo, Resolver: resolver}
}

// ResolveIdentifier turns a user-supplied identifier into its canonical
// lowercase address, plus the ENS alias when the input was a name.
//
// Errors: ErrInvalidIdentifier for malformed addresses or too-short names,
// ErrResolutionFailed when the resolver cannot produce an address.
func (s *RegistrationService) ResolveIdentifier(ctx context.Context, identifier string) (ens_ *string, address string, err error) {
	switch eth.Classify(identifier) {
	case eth.KindName:
		addr, err := s.Resolver.Resolve(ctx, identifier)
		if err != nil {
			return nil, "", ErrResolutionFailed
		}
		name := identifier
		return &name, addr, nil
	default:
		addr, err := eth.NormalizeAddress(identifier)
		if err != nil {
			return nil, "", ErrInvalidIdentifier
		}
		return nil, addr, nil
	}
}

// Register resolves identifier and upserts the binding to chatID. Returns
// the persisted registration.
func (s *RegistrationService) Register(ctx context.Context, chatID int64, identifier string) (*domain.Registration, error) {
	ens_, addr, err := s.ResolveIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return s.Repo.SaveRegistration(ctx, s.DB, ens_, addr, chatID)
}

// Replace swaps a chat's registration from oldAddress to newIdentifier:
// delete-old then save-new. When old and new resolve to the same address the
// final state still reflects the newly supplied identifier. A crash between
// the two steps leaves the chat unregistered; re-running /change recovers.
// Not transactional.
func (s *RegistrationService) Replace(ctx context.Context, chatID int64, oldAddress, newIdentifier string) (*domain.Registration, error) {
	ens_, addr, err := s.ResolveIdentifier(ctx, newIdentifier)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.DeleteRegistration(ctx, s.DB, oldAddress); err != nil {
		return nil, err
	}
	return s.Repo.SaveRegistration(ctx, s.DB, ens_, addr, chatID)
}

// FindByIdentifier resolves identifier (if it is a name) and returns the
// chat bound to the resulting address.
//
// Errors: ErrInvalidIdentifier, ErrResolutionFailed, ErrNotRegistered.
func (s *RegistrationService) FindByIdentifier(ctx context.Context, identifier string) (int64, error) {
	_, addr, err := s.ResolveIdentifier(ctx, identifier)
	if err != nil {
		return 0, err
	}
	r, err := s.Repo.GetRegistration(ctx, s.DB, addr)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotRegistered
		}
		return 0, err
	}
	return r.ChatID, nil
}

// FindByChat returns the registration bound to chatID, or ErrNotRegistered.
func (s *RegistrationService) FindByChat(ctx context.Context, chatID int64) (*domain.Registration, error) {
	r, err := s.Repo.FindRegistrationByChat(ctx, s.DB, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotRegistered
		}
		return nil, err
	}
	return r, nil
}

// Delete removes the registration at address. Idempotent.
func (s *RegistrationService) Delete(ctx context.Context, address string) error {
	return s.Repo.DeleteRegistration(ctx, s.DB, address)
}
