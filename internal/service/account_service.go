package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/credit-ledger/internal/auth"
	"github.com/spec-kit/credit-ledger/internal/config"
	"github.com/spec-kit/credit-ledger/internal/domain"
	"github.com/spec-kit/credit-ledger/internal/events"
	"github.com/spec-kit/credit-ledger/internal/observability"
	"github.com/spec-kit/credit-ledger/internal/repository"
	"github.com/spec-kit/credit-ledger/internal/validation"
	apperrors "github.com/spec-kit/credit-ledger/pkg/util"
)

// SignupInput is the validated payload of account creation.
type SignupInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,emaildomain"`
	Password string `json:"password" validate:"required,strongpassword"`
}

// AdminProfileInput edits the administrator's own profile. NewPassword is
// optional; when set, CurrentPassword must match.
type AdminProfileInput struct {
	Name            string `json:"name" validate:"required,min=2,max=100"`
	Email           string `json:"email" validate:"required,email,emaildomain"`
	NewPassword     string `json:"newPassword" validate:"omitempty,strongpassword"`
	CurrentPassword string `json:"currentPassword"`
}

// AccountService manages account lifecycle: signup, bootstrap, listing,
// deletion and administrator profile edits.
type AccountService struct {
	identities repository.IdentityRepository
	settings   repository.SettingsRepository
	requests   repository.AccessRequestRepository
	validator  *validation.Validator
	bcryptCost int
	events     publisher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// AccountDependencies encapsulates repo requirements for the account service.
type AccountDependencies struct {
	Identities     repository.IdentityRepository
	Settings       repository.SettingsRepository
	AccessRequests repository.AccessRequestRepository
	Validator      *validation.Validator
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// NewAccountService builds the service.
func NewAccountService(cfg config.Config, deps AccountDependencies) *AccountService {
	logger := orNop(deps.Logger)
	return &AccountService{
		identities: deps.Identities,
		settings:   deps.Settings,
		requests:   deps.AccessRequests,
		validator:  deps.Validator,
		bcryptCost: cfg.Auth.BcryptCost,
		events:     newPublisher(deps.Dispatcher, logger),
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// CreateAccount registers a new account. The first account ever created
// becomes the administrator.
func (s *AccountService) CreateAccount(ctx context.Context, in SignupInput) (*domain.PublicIdentity, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.AllowRegistrations {
		return nil, apperrors.NewForbidden("registrations are currently closed")
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	identity, err := s.identities.Create(ctx, in.Name, in.Email, hash)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account created", zap.String("email", identity.Email), zap.String("role", string(identity.Role)))
	s.metrics.RecordAccountEvent("created")
	s.events.publish(ctx, events.New(events.EventAccountCreated, identity.Email, nil))
	return identity.Public(), nil
}

// Bootstrap seeds the sole administrator ahead of any signup. It skips the
// registrations switch and fails with Conflict once an administrator exists.
func (s *AccountService) Bootstrap(ctx context.Context, in SignupInput) (*domain.PublicIdentity, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	identity, err := s.identities.Bootstrap(ctx, in.Name, in.Email, hash)
	if err != nil {
		return nil, err
	}
	s.logger.Info("administrator bootstrapped", zap.String("email", identity.Email))
	s.metrics.RecordAccountEvent("bootstrapped")
	return identity.Public(), nil
}

// GetAccount returns the current public view of any account.
func (s *AccountService) GetAccount(ctx context.Context, email string) (*domain.PublicIdentity, error) {
	identity, err := s.identities.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return identity.Public(), nil
}

// ListAccounts returns standard accounts for the administrator dashboard.
func (s *AccountService) ListAccounts(ctx context.Context) ([]*domain.PublicIdentity, error) {
	return s.identities.ListPublic(ctx)
}

// DeleteAccount removes a standard account. Unknown emails succeed silently.
func (s *AccountService) DeleteAccount(ctx context.Context, email string) error {
	if err := s.identities.DeleteStandard(ctx, email); err != nil {
		return err
	}
	if err := s.requests.DeleteByEmail(ctx, email); err != nil {
		s.logger.Warn("drop access request of deleted account", zap.String("email", email), zap.Error(err))
	}
	s.logger.Info("account deleted", zap.String("email", email))
	s.metrics.RecordAccountEvent("deleted")
	s.events.publish(ctx, events.New(events.EventAccountDeleted, email, nil))
	return nil
}

// UpdateAdminProfile edits the administrator identified by id.
func (s *AccountService) UpdateAdminProfile(ctx context.Context, id string, in AdminProfileInput) (*domain.PublicIdentity, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	var newHash string
	if in.NewPassword != "" {
		hash, err := auth.HashPassword(in.NewPassword, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		newHash = hash
	}

	updated, err := s.identities.UpdateAdmin(ctx, id, func(identity *domain.Identity) error {
		if newHash != "" {
			if err := auth.ComparePassword(identity.PasswordHash, in.CurrentPassword); err != nil {
				return apperrors.NewUnauthorized("current password is incorrect")
			}
			identity.PasswordHash = newHash
		}
		identity.Name = in.Name
		identity.Email = in.Email
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("administrator profile updated", zap.String("email", updated.Email))
	return updated.Public(), nil
}

// ResetStandardAccounts deletes every standard account and the access
// requests that referred to them. Administrators are kept.
func (s *AccountService) ResetStandardAccounts(ctx context.Context) (int, error) {
	removed, err := s.identities.ResetStandard(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.requests.Reset(ctx); err != nil {
		return removed, err
	}
	s.logger.Warn("standard accounts reset", zap.Int("removed", removed))
	s.metrics.RecordAccountEvent("reset")
	return removed, nil
}
