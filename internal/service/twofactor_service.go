package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/credit-ledger/internal/auth"
	"github.com/spec-kit/credit-ledger/internal/domain"
	"github.com/spec-kit/credit-ledger/internal/repository"
	"github.com/spec-kit/credit-ledger/internal/validation"
	apperrors "github.com/spec-kit/credit-ledger/pkg/util"
)

// SetTwoFactorInput toggles the PIN gate. Pin is required only when enabling.
type SetTwoFactorInput struct {
	Enabled         bool   `json:"enabled"`
	Pin             string `json:"pin"`
	CurrentPassword string `json:"currentPassword" validate:"required"`
}

// TwoFactorService manages the optional PIN second factor.
type TwoFactorService struct {
	identities repository.IdentityRepository
	validator  *validation.Validator
	logger     *zap.Logger
}

// NewTwoFactorService builds the service.
func NewTwoFactorService(identities repository.IdentityRepository, validator *validation.Validator, logger *zap.Logger) *TwoFactorService {
	return &TwoFactorService{identities: identities, validator: validator, logger: orNop(logger)}
}

// SetTwoFactor enables or disables the PIN after re-proving the password.
// A malformed PIN is rejected before the password is checked.
func (s *TwoFactorService) SetTwoFactor(ctx context.Context, email string, in SetTwoFactorInput) (*domain.PublicIdentity, error) {
	if in.Enabled && !validation.IsPin(in.Pin) {
		return nil, apperrors.NewValidationError("PIN must be exactly 6 digits",
			map[string]any{"pin": "PIN must be exactly 6 digits"})
	}
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	updated, err := s.identities.UpdateAny(ctx, email, func(identity *domain.Identity) error {
		if err := auth.ComparePassword(identity.PasswordHash, in.CurrentPassword); err != nil {
			return apperrors.NewUnauthorized("current password is incorrect")
		}
		identity.TwoFactorEnabled = in.Enabled
		if in.Enabled {
			identity.TwoFactorPin = in.Pin
		} else {
			identity.TwoFactorPin = ""
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("two-factor updated", zap.String("email", email), zap.Bool("enabled", in.Enabled))
	return updated.Public(), nil
}

// VerifyTwoFactorPin returns the account when pin matches its stored PIN and
// nil otherwise, including for unknown accounts and accounts without a PIN.
func (s *TwoFactorService) VerifyTwoFactorPin(ctx context.Context, email, pin string) (*domain.PublicIdentity, error) {
	identity, err := s.identities.FindByEmail(ctx, email)
	if err != nil {
		if apperrors.ToDomainError(err).Code == apperrors.CodeNotFound {
			return nil, nil
		}
		return nil, err
	}
	if !identity.TwoFactorEnabled || identity.TwoFactorPin == "" {
		return nil, nil
	}
	if !auth.EqualSecret(identity.TwoFactorPin, pin) {
		return nil, nil
	}
	return identity.Public(), nil
}
