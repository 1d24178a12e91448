package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/credit-ledger/internal/auth"
	"github.com/spec-kit/credit-ledger/internal/config"
	"github.com/spec-kit/credit-ledger/internal/domain"
	"github.com/spec-kit/credit-ledger/internal/repository"
	"github.com/spec-kit/credit-ledger/internal/validation"
	apperrors "github.com/spec-kit/credit-ledger/pkg/util"
)

// LoginResult is the outcome of one login step. Token is a session token when
// State is authenticated and a pin_pending token when State is pin_pending.
type LoginResult struct {
	State     auth.LoginState
	Identity  *domain.PublicIdentity
	Token     string
	ExpiresAt time.Time
}

// ChangePasswordInput carries a self-service password change.
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,strongpassword"`
}

// AuthService coordinates login flows and credential changes.
type AuthService struct {
	identities repository.IdentityRepository
	twoFactor  *TwoFactorService
	tokenMgr   *auth.TokenManager
	validator  *validation.Validator
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	Identities repository.IdentityRepository
	TwoFactor  *TwoFactorService
	Tokens     *auth.TokenManager
	Validator  *validation.Validator
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		identities: deps.Identities,
		twoFactor:  deps.TwoFactor,
		tokenMgr:   deps.Tokens,
		validator:  deps.Validator,
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     orNop(deps.Logger),
	}
}

// Authenticate returns the public identity for matching credentials, or nil
// for an unknown email and a wrong password alike.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*domain.PublicIdentity, error) {
	return s.identities.Verify(ctx, email, password)
}

// Login runs the password step of the login state machine.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	identity, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	flow := auth.NewLoginFlow()
	switch flow.Credentials(identity) {
	case auth.StateAuthenticated:
		return s.session(flow.Identity())
	case auth.StatePinPending:
		token, exp, err := s.tokenMgr.IssuePinPending(flow.Identity())
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		return &LoginResult{State: auth.StatePinPending, Token: token, ExpiresAt: exp}, nil
	default:
		s.logger.Info("login rejected", zap.String("factor", string(flow.Reason())))
		return nil, apperrors.NewUnauthorized("invalid email or password")
	}
}

// CompletePinLogin runs the PIN step for a pin_pending token.
func (s *AuthService) CompletePinLogin(ctx context.Context, pendingToken, pin string) (*LoginResult, error) {
	claims, err := s.tokenMgr.ParseStage(pendingToken, domain.TokenStagePinPending)
	if err != nil {
		return nil, apperrors.NewUnauthorized("login session expired, sign in again")
	}

	identity, err := s.twoFactor.VerifyTwoFactorPin(ctx, claims.Email, pin)
	if err != nil {
		return nil, err
	}

	flow := auth.ResumeAtPin(claims.Email)
	if flow.Pin(identity) != auth.StateAuthenticated {
		s.logger.Info("login rejected", zap.String("factor", string(flow.Reason())))
		return nil, apperrors.NewUnauthorized("invalid PIN")
	}
	return s.session(flow.Identity())
}

// Refresh reissues a session token for the account's current state.
func (s *AuthService) Refresh(ctx context.Context, email string) (*LoginResult, error) {
	identity, err := s.identities.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.session(identity.Public())
}

func (s *AuthService) session(identity *domain.PublicIdentity) (*LoginResult, error) {
	token, exp, err := s.tokenMgr.IssueSession(identity)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{State: auth.StateAuthenticated, Identity: identity, Token: token, ExpiresAt: exp}, nil
}

// ChangePassword verifies the current password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, email string, in ChangePasswordInput) (*domain.PublicIdentity, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.NewPassword, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	updated, err := s.identities.UpdateAny(ctx, email, func(identity *domain.Identity) error {
		if err := auth.ComparePassword(identity.PasswordHash, in.CurrentPassword); err != nil {
			return apperrors.NewUnauthorized("current password is incorrect")
		}
		identity.PasswordHash = hash
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("password changed", zap.String("email", email))
	return updated.Public(), nil
}
