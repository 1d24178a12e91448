package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/credit-ledger/internal/domain"
	"github.com/spec-kit/credit-ledger/internal/events"
	"github.com/spec-kit/credit-ledger/internal/observability"
	"github.com/spec-kit/credit-ledger/internal/repository"
	apperrors "github.com/spec-kit/credit-ledger/pkg/util"
)

// LedgerService meters credits for standard accounts. Every operation is one
// locked read-modify-write of the users collection, so checks and writes never
// interleave with another writer.
type LedgerService struct {
	identities repository.IdentityRepository
	events     publisher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// LedgerDependencies encapsulates requirements for the ledger service.
type LedgerDependencies struct {
	Identities repository.IdentityRepository
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewLedgerService builds the service.
func NewLedgerService(deps LedgerDependencies) *LedgerService {
	logger := orNop(deps.Logger)
	return &LedgerService{
		identities: deps.Identities,
		events:     newPublisher(deps.Dispatcher, logger),
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// SpendCredit takes one credit. Administrators are not metered and come back
// unchanged.
func (s *LedgerService) SpendCredit(ctx context.Context, email string) (*domain.PublicIdentity, error) {
	updated, err := s.identities.UpdateStandard(ctx, email, func(identity *domain.Identity) error {
		if identity.Credits <= 0 {
			return apperrors.NewInsufficientCredits(identity.Credits)
		}
		identity.Credits--
		return nil
	})
	if err != nil {
		if apperrors.ToDomainError(err).Code == apperrors.CodeNotFound {
			return s.unmeteredAdmin(ctx, email, err)
		}
		return nil, err
	}

	s.metrics.RecordCreditSpent()
	s.events.publish(ctx, events.New(events.EventCreditsSpent, email, events.CreditsPayload{Balance: updated.Credits}))
	return updated.Public(), nil
}

// RefundCredit returns a credit taken by SpendCredit for work that did not
// complete. The balance never rises past UnlimitedCredits.
func (s *LedgerService) RefundCredit(ctx context.Context, email string) (*domain.PublicIdentity, error) {
	updated, err := s.identities.UpdateStandard(ctx, email, func(identity *domain.Identity) error {
		if identity.Credits < domain.UnlimitedCredits {
			identity.Credits++
		}
		return nil
	})
	if err != nil {
		if apperrors.ToDomainError(err).Code == apperrors.CodeNotFound {
			return s.unmeteredAdmin(ctx, email, err)
		}
		return nil, err
	}

	s.events.publish(ctx, events.New(events.EventCreditsRefunded, email, events.CreditsPayload{Balance: updated.Credits}))
	return updated.Public(), nil
}

func (s *LedgerService) unmeteredAdmin(ctx context.Context, email string, notFound error) (*domain.PublicIdentity, error) {
	identity, err := s.identities.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !identity.IsAdmin() {
		return nil, notFound
	}
	return identity.Public(), nil
}

// GrantCredits sets the balance to exactly amount.
func (s *LedgerService) GrantCredits(ctx context.Context, email string, amount int) (*domain.PublicIdentity, error) {
	if amount < 0 {
		return nil, apperrors.NewValidationError("credits must not be negative",
			map[string]any{"credits": "credits must not be negative"})
	}
	if amount > domain.UnlimitedCredits {
		return nil, apperrors.NewValidationError("credits exceed the maximum balance",
			map[string]any{"credits": fmt.Sprintf("credits must be at most %d", domain.UnlimitedCredits)})
	}

	updated, err := s.identities.UpdateStandard(ctx, email, func(identity *domain.Identity) error {
		identity.Credits = amount
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("credits granted", zap.String("email", email), zap.Int("credits", amount))
	s.events.publish(ctx, events.New(events.EventCreditsGranted, email, events.CreditsPayload{Balance: amount}))
	return updated.Public(), nil
}

// IssueVoucher adds an activation key to the user's own list.
func (s *LedgerService) IssueVoucher(ctx context.Context, email, key string, credits int) (*domain.PublicIdentity, error) {
	key = strings.TrimSpace(key)
	details := map[string]any{}
	if key == "" {
		details["key"] = "key is required"
	}
	switch {
	case credits <= 0:
		details["credits"] = "credits must be greater than 0"
	case credits > domain.UnlimitedCredits:
		details["credits"] = fmt.Sprintf("credits must be at most %d", domain.UnlimitedCredits)
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid activation key", details)
	}

	updated, err := s.identities.UpdateStandard(ctx, email, func(identity *domain.Identity) error {
		if identity.FindActivationKey(key) >= 0 {
			return apperrors.NewDuplicateKey(key)
		}
		identity.ActivationKeys = append(identity.ActivationKeys, domain.ActivationKey{Key: key, Credits: credits})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("voucher issued", zap.String("email", email), zap.String("key", events.MaskKey(key)), zap.Int("credits", credits))
	s.metrics.RecordVoucher("issued")
	s.events.publish(ctx, events.New(events.EventVoucherIssued, email,
		events.VoucherPayload{Key: events.MaskKey(key), Credits: credits, Balance: updated.Credits}))
	return updated.Public(), nil
}

// RedeemVoucher converts the user's key into credits and consumes it. A key
// the user does not hold fails with InvalidKey and changes nothing.
func (s *LedgerService) RedeemVoucher(ctx context.Context, email, key string) (*domain.PublicIdentity, error) {
	key = strings.TrimSpace(key)
	var redeemed int
	updated, err := s.identities.UpdateStandard(ctx, email, func(identity *domain.Identity) error {
		idx := identity.FindActivationKey(key)
		if idx < 0 {
			return apperrors.NewInvalidKey()
		}
		redeemed = identity.ActivationKeys[idx].Credits
		if identity.Credits > domain.UnlimitedCredits-redeemed {
			return apperrors.NewValidationError("redeeming this key would exceed the maximum balance",
				map[string]any{"credits": identity.Credits, "key": events.MaskKey(key)})
		}
		identity.Credits += redeemed
		identity.ActivationKeys = append(identity.ActivationKeys[:idx], identity.ActivationKeys[idx+1:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("voucher redeemed", zap.String("email", email), zap.Int("credits", redeemed))
	s.metrics.RecordVoucher("redeemed")
	s.events.publish(ctx, events.New(events.EventVoucherRedeemed, email,
		events.VoucherPayload{Key: events.MaskKey(key), Credits: redeemed, Balance: updated.Credits}))
	return updated.Public(), nil
}

// RevokeVoucher removes a key without redeeming it. Revoking a key the user
// does not hold is a no-op.
func (s *LedgerService) RevokeVoucher(ctx context.Context, email, key string) (*domain.PublicIdentity, error) {
	key = strings.TrimSpace(key)
	revoked := false
	updated, err := s.identities.UpdateStandard(ctx, email, func(identity *domain.Identity) error {
		if idx := identity.FindActivationKey(key); idx >= 0 {
			identity.ActivationKeys = append(identity.ActivationKeys[:idx], identity.ActivationKeys[idx+1:]...)
			revoked = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if revoked {
		s.logger.Info("voucher revoked", zap.String("email", email), zap.String("key", events.MaskKey(key)))
		s.metrics.RecordVoucher("revoked")
		s.events.publish(ctx, events.New(events.EventVoucherRevoked, email,
			events.VoucherPayload{Key: events.MaskKey(key), Balance: updated.Credits}))
	}
	return updated.Public(), nil
}
