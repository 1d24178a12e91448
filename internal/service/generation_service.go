package service

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/spec-kit/credit-ledger/internal/domain"
	"github.com/spec-kit/credit-ledger/internal/events"
	"github.com/spec-kit/credit-ledger/internal/generator"
	"github.com/spec-kit/credit-ledger/internal/observability"
	"github.com/spec-kit/credit-ledger/internal/policy"
	"github.com/spec-kit/credit-ledger/internal/repository"
	"github.com/spec-kit/credit-ledger/internal/validation"
	apperrors "github.com/spec-kit/credit-ledger/pkg/util"
)

// GenerateInput describes a generation request.
type GenerateInput struct {
	Description string `json:"description" validate:"required,min=10,max=2000"`
	Language    string `json:"language" validate:"required,max=50"`
	PayloadType string `json:"payloadType" validate:"required,max=50"`
}

// GenerateResult carries the code and the caller's updated snapshot.
type GenerateResult struct {
	Code     string                 `json:"code"`
	Identity *domain.PublicIdentity `json:"identity"`
}

// GenerationService gates the generator behind the access policy and
// charges one credit per successful call. A failed call is refunded.
type GenerationService struct {
	identities repository.IdentityRepository
	settings   repository.SettingsRepository
	ledger     *LedgerService
	generator  generator.Generator
	validator  *validation.Validator
	events     publisher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// GenerationDependencies encapsulates requirements for the generation service.
type GenerationDependencies struct {
	Identities repository.IdentityRepository
	Settings   repository.SettingsRepository
	Ledger     *LedgerService
	Generator  generator.Generator
	Validator  *validation.Validator
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewGenerationService builds the service.
func NewGenerationService(deps GenerationDependencies) *GenerationService {
	logger := orNop(deps.Logger)
	return &GenerationService{
		identities: deps.Identities,
		settings:   deps.Settings,
		ledger:     deps.Ledger,
		generator:  deps.Generator,
		validator:  deps.Validator,
		events:     newPublisher(deps.Dispatcher, logger),
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// Capabilities evaluates the policy against the stored record rather than the
// possibly stale session snapshot.
func (s *GenerationService) Capabilities(ctx context.Context, email string) (policy.Capabilities, *domain.PublicIdentity, error) {
	identity, err := s.identities.FindByEmail(ctx, email)
	if err != nil {
		return policy.Capabilities{}, nil, err
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return policy.Capabilities{}, nil, err
	}
	public := identity.Public()
	return policy.Evaluate(public, settings.MaintenanceMode), public, nil
}

// Generate runs one metered generation for the session holder.
func (s *GenerationService) Generate(ctx context.Context, snapshot *domain.PublicIdentity, in GenerateInput) (*GenerateResult, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	caps, identity, err := s.Capabilities(ctx, snapshot.Email)
	if err != nil {
		return nil, err
	}
	if err := denial(caps, identity); err != nil {
		return nil, err
	}

	// Reserve the credit first; a failed call refunds it.
	if !caps.IsAdmin {
		identity, err = s.ledger.SpendCredit(ctx, identity.Email)
		if err != nil {
			return nil, err
		}
	}

	result, err := s.generator.Generate(ctx, generator.Request{
		Description: in.Description,
		Language:    in.Language,
		PayloadType: in.PayloadType,
	})
	if err != nil {
		s.record(ctx, identity.Email, domain.GenerationFailure, in)
		s.logger.Warn("generation failed", zap.String("email", identity.Email), zap.Error(err))
		if !caps.IsAdmin {
			if _, refundErr := s.ledger.RefundCredit(ctx, identity.Email); refundErr != nil {
				s.logger.Error("credit refund failed", zap.String("email", identity.Email), zap.Error(refundErr))
			}
		}
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, apperrors.NewGeneratorUnavailable(err)
	}

	s.record(ctx, identity.Email, domain.GenerationSuccess, in)
	return &GenerateResult{Code: result.Code, Identity: identity}, nil
}

func denial(caps policy.Capabilities, identity *domain.PublicIdentity) error {
	switch caps.GenerationArea {
	case policy.AccessFormRequired:
		return apperrors.NewDomainError(apperrors.CodeForbidden, "submit the access request form first", http.StatusForbidden,
			map[string]any{"access": string(caps.GenerationArea)})
	case policy.AccessPendingApproval:
		return apperrors.NewDomainError(apperrors.CodeForbidden, "your access request is awaiting approval", http.StatusForbidden,
			map[string]any{"access": string(caps.GenerationArea)})
	}
	switch caps.GenerationBlock {
	case policy.BlockMaintenance:
		return apperrors.NewDomainError(apperrors.CodeForbidden, "generation is paused for maintenance", http.StatusForbidden,
			map[string]any{"block": string(caps.GenerationBlock)})
	case policy.BlockNoCredits:
		return apperrors.NewInsufficientCredits(identity.Credits)
	}
	return nil
}

func (s *GenerationService) record(ctx context.Context, email string, status domain.GenerationStatus, in GenerateInput) {
	s.metrics.RecordGeneration(string(status))
	s.events.publish(ctx, events.New(events.EventGenerationResult, email, events.GenerationPayload{
		Status:      status,
		Language:    in.Language,
		PayloadType: in.PayloadType,
	}))
}
