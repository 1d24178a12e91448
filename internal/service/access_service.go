package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/credit-ledger/internal/domain"
	"github.com/spec-kit/credit-ledger/internal/events"
	"github.com/spec-kit/credit-ledger/internal/repository"
	"github.com/spec-kit/credit-ledger/internal/validation"
	apperrors "github.com/spec-kit/credit-ledger/pkg/util"
)

// AccessRequestInput is the questionnaire a standard user fills in.
type AccessRequestInput struct {
	FullName   string `json:"fullName" validate:"required,min=3,max=100"`
	Occupation string `json:"occupation" validate:"required,min=3,max=100"`
	Reason     string `json:"reason" validate:"required,min=20,max=500"`
}

// AccessService runs the access-request and approval workflow.
type AccessService struct {
	identities repository.IdentityRepository
	requests   repository.AccessRequestRepository
	validator  *validation.Validator
	events     publisher
	logger     *zap.Logger
	now        func() time.Time
}

// AccessDependencies encapsulates requirements for the access service.
type AccessDependencies struct {
	Identities     repository.IdentityRepository
	AccessRequests repository.AccessRequestRepository
	Validator      *validation.Validator
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewAccessService builds the service.
func NewAccessService(deps AccessDependencies) *AccessService {
	logger := orNop(deps.Logger)
	return &AccessService{
		identities: deps.Identities,
		requests:   deps.AccessRequests,
		validator:  deps.Validator,
		events:     newPublisher(deps.Dispatcher, logger),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SubmitAccessRequest stores the questionnaire and marks the form submitted.
// Only standard accounts file requests; if the flag cannot be set the stored
// request is withdrawn so the user can submit again.
func (s *AccessService) SubmitAccessRequest(ctx context.Context, email string, in AccessRequestInput) (*domain.PublicIdentity, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	identity, err := s.identities.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if identity.IsAdmin() {
		return nil, apperrors.NewForbidden("administrators do not need an access request")
	}

	err = s.requests.Create(ctx, &domain.AccessRequest{
		Email:      email,
		FullName:   in.FullName,
		Occupation: in.Occupation,
		Reason:     in.Reason,
		Status:     domain.AccessRequestPending,
		Timestamp:  s.now(),
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.MarkFormSubmitted(ctx, email)
	if err != nil {
		if rollbackErr := s.requests.DeleteByEmail(ctx, email); rollbackErr != nil {
			s.logger.Error("withdraw access request", zap.String("email", email), zap.Error(rollbackErr))
		}
		return nil, err
	}

	s.logger.Info("access request submitted", zap.String("email", email))
	return updated, nil
}

// ListAccessRequests returns pending requests first, newest first within each group.
func (s *AccessService) ListAccessRequests(ctx context.Context) ([]domain.AccessRequest, error) {
	return s.requests.List(ctx)
}

// ApproveAccess enables code generation for the account and closes its request.
func (s *AccessService) ApproveAccess(ctx context.Context, email string) error {
	if _, err := s.identities.UpdateStandard(ctx, email, func(identity *domain.Identity) error {
		identity.CodeGenerationEnabled = true
		return nil
	}); err != nil {
		return err
	}
	if _, err := s.requests.SetStatus(ctx, email, domain.AccessRequestApproved); err != nil {
		return err
	}

	s.logger.Info("access approved", zap.String("email", email))
	s.events.publish(ctx, events.New(events.EventAccessApproved, email, nil))
	return nil
}

// MarkFormSubmitted flags the questionnaire as completed.
func (s *AccessService) MarkFormSubmitted(ctx context.Context, email string) (*domain.PublicIdentity, error) {
	updated, err := s.identities.UpdateStandard(ctx, email, func(identity *domain.Identity) error {
		identity.FormSubmitted = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated.Public(), nil
}
