package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/credit-ledger/internal/domain"
	"github.com/spec-kit/credit-ledger/internal/repository"
	"github.com/spec-kit/credit-ledger/internal/validation"
)

// PurchaseRequestInput names the credit plan a user wants to buy.
type PurchaseRequestInput struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
	Plan string `json:"plan" validate:"required,max=100"`
}

// PurchaseService records plan purchases for manual fulfilment.
type PurchaseService struct {
	requests  repository.PurchaseRequestRepository
	validator *validation.Validator
	logger    *zap.Logger
	now       func() time.Time
}

// NewPurchaseService builds the service.
func NewPurchaseService(requests repository.PurchaseRequestRepository, validator *validation.Validator, logger *zap.Logger) *PurchaseService {
	return &PurchaseService{
		requests:  requests,
		validator: validator,
		logger:    orNop(logger),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SubmitPurchaseRequest records a pending purchase for email.
func (s *PurchaseService) SubmitPurchaseRequest(ctx context.Context, email string, in PurchaseRequestInput) (*domain.PurchaseRequest, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	req := &domain.PurchaseRequest{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     email,
		Plan:      in.Plan,
		Status:    domain.PurchaseRequestPending,
		Timestamp: s.now(),
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	s.logger.Info("purchase requested", zap.String("email", email), zap.String("plan", in.Plan))
	return req, nil
}

// ListPurchaseRequests returns requests newest first.
func (s *PurchaseService) ListPurchaseRequests(ctx context.Context) ([]domain.PurchaseRequest, error) {
	return s.requests.List(ctx)
}

// ProcessPurchaseRequest marks a request fulfilled.
func (s *PurchaseService) ProcessPurchaseRequest(ctx context.Context, id string) (*domain.PurchaseRequest, error) {
	return s.requests.SetStatus(ctx, id, domain.PurchaseRequestProcessed)
}
