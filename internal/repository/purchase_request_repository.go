package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/spec-kit/credit-ledger/internal/docstore"
	"github.com/spec-kit/credit-ledger/internal/domain"
	apperrors "github.com/spec-kit/credit-ledger/pkg/util"
)

// PurchaseRequestsCollection holds credit plan purchase requests.
const PurchaseRequestsCollection = "purchase_requests"

// PurchaseRequestRepository stores purchase requests awaiting manual fulfilment.
type PurchaseRequestRepository interface {
	Create(ctx context.Context, req *domain.PurchaseRequest) error
	List(ctx context.Context) ([]domain.PurchaseRequest, error)
	SetStatus(ctx context.Context, id string, status domain.PurchaseRequestStatus) (*domain.PurchaseRequest, error)
	Reset(ctx context.Context) error
}

type purchaseRequestRepository struct {
	requests *docstore.Collection[domain.PurchaseRequest]
}

// NewPurchaseRequestRepository returns a document-store backed implementation.
func NewPurchaseRequestRepository(store docstore.Store, locker docstore.Locker) PurchaseRequestRepository {
	return &purchaseRequestRepository{
		requests: docstore.NewCollection[domain.PurchaseRequest](PurchaseRequestsCollection, store, locker),
	}
}

func (r *purchaseRequestRepository) Create(ctx context.Context, req *domain.PurchaseRequest) error {
	return r.requests.Update(ctx, func(all []domain.PurchaseRequest) ([]domain.PurchaseRequest, error) {
		return append(all, *req), nil
	})
}

// List returns requests newest first.
func (r *purchaseRequestRepository) List(ctx context.Context) ([]domain.PurchaseRequest, error) {
	all, err := r.requests.Load(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	return all, nil
}

func (r *purchaseRequestRepository) SetStatus(ctx context.Context, id string, status domain.PurchaseRequestStatus) (*domain.PurchaseRequest, error) {
	var updated domain.PurchaseRequest
	err := r.requests.Update(ctx, func(all []domain.PurchaseRequest) ([]domain.PurchaseRequest, error) {
		for i := range all {
			if all[i].ID == id {
				all[i].Status = status
				updated = all[i]
				return all, nil
			}
		}
		return nil, errNoMatch
	})
	if errors.Is(err, errNoMatch) {
		return nil, apperrors.NewNotFound("purchase request", map[string]any{"id": id})
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *purchaseRequestRepository) Reset(ctx context.Context) error {
	return r.requests.Update(ctx, func([]domain.PurchaseRequest) ([]domain.PurchaseRequest, error) {
		return []domain.PurchaseRequest{}, nil
	})
}
