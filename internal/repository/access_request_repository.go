package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/spec-kit/credit-ledger/internal/docstore"
	"github.com/spec-kit/credit-ledger/internal/domain"
	apperrors "github.com/spec-kit/credit-ledger/pkg/util"
)

// AccessRequestsCollection holds the access-request questionnaires.
const AccessRequestsCollection = "access_requests"

// AccessRequestRepository stores at most one access request per email.
type AccessRequestRepository interface {
	Create(ctx context.Context, req *domain.AccessRequest) error
	List(ctx context.Context) ([]domain.AccessRequest, error)
	GetByEmail(ctx context.Context, email string) (*domain.AccessRequest, error)
	SetStatus(ctx context.Context, email string, status domain.AccessRequestStatus) (bool, error)
	DeleteByEmail(ctx context.Context, email string) error
	Reset(ctx context.Context) error
}

type accessRequestRepository struct {
	requests *docstore.Collection[domain.AccessRequest]
}

// NewAccessRequestRepository returns a document-store backed implementation.
func NewAccessRequestRepository(store docstore.Store, locker docstore.Locker) AccessRequestRepository {
	return &accessRequestRepository{
		requests: docstore.NewCollection[domain.AccessRequest](AccessRequestsCollection, store, locker),
	}
}

func (r *accessRequestRepository) Create(ctx context.Context, req *domain.AccessRequest) error {
	return r.requests.Update(ctx, func(all []domain.AccessRequest) ([]domain.AccessRequest, error) {
		for _, existing := range all {
			if existing.Email == req.Email {
				return nil, apperrors.NewConflict("an access request was already submitted for this account",
					map[string]any{"email": req.Email})
			}
		}
		return append(all, *req), nil
	})
}

// List returns pending requests first, each group newest first.
func (r *accessRequestRepository) List(ctx context.Context) ([]domain.AccessRequest, error) {
	all, err := r.requests.Load(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		pi, pj := all[i].Status == domain.AccessRequestPending, all[j].Status == domain.AccessRequestPending
		if pi != pj {
			return pi
		}
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	return all, nil
}

func (r *accessRequestRepository) GetByEmail(ctx context.Context, email string) (*domain.AccessRequest, error) {
	all, err := r.requests.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Email == email {
			return &all[i], nil
		}
	}
	return nil, apperrors.NewNotFound("access request", map[string]any{"email": email})
}

// SetStatus reports whether a request for email existed.
func (r *accessRequestRepository) SetStatus(ctx context.Context, email string, status domain.AccessRequestStatus) (bool, error) {
	err := r.requests.Update(ctx, func(all []domain.AccessRequest) ([]domain.AccessRequest, error) {
		for i := range all {
			if all[i].Email == email {
				all[i].Status = status
				return all, nil
			}
		}
		return nil, errNoMatch
	})
	if errors.Is(err, errNoMatch) {
		return false, nil
	}
	return err == nil, err
}

func (r *accessRequestRepository) DeleteByEmail(ctx context.Context, email string) error {
	err := r.requests.Update(ctx, func(all []domain.AccessRequest) ([]domain.AccessRequest, error) {
		for i := range all {
			if all[i].Email == email {
				return append(all[:i], all[i+1:]...), nil
			}
		}
		return nil, errNoMatch
	})
	if errors.Is(err, errNoMatch) {
		return nil
	}
	return err
}

func (r *accessRequestRepository) Reset(ctx context.Context) error {
	return r.requests.Update(ctx, func([]domain.AccessRequest) ([]domain.AccessRequest, error) {
		return []domain.AccessRequest{}, nil
	})
}
