package repository

import (
	"context"

	"github.com/spec-kit/credit-ledger/internal/docstore"
	"github.com/spec-kit/credit-ledger/internal/domain"
)

// Analytics document and activity log collection names.
const (
	AnalyticsDocument     = "analytics"
	ActivityLogCollection = "activity_log"
)

// AnalyticsRepository keeps the aggregate counters and the capped activity log.
type AnalyticsRepository interface {
	Get(ctx context.Context) (domain.Analytics, error)
	Update(ctx context.Context, fn func(*domain.Analytics) error) (domain.Analytics, error)
	Reset(ctx context.Context) error
	RecentActivity(ctx context.Context) ([]domain.ActivityEntry, error)
	AppendActivity(ctx context.Context, entry domain.ActivityEntry) error
}

type analyticsRepository struct {
	analytics *docstore.Document[domain.Analytics]
	activity  *docstore.Collection[domain.ActivityEntry]
}

// NewAnalyticsRepository returns a document-store backed implementation.
func NewAnalyticsRepository(store docstore.Store, locker docstore.Locker) AnalyticsRepository {
	return &analyticsRepository{
		analytics: docstore.NewDocument[domain.Analytics](AnalyticsDocument, store, locker, domain.NewAnalytics),
		activity:  docstore.NewCollection[domain.ActivityEntry](ActivityLogCollection, store, locker),
	}
}

func (r *analyticsRepository) Get(ctx context.Context) (domain.Analytics, error) {
	return r.analytics.Load(ctx)
}

func (r *analyticsRepository) Update(ctx context.Context, fn func(*domain.Analytics) error) (domain.Analytics, error) {
	return r.analytics.Update(ctx, func(a *domain.Analytics) error {
		if a.LanguageCounts == nil {
			a.LanguageCounts = map[string]int{}
		}
		if a.PayloadTypeCounts == nil {
			a.PayloadTypeCounts = map[string]int{}
		}
		if len(a.GenerationHistory) != 12 {
			a.GenerationHistory = domain.NewAnalytics().GenerationHistory
		}
		return fn(a)
	})
}

func (r *analyticsRepository) Reset(ctx context.Context) error {
	if _, err := r.analytics.Update(ctx, func(a *domain.Analytics) error {
		*a = domain.NewAnalytics()
		return nil
	}); err != nil {
		return err
	}
	return r.activity.Update(ctx, func([]domain.ActivityEntry) ([]domain.ActivityEntry, error) {
		return []domain.ActivityEntry{}, nil
	})
}

// RecentActivity returns the log newest first.
func (r *analyticsRepository) RecentActivity(ctx context.Context) ([]domain.ActivityEntry, error) {
	return r.activity.Load(ctx)
}

// AppendActivity prepends entry and drops anything past the cap.
func (r *analyticsRepository) AppendActivity(ctx context.Context, entry domain.ActivityEntry) error {
	return r.activity.Update(ctx, func(log []domain.ActivityEntry) ([]domain.ActivityEntry, error) {
		log = append([]domain.ActivityEntry{entry}, log...)
		if len(log) > domain.MaxActivityLogEntries {
			log = log[:domain.MaxActivityLogEntries]
		}
		return log, nil
	})
}
