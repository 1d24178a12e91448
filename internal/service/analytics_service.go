package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/credit-ledger/internal/domain"
	"github.com/spec-kit/credit-ledger/internal/events"
	"github.com/spec-kit/credit-ledger/internal/repository"
)

// AnalyticsReport is the administrator view of generation activity.
type AnalyticsReport struct {
	Analytics domain.Analytics       `json:"analytics"`
	Activity  []domain.ActivityEntry `json:"activity"`
}

// AnalyticsService keeps fire-and-forget generation counters.
type AnalyticsService struct {
	repo       repository.AnalyticsRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewAnalyticsService builds the service.
func NewAnalyticsService(repo repository.AnalyticsRepository, dispatcher events.Dispatcher, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		repo:       repo,
		dispatcher: dispatcher,
		logger:     orNop(logger),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RegisterHandlers subscribes the service to generation results.
func (s *AnalyticsService) RegisterHandlers() {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Subscribe(events.EventGenerationResult, s.handleGenerationResult)
}

func (s *AnalyticsService) handleGenerationResult(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.GenerationPayload)
	if !ok {
		return nil
	}
	return s.RecordGeneration(ctx, payload.Status, payload.Language, payload.PayloadType)
}

// RecordGeneration logs the attempt and updates the aggregates. Failures only
// bump the failure counter.
func (s *AnalyticsService) RecordGeneration(ctx context.Context, status domain.GenerationStatus, language, payloadType string) error {
	now := s.now()
	if err := s.repo.AppendActivity(ctx, domain.ActivityEntry{
		Timestamp:   now,
		Status:      status,
		Language:    language,
		PayloadType: payloadType,
	}); err != nil {
		return err
	}

	_, err := s.repo.Update(ctx, func(a *domain.Analytics) error {
		if status == domain.GenerationFailure {
			a.FailedGenerations++
			return nil
		}
		a.PayloadsGenerated++
		a.SuccessfulGenerations++
		a.GenerationHistory[int(now.Month())-1].Generated++
		a.LanguageCounts[language]++
		a.PayloadTypeCounts[payloadType]++
		return nil
	})
	return err
}

// Report returns the aggregates and the recent activity.
func (s *AnalyticsService) Report(ctx context.Context) (*AnalyticsReport, error) {
	analytics, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	activity, err := s.repo.RecentActivity(ctx)
	if err != nil {
		return nil, err
	}
	return &AnalyticsReport{Analytics: analytics, Activity: activity}, nil
}

// Reset zeroes the counters and clears the log.
func (s *AnalyticsService) Reset(ctx context.Context) error {
	if err := s.repo.Reset(ctx); err != nil {
		return err
	}
	s.logger.Info("analytics reset")
	return nil
}
