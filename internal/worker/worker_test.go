package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/credit-ledger/internal/docstore"
	"github.com/spec-kit/credit-ledger/internal/domain"
	"github.com/spec-kit/credit-ledger/internal/events"
	"github.com/spec-kit/credit-ledger/internal/repository"
	"github.com/spec-kit/credit-ledger/internal/service"
)

func TestAnalyticsWorker_RecordsGenerationEvents(t *testing.T) {
	ctx := context.Background()
	dispatcher := events.NewInMemoryDispatcher(nil)
	repo := repository.NewAnalyticsRepository(docstore.NewMemoryStore(), docstore.NewMutexLocker(time.Second))
	analytics := service.NewAnalyticsService(repo, dispatcher, nil)

	StartAnalyticsWorker(analytics)
	StartAnalyticsWorker(nil)

	require.NoError(t, dispatcher.Publish(ctx, events.New(events.EventGenerationResult, "ada@gmail.com",
		events.GenerationPayload{Status: domain.GenerationSuccess, Language: "go", PayloadType: "cli"})))
	require.NoError(t, dispatcher.Publish(ctx, events.New(events.EventGenerationResult, "ada@gmail.com",
		events.GenerationPayload{Status: domain.GenerationFailure, Language: "go", PayloadType: "cli"})))

	report, err := analytics.Report(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.Analytics.SuccessfulGenerations)
	require.Equal(t, 1, report.Analytics.FailedGenerations)
	require.Equal(t, 1, report.Analytics.LanguageCounts["go"])
	require.Len(t, report.Activity, 2)
	require.Equal(t, domain.GenerationFailure, report.Activity[0].Status)
}
