package worker

import (
	"github.com/spec-kit/credit-ledger/internal/service"
)

// StartAnalyticsWorker registers analytics handlers.
func StartAnalyticsWorker(analyticsService *service.AnalyticsService) {
	if analyticsService == nil {
		return
	}
	analyticsService.RegisterHandlers()
}
