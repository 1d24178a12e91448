package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/credit-ledger/internal/domain"
	"github.com/spec-kit/credit-ledger/internal/repository"
)

// SettingsService reads and saves the portal switches.
type SettingsService struct {
	settings repository.SettingsRepository
	logger   *zap.Logger
}

// NewSettingsService builds the service.
func NewSettingsService(settings repository.SettingsRepository, logger *zap.Logger) *SettingsService {
	return &SettingsService{settings: settings, logger: orNop(logger)}
}

func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	return s.settings.Get(ctx)
}

func (s *SettingsService) Save(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	saved, err := s.settings.Save(ctx, settings)
	if err != nil {
		return domain.Settings{}, err
	}
	s.logger.Info("settings saved",
		zap.Bool("maintenance_mode", saved.MaintenanceMode),
		zap.Bool("allow_registrations", saved.AllowRegistrations),
	)
	return saved, nil
}
