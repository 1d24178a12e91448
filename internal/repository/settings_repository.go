package repository

import (
	"context"

	"github.com/spec-kit/credit-ledger/internal/docstore"
	"github.com/spec-kit/credit-ledger/internal/domain"
)

// SettingsDocument holds the portal-wide switches.
const SettingsDocument = "settings"

// SettingsRepository reads and replaces the settings document.
type SettingsRepository interface {
	Get(ctx context.Context) (domain.Settings, error)
	Save(ctx context.Context, settings domain.Settings) (domain.Settings, error)
}

type settingsRepository struct {
	doc *docstore.Document[domain.Settings]
}

// NewSettingsRepository returns a document-store backed implementation.
func NewSettingsRepository(store docstore.Store, locker docstore.Locker) SettingsRepository {
	return &settingsRepository{
		doc: docstore.NewDocument[domain.Settings](SettingsDocument, store, locker, domain.DefaultSettings),
	}
}

func (r *settingsRepository) Get(ctx context.Context) (domain.Settings, error) {
	return r.doc.Load(ctx)
}

func (r *settingsRepository) Save(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	return r.doc.Update(ctx, func(current *domain.Settings) error {
		*current = settings
		return nil
	})
}
