package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/credit-ledger/internal/auth"
	"github.com/spec-kit/credit-ledger/internal/docstore"
	"github.com/spec-kit/credit-ledger/internal/domain"
	apperrors "github.com/spec-kit/credit-ledger/pkg/util"
)

func newIdentityRepo(t *testing.T) (IdentityRepository, *docstore.MemoryStore) {
	t.Helper()
	store := docstore.NewMemoryStore()
	return NewIdentityRepository(store, docstore.NewMutexLocker(time.Second), 2), store
}

func hash(t *testing.T, pw string) string {
	t.Helper()
	h, err := auth.HashPassword(pw, bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func TestCreate_FirstAccountIsAdmin(t *testing.T) {
	ctx := context.Background()
	repo, _ := newIdentityRepo(t)

	first, err := repo.Create(ctx, "Root", "root@gmail.com", "h")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, first.Role)
	require.Equal(t, domain.UnlimitedCredits, first.Credits)
	require.True(t, first.CodeGenerationEnabled)
	require.True(t, first.FormSubmitted)

	second, err := repo.Create(ctx, "Ada", "ada@gmail.com", "h")
	require.NoError(t, err)
	require.Equal(t, domain.RoleStandard, second.Role)
	require.Equal(t, 2, second.Credits)
	require.False(t, second.CodeGenerationEnabled)
	require.False(t, second.FormSubmitted)
	require.NotEqual(t, first.ID, second.ID)

	listed, err := repo.ListPublic(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, "ada@gmail.com", listed[0].Email)
}

func TestCreate_ConcurrentFirstSignupsYieldOneAdmin(t *testing.T) {
	ctx := context.Background()
	repo, _ := newIdentityRepo(t)

	const n = 8
	var wg sync.WaitGroup
	roles := make(chan domain.Role, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := repo.Create(ctx, "U", fmt.Sprintf("u%d@gmail.com", i), "h")
			if err != nil {
				errs <- err
				return
			}
			roles <- id.Role
		}(i)
	}
	wg.Wait()
	close(roles)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	admins := 0
	for role := range roles {
		if role == domain.RoleAdmin {
			admins++
		}
	}
	require.Equal(t, 1, admins)
}

func TestCreate_DuplicateAcrossCollections(t *testing.T) {
	ctx := context.Background()
	repo, _ := newIdentityRepo(t)

	_, err := repo.Create(ctx, "Root", "root@gmail.com", "h")
	require.NoError(t, err)
	_, err = repo.Create(ctx, "Ada", "ada@gmail.com", "h")
	require.NoError(t, err)

	_, err = repo.Create(ctx, "Again", "root@gmail.com", "h")
	require.ErrorIs(t, err, apperrors.ErrDuplicateAccount)
	_, err = repo.Create(ctx, "Again", "ada@gmail.com", "h")
	require.ErrorIs(t, err, apperrors.ErrDuplicateAccount)
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	repo, _ := newIdentityRepo(t)

	admin, err := repo.Bootstrap(ctx, "Root", "root@gmail.com", "h")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, admin.Role)

	_, err = repo.Bootstrap(ctx, "Other", "other@gmail.com", "h")
	require.ErrorIs(t, err, apperrors.ErrConflict)

	user, err := repo.Create(ctx, "Ada", "ada@gmail.com", "h")
	require.NoError(t, err)
	require.Equal(t, domain.RoleStandard, user.Role)
}

func TestVerify_IndistinguishableFailures(t *testing.T) {
	ctx := context.Background()
	repo, _ := newIdentityRepo(t)
	_, err := repo.Create(ctx, "Root", "root@gmail.com", hash(t, "Adm1n!pass"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, "Ada", "ada@gmail.com", hash(t, "Us3r!pass"))
	require.NoError(t, err)

	got, err := repo.Verify(ctx, "ada@gmail.com", "Us3r!pass")
	require.NoError(t, err)
	require.Equal(t, "ada@gmail.com", got.Email)

	got, err = repo.Verify(ctx, "root@gmail.com", "Adm1n!pass")
	require.NoError(t, err)
	require.True(t, got.IsAdmin())

	wrong, errWrong := repo.Verify(ctx, "ada@gmail.com", "nope")
	missing, errMissing := repo.Verify(ctx, "ghost@gmail.com", "nope")
	require.Nil(t, wrong)
	require.Nil(t, missing)
	require.NoError(t, errWrong)
	require.NoError(t, errMissing)
}

func TestDeleteStandard(t *testing.T) {
	ctx := context.Background()
	repo, _ := newIdentityRepo(t)
	_, _ = repo.Create(ctx, "Root", "root@gmail.com", "h")
	_, _ = repo.Create(ctx, "Ada", "ada@gmail.com", "h")

	require.NoError(t, repo.DeleteStandard(ctx, "ghost@gmail.com"))
	require.NoError(t, repo.DeleteStandard(ctx, "root@gmail.com"))
	require.NoError(t, repo.DeleteStandard(ctx, "ada@gmail.com"))

	_, err := repo.FindByEmail(ctx, "ada@gmail.com")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = repo.FindByEmail(ctx, "root@gmail.com")
	require.NoError(t, err)
}

func TestUpdateStandard(t *testing.T) {
	ctx := context.Background()
	repo, store := newIdentityRepo(t)
	_, _ = repo.Create(ctx, "Root", "root@gmail.com", "h")
	_, _ = repo.Create(ctx, "Ada", "ada@gmail.com", "h")

	updated, err := repo.UpdateStandard(ctx, "ada@gmail.com", func(id *domain.Identity) error {
		id.Credits = 7
		id.Email = "hijack@gmail.com"
		id.Role = domain.RoleAdmin
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 7, updated.Credits)
	require.Equal(t, "ada@gmail.com", updated.Email)
	require.Equal(t, domain.RoleStandard, updated.Role)

	_, err = repo.UpdateStandard(ctx, "root@gmail.com", func(*domain.Identity) error { return nil })
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	before, err := store.Read(ctx, UsersCollection)
	require.NoError(t, err)
	boom := errors.New("boom")
	_, err = repo.UpdateStandard(ctx, "ada@gmail.com", func(id *domain.Identity) error {
		id.Credits = 100
		return boom
	})
	require.ErrorIs(t, err, boom)
	after, err := store.Read(ctx, UsersCollection)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestUpdateAny_ReachesAdmins(t *testing.T) {
	ctx := context.Background()
	repo, _ := newIdentityRepo(t)
	_, _ = repo.Create(ctx, "Root", "root@gmail.com", "h")

	updated, err := repo.UpdateAny(ctx, "root@gmail.com", func(id *domain.Identity) error {
		id.TwoFactorEnabled = true
		id.TwoFactorPin = "123456"
		return nil
	})
	require.NoError(t, err)
	require.True(t, updated.TwoFactorEnabled)

	_, err = repo.UpdateAny(ctx, "ghost@gmail.com", func(*domain.Identity) error { return nil })
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateAdmin_EmailStaysUnique(t *testing.T) {
	ctx := context.Background()
	repo, _ := newIdentityRepo(t)
	admin, _ := repo.Create(ctx, "Root", "root@gmail.com", "h")
	_, _ = repo.Create(ctx, "Ada", "ada@gmail.com", "h")

	_, err := repo.UpdateAdmin(ctx, admin.ID, func(id *domain.Identity) error {
		id.Email = "ada@gmail.com"
		return nil
	})
	require.ErrorIs(t, err, apperrors.ErrDuplicateAccount)

	updated, err := repo.UpdateAdmin(ctx, admin.ID, func(id *domain.Identity) error {
		id.Name = "Chief"
		id.Email = "chief@gmail.com"
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "chief@gmail.com", updated.Email)
	require.Equal(t, domain.RoleAdmin, updated.Role)

	found, err := repo.FindByEmail(ctx, "chief@gmail.com")
	require.NoError(t, err)
	require.Equal(t, "Chief", found.Name)

	_, err = repo.UpdateAdmin(ctx, "missing", func(*domain.Identity) error { return nil })
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestResetStandard(t *testing.T) {
	ctx := context.Background()
	repo, _ := newIdentityRepo(t)
	_, _ = repo.Create(ctx, "Root", "root@gmail.com", "h")
	_, _ = repo.Create(ctx, "Ada", "ada@gmail.com", "h")
	_, _ = repo.Create(ctx, "Bob", "bob@gmail.com", "h")

	removed, err := repo.ResetStandard(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	listed, err := repo.ListPublic(ctx)
	require.NoError(t, err)
	require.Empty(t, listed)
	_, err = repo.FindByEmail(ctx, "root@gmail.com")
	require.NoError(t, err)
}

func TestAccessRequests(t *testing.T) {
	ctx := context.Background()
	repo := NewAccessRequestRepository(docstore.NewMemoryStore(), docstore.NewMutexLocker(time.Second))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, &domain.AccessRequest{Email: "a@gmail.com", Status: domain.AccessRequestPending, Timestamp: base}))
	require.NoError(t, repo.Create(ctx, &domain.AccessRequest{Email: "b@gmail.com", Status: domain.AccessRequestPending, Timestamp: base.Add(time.Hour)}))
	err := repo.Create(ctx, &domain.AccessRequest{Email: "a@gmail.com"})
	require.ErrorIs(t, err, apperrors.ErrConflict)

	ok, err := repo.SetStatus(ctx, "b@gmail.com", domain.AccessRequestApproved)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = repo.SetStatus(ctx, "ghost@gmail.com", domain.AccessRequestApproved)
	require.NoError(t, err)
	require.False(t, ok)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Equal(t, "a@gmail.com", list[0].Email)
	require.Equal(t, domain.AccessRequestApproved, list[1].Status)

	require.NoError(t, repo.DeleteByEmail(ctx, "a@gmail.com"))
	require.NoError(t, repo.DeleteByEmail(ctx, "a@gmail.com"))
	_, err = repo.GetByEmail(ctx, "a@gmail.com")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPurchaseRequests(t *testing.T) {
	ctx := context.Background()
	repo := NewPurchaseRequestRepository(docstore.NewMemoryStore(), docstore.NewMutexLocker(time.Second))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, &domain.PurchaseRequest{ID: "1", Plan: "pro", Timestamp: base}))
	require.NoError(t, repo.Create(ctx, &domain.PurchaseRequest{ID: "2", Plan: "team", Timestamp: base.Add(time.Minute)}))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Equal(t, "2", list[0].ID)

	updated, err := repo.SetStatus(ctx, "1", domain.PurchaseRequestProcessed)
	require.NoError(t, err)
	require.Equal(t, domain.PurchaseRequestProcessed, updated.Status)

	_, err = repo.SetStatus(ctx, "9", domain.PurchaseRequestProcessed)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSettingsDefaults(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingsRepository(docstore.NewMemoryStore(), docstore.NewMutexLocker(time.Second))

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.DefaultSettings(), got)

	saved, err := repo.Save(ctx, domain.Settings{MaintenanceMode: true})
	require.NoError(t, err)
	require.True(t, saved.MaintenanceMode)

	got, err = repo.Get(ctx)
	require.NoError(t, err)
	require.False(t, got.AllowRegistrations)
}

func TestActivityLogIsCapped(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalyticsRepository(docstore.NewMemoryStore(), docstore.NewMutexLocker(time.Second))

	for i := 0; i < domain.MaxActivityLogEntries+5; i++ {
		require.NoError(t, repo.AppendActivity(ctx, domain.ActivityEntry{Language: fmt.Sprint(i)}))
	}
	log, err := repo.RecentActivity(ctx)
	require.NoError(t, err)
	require.Len(t, log, domain.MaxActivityLogEntries)
	require.Equal(t, fmt.Sprint(domain.MaxActivityLogEntries+4), log[0].Language)

	a, err := repo.Update(ctx, func(a *domain.Analytics) error {
		a.PayloadsGenerated++
		a.LanguageCounts["go"]++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, a.PayloadsGenerated)
	require.Equal(t, 1, a.LanguageCounts["go"])

	require.NoError(t, repo.Reset(ctx))
	a, err = repo.Get(ctx)
	require.NoError(t, err)
	require.Zero(t, a.PayloadsGenerated)
	log, err = repo.RecentActivity(ctx)
	require.NoError(t, err)
	require.Empty(t, log)
}
