package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/credit-ledger/internal/auth"
	"github.com/spec-kit/credit-ledger/internal/docstore"
	"github.com/spec-kit/credit-ledger/internal/domain"
	apperrors "github.com/spec-kit/credit-ledger/pkg/util"
)

// Collection names of the two identity documents.
const (
	AdminsCollection = "admins"
	UsersCollection  = "users"
)

// IdentityMutator changes a record in place. Returning an error aborts the
// update and nothing is written.
type IdentityMutator func(*domain.Identity) error

// IdentityRepository stores administrators and standard users in two collections
// and keeps emails unique across both.
type IdentityRepository interface {
	ListPublic(ctx context.Context) ([]*domain.PublicIdentity, error)
	Create(ctx context.Context, name, email, passwordHash string) (*domain.Identity, error)
	Bootstrap(ctx context.Context, name, email, passwordHash string) (*domain.Identity, error)
	Verify(ctx context.Context, email, password string) (*domain.PublicIdentity, error)
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	DeleteStandard(ctx context.Context, email string) error
	UpdateStandard(ctx context.Context, email string, mutate IdentityMutator) (*domain.Identity, error)
	UpdateAny(ctx context.Context, email string, mutate IdentityMutator) (*domain.Identity, error)
	UpdateAdmin(ctx context.Context, id string, mutate IdentityMutator) (*domain.Identity, error)
	ResetStandard(ctx context.Context) (int, error)
}

type identityRepository struct {
	locker         docstore.Locker
	admins         *docstore.Collection[domain.Identity]
	users          *docstore.Collection[domain.Identity]
	starterCredits int
	now            func() time.Time
}

// NewIdentityRepository returns a document-store backed implementation. New
// standard accounts start with starterCredits.
func NewIdentityRepository(store docstore.Store, locker docstore.Locker, starterCredits int) IdentityRepository {
	return &identityRepository{
		locker:         locker,
		admins:         docstore.NewCollection[domain.Identity](AdminsCollection, store, locker),
		users:          docstore.NewCollection[domain.Identity](UsersCollection, store, locker),
		starterCredits: starterCredits,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (r *identityRepository) ListPublic(ctx context.Context) ([]*domain.PublicIdentity, error) {
	users, err := r.users.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.PublicIdentity, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out, nil
}

// Create holds both collection locks across the duplicate check, the
// empty-population role decision and the write, so two racing first signups
// cannot both become administrator.
func (r *identityRepository) Create(ctx context.Context, name, email, passwordHash string) (*domain.Identity, error) {
	unlock, err := docstore.LockAll(ctx, r.locker, AdminsCollection, UsersCollection)
	if err != nil {
		return nil, err
	}
	defer unlock()

	admins, users, err := r.loadBoth(ctx)
	if err != nil {
		return nil, err
	}
	if indexOf(admins, email) >= 0 || indexOf(users, email) >= 0 {
		return nil, apperrors.NewDuplicateAccount(email)
	}

	if len(admins) == 0 && len(users) == 0 {
		identity := r.newAdmin(name, email, passwordHash)
		if err := r.admins.Save(ctx, append(admins, *identity)); err != nil {
			return nil, err
		}
		return identity, nil
	}

	identity := &domain.Identity{
		ID:             uuid.NewString(),
		Name:           name,
		Email:          email,
		PasswordHash:   passwordHash,
		Role:           domain.RoleStandard,
		Credits:        r.starterCredits,
		ActivationKeys: []domain.ActivationKey{},
		CreatedAt:      r.now(),
	}
	if err := r.users.Save(ctx, append(users, *identity)); err != nil {
		return nil, err
	}
	return identity, nil
}

// Bootstrap seeds the sole administrator outside the signup path. It refuses
// once any administrator exists.
func (r *identityRepository) Bootstrap(ctx context.Context, name, email, passwordHash string) (*domain.Identity, error) {
	unlock, err := docstore.LockAll(ctx, r.locker, AdminsCollection, UsersCollection)
	if err != nil {
		return nil, err
	}
	defer unlock()

	admins, users, err := r.loadBoth(ctx)
	if err != nil {
		return nil, err
	}
	if len(admins) > 0 {
		return nil, apperrors.NewConflict("an administrator already exists", nil)
	}
	if indexOf(users, email) >= 0 {
		return nil, apperrors.NewDuplicateAccount(email)
	}

	identity := r.newAdmin(name, email, passwordHash)
	if err := r.admins.Save(ctx, append(admins, *identity)); err != nil {
		return nil, err
	}
	return identity, nil
}

func (r *identityRepository) newAdmin(name, email, passwordHash string) *domain.Identity {
	return &domain.Identity{
		ID:                    uuid.NewString(),
		Name:                  name,
		Email:                 email,
		PasswordHash:          passwordHash,
		Role:                  domain.RoleAdmin,
		Credits:               domain.UnlimitedCredits,
		CodeGenerationEnabled: true,
		FormSubmitted:         true,
		ActivationKeys:        []domain.ActivationKey{},
		CreatedAt:             r.now(),
	}
}

// Verify checks administrators first, then standard users. A miss and a wrong
// password both return nil with no error.
func (r *identityRepository) Verify(ctx context.Context, email, password string) (*domain.PublicIdentity, error) {
	identity, err := r.FindByEmail(ctx, email)
	if err != nil {
		if apperrors.ToDomainError(err).Code == apperrors.CodeNotFound {
			auth.BurnCompare(password)
			return nil, nil
		}
		return nil, err
	}
	if err := auth.ComparePassword(identity.PasswordHash, password); err != nil {
		return nil, nil
	}
	return identity.Public(), nil
}

func (r *identityRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	for _, coll := range []*docstore.Collection[domain.Identity]{r.admins, r.users} {
		records, err := coll.Load(ctx)
		if err != nil {
			return nil, err
		}
		if idx := indexOf(records, email); idx >= 0 {
			found := records[idx]
			return &found, nil
		}
	}
	return nil, apperrors.NewNotFound("account", map[string]any{"email": email})
}

func (r *identityRepository) DeleteStandard(ctx context.Context, email string) error {
	return r.users.Update(ctx, func(users []domain.Identity) ([]domain.Identity, error) {
		idx := indexOf(users, email)
		if idx < 0 {
			return users, nil
		}
		return append(users[:idx], users[idx+1:]...), nil
	})
}

func (r *identityRepository) UpdateStandard(ctx context.Context, email string, mutate IdentityMutator) (*domain.Identity, error) {
	updated, found, err := updateIn(ctx, r.users, email, mutate)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NewNotFound("account", map[string]any{"email": email})
	}
	return updated, nil
}

// UpdateAny applies mutate to the account holding email in either collection.
// Records never move between collections, so the two passes lock one at a time.
func (r *identityRepository) UpdateAny(ctx context.Context, email string, mutate IdentityMutator) (*domain.Identity, error) {
	for _, coll := range []*docstore.Collection[domain.Identity]{r.admins, r.users} {
		updated, found, err := updateIn(ctx, coll, email, mutate)
		if err != nil {
			return nil, err
		}
		if found {
			return updated, nil
		}
	}
	return nil, apperrors.NewNotFound("account", map[string]any{"email": email})
}

// UpdateAdmin edits an administrator by id. Both collections stay locked so a
// changed email is checked against every account.
func (r *identityRepository) UpdateAdmin(ctx context.Context, id string, mutate IdentityMutator) (*domain.Identity, error) {
	unlock, err := docstore.LockAll(ctx, r.locker, AdminsCollection, UsersCollection)
	if err != nil {
		return nil, err
	}
	defer unlock()

	admins, users, err := r.loadBoth(ctx)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range admins {
		if admins[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, apperrors.NewNotFound("administrator", map[string]any{"id": id})
	}

	updated := cloneIdentity(admins[idx])
	if err := mutate(&updated); err != nil {
		return nil, err
	}
	updated.ID, updated.Role = admins[idx].ID, domain.RoleAdmin

	if updated.Email != admins[idx].Email {
		clash := indexOf(users, updated.Email) >= 0
		for i := range admins {
			if i != idx && admins[i].Email == updated.Email {
				clash = true
			}
		}
		if clash {
			return nil, apperrors.NewDuplicateAccount(updated.Email)
		}
	}

	admins[idx] = updated
	if err := r.admins.Save(ctx, admins); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *identityRepository) ResetStandard(ctx context.Context) (int, error) {
	removed := 0
	err := r.users.Update(ctx, func(users []domain.Identity) ([]domain.Identity, error) {
		removed = len(users)
		return []domain.Identity{}, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (r *identityRepository) loadBoth(ctx context.Context) ([]domain.Identity, []domain.Identity, error) {
	admins, err := r.admins.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	users, err := r.users.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	return admins, users, nil
}

// updateIn runs mutate on a copy of the matching record and persists it only
// if mutate succeeds. The id, email and role are not editable this way.
func updateIn(ctx context.Context, coll *docstore.Collection[domain.Identity], email string, mutate IdentityMutator) (*domain.Identity, bool, error) {
	var (
		updated domain.Identity
		found   bool
	)
	err := coll.Update(ctx, func(records []domain.Identity) ([]domain.Identity, error) {
		idx := indexOf(records, email)
		if idx < 0 {
			return nil, errNoMatch
		}
		found = true
		candidate := cloneIdentity(records[idx])
		if err := mutate(&candidate); err != nil {
			return nil, err
		}
		candidate.ID, candidate.Email, candidate.Role = records[idx].ID, records[idx].Email, records[idx].Role
		records[idx] = candidate
		updated = candidate
		return records, nil
	})
	if errors.Is(err, errNoMatch) {
		return nil, false, nil
	}
	if err != nil {
		return nil, found, err
	}
	return &updated, true, nil
}

func cloneIdentity(in domain.Identity) domain.Identity {
	out := in
	out.ActivationKeys = append([]domain.ActivationKey{}, in.ActivationKeys...)
	return out
}

func indexOf(records []domain.Identity, email string) int {
	for i := range records {
		if records[i].Email == email {
			return i
		}
	}
	return -1
}
