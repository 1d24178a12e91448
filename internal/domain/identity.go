package domain

import (
	"math"
	"time"
)

// Role distinguishes administrators from standard accounts.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStandard Role = "user"
)

// UnlimitedCredits is the balance seeded for administrators, who are never metered.
const UnlimitedCredits = math.MaxInt32

// ActivationKey is a single-use voucher held by one user.
type ActivationKey struct {
	Key     string `json:"key"`
	Credits int    `json:"credits"`
}

// Identity is the stored account document.
type Identity struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	Email                 string          `json:"email"`
	PasswordHash          string          `json:"password"`
	Role                  Role            `json:"role"`
	Credits               int             `json:"credits"`
	CodeGenerationEnabled bool            `json:"codeGenerationEnabled"`
	FormSubmitted         bool            `json:"formSubmitted"`
	TwoFactorEnabled      bool            `json:"twoFactorEnabled"`
	TwoFactorPin          string          `json:"twoFactorPin,omitempty"`
	ActivationKeys        []ActivationKey `json:"activationKeys"`
	CreatedAt             time.Time       `json:"createdAt"`
}

// PublicIdentity is an Identity without its secrets, safe to hand to a session or client.
type PublicIdentity struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	Email                 string          `json:"email"`
	Role                  Role            `json:"role"`
	Credits               int             `json:"credits"`
	CodeGenerationEnabled bool            `json:"codeGenerationEnabled"`
	FormSubmitted         bool            `json:"formSubmitted"`
	TwoFactorEnabled      bool            `json:"twoFactorEnabled"`
	ActivationKeys        []ActivationKey `json:"activationKeys"`
	CreatedAt             time.Time       `json:"createdAt"`
}

// IsAdmin reports whether the identity holds the administrator role.
func (i *Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Public strips the password hash and PIN.
func (i *Identity) Public() *PublicIdentity {
	keys := make([]ActivationKey, len(i.ActivationKeys))
	copy(keys, i.ActivationKeys)
	return &PublicIdentity{
		ID:                    i.ID,
		Name:                  i.Name,
		Email:                 i.Email,
		Role:                  i.Role,
		Credits:               i.Credits,
		CodeGenerationEnabled: i.CodeGenerationEnabled,
		FormSubmitted:         i.FormSubmitted,
		TwoFactorEnabled:      i.TwoFactorEnabled,
		ActivationKeys:        keys,
		CreatedAt:             i.CreatedAt,
	}
}

// IsAdmin reports whether the snapshot holds the administrator role.
func (p *PublicIdentity) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// FindActivationKey returns the index of key in the voucher list, or -1.
func (i *Identity) FindActivationKey(key string) int {
	for idx, k := range i.ActivationKeys {
		if k.Key == key {
			return idx
		}
	}
	return -1
}
