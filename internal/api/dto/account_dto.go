package dto

import (
	"github.com/spec-kit/credit-ledger/internal/domain"
	"github.com/spec-kit/credit-ledger/internal/policy"
)

// MeResponse is the caller's current record and what it may do.
type MeResponse struct {
	Identity     *domain.PublicIdentity `json:"identity"`
	Capabilities policy.Capabilities    `json:"capabilities"`
}

// RedeemVoucherRequest payload for redeeming an activation key.
type RedeemVoucherRequest struct {
	Key string `json:"key"`
}

// CreditsRequest sets an absolute balance.
type CreditsRequest struct {
	Credits *int `json:"credits"`
}

// IssueVoucherRequest payload for adding an activation key to a user.
type IssueVoucherRequest struct {
	Key     string `json:"key"`
	Credits int    `json:"credits"`
}

// SettingsRequest replaces the portal switches. Both fields are required.
type SettingsRequest struct {
	MaintenanceMode    *bool `json:"maintenanceMode"`
	AllowRegistrations *bool `json:"allowRegistrations"`
}

// ResetResponse reports how many standard accounts were removed.
type ResetResponse struct {
	Removed int `json:"removed"`
}
