package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/credit-ledger/internal/api/dto"
	"github.com/spec-kit/credit-ledger/internal/domain"
	"github.com/spec-kit/credit-ledger/internal/service"
	apperrors "github.com/spec-kit/credit-ledger/pkg/util"
)

// AdminHandler serves the administrator panel endpoints.
type AdminHandler struct {
	accounts  *service.AccountService
	ledger    *service.LedgerService
	access    *service.AccessService
	purchases *service.PurchaseService
	settings  *service.SettingsService
	analytics *service.AnalyticsService
}

// AdminDependencies bundles the services AdminHandler calls.
type AdminDependencies struct {
	Accounts  *service.AccountService
	Ledger    *service.LedgerService
	Access    *service.AccessService
	Purchases *service.PurchaseService
	Settings  *service.SettingsService
	Analytics *service.AnalyticsService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(deps AdminDependencies) *AdminHandler {
	return &AdminHandler{
		accounts:  deps.Accounts,
		ledger:    deps.Ledger,
		access:    deps.Access,
		purchases: deps.Purchases,
		settings:  deps.Settings,
		analytics: deps.Analytics,
	}
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.accounts.ListAccounts(c.UserContext())
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, users)
}

// DeleteUser handles DELETE /admin/users/:email.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	email, err := pathParam(c, "email")
	if err != nil {
		return err
	}
	if err := h.accounts.DeleteAccount(c.UserContext(), email); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// SetCredits handles PUT /admin/users/:email/credits.
func (h *AdminHandler) SetCredits(c *fiber.Ctx) error {
	email, err := pathParam(c, "email")
	if err != nil {
		return err
	}
	var req dto.CreditsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Credits == nil {
		return apperrors.NewValidationError("credits is required", map[string]any{"credits": "credits is required"})
	}
	identity, err := h.ledger.GrantCredits(c.UserContext(), email, *req.Credits)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, identity)
}

// IssueVoucher handles POST /admin/users/:email/vouchers.
func (h *AdminHandler) IssueVoucher(c *fiber.Ctx) error {
	email, err := pathParam(c, "email")
	if err != nil {
		return err
	}
	var req dto.IssueVoucherRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	identity, err := h.ledger.IssueVoucher(c.UserContext(), email, req.Key, req.Credits)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, identity)
}

// RevokeVoucher handles DELETE /admin/users/:email/vouchers/:key.
func (h *AdminHandler) RevokeVoucher(c *fiber.Ctx) error {
	email, err := pathParam(c, "email")
	if err != nil {
		return err
	}
	key, err := pathParam(c, "key")
	if err != nil {
		return err
	}
	identity, err := h.ledger.RevokeVoucher(c.UserContext(), email, key)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, identity)
}

// ApproveAccess handles POST /admin/users/:email/approve.
func (h *AdminHandler) ApproveAccess(c *fiber.Ctx) error {
	email, err := pathParam(c, "email")
	if err != nil {
		return err
	}
	if err := h.access.ApproveAccess(c.UserContext(), email); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListAccessRequests handles GET /admin/access-requests.
func (h *AdminHandler) ListAccessRequests(c *fiber.Ctx) error {
	requests, err := h.access.ListAccessRequests(c.UserContext())
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, requests)
}

// GetSettings handles GET /admin/settings.
func (h *AdminHandler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.settings.Get(c.UserContext())
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, settings)
}

// SaveSettings handles PUT /admin/settings.
func (h *AdminHandler) SaveSettings(c *fiber.Ctx) error {
	var req dto.SettingsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.MaintenanceMode == nil || req.AllowRegistrations == nil {
		return apperrors.NewValidationError("maintenanceMode and allowRegistrations are required", nil)
	}
	saved, err := h.settings.Save(c.UserContext(), domain.Settings{
		MaintenanceMode:    *req.MaintenanceMode,
		AllowRegistrations: *req.AllowRegistrations,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, saved)
}

// Reset handles POST /admin/reset.
func (h *AdminHandler) Reset(c *fiber.Ctx) error {
	removed, err := h.accounts.ResetStandardAccounts(c.UserContext())
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.ResetResponse{Removed: removed})
}

// UpdateProfile handles PUT /admin/profile.
func (h *AdminHandler) UpdateProfile(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req service.AdminProfileInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	identity, err := h.accounts.UpdateAdminProfile(c.UserContext(), p.ID, req)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, identity)
}

// ListPurchaseRequests handles GET /admin/purchase-requests.
func (h *AdminHandler) ListPurchaseRequests(c *fiber.Ctx) error {
	requests, err := h.purchases.ListPurchaseRequests(c.UserContext())
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, requests)
}

// ProcessPurchaseRequest handles POST /admin/purchase-requests/:id/process.
func (h *AdminHandler) ProcessPurchaseRequest(c *fiber.Ctx) error {
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	processed, err := h.purchases.ProcessPurchaseRequest(c.UserContext(), id)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, processed)
}

// Analytics handles GET /admin/analytics.
func (h *AdminHandler) Analytics(c *fiber.Ctx) error {
	report, err := h.analytics.Report(c.UserContext())
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, report)
}

// ResetAnalytics handles DELETE /admin/analytics.
func (h *AdminHandler) ResetAnalytics(c *fiber.Ctx) error {
	if err := h.analytics.Reset(c.UserContext()); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
