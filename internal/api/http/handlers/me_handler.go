package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/credit-ledger/internal/api/dto"
	"github.com/spec-kit/credit-ledger/internal/service"
)

// MeHandler serves the signed-in account's self-service endpoints.
type MeHandler struct {
	auth       *service.AuthService
	twoFactor  *service.TwoFactorService
	ledger     *service.LedgerService
	access     *service.AccessService
	purchases  *service.PurchaseService
	generation *service.GenerationService
}

// MeDependencies bundles the services MeHandler calls.
type MeDependencies struct {
	Auth       *service.AuthService
	TwoFactor  *service.TwoFactorService
	Ledger     *service.LedgerService
	Access     *service.AccessService
	Purchases  *service.PurchaseService
	Generation *service.GenerationService
}

// NewMeHandler constructs handler.
func NewMeHandler(deps MeDependencies) *MeHandler {
	return &MeHandler{
		auth:       deps.Auth,
		twoFactor:  deps.TwoFactor,
		ledger:     deps.Ledger,
		access:     deps.Access,
		purchases:  deps.Purchases,
		generation: deps.Generation,
	}
}

// Get handles GET /me.
func (h *MeHandler) Get(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	caps, identity, err := h.generation.Capabilities(c.UserContext(), p.Email)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.MeResponse{Identity: identity, Capabilities: caps})
}

// ChangePassword handles POST /me/password.
func (h *MeHandler) ChangePassword(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req service.ChangePasswordInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	identity, err := h.auth.ChangePassword(c.UserContext(), p.Email, req)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, identity)
}

// SetTwoFactor handles POST /me/2fa.
func (h *MeHandler) SetTwoFactor(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req service.SetTwoFactorInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	identity, err := h.twoFactor.SetTwoFactor(c.UserContext(), p.Email, req)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, identity)
}

// RedeemVoucher handles POST /me/vouchers/redeem.
func (h *MeHandler) RedeemVoucher(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.RedeemVoucherRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	identity, err := h.ledger.RedeemVoucher(c.UserContext(), p.Email, req.Key)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, identity)
}

// SubmitAccessRequest handles POST /access-requests.
func (h *MeHandler) SubmitAccessRequest(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req service.AccessRequestInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	identity, err := h.access.SubmitAccessRequest(c.UserContext(), p.Email, req)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, identity)
}

// SubmitPurchaseRequest handles POST /purchase-requests.
func (h *MeHandler) SubmitPurchaseRequest(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req service.PurchaseRequestInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	created, err := h.purchases.SubmitPurchaseRequest(c.UserContext(), p.Email, req)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, created)
}

// Generate handles POST /generate.
func (h *MeHandler) Generate(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req service.GenerateInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.generation.Generate(c.UserContext(), p, req)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, result)
}
