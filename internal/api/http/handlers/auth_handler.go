package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/credit-ledger/internal/api/dto"
	"github.com/spec-kit/credit-ledger/internal/service"
)

// AuthHandler exposes signup and the two-step login.
type AuthHandler struct {
	accounts *service.AccountService
	auth     *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(accounts *service.AccountService, authService *service.AuthService) *AuthHandler {
	return &AuthHandler{accounts: accounts, auth: authService}
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	identity, err := h.accounts.CreateAccount(c.UserContext(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	session, err := h.auth.Refresh(c.UserContext(), identity.Email)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, loginResponse(session))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, loginResponse(res))
}

// VerifyPin handles POST /auth/2fa/verify.
func (h *AuthHandler) VerifyPin(c *fiber.Ctx) error {
	var req dto.PinVerifyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := h.auth.CompletePinLogin(c.UserContext(), req.Token, req.Pin)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, loginResponse(res))
}

// Refresh handles POST /auth/refresh, reissuing the session from the stored record.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	res, err := h.auth.Refresh(c.UserContext(), p.Email)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, loginResponse(res))
}

func loginResponse(res *service.LoginResult) dto.LoginResponse {
	return dto.LoginResponse{
		Stage:    res.State.String(),
		Auth:     dto.AuthResponse{Token: res.Token, ExpiresAt: res.ExpiresAt},
		Identity: res.Identity,
	}
}
