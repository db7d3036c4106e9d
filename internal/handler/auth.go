package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-tracker/internal/service"
)

// AuthWorkflow is what the auth endpoints need from service.AuthService.
type AuthWorkflow interface {
	Register(ctx context.Context, email, password, confirmPassword string) (*service.AuthResult, error)
	Login(ctx context.Context, email, password string, rememberMe bool) (*service.AuthResult, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth AuthWorkflow
}

func NewAuthHandler(auth AuthWorkflow) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

// ----- DTOs -----

type registerReq struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=10,strongpassword"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,min=10"`
}

type loginReq struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// Register: create the account and sign it in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindStrict(c, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	res, err := h.Auth.Register(ctx, req.Email, req.Password, req.ConfirmPassword)
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, res)
	case errors.Is(err, service.ErrPasswordMismatch):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	default:
		return internalError(c, "register", err)
	}
}

// Login: verify credentials and issue a session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindStrict(c, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	res, err := h.Auth.Login(ctx, req.Email, req.Password, req.RememberMe)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, res)
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	default:
		return internalError(c, "login", err)
	}
}

// Me: the identity attached by the JWT middleware.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	email, _ := c.Get("email").(string)
	return c.JSON(http.StatusOK, echo.Map{"id": uid, "email": email})
}
