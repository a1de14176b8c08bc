package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/pokedex/internal/middleware"
	"github.com/Skotchmaster/pokedex/internal/service"
	"github.com/Skotchmaster/pokedex/pkg/logging"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return fail(l, "register_error", err)
	}

	user, err := h.Svc.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		return fail(l, "register_error", err)
	}

	return c.JSON(http.StatusCreated, toUserResponse(user))
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return fail(l, "login_error", err)
	}

	issued, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "login_failed", err)
	}

	c.SetCookie(middleware.CreateCookie(middleware.AccessCookieName, issued.Token, "/", issued.ExpiresAt))
	l.Info("login_successful")

	return c.JSON(http.StatusOK, LoginResponse{
		AccessToken: issued.Token,
		TokenType:   "Bearer",
		ExpiresAt:   issued.ExpiresAt,
	})
}

func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return fail(l, "logout_failed", service.ErrUnauthenticated)
	}
	if err := h.Svc.Logout(ctx, id); err != nil {
		return fail(l, "logout_failed", err)
	}

	c.SetCookie(middleware.DeleteCookie(middleware.AccessCookieName, "/"))
	l.Info("successful_logout")
	return c.JSON(http.StatusOK, echo.Map{
		"message": "logged out",
	})
}

func (h *AuthHTTP) WhoAmI(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return fail(logging.FromContext(c.Request().Context()), "who_am_i_failed", service.ErrUnauthenticated)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"current_user": toUserResponse(id.User),
	})
}

func (h *AuthHTTP) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.change_password")

	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return fail(l, "change_password_failed", service.ErrUnauthenticated)
	}

	var req ChangePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return fail(l, "change_password_failed", err)
	}

	if err := h.Svc.ChangePassword(ctx, id.User, req.CurrentPassword, req.NewPassword); err != nil {
		return fail(l, "change_password_failed", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "password changed",
	})
}
