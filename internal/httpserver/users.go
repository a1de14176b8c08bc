package httpserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/pokedex/internal/service"
	"github.com/Skotchmaster/pokedex/pkg/logging"
)

type UsersHTTP struct {
	Svc *service.AuthService
}

func (h *UsersHTTP) GetUsers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.get_users")

	users, err := h.Svc.ListUsers(ctx)
	if err != nil {
		return fail(l, "get_users_error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"results": toUserResponses(users),
	})
}

func (h *UsersHTTP) DeleteUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.delete_user")

	id, err := parseID(c)
	if err != nil {
		return fail(l, "delete_user_error", err)
	}
	if err := h.Svc.DeleteUser(ctx, id); err != nil {
		return fail(l, "delete_user_error", err)
	}

	l.Info("delete_user_success", "user_id", id)
	return c.NoContent(http.StatusNoContent)
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: id must be a positive integer", service.ErrValidation)
	}
	return uint(id), nil
}
