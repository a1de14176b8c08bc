package httpserver

import (
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/pokedex/internal/apierr"
	"github.com/Skotchmaster/pokedex/internal/service"
)

// fail logs err under event and converts it into the JSON error response.
func fail(l *slog.Logger, event string, err error) error {
	he := apierr.FromError(err)
	if he.Code >= 500 {
		l.Error(event, "status", he.Code, "error", err)
	} else {
		l.Warn(event, "status", he.Code, "error", err)
	}
	return he
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: invalid body", service.ErrValidation)
	}
	if err := c.Validate(req); err != nil {
		return fmt.Errorf("%w: %s", service.ErrValidation, err.Error())
	}
	return nil
}
