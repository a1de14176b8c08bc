package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/pokedex/internal/metrics"
	"github.com/Skotchmaster/pokedex/internal/validation"
	loggingmw "github.com/Skotchmaster/pokedex/pkg/middleware/logging"
)

// NewEcho builds the echo instance with the middleware stack every route
// shares. Routes are added by Register.
func NewEcho(base *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(
		echomw.Recover(),
		echomw.RequestID(),
		loggingmw.RequestLogger(base),
		metrics.Middleware,
		echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     []string{"*"},
			AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, "X-CSRF-Token"},
			ExposeHeaders:    []string{"X-CSRF-Token"},
			AllowCredentials: false,
		}),
	)
	return e
}
