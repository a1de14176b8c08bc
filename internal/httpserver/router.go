package httpserver

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/Skotchmaster/pokedex/internal/apierr"
	"github.com/Skotchmaster/pokedex/internal/middleware"
	"github.com/Skotchmaster/pokedex/internal/middleware/csrf"
	pkgdb "github.com/Skotchmaster/pokedex/pkg/db"
)

type Deps struct {
	DB             *gorm.DB
	AuthHandler    *AuthHTTP
	PokedexHandler *PokedexHTTP
	UsersHandler   *UsersHTTP
	Gate           *middleware.Gate
	// LoginRateLimit is requests per second per client IP on /login and
	// /register. Zero disables the limiter.
	LoginRateLimit float64
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"message": "Welcome to the pokedex API"})
	})
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := pkgdb.Ping(ctx, d.DB); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	limit := loginLimiter(d.LoginRateLimit)
	e.POST("/register", d.AuthHandler.Register, limit...)
	e.POST("/login", d.AuthHandler.Login, limit...)

	e.GET("/get-all-pokemon", d.PokedexHandler.GetAllPokemon)
	e.GET("/pokemon/find", d.PokedexHandler.FindPokemon)
	e.GET("/pokemon/:id", d.PokedexHandler.GetPokemon)

	private := e.Group("")
	private.Use(d.Gate.RequireAuth)
	private.Use(csrf.Middleware(csrf.Config{
		Secure:  true,
		Skipper: csrf.CookieCredentialsOnly(middleware.AccessCookieName),
	}))

	private.DELETE("/logout", d.AuthHandler.LogOut)
	private.GET("/who-am-i", d.AuthHandler.WhoAmI)
	private.POST("/change-password", d.AuthHandler.ChangePassword)
	private.GET("/search", d.PokedexHandler.SearchSpecies)

	admin := private.Group("", d.Gate.RequireAdmin)
	admin.GET("/get-all-users", d.UsersHandler.GetUsers)
	admin.DELETE("/users/:id", d.UsersHandler.DeleteUser)
	admin.POST("/add/:pokemon_name", d.PokedexHandler.AddPokemon)
	admin.POST("/edit-pokemon/:id", d.PokedexHandler.EditPokemon)
	admin.DELETE("/delete/:id", d.PokedexHandler.DeletePokemon)
}

func loginLimiter(perSecond float64) []echo.MiddlewareFunc {
	if perSecond <= 0 {
		return nil
	}
	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     int(math.Ceil(perSecond)),
		ExpiresIn: 3 * time.Minute,
	})
	return []echo.MiddlewareFunc{echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return apierr.New(http.StatusTooManyRequests, apierr.CodeTooManyRequests, "too many attempts, try again later")
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return apierr.New(http.StatusForbidden, apierr.CodeForbidden, "cannot identify client")
		},
	})}
}
