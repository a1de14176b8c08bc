package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/pokedex/internal/apierr"
	"github.com/Skotchmaster/pokedex/internal/metrics"
	"github.com/Skotchmaster/pokedex/internal/repo"
	"github.com/Skotchmaster/pokedex/internal/service"
	"github.com/Skotchmaster/pokedex/pkg/logging"
	"github.com/Skotchmaster/pokedex/pkg/tokens"
)

const identityKey = "identity"

type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*service.Identity, error)
}

type Gate struct {
	Auth Authenticator
}

func NewGate(a Authenticator) *Gate {
	return &Gate{Auth: a}
}

// RequireAuth admits requests carrying a valid, unrevoked token of an
// existing user and stores the identity on the context.
func (g *Gate) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("middleware", "auth.require_auth")

		raw, fromCookie := TokenFrom(c)
		id, err := g.Auth.Authenticate(ctx, raw)
		outcome := outcomeOf(err)
		metrics.RecordAuthDecision(outcome)

		if err != nil {
			if outcome == metrics.OutcomeInternalError {
				l.Error("auth_failed", "status", 500, "reason", "cannot check token", "error", err)
			} else {
				l.Warn("auth_rejected", "status", 401, "reason", outcome)
			}
			if fromCookie {
				c.SetCookie(DeleteCookie(AccessCookieName, "/"))
			}
			return apierr.FromError(err)
		}

		c.Set(identityKey, id)
		c.SetRequest(c.Request().WithContext(
			logging.IntoContext(ctx, logging.FromContext(ctx).With("user_id", id.User.ID)),
		))
		return next(c)
	}
}

// RequireRole must run after RequireAuth. A user passes when at least one
// of their roles has the slug; a user without roles never passes.
func (g *Gate) RequireRole(slug string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := logging.FromContext(c.Request().Context()).With("middleware", "auth.require_role", "role", slug)

			id, ok := IdentityFrom(c)
			if !ok {
				metrics.RecordAuthDecision(metrics.OutcomeMissing)
				return apierr.FromError(service.ErrUnauthenticated)
			}
			if !id.User.HasRole(slug) {
				metrics.RecordAuthDecision(metrics.OutcomeForbidden)
				l.Warn("auth_rejected", "status", 403, "reason", "missing role")
				return apierr.FromError(service.ErrForbidden)
			}
			return next(c)
		}
	}
}

func (g *Gate) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return g.RequireRole("admin")(next)
}

func IdentityFrom(c echo.Context) (*service.Identity, bool) {
	id, ok := c.Get(identityKey).(*service.Identity)
	return id, ok && id != nil
}

// TokenFrom reads the bearer token from the Authorization header and falls
// back to the access cookie. The bool reports the cookie was used.
func TokenFrom(c echo.Context) (string, bool) {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		scheme, token, found := strings.Cut(h, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token), false
		}
		return "", false
	}
	if ck, err := c.Cookie(AccessCookieName); err == nil && ck.Value != "" {
		return ck.Value, true
	}
	return "", false
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeAllowed
	case errors.Is(err, service.ErrTokenExpired):
		return metrics.OutcomeExpired
	case errors.Is(err, service.ErrTokenRevoked):
		return metrics.OutcomeRevoked
	case errors.Is(err, tokens.ErrTokenMissing):
		return metrics.OutcomeMissing
	case errors.Is(err, service.ErrUnauthenticated) && errors.Is(err, repo.ErrNotFound):
		return metrics.OutcomeUnknownUser
	case errors.Is(err, service.ErrUnauthenticated):
		return metrics.OutcomeMalformed
	default:
		return metrics.OutcomeInternalError
	}
}
