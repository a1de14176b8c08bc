package apierr

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/pokedex/internal/service"
)

const (
	CodeAuthorizationRequired = "authorization_required"
	CodeTokenExpired          = "token_expired"
	CodeTokenRevoked          = "token_revoked"
	CodeForbidden             = "forbidden"
	CodeEmailTaken            = "email_taken"
	CodeNameTaken             = "name_taken"
	CodePokemonExists         = "pokemon_exists"
	CodeInvalidCredentials    = "invalid_credentials"
	CodeConfiguration         = "configuration_error"
	CodeNotFound              = "not_found"
	CodeValidation            = "validation_error"
	CodeInternal              = "internal_error"
	CodeTooManyRequests       = "too_many_requests"
)

type Body struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func New(status int, code, message string) *echo.HTTPError {
	return echo.NewHTTPError(status, Body{Error: code, Message: message})
}

var table = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{service.ErrTokenExpired, http.StatusUnauthorized, CodeTokenExpired, "token has expired, log in again"},
	{service.ErrTokenRevoked, http.StatusUnauthorized, CodeTokenRevoked, "token has been revoked"},
	{service.ErrUnauthenticated, http.StatusUnauthorized, CodeAuthorizationRequired, "a valid bearer token is required"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials, "invalid email or password"},
	{service.ErrForbidden, http.StatusForbidden, CodeForbidden, "you do not have access to this resource"},
	{service.ErrEmailTaken, http.StatusConflict, CodeEmailTaken, "email is already registered"},
	{service.ErrNameTaken, http.StatusConflict, CodeNameTaken, "name is already registered"},
	{service.ErrPokemonExists, http.StatusConflict, CodePokemonExists, "pokemon is already in the pokedex"},
	{service.ErrConfiguration, http.StatusInternalServerError, CodeConfiguration, "server is misconfigured"},
	{service.ErrNotFound, http.StatusNotFound, CodeNotFound, ""},
	{service.ErrValidation, http.StatusBadRequest, CodeValidation, ""},
}

// FromError maps service errors to their HTTP form. Not-found and
// validation errors keep their message; anything unknown becomes a bare
// internal_error so storage details never reach the client.
func FromError(err error) *echo.HTTPError {
	for _, row := range table {
		if errors.Is(err, row.err) {
			msg := row.message
			if msg == "" {
				msg = detail(err, row.err)
			}
			return New(row.status, row.code, msg)
		}
	}
	return New(http.StatusInternalServerError, CodeInternal, "internal server error")
}

// detail drops the sentinel prefix added by %w wrapping and capitalizes the
// rest, so "not found: there is no pokemon named x" reads
// "There is no pokemon named x".
func detail(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
