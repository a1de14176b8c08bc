package service

import "errors"

var (
	ErrUnauthenticated    = errors.New("authorization required")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrForbidden          = errors.New("forbidden")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNameTaken          = errors.New("name already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrConfiguration      = errors.New("configuration error")
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrPokemonExists      = errors.New("pokemon already exists")
)
