package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Skotchmaster/pokedex/internal/models"
	"github.com/Skotchmaster/pokedex/internal/mykafka"
	"github.com/Skotchmaster/pokedex/internal/repo"
	"github.com/Skotchmaster/pokedex/pkg/hash"
	"github.com/Skotchmaster/pokedex/pkg/logging"
	"github.com/Skotchmaster/pokedex/pkg/tokens"
)

type AuthService struct {
	Repo        *repo.GormRepo
	Tokens      *tokens.Service
	Hasher      *hash.Hasher
	DefaultRole string
	Events      mykafka.Publisher

	dummyOnce   sync.Once
	dummyDigest string
}

// Identity is what a request that passed the gate carries.
type Identity struct {
	User   *models.User
	Claims *tokens.Claims
}

func (s *AuthService) hasher() *hash.Hasher {
	if s.Hasher == nil {
		return hash.Default
	}
	return s.Hasher
}

func (s *AuthService) defaultRole() string {
	if s.DefaultRole == "" {
		return "user"
	}
	return s.DefaultRole
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrValidation)
	}

	digest, err := s.hasher().Hash(password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{Name: name, Email: email, PasswordHash: digest}
	if err := s.Repo.CreateUserWithRole(ctx, user, s.defaultRole()); err != nil {
		switch {
		case errors.Is(err, repo.ErrEmailTaken):
			l.Warn("register_error", "status", 409, "reason", "email already registered")
			return nil, ErrEmailTaken
		case errors.Is(err, repo.ErrNameTaken):
			l.Warn("register_error", "status", 409, "reason", "name already registered")
			return nil, ErrNameTaken
		case errors.Is(err, repo.ErrRoleNotFound):
			l.Error("register_error", "status", 500, "reason", "default role missing", "role", s.defaultRole())
			return nil, fmt.Errorf("%w: default role %q does not exist", ErrConfiguration, s.defaultRole())
		default:
			l.Error("register_error", "status", 500, "reason", "cannot create user", "error", err)
			return nil, err
		}
	}

	publish(ctx, s.Events, mykafka.TopicUserEvents, user.ID, map[string]any{
		"type":   "user_registered",
		"userID": user.ID,
		"name":   user.Name,
	})
	l.Info("register_success", "user_id", user.ID)
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*tokens.Issued, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := s.Repo.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// keep unknown emails as slow as wrong passwords
			s.hasher().Verify(password, s.dummy())
			l.Warn("login_failed", "status", 401, "reason", "invalid email or password")
			return nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}
	if !s.hasher().Verify(password, user.PasswordHash) {
		l.Warn("login_failed", "status", 401, "reason", "invalid email or password")
		return nil, ErrInvalidCredentials
	}

	issued, err := s.Tokens.Issue(user.ID)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot issue token", "error", err)
		return nil, err
	}

	publish(ctx, s.Events, mykafka.TopicUserEvents, user.ID, map[string]any{
		"type":   "user_logged_in",
		"userID": user.ID,
	})
	l.Info("login_success", "user_id", user.ID)
	return issued, nil
}

// Authenticate runs the token checks in order: verify, revocation, user
// lookup. Denials wrap ErrUnauthenticated, ErrTokenExpired or
// ErrTokenRevoked; any other error is a storage failure.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*Identity, error) {
	claims, err := s.Tokens.Verify(raw)
	switch {
	case err == nil:
	case errors.Is(err, tokens.ErrTokenExpired):
		return nil, ErrTokenExpired
	default:
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	revoked, err := s.Repo.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	user, err := s.Repo.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &Identity{User: user, Claims: claims}, nil
}

// Logout revokes the token the identity was authenticated with.
func (s *AuthService) Logout(ctx context.Context, id *Identity) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	rt := &models.RevokedToken{
		JTI:       id.Claims.ID,
		UserID:    id.User.ID,
		RevokedAt: s.Tokens.Now().UTC(),
		ExpiresAt: id.Claims.ExpiresAt.Time.UTC(),
	}
	if err := s.Repo.Revoke(ctx, rt); err != nil {
		l.Error("logout_failed", "status", 500, "reason", "cannot revoke token", "error", err)
		return err
	}

	publish(ctx, s.Events, mykafka.TopicUserEvents, id.User.ID, map[string]any{
		"type":   "user_logged_out",
		"userID": id.User.ID,
	})
	l.Info("logout_success", "user_id", id.User.ID)
	return nil
}

func (s *AuthService) ChangePassword(ctx context.Context, user *models.User, current, next string) error {
	l := logging.FromContext(ctx).With("svc", "auth.change_password", "user_id", user.ID)

	if current == "" || next == "" {
		return fmt.Errorf("%w: current and new password are required", ErrValidation)
	}
	if !s.hasher().Verify(current, user.PasswordHash) {
		l.Warn("change_password_failed", "status", 401, "reason", "current password mismatch")
		return ErrInvalidCredentials
	}

	digest, err := s.hasher().Hash(next)
	if err != nil {
		l.Error("change_password_failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return err
	}
	if err := s.Repo.UpdatePasswordHash(ctx, user.ID, digest); err != nil {
		l.Error("change_password_failed", "status", 500, "error", err)
		return err
	}
	user.PasswordHash = digest

	l.Info("change_password_success")
	return nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.Repo.ListUsers(ctx)
}

func (s *AuthService) DeleteUser(ctx context.Context, userID uint) error {
	l := logging.FromContext(ctx).With("svc", "auth.delete_user", "user_id", userID)

	if err := s.Repo.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		l.Error("delete_user_failed", "status", 500, "error", err)
		return err
	}

	publish(ctx, s.Events, mykafka.TopicUserEvents, userID, map[string]any{
		"type":   "user_deleted",
		"userID": userID,
	})
	l.Info("delete_user_success")
	return nil
}

func (s *AuthService) SeedRoles(ctx context.Context) error {
	return s.Repo.EnsureRoles(ctx, repo.DefaultRoles...)
}

func (s *AuthService) GrantRole(ctx context.Context, email, slug string) error {
	user, err := s.Repo.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return mapLookup(err)
	}
	return mapLookup(s.Repo.AssignRole(ctx, user.ID, slug))
}

func (s *AuthService) RevokeRole(ctx context.Context, email, slug string) error {
	user, err := s.Repo.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return mapLookup(err)
	}
	return mapLookup(s.Repo.RemoveRole(ctx, user.ID, slug))
}

func (s *AuthService) PruneRevoked(ctx context.Context) (int64, error) {
	return s.Repo.PruneRevoked(ctx, s.Tokens.Now())
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyDigest, _ = s.hasher().Hash("pokedex-placeholder-password")
	})
	return s.dummyDigest
}

func mapLookup(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return fmt.Errorf("%w: user", ErrNotFound)
	case errors.Is(err, repo.ErrRoleNotFound):
		return fmt.Errorf("%w: role", ErrNotFound)
	default:
		return err
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
