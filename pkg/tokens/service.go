// Package tokens issues and verifies the bearer tokens used by the API.
//
// A token is an HS256 JWT (sub, jti, iss, iat, exp) sealed with AES-GCM, so a
// client can neither read nor forge it without the process secret. Both keys
// are derived from that one secret with HKDF. The service keeps no state
// besides the keys: revocation lives in the credential store.
package tokens

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	Issuer     = "pokedex"
	DefaultTTL = 15 * time.Minute

	MinSecretLen = 16
)

var (
	ErrTokenMissing   = errors.New("token missing")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")

	ErrWeakSecret = fmt.Errorf("signing secret must be at least %d bytes", MinSecretLen)
)

type Issued struct {
	Token     string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Service struct {
	signKey []byte
	aead    cipher.AEAD
	ttl     time.Duration
	now     func() time.Time
}

// GenerateSecret returns 32 random bytes for a process that was not given JWT_SECRET.
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	return secret, nil
}

func NewService(secret []byte, ttl time.Duration) (*Service, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	signKey, err := deriveKey(secret, signKeyInfo)
	if err != nil {
		return nil, err
	}
	sealKey, err := deriveKey(secret, sealKeyInfo)
	if err != nil {
		return nil, err
	}
	aead, err := newAEAD(sealKey)
	if err != nil {
		return nil, fmt.Errorf("init token cipher: %w", err)
	}

	return &Service{
		signKey: signKey,
		aead:    aead,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// WithClock returns a copy of the service that reads time from now.
func (s *Service) WithClock(now func() time.Time) *Service {
	cp := *s
	cp.now = now
	return &cp
}

func (s *Service) TTL() time.Duration { return s.ttl }

func (s *Service) Now() time.Time { return s.now() }

func (s *Service) Issue(userID uint) (*Issued, error) {
	if userID == 0 {
		return nil, errors.New("issue token: empty user id")
	}

	now := s.now().Truncate(time.Second)
	exp := now.Add(s.ttl)
	jti := uuid.NewString()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signKey)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	sealed, err := s.seal(signed)
	if err != nil {
		return nil, err
	}

	return &Issued{Token: sealed, JTI: jti, IssuedAt: now, ExpiresAt: exp}, nil
}

// Verify checks the envelope, signature and expiry. It returns ErrTokenMissing,
// ErrTokenExpired or an error wrapping ErrTokenMalformed; revocation is the caller's job.
func (s *Service) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrTokenMissing
	}

	signed, err := s.open(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	var claims Claims
	_, err = jwt.ParseWithClaims(signed, &claims, func(t *jwt.Token) (any, error) {
		return s.signKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing jti", ErrTokenMalformed)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return &claims, nil
}
