// Package hash stores passwords as salted PBKDF2-HMAC-SHA256 digests.
//
// Digest format:
//
//	pbkdf2:sha256:<iterations>$<salt>$<hex digest>
//
// The salt is random per call, so hashing the same password twice gives
// different digests.
package hash

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	DefaultIterations = 600_000
	MinIterations     = 1_000

	maxIterations = 10_000_000
	saltBytes     = 16
	keyBytes      = 32
	method        = "pbkdf2:sha256"
)

var ErrEmptyPassword = errors.New("password must not be empty")

type Hasher struct {
	Iterations int
}

var Default = New(DefaultIterations)

func New(iterations int) *Hasher {
	if iterations < MinIterations {
		iterations = MinIterations
	}
	return &Hasher{Iterations: iterations}
}

func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	salt := base64.RawURLEncoding.EncodeToString(raw)

	key := pbkdf2.Key([]byte(password), []byte(salt), h.Iterations, keyBytes, sha256.New)
	return fmt.Sprintf("%s:%d$%s$%s", method, h.Iterations, salt, hex.EncodeToString(key)), nil
}

// Verify fails closed: any digest it cannot parse never matches.
func (h *Hasher) Verify(password, digest string) bool {
	iterations, salt, want, ok := parse(digest)
	if !ok {
		return false
	}
	got := pbkdf2.Key([]byte(password), []byte(salt), iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

func parse(digest string) (int, string, []byte, bool) {
	parts := strings.Split(digest, "$")
	if len(parts) != 3 {
		return 0, "", nil, false
	}

	head, salt, sum := parts[0], parts[1], parts[2]
	if !strings.HasPrefix(head, method+":") || salt == "" {
		return 0, "", nil, false
	}

	iterations, err := strconv.Atoi(strings.TrimPrefix(head, method+":"))
	if err != nil || iterations < 1 || iterations > maxIterations {
		return 0, "", nil, false
	}

	want, err := hex.DecodeString(sum)
	if err != nil || len(want) == 0 {
		return 0, "", nil, false
	}
	return iterations, salt, want, true
}

func HashPassword(password string) (string, error) {
	return Default.Hash(password)
}

func CheckPassword(digest, password string) bool {
	return Default.Verify(password, digest)
}
