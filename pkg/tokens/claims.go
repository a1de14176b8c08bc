package tokens

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries only the user id, so nothing mutable about the user lives in the token.
type Claims struct {
	jwt.RegisteredClaims
}

func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad subject %q", ErrTokenMalformed, c.Subject)
	}
	return uint(id), nil
}
