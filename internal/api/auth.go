package api

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// issueToken mints an HS256 bearer token signed with the server's
// configured auth secret, the same token shape zerogo's controller
// hands agents after a successful login.
func issueToken(secret string, subject string, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
