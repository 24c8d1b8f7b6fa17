package auth

import "github.com/golang-jwt/jwt/v5"

// JWTVerifier validates bearer tokens for the HTTP API
type JWTVerifier interface {
	// VerifyToken returns the token's registered claims, or
	// domain.ErrUnauthorized if the token is invalid or expired.
	VerifyToken(tokenString string) (*jwt.RegisteredClaims, error)

	// Close releases any resources held by the verifier
	Close() error
}
