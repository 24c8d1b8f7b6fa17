package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"writeflow/internal/config"
	"writeflow/internal/domain"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// JWKSVerifier checks asymmetric tokens against keys from a JWKS endpoint
type JWKSVerifier struct {
	jwks   keyfunc.Keyfunc
	cancel context.CancelFunc
	logger *slog.Logger
}

// NewJWKSVerifier fetches keys from jwksURL. keyfunc caches and refreshes
// them in the background until Close.
func NewJWKSVerifier(jwksURL string, logger *slog.Logger) (*JWKSVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}

	ctx, cancel := context.WithCancel(context.Background())
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}

	logger.Info("JWT verifier initialized", "jwks_url", jwksURL)

	return &JWKSVerifier{jwks: jwks, cancel: cancel, logger: logger}, nil
}

func (v *JWKSVerifier) VerifyToken(tokenString string) (*jwt.RegisteredClaims, error) {
	return verify(tokenString, v.jwks.Keyfunc, []string{"RS256", "ES256"}, v.logger)
}

func (v *JWKSVerifier) Close() error {
	v.cancel()
	v.logger.Info("JWT verifier closed")
	return nil
}

// SecretVerifier checks HS256 tokens signed with a shared secret
type SecretVerifier struct {
	secret []byte
	logger *slog.Logger
}

// NewSecretVerifier creates an HS256 verifier
func NewSecretVerifier(secret string, logger *slog.Logger) (*SecretVerifier, error) {
	if secret == "" {
		return nil, errors.New("auth secret cannot be empty")
	}
	return &SecretVerifier{secret: []byte(secret), logger: logger}, nil
}

func (v *SecretVerifier) VerifyToken(tokenString string) (*jwt.RegisteredClaims, error) {
	keyFn := func(*jwt.Token) (interface{}, error) { return v.secret, nil }
	return verify(tokenString, keyFn, []string{"HS256"}, v.logger)
}

func (v *SecretVerifier) Close() error { return nil }

// verify parses the token restricted to algs, so a token can never pick
// its own algorithm.
func verify(tokenString string, keyFn jwt.Keyfunc, algs []string, logger *slog.Logger) (*jwt.RegisteredClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, keyFn,
		jwt.WithValidMethods(algs),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		logger.Debug("token rejected", "error", err)
		return nil, domain.ErrUnauthorized
	}
	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		logger.Error("failed to extract claims from token")
		return nil, domain.ErrUnauthorized
	}
	if claims.Subject == "" {
		logger.Debug("token missing subject claim")
		return nil, domain.ErrUnauthorized
	}

	return claims, nil
}

// NewFromConfig returns the verifier selected by cfg, or nil when auth is off.
// A JWKS URL takes precedence over a shared secret.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (JWTVerifier, error) {
	switch {
	case cfg.AuthJWKSURL != "":
		v, err := NewJWKSVerifier(cfg.AuthJWKSURL, logger)
		if err != nil {
			return nil, err
		}
		return v, nil
	case cfg.AuthSecret != "":
		v, err := NewSecretVerifier(cfg.AuthSecret, logger)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, nil
	}
}
