package auth

import (
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"redraft/internal/domain"
)

// TokenService mints and verifies HS256 access tokens.
type TokenService struct {
	secret []byte
	expiry time.Duration
	logger *slog.Logger
}

func NewTokenService(secret string, expiry time.Duration, logger *slog.Logger) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &TokenService{secret: []byte(secret), expiry: expiry, logger: logger}, nil
}

// IssueToken mints a token with the user's email as subject and the
// username as a custom claim.
func (s *TokenService) IssueToken(email, username string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
		Username: username,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// VerifyToken validates signature, algorithm, and expiry.
func (s *TokenService) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		s.logger.Debug("token rejected", "error", err)
		return nil, domain.NewError(domain.CodeUnauthorized, "invalid or expired token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, domain.NewError(domain.CodeUnauthorized, "token missing subject")
	}
	return claims, nil
}

func (s *TokenService) Close() error { return nil }
