package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vendora/vendora-edge/internal/models"
)

var ErrMalformedToken = errors.New("malformed token")

// AccessClaims mirrors the payload the backend puts in access tokens.
type AccessClaims struct {
	UserID   any    `json:"user_id"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}

// TokenService reads access token payloads WITHOUT verifying signatures. The
// result is for display and lifetime hints only; the backend stays the sole
// authority for authorization.
type TokenService struct {
	parser *jwt.Parser
}

func NewTokenService() *TokenService {
	return &TokenService{
		parser: jwt.NewParser(jwt.WithJSONNumber()),
	}
}

func (s *TokenService) Decode(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if _, _, err := s.parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return claims, nil
}

func (s *TokenService) Introspect(tokenString string, now time.Time) (*models.SessionInfo, error) {
	claims, err := s.Decode(tokenString)
	if err != nil {
		return nil, err
	}

	var expMs int64
	if claims.ExpiresAt != nil {
		expMs = claims.ExpiresAt.UnixMilli()
	}
	nowMs := now.UnixMilli()

	ttl := expMs - nowMs
	if ttl < 0 {
		ttl = 0
	}

	return &models.SessionInfo{
		Authenticated: true,
		User: models.SessionUser{
			UserID:   claims.UserID,
			FullName: claims.FullName,
		},
		Exp:   expMs,
		Now:   nowMs,
		TTLMs: ttl,
	}, nil
}

// SubjectOf returns the user id of a token as a string, or "" when the token
// cannot be decoded.
func (s *TokenService) SubjectOf(tokenString string) string {
	if tokenString == "" {
		return ""
	}
	claims, err := s.Decode(tokenString)
	if err != nil || claims.UserID == nil {
		return ""
	}
	return fmt.Sprint(claims.UserID)
}
