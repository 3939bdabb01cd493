package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/haasonsaas/boxgrid/pkg/models"
)

// SessionService signs and checks session artifacts.
type SessionService struct {
	secret  []byte
	ttl     time.Duration
	revoked *RevocationList
	now     func() time.Time
}

// NewSessionService builds a session signer with the given secret and lifetime.
func NewSessionService(secret string, ttl time.Duration) *SessionService {
	return &SessionService{
		secret:  []byte(secret),
		ttl:     ttl,
		revoked: NewRevocationList(),
		now:     time.Now,
	}
}

// SessionClaims is the payload of a session artifact.
type SessionClaims struct {
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs a session for user and returns it with its expiry.
func (s *SessionService) Issue(user *models.User) (string, time.Time, error) {
	if s == nil || len(s.secret) == 0 {
		return "", time.Time{}, ErrAuthDisabled
	}
	if user == nil || strings.TrimSpace(user.ID) == "" {
		return "", time.Time{}, errors.New("user id required")
	}
	now := s.now()
	expires := now.Add(s.ttl)
	claims := SessionClaims{
		Email:   strings.TrimSpace(user.Email),
		Name:    strings.TrimSpace(user.Name),
		Picture: strings.TrimSpace(user.AvatarURL),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, expires, nil
}

func (s *SessionService) parse(token string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Validate checks a session token and returns the user it carries.
func (s *SessionService) Validate(token string) (*models.User, error) {
	if s == nil || len(s.secret) == 0 {
		return nil, ErrAuthDisabled
	}
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	if s.revoked.Revoked(claims.ID, s.now()) {
		return nil, ErrSessionRevoked
	}
	return &models.User{
		ID:        claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		AvatarURL: claims.Picture,
	}, nil
}

// Revoke rejects token from now until its expiry.
func (s *SessionService) Revoke(token string) error {
	if s == nil || len(s.secret) == 0 {
		return ErrAuthDisabled
	}
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	s.revoked.Add(claims.ID, claims.ExpiresAt.Time, s.now())
	return nil
}
