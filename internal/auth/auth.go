// Package auth exchanges identity credentials for session artifacts and
// resolves the signed-in user for HTTP requests. The board engine only uses
// the resolved user to pick a persistence namespace.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/haasonsaas/boxgrid/pkg/models"
)

var (
	ErrAuthDisabled   = errors.New("auth disabled")
	ErrInvalidToken   = errors.New("invalid token")
	ErrSessionRevoked = errors.New("session revoked")
)

const (
	DefaultCookieName = "__session"
	DefaultSessionTTL = 7 * 24 * time.Hour
)

// Config configures the auth service.
type Config struct {
	Enabled       bool
	SessionSecret string
	SessionTTL    time.Duration
	CookieName    string
	CookieSecure  bool
	Identity      IdentityConfig
}

// IdentityConfig selects how client-obtained credentials are verified.
type IdentityConfig struct {
	// Mode is "jwt" (signed ID token) or "userinfo" (OAuth2 access token).
	Mode          string
	Issuer        string
	Audience      string
	HMACSecret    string
	PublicKeyFile string
	UserInfoURL   string
}

// Session is an issued session artifact.
type Session struct {
	Token     string       `json:"-"`
	User      *models.User `json:"user"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Service verifies identity credentials, issues sessions and revokes them.
type Service struct {
	sessions     *SessionService
	verifier     IdentityVerifier
	cookieName   string
	cookieSecure bool
	logger       *slog.Logger
}

// NewService builds a service from cfg. A disabled config yields a service
// whose Enabled reports false and whose sign-in calls fail with ErrAuthDisabled.
func NewService(cfg Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	service := &Service{
		cookieName:   strings.TrimSpace(cfg.CookieName),
		cookieSecure: cfg.CookieSecure,
		logger:       logger.With("component", "auth"),
	}
	if service.cookieName == "" {
		service.cookieName = DefaultCookieName
	}
	if !cfg.Enabled {
		return service, nil
	}
	if strings.TrimSpace(cfg.SessionSecret) == "" {
		return nil, errors.New("auth: session secret required")
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	service.sessions = NewSessionService(cfg.SessionSecret, ttl)

	verifier, err := newVerifier(cfg.Identity)
	if err != nil {
		return nil, err
	}
	service.verifier = verifier
	return service, nil
}

func newVerifier(cfg IdentityConfig) (IdentityVerifier, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Mode)) {
	case "", "jwt":
		tokenCfg := TokenVerifierConfig{
			Issuer:     cfg.Issuer,
			Audience:   cfg.Audience,
			HMACSecret: cfg.HMACSecret,
		}
		if path := strings.TrimSpace(cfg.PublicKeyFile); path != "" {
			pem, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("auth: read identity public key: %w", err)
			}
			tokenCfg.PublicKeyPEM = pem
		}
		return NewTokenVerifier(tokenCfg)
	case "userinfo":
		return NewUserInfoVerifier(cfg.UserInfoURL, nil)
	default:
		return nil, fmt.Errorf("auth: unknown identity mode %q", cfg.Mode)
	}
}

// Enabled reports whether sessions are issued and checked.
func (s *Service) Enabled() bool {
	return s != nil && s.sessions != nil
}

// WithVerifier replaces the identity verifier.
func (s *Service) WithVerifier(v IdentityVerifier) *Service {
	if s != nil {
		s.verifier = v
	}
	return s
}

// SignIn verifies credential and issues a session for the identity it names.
func (s *Service) SignIn(ctx context.Context, credential string) (*Session, error) {
	if !s.Enabled() || s.verifier == nil {
		return nil, ErrAuthDisabled
	}
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, ErrInvalidToken
	}
	user, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		s.logger.Warn("identity verification failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	token, expires, err := s.sessions.Issue(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("session issued", "user_id", user.ID)
	return &Session{Token: token, User: user, ExpiresAt: expires}, nil
}

// Authenticate returns the user for a session token.
func (s *Service) Authenticate(token string) (*models.User, error) {
	if !s.Enabled() {
		return nil, ErrAuthDisabled
	}
	return s.sessions.Validate(token)
}

// SignOut invalidates a session token until it would have expired.
func (s *Service) SignOut(token string) error {
	if !s.Enabled() {
		return ErrAuthDisabled
	}
	return s.sessions.Revoke(token)
}

// SessionCookie builds the cookie carrying sess.
func (s *Service) SessionCookie(sess *Session) *http.Cookie {
	return &http.Cookie{
		Name:     s.cookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie builds a cookie that removes the session cookie.
func (s *Service) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// TokenFromRequest returns the session token from the cookie or, failing
// that, a bearer Authorization header.
func (s *Service) TokenFromRequest(r *http.Request) string {
	name := DefaultCookieName
	if s != nil {
		name = s.cookieName
	}
	if cookie, err := r.Cookie(name); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return strings.TrimSpace(cookie.Value)
	}
	header := r.Header.Get("Authorization")
	if len(header) > len("bearer ") && strings.EqualFold(header[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(header[len("bearer "):])
	}
	return ""
}
