package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/haasonsaas/boxgrid/pkg/models"
)

// UserInfoVerifier resolves an OAuth2 access token through a userinfo endpoint.
type UserInfoVerifier struct {
	url    string
	client *http.Client
}

// NewUserInfoVerifier builds a verifier for url. A nil client uses the
// oauth2 package default transport.
func NewUserInfoVerifier(url string, client *http.Client) (*UserInfoVerifier, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("auth: userinfo url required")
	}
	return &UserInfoVerifier{url: url, client: client}, nil
}

// Verify calls the userinfo endpoint with credential as the bearer token.
func (v *UserInfoVerifier) Verify(ctx context.Context, credential string) (*models.User, error) {
	if v.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, v.client)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: credential,
		TokenType:   "Bearer",
	}))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
	if err != nil {
		return nil, fmt.Errorf("user info request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return nil, fmt.Errorf("user info request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	return parseUserInfo(data)
}

// parseUserInfo accepts OpenID Connect claims (sub, picture) as well as the
// id/avatar_url/login shape some providers return.
func parseUserInfo(data []byte) (*models.User, error) {
	var payload struct {
		Sub       string `json:"sub"`
		ID        any    `json:"id"`
		Email     string `json:"email"`
		Name      string `json:"name"`
		Login     string `json:"login"`
		Picture   string `json:"picture"`
		AvatarURL string `json:"avatar_url"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	id := strings.TrimSpace(payload.Sub)
	if id == "" && payload.ID != nil {
		id = strings.TrimSpace(fmt.Sprint(payload.ID))
	}
	if id == "" {
		return nil, errors.New("user info has no subject")
	}
	name := payload.Name
	if strings.TrimSpace(name) == "" {
		name = payload.Login
	}
	avatar := payload.Picture
	if avatar == "" {
		avatar = payload.AvatarURL
	}
	return &models.User{
		ID:        id,
		Email:     strings.TrimSpace(payload.Email),
		Name:      strings.TrimSpace(name),
		AvatarURL: strings.TrimSpace(avatar),
	}, nil
}
