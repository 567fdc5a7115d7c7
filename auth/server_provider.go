package auth

import (
	"adventcal/models"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// ErrCannotRefresh is returned by Refresh when the session has no refresh secret.
var ErrCannotRefresh = errors.New("no refresh secret for the current identity")

// errorBody is the {"error": "..."} body the HTTP service returns on failure.
type errorBody struct {
	Error string `json:"error"`
}

// ServerProvider signs in anonymously against the adventcal HTTP service.
type ServerProvider struct {
	stateNotifier
	client *resty.Client
}

// NewServerProvider creates a provider for the service at baseURL.
func NewServerProvider(baseURL string) *ServerProvider {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
	return &ServerProvider{client: c}
}

// SignInAnonymously creates a new anonymous user on the server.
func (p *ServerProvider) SignInAnonymously(ctx context.Context) (*Identity, error) {
	var out models.AuthResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&errorBody{}).
		Post("/auth/anonymous")
	if err != nil {
		return nil, fmt.Errorf("anonymous sign-in request: %w", err)
	}
	if resp.IsError() {
		return nil, responseError(resp)
	}
	if out.UserID == "" || out.Token == "" {
		return nil, nil
	}

	id := identityFromResponse(out)
	p.setIdentity(id)
	return id, nil
}

// Refresh exchanges the refresh secret for a new token and keeps the identity signed in.
func (p *ServerProvider) Refresh(ctx context.Context) (*Identity, error) {
	current := p.CurrentIdentity()
	if current == nil || current.RefreshSecret == "" {
		return nil, ErrCannotRefresh
	}

	var out models.AuthResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(models.RefreshRequest{UserID: current.UID, RefreshSecret: current.RefreshSecret}).
		SetResult(&out).
		SetError(&errorBody{}).
		Post("/auth/refresh")
	if err != nil {
		return nil, fmt.Errorf("token refresh request: %w", err)
	}
	if resp.IsError() {
		return nil, responseError(resp)
	}

	id := identityFromResponse(out)
	if id.RefreshSecret == "" {
		id.RefreshSecret = current.RefreshSecret
	}
	p.setIdentity(id)
	return id, nil
}

// Restore signs in with an existing token, confirming it with GET /users/me.
func (p *ServerProvider) Restore(ctx context.Context, token string) (*Identity, error) {
	var user models.User
	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&user).
		SetError(&errorBody{}).
		Get("/users/me")
	if err != nil {
		return nil, fmt.Errorf("restore request: %w", err)
	}
	if resp.IsError() {
		return nil, responseError(resp)
	}

	id := &Identity{UID: user.UID, Token: token, Anonymous: true}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	p.setIdentity(id)
	return id, nil
}

// SignOut revokes the refresh secret on the server and clears the identity.
// Signing out while signed out is a no-op.
func (p *ServerProvider) SignOut(ctx context.Context) error {
	current := p.CurrentIdentity()
	if current == nil {
		return nil
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(current.Token).
		SetError(&errorBody{}).
		Post("/auth/logout")
	if err != nil {
		return fmt.Errorf("logout request: %w", err)
	}
	// an expired token cannot reach the server; the local sign-out still applies
	if resp.IsError() && resp.StatusCode() != http.StatusUnauthorized {
		return responseError(resp)
	}

	p.setIdentity(nil)
	log.Debug().Str("uid", current.UID).Msg("signed out")
	return nil
}

func identityFromResponse(out models.AuthResponse) *Identity {
	return &Identity{
		UID:           out.UserID,
		Token:         out.Token,
		RefreshSecret: out.RefreshSecret,
		ExpiresAt:     out.ExpiresAt,
		Anonymous:     true,
	}
}

func responseError(resp *resty.Response) error {
	if body, ok := resp.Error().(*errorBody); ok && body.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode(), body.Error)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode(), resp.String())
}
