package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// IdentityToolkitBaseURL is the Firebase Identity Toolkit REST endpoint.
const IdentityToolkitBaseURL = "https://identitytoolkit.googleapis.com/v1"

type signUpRequest struct {
	ReturnSecureToken bool `json:"returnSecureToken"`
}

type signUpResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"` // seconds, as a string
	LocalID      string `json:"localId"`
}

type toolkitError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// IdentityToolkitProvider signs in anonymously with Firebase Authentication. Sign-out is local.
type IdentityToolkitProvider struct {
	stateNotifier
	client *resty.Client
	apiKey string
	now    func() time.Time
}

// NewIdentityToolkitProvider creates a provider for the project owning apiKey.
// An empty baseURL uses IdentityToolkitBaseURL.
func NewIdentityToolkitProvider(baseURL, apiKey string) *IdentityToolkitProvider {
	if baseURL == "" {
		baseURL = IdentityToolkitBaseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
	return &IdentityToolkitProvider{client: c, apiKey: apiKey, now: time.Now}
}

// SignInAnonymously calls accounts:signUp without credentials, which creates an anonymous user.
func (p *IdentityToolkitProvider) SignInAnonymously(ctx context.Context) (*Identity, error) {
	var out signUpResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("key", p.apiKey).
		SetBody(signUpRequest{ReturnSecureToken: true}).
		SetResult(&out).
		SetError(&toolkitError{}).
		Post("/accounts:signUp")
	if err != nil {
		return nil, fmt.Errorf("identity toolkit request: %w", err)
	}
	if resp.IsError() {
		if e, ok := resp.Error().(*toolkitError); ok && e.Error.Message != "" {
			return nil, fmt.Errorf("identity toolkit returned %d: %s", resp.StatusCode(), e.Error.Message)
		}
		return nil, fmt.Errorf("identity toolkit returned %d", resp.StatusCode())
	}
	if out.LocalID == "" {
		return nil, nil
	}

	id := &Identity{
		UID:           out.LocalID,
		Token:         out.IDToken,
		RefreshSecret: out.RefreshToken,
		Anonymous:     true,
	}
	if secs, err := strconv.Atoi(out.ExpiresIn); err == nil {
		id.ExpiresAt = p.now().UTC().Add(time.Duration(secs) * time.Second)
	}
	p.setIdentity(id)
	return id, nil
}

// SignOut forgets the identity.
func (p *IdentityToolkitProvider) SignOut(_ context.Context) error {
	if p.CurrentIdentity() != nil {
		p.setIdentity(nil)
	}
	return nil
}
