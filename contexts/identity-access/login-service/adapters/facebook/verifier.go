package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	domainerrors "zerosum/contexts/identity-access/login-service/domain/errors"
	"zerosum/contexts/identity-access/login-service/ports"
)

const defaultGraphBaseURL = "https://graph.facebook.com/v12.0"

// Verifier resolves a Facebook access token to the profile it belongs to via
// the Graph API.
type Verifier struct {
	BaseURL string
	Client  *http.Client
}

func NewVerifier(baseURL string) *Verifier {
	if baseURL == "" {
		baseURL = defaultGraphBaseURL
	}
	return &Verifier{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *Verifier) VerifyAccessToken(ctx context.Context, accessToken string) (ports.Identity, error) {
	endpoint := fmt.Sprintf("%s/me?fields=id,name&access_token=%s", v.BaseURL, url.QueryEscape(accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ports.Identity{}, fmt.Errorf("facebook: build request: %w", err)
	}
	resp, err := v.client().Do(req)
	if err != nil {
		return ports.Identity{}, fmt.Errorf("%w: %v", domainerrors.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		return ports.Identity{}, domainerrors.ErrInvalidCredentials
	default:
		return ports.Identity{}, fmt.Errorf("%w: status %d", domainerrors.ErrProviderUnavailable, resp.StatusCode)
	}

	var payload struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ports.Identity{}, fmt.Errorf("facebook: decode response: %w", err)
	}
	if payload.ID == "" {
		return ports.Identity{}, domainerrors.ErrInvalidCredentials
	}
	return ports.Identity{
		Provider:       "facebook",
		ProviderUserID: payload.ID,
		Name:           payload.Name,
	}, nil
}

func (v *Verifier) client() *http.Client {
	if v.Client != nil {
		return v.Client
	}
	return http.DefaultClient
}

var _ ports.IdentityVerifier = (*Verifier)(nil)
