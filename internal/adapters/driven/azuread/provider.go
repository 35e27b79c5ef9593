// Package azuread adapts the Azure AD authorization-code endpoints to the
// driven.IdentityProvider port.
package azuread

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/graphgate/internal/core/domain"
	"github.com/custodia-labs/graphgate/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.IdentityProvider = (*Provider)(nil)

// Config holds the fixed per-deployment provider settings.
type Config struct {
	// Authority is the tenant-scoped login endpoint.
	// Example: "https://login.microsoftonline.com/contoso.onmicrosoft.com"
	Authority string

	// ClientID and ClientSecret identify the registered application.
	ClientID     string
	ClientSecret string

	// RedirectURI is the registered callback URL.
	RedirectURI string

	// Resource is the audience tokens are requested for.
	// Example: "https://graph.microsoft.com/"
	Resource string
}

// Provider implements driven.IdentityProvider against Azure AD.
type Provider struct {
	cfg        Config
	oauth      *oauth2.Config
	tenant     string
	httpClient *http.Client
}

// New creates an Azure AD provider.
func New(cfg Config) *Provider {
	authority := strings.TrimRight(cfg.Authority, "/")
	return &Provider{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authority + "/oauth2/authorize",
				TokenURL: authority + "/oauth2/token",
			},
		},
		tenant:     tenantFromAuthority(authority),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// tenantFromAuthority extracts the tenant segment of the authority URL.
func tenantFromAuthority(authority string) string {
	u, err := url.Parse(authority)
	if err != nil {
		return ""
	}
	return strings.Trim(u.Path, "/")
}

// AuthorizationURL builds the interactive authorization request URL.
func (p *Provider) AuthorizationURL(state, loginHint string) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("resource", p.cfg.Resource),
	}
	if loginHint != "" {
		opts = append(opts, oauth2.SetAuthURLParam("login_hint", loginHint))
	}
	return p.oauth.AuthCodeURL(state, opts...)
}

// ExchangeCode redeems an authorization code for tokens.
func (p *Provider) ExchangeCode(ctx context.Context, code string) (*driven.ProviderToken, error) {
	tok, err := p.oauth.Exchange(ctx, code,
		oauth2.SetAuthURLParam("resource", p.cfg.Resource))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	return &driven.ProviderToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
		TenantID:     p.tenant,
		Expiry:       tok.Expiry,
	}, nil
}

// Refresh exchanges a refresh token for fresh tokens. This goes through a
// direct form POST rather than oauth2.TokenSource because the token endpoint
// requires the resource parameter on refresh grants.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*driven.ProviderToken, error) {
	params := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {p.cfg.ClientID},
		"client_secret": {p.cfg.ClientSecret},
		"resource":      {p.cfg.Resource},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.oauth.Endpoint.TokenURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do refresh request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read refresh response: %w", err)
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		// The v1 token endpoint returns expires_in as a quoted number.
		ExpiresIn json.RawMessage `json:"expires_in"`
		Error     string          `json:"error"`
		ErrorDesc string          `json:"error_description"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("decode refresh response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || tokenResp.Error != "" {
		if tokenResp.Error == "invalid_grant" {
			return nil, fmt.Errorf("%w: %s", domain.ErrRefreshRejected, tokenResp.Error)
		}
		return nil, fmt.Errorf("refresh rejected: %s - %s", tokenResp.Error, tokenResp.ErrorDesc)
	}

	var expiry time.Time
	raw := strings.Trim(string(tokenResp.ExpiresIn), `"`)
	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil && seconds > 0 {
		expiry = time.Now().Add(time.Duration(seconds) * time.Second)
	}

	// Azure AD may rotate the refresh token; keep the old one when it doesn't.
	if tokenResp.RefreshToken == "" {
		tokenResp.RefreshToken = refreshToken
	}

	return &driven.ProviderToken{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    tokenResp.TokenType,
		TenantID:     p.tenant,
		Expiry:       expiry,
	}, nil
}

// Resource returns the audience tokens are requested for.
func (p *Provider) Resource() string {
	return p.cfg.Resource
}
