// Package graph calls the directory resource API with bearer tokens.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/custodia-labs/graphgate/internal/core/domain"
	"github.com/custodia-labs/graphgate/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.ProfileClient = (*Client)(nil)

// Client fetches user profiles from the Graph API.
type Client struct {
	// profileURLFormat is a format string with one %s verb for the tenant.
	// Example: "https://graph.microsoft.com/%s/me?api-version=1.6"
	profileURLFormat string
	httpClient       *http.Client
}

// NewClient creates a Graph profile client.
func NewClient(profileURLFormat string) *Client {
	return &Client{
		profileURLFormat: profileURLFormat,
		httpClient:       &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchProfile retrieves the signed-in user's profile.
// A 401 response maps to domain.ErrUnauthorized so the caller can invalidate
// its cached token.
func (c *Client) FetchProfile(ctx context.Context, accessToken, tenantID string) (*domain.UserProfile, error) {
	requestURL := fmt.Sprintf(c.profileURLFormat, url.PathEscape(tenantID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do profile request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read profile response: %w", err)
		}
		var profile domain.UserProfile
		if err := json.Unmarshal(body, &profile); err != nil {
			return nil, fmt.Errorf("decode profile response: %w", err)
		}
		return &profile, nil

	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: profile request returned 401", domain.ErrUnauthorized)

	default:
		return nil, fmt.Errorf("profile request failed: status %d", resp.StatusCode)
	}
}
