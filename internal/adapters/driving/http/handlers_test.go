package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/custodia-labs/graphgate/internal/adapters/driven/auth"
	"github.com/custodia-labs/graphgate/internal/core/domain"
	"github.com/custodia-labs/graphgate/internal/core/ports/driving"
)

// mockOAuthService implements driving.OAuthService for testing
type mockOAuthService struct {
	authorizeFn func(ctx context.Context, req driving.AuthorizeRequest) (*driving.AuthorizeResponse, error)
	callbackFn  func(ctx context.Context, req driving.CallbackRequest) (*driving.CallbackResponse, error)
}

func (m *mockOAuthService) Authorize(ctx context.Context, req driving.AuthorizeRequest) (*driving.AuthorizeResponse, error) {
	if m.authorizeFn != nil {
		return m.authorizeFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockOAuthService) Callback(ctx context.Context, req driving.CallbackRequest) (*driving.CallbackResponse, error) {
	if m.callbackFn != nil {
		return m.callbackFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

// mockProfileService implements driving.ProfileService for testing
type mockProfileService struct {
	profileFn func(ctx context.Context, userID, returnURL string, reauth bool) (*driving.ProfileView, error)
	signOutFn func(ctx context.Context, userID string) error
}

func (m *mockProfileService) Profile(ctx context.Context, userID, returnURL string, reauth bool) (*driving.ProfileView, error) {
	if m.profileFn != nil {
		return m.profileFn(ctx, userID, returnURL, reauth)
	}
	return nil, errors.New("not implemented")
}

func (m *mockProfileService) SignOut(ctx context.Context, userID string) error {
	if m.signOutFn != nil {
		return m.signOutFn(ctx, userID)
	}
	return errors.New("not implemented")
}

// mockPinger implements Pinger for testing
type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

const testSessionSecret = "test-session-secret"

type serverFixture struct {
	server   *Server
	oauth    *mockOAuthService
	profile  *mockProfileService
	sessions *auth.Adapter
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	oauth := &mockOAuthService{}
	profile := &mockProfileService{}
	sessions := auth.NewAdapter(testSessionSecret)

	server := NewServer(DefaultConfig(), oauth, profile, sessions, &mockPinger{}, nil)

	return &serverFixture{
		server:   server,
		oauth:    oauth,
		profile:  profile,
		sessions: sessions,
	}
}

func (f *serverFixture) sessionFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := f.sessions.Issue(userID, time.Hour)
	if err != nil {
		t.Fatalf("failed to issue session token: %v", err)
	}
	return token
}

func (f *serverFixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.server.router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(into); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	f := newServerFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	decodeJSON(t, w, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestReadyEndpoint(t *testing.T) {
	f := newServerFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestReadyEndpointDatabaseDown(t *testing.T) {
	oauth := &mockOAuthService{}
	profile := &mockProfileService{}
	sessions := auth.NewAdapter(testSessionSecret)
	db := &mockPinger{err: errors.New("connection refused")}

	server := NewServer(DefaultConfig(), oauth, profile, sessions, db, nil)

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestProfileRequiresSession(t *testing.T) {
	f := newServerFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/me/profile", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a session, got %d", w.Code)
	}
}

func TestProfileRejectsInvalidSession(t *testing.T) {
	f := newServerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/profile", nil)
	req.Header.Set("Authorization", "Bearer forged-token")

	w := f.do(req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a forged session, got %d", w.Code)
	}
}

func TestProfileServed(t *testing.T) {
	f := newServerFixture(t)
	f.profile.profileFn = func(ctx context.Context, userID, returnURL string, reauth bool) (*driving.ProfileView, error) {
		if userID != "user-1" {
			t.Errorf("expected user-1, got %q", userID)
		}
		if reauth {
			t.Error("expected reauth false without authError")
		}
		return &driving.ProfileView{
			Profile: &domain.UserProfile{DisplayName: "Ada Lovelace"},
		}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/profile", nil)
	req.Header.Set("Authorization", "Bearer "+f.sessionFor(t, "user-1"))

	w := f.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var view driving.ProfileView
	decodeJSON(t, w, &view)
	if view.Profile == nil || view.Profile.DisplayName != "Ada Lovelace" {
		t.Errorf("unexpected view: %+v", view)
	}
}

func TestProfileSessionCookie(t *testing.T) {
	f := newServerFixture(t)
	f.profile.profileFn = func(ctx context.Context, userID, returnURL string, reauth bool) (*driving.ProfileView, error) {
		return &driving.ProfileView{Profile: &domain.UserProfile{DisplayName: "Ada"}}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/profile", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: f.sessionFor(t, "user-1")})

	w := f.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with a session cookie, got %d", w.Code)
	}
}

func TestProfileAuthErrorForcesReauth(t *testing.T) {
	f := newServerFixture(t)

	var gotReauth bool
	f.profile.profileFn = func(ctx context.Context, userID, returnURL string, reauth bool) (*driving.ProfileView, error) {
		gotReauth = reauth
		return &driving.ProfileView{
			AuthorizationRequired: true,
			AuthorizationURL:      "https://login.example.com/authorize",
			Notice:                driving.NoticeUnexpectedError,
		}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/profile?authError=token", nil)
	req.Header.Set("Authorization", "Bearer "+f.sessionFor(t, "user-1"))

	w := f.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !gotReauth {
		t.Error("expected authError query to set the reauth flag")
	}
}

func TestProfileServiceError(t *testing.T) {
	f := newServerFixture(t)
	f.profile.profileFn = func(ctx context.Context, userID, returnURL string, reauth bool) (*driving.ProfileView, error) {
		return nil, errors.New("store down")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/profile", nil)
	req.Header.Set("Authorization", "Bearer "+f.sessionFor(t, "user-1"))

	w := f.do(req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}

	var body map[string]string
	decodeJSON(t, w, &body)
	if body["error"] != "unexpected error" {
		t.Errorf("expected a generic error message, got %q", body["error"])
	}
}

func TestSignOut(t *testing.T) {
	f := newServerFixture(t)

	var signedOut string
	f.profile.signOutFn = func(ctx context.Context, userID string) error {
		signedOut = userID
		return nil
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/me/signout", nil)
	req.Header.Set("Authorization", "Bearer "+f.sessionFor(t, "user-1"))

	w := f.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if signedOut != "user-1" {
		t.Errorf("expected sign-out for user-1, got %q", signedOut)
	}
}

func TestCallbackSuccessRedirects(t *testing.T) {
	f := newServerFixture(t)
	f.oauth.callbackFn = func(ctx context.Context, req driving.CallbackRequest) (*driving.CallbackResponse, error) {
		if req.UserID != "user-1" {
			t.Errorf("expected user-1, got %q", req.UserID)
		}
		if req.Code != "auth-code" {
			t.Errorf("expected auth-code, got %q", req.Code)
		}
		if req.State != "sealed-state" {
			t.Errorf("expected sealed-state, got %q", req.State)
		}
		if !req.SecureTransport {
			t.Error("expected secure transport behind the https proxy header")
		}
		return &driving.CallbackResponse{RedirectURL: "/after"}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/oauth/callback?code=auth-code&state=sealed-state", nil)
	req.Header.Set("Authorization", "Bearer "+f.sessionFor(t, "user-1"))
	req.Header.Set("X-Forwarded-Proto", "https")

	w := f.do(req)
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Location"); got != "/after" {
		t.Errorf("expected redirect to /after, got %q", got)
	}
}

func TestCallbackInsecureTransport(t *testing.T) {
	f := newServerFixture(t)
	f.oauth.callbackFn = func(ctx context.Context, req driving.CallbackRequest) (*driving.CallbackResponse, error) {
		if req.SecureTransport {
			t.Error("expected insecure transport for a plain http host")
		}
		return nil, driving.ErrInsecureTransport
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/oauth/callback?code=c&state=s", nil)
	req.Header.Set("Authorization", "Bearer "+f.sessionFor(t, "user-1"))

	w := f.do(req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestCallbackProviderError(t *testing.T) {
	f := newServerFixture(t)
	f.oauth.callbackFn = func(ctx context.Context, req driving.CallbackRequest) (*driving.CallbackResponse, error) {
		return nil, &driving.OAuthError{Code: req.Error, Description: req.ErrorDescription}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/oauth/callback?error=access_denied&error_description=declined&state=s", nil)
	req.Header.Set("Authorization", "Bearer "+f.sessionFor(t, "user-1"))
	req.Header.Set("X-Forwarded-Proto", "https")

	w := f.do(req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var body map[string]string
	decodeJSON(t, w, &body)
	if body["error"] != "authorization was not granted" {
		t.Errorf("unexpected error message %q", body["error"])
	}
}

func TestCallbackInvalidState(t *testing.T) {
	f := newServerFixture(t)
	f.oauth.callbackFn = func(ctx context.Context, req driving.CallbackRequest) (*driving.CallbackResponse, error) {
		return nil, driving.ErrInvalidState
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/oauth/callback?code=c&state=forged", nil)
	req.Header.Set("Authorization", "Bearer "+f.sessionFor(t, "user-1"))
	req.Header.Set("X-Forwarded-Proto", "https")

	w := f.do(req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var body map[string]string
	decodeJSON(t, w, &body)
	if body["error"] != "state validation failed" {
		t.Errorf("unexpected error message %q", body["error"])
	}
}

func TestCallbackExchangeFailureRedirectsToReauth(t *testing.T) {
	f := newServerFixture(t)
	f.oauth.callbackFn = func(ctx context.Context, req driving.CallbackRequest) (*driving.CallbackResponse, error) {
		return nil, fmt.Errorf("%w: invalid_grant", driving.ErrExchangeFailed)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/oauth/callback?code=bad&state=s", nil)
	req.Header.Set("Authorization", "Bearer "+f.sessionFor(t, "user-1"))
	req.Header.Set("X-Forwarded-Proto", "https")

	w := f.do(req)
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if got := w.Header().Get("Location"); got != reauthPath {
		t.Errorf("expected redirect to %q, got %q", reauthPath, got)
	}
}

func TestCallbackLocalhostIsSecure(t *testing.T) {
	f := newServerFixture(t)
	f.oauth.callbackFn = func(ctx context.Context, req driving.CallbackRequest) (*driving.CallbackResponse, error) {
		if !req.SecureTransport {
			t.Error("expected localhost to count as secure transport")
		}
		return &driving.CallbackResponse{RedirectURL: "/after"}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "http://localhost:8080/api/v1/oauth/callback?code=c&state=s", nil)
	req.Header.Set("Authorization", "Bearer "+f.sessionFor(t, "user-1"))

	w := f.do(req)
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
}
