package http

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/custodia-labs/graphgate/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"state validation failed"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// reauthPath is where a failed code exchange sends the browser so the user
// can retry without seeing a raw error.
const reauthPath = "/api/v1/me/profile?authError=token"

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns the readiness status of the API (checks store connections)
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse  "A backing store is unreachable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "redis unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Profile endpoints

// handleProfile godoc
// @Summary      Get the signed-in user's directory profile
// @Description  Serves the profile using a silently acquired token. When no
// @Description  usable token is cached, the response instead carries a fresh
// @Description  provider authorization URL for the browser to follow.
// @Tags         Profile
// @Produce      json
// @Param        authError  query     string  false  "Set after a failed code exchange to force re-authorization"
// @Success      200        {object}  driving.ProfileView
// @Failure      401        {object}  ErrorResponse  "Missing or invalid session"
// @Failure      500        {object}  ErrorResponse  "Unexpected error"
// @Router       /me/profile [get]
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	reauth := r.URL.Query().Get("authError") != ""

	view, err := s.profileService.Profile(r.Context(), userID, requestURL(r), reauth)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "unexpected error")
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// handleSignOut godoc
// @Summary      Sign out
// @Description  Drops the user's cached tokens and pending authorization states
// @Tags         Profile
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      401  {object}  ErrorResponse  "Missing or invalid session"
// @Router       /me/signout [post]
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	if err := s.profileService.SignOut(r.Context(), userID); err != nil {
		writeError(w, http.StatusInternalServerError, "unexpected error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// OAuth endpoints

// handleOAuthCallback godoc
// @Summary      OAuth callback
// @Description  Receives the provider redirect, validates and consumes the
// @Description  state, exchanges the code, and redirects to the originally
// @Description  requested page.
// @Tags         OAuth
// @Param        code    query  string  false  "Authorization code"
// @Param        state   query  string  true   "Sealed state value"
// @Param        error   query  string  false  "Provider error code"
// @Success      302  "Redirect to the validated return URL"
// @Failure      400  {object}  ErrorResponse  "Provider error or state validation failure"
// @Failure      403  {object}  ErrorResponse  "Insecure transport"
// @Router       /oauth/callback [get]
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := driving.CallbackRequest{
		UserID:           GetUserID(r.Context()),
		Code:             query.Get("code"),
		State:            query.Get("state"),
		Error:            query.Get("error"),
		ErrorDescription: query.Get("error_description"),
		Resource:         query.Get("resource"),
		SecureTransport:  isSecureTransport(r),
	}

	resp, err := s.oauthService.Callback(r.Context(), req)
	if err != nil {
		s.writeCallbackError(w, r, err)
		return
	}

	http.Redirect(w, r, resp.RedirectURL, http.StatusFound)
}

// writeCallbackError maps flow errors to user-facing responses without
// leaking internal detail.
func (s *Server) writeCallbackError(w http.ResponseWriter, r *http.Request, err error) {
	var providerErr *driving.OAuthError
	switch {
	case errors.Is(err, driving.ErrInsecureTransport):
		writeError(w, http.StatusForbidden, "secure connection required")
	case errors.As(err, &providerErr):
		writeError(w, http.StatusBadRequest, "authorization was not granted")
	case errors.Is(err, driving.ErrMissingState), errors.Is(err, driving.ErrInvalidState):
		writeError(w, http.StatusBadRequest, "state validation failed")
	case errors.Is(err, driving.ErrExchangeFailed):
		// Send the user back through authorization rather than dead-ending.
		http.Redirect(w, r, reauthPath, http.StatusFound)
	default:
		writeError(w, http.StatusInternalServerError, "unexpected error")
	}
}

// requestURL reconstructs the URL the user requested, used as the return
// target after authorization.
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
	}
	return u.String()
}

// isSecureTransport reports whether the request arrived over TLS or a
// loopback connection. OAuth callbacks over anything else are rejected.
func isSecureTransport(r *http.Request) bool {
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		return true
	}
	host, _, err := net.SplitHostPort(r.Host)
	if err != nil {
		host = r.Host
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
