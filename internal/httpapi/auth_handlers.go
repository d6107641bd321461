package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"podio.org/internal/audit"
	"podio.org/internal/auth"
	"podio.org/internal/obs"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        any       `json:"user"`
}

// handleLogin verifies JSON credentials and issues a bearer token.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, codeValidationError, err.Error())
		return
	}
	a.login(w, r, req.Username, req.Password)
}

// handleTokenForm is the form-urlencoded variant of login, kept for
// OAuth2-password-flow style clients.
func (a *API) handleTokenForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, codeValidationError, "malformed form body")
		return
	}
	a.login(w, r, r.PostFormValue("username"), r.PostFormValue("password"))
}

func (a *API) login(w http.ResponseWriter, r *http.Request, username, password string) {
	result, err := a.auth.Login(r.Context(), username, password)
	if err != nil {
		// Store failures surface as 500 and stay out of the
		// rejected-login counter.
		if errors.Is(err, auth.ErrInvalidCredentials) {
			obs.CountLoginFailure()
		}
		handleAuthError(w, r, err, codeResourceConflict)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id":    result.User.ID,
		"username":   result.User.Username,
		"expires_at": result.ExpiresAt.Format(time.RFC3339),
	})
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: result.Token,
		TokenType:   "bearer",
		ExpiresAt:   result.ExpiresAt,
		User:        result.User,
	})
}

// handleMe returns the authenticated principal's own summary, built from
// the live role set rather than the token snapshot.
func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := a.principal(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         principal.User.ID,
		"username":   principal.User.Username,
		"email":      principal.User.Email,
		"roles":      principal.RoleNames(),
		"created_at": principal.User.CreatedAt.Format(time.RFC3339),
	})
}

func pathTail(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}
