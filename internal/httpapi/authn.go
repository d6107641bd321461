package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"podio.org/internal/auth"
	"podio.org/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/token",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

// withAuth resolves the bearer token into a principal for every
// non-public request and stores it in the request context. Handlers make
// their own authorization decisions on top of it.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.auth == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			obs.CountDenial("unauthenticated")
			writeAPIError(w, r, http.StatusUnauthorized, codeInvalidToken, err.Error())
			return
		}

		principal, err := a.auth.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				obs.CountDenial("unauthenticated")
				writeAPIError(w, r, http.StatusUnauthorized, codeInvalidToken, "invalid or expired token")
				return
			}
			writeAPIError(w, r, http.StatusInternalServerError, codeInternalError, "authentication error")
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// principal fetches the authenticated actor; a miss means the route was
// wrongly listed as public.
func (a *API) principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		obs.CountDenial("unauthenticated")
		writeAPIError(w, r, http.StatusUnauthorized, codeInvalidToken, "authentication required")
		return auth.Principal{}, false
	}
	return principal, true
}

// ensureRoles gates the request on the live role set; the super-role
// always passes.
func (a *API) ensureRoles(w http.ResponseWriter, r *http.Request, allowed ...string) bool {
	principal, ok := a.principal(w, r)
	if !ok {
		return false
	}
	if err := a.auth.RequireAnyRole(r.Context(), principal, allowed...); err != nil {
		obs.CountDenial("forbidden")
		writeAPIError(w, r, http.StatusForbidden, codePermissionDenied, "insufficient privileges")
		return false
	}
	return true
}

func (a *API) ensureMaster(w http.ResponseWriter, r *http.Request) bool {
	return a.ensureRoles(w, r, auth.MasterRole)
}

// ensurePermission gates the request on a named capability resolved
// through the principal's roles.
func (a *API) ensurePermission(w http.ResponseWriter, r *http.Request, perm string) bool {
	principal, ok := a.principal(w, r)
	if !ok {
		return false
	}
	if err := a.auth.RequirePermission(r.Context(), principal, perm); err != nil {
		if errors.Is(err, auth.ErrForbidden) {
			obs.CountDenial("forbidden")
			writeAPIError(w, r, http.StatusForbidden, codePermissionDenied, "insufficient privileges")
		} else {
			writeAPIError(w, r, http.StatusInternalServerError, codeInternalError, "authorization error")
		}
		return false
	}
	return true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
