package httpapi

import (
	"fmt"
	"net/http"

	"podio.org/internal/audit"
	"podio.org/internal/auth"
)

type createPermissionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (a *API) handlePermissions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.principal(w, r); !ok {
			return
		}
		perms, err := a.auth.ListPermissions(r.Context())
		if err != nil {
			handleAuthError(w, r, err, codeResourceConflict)
			return
		}
		writeJSON(w, http.StatusOK, perms)
	case http.MethodPost:
		if !a.ensurePermission(w, r, auth.PermManagePermissions) {
			return
		}
		var req createPermissionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAPIError(w, r, http.StatusBadRequest, codeValidationError, err.Error())
			return
		}
		perm, err := a.auth.CreatePermission(r.Context(), req.Name, req.Description)
		if err != nil {
			handleAuthError(w, r, err, codeAlreadyExists)
			return
		}
		_ = audit.LogEvent(r.Context(), "rbac.permission.create", map[string]any{
			"permission_id": perm.ID,
			"name":          perm.Name,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/permissions/%s", perm.ID))
		writeJSON(w, http.StatusCreated, perm)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}
