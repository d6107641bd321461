package httpapi

import (
	"fmt"
	"net/http"

	"podio.org/internal/audit"
	"podio.org/internal/auth"
)

type createRoleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type updateRoleRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type setRolePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

func (a *API) handleRoles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.principal(w, r); !ok {
			return
		}
		roles, err := a.auth.ListRoles(r.Context())
		if err != nil {
			handleAuthError(w, r, err, codeResourceConflict)
			return
		}
		writeJSON(w, http.StatusOK, roles)
	case http.MethodPost:
		if !a.ensureMaster(w, r) {
			return
		}
		var req createRoleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAPIError(w, r, http.StatusBadRequest, codeValidationError, err.Error())
			return
		}
		role, err := a.auth.CreateRole(r.Context(), req.Name, req.Description)
		if err != nil {
			handleAuthError(w, r, err, codeAlreadyExists)
			return
		}
		_ = audit.LogEvent(r.Context(), "rbac.role.create", map[string]any{
			"role_id": role.ID,
			"name":    role.Name,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/roles/%s", role.ID))
		writeJSON(w, http.StatusCreated, role)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleRoleScoped(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r.URL.Path, "/v1/roles/")
	switch {
	case len(parts) == 1:
		a.handleRoleByID(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "permissions":
		a.handleRolePermissions(w, r, parts[0])
	default:
		writeAPIError(w, r, http.StatusNotFound, codeNotFound, "resource not found")
	}
}

func (a *API) handleRoleByID(w http.ResponseWriter, r *http.Request, roleID string) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.principal(w, r); !ok {
			return
		}
		role, err := a.auth.GetRole(r.Context(), roleID)
		if err != nil {
			handleAuthError(w, r, err, codeResourceConflict)
			return
		}
		writeJSON(w, http.StatusOK, role)
	case http.MethodPatch:
		if !a.ensureMaster(w, r) {
			return
		}
		var req updateRoleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAPIError(w, r, http.StatusBadRequest, codeValidationError, err.Error())
			return
		}
		role, err := a.auth.UpdateRole(r.Context(), roleID, auth.RoleUpdate{
			Name:        req.Name,
			Description: req.Description,
		})
		if err != nil {
			handleAuthError(w, r, err, codeAlreadyExists)
			return
		}
		_ = audit.LogEvent(r.Context(), "rbac.role.update", map[string]any{"role_id": roleID})
		writeJSON(w, http.StatusOK, role)
	case http.MethodDelete:
		if !a.ensureMaster(w, r) {
			return
		}
		if err := a.auth.DeleteRole(r.Context(), roleID); err != nil {
			handleAuthError(w, r, err, codeResourceConflict)
			return
		}
		_ = audit.LogEvent(r.Context(), "rbac.role.delete", map[string]any{"role_id": roleID})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) handleRolePermissions(w http.ResponseWriter, r *http.Request, roleID string) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.principal(w, r); !ok {
			return
		}
		perms, err := a.auth.PermissionsForRole(r.Context(), roleID)
		if err != nil {
			handleAuthError(w, r, err, codeResourceConflict)
			return
		}
		writeJSON(w, http.StatusOK, perms)
	case http.MethodPut:
		if !a.ensurePermission(w, r, auth.PermManagePermissions) {
			return
		}
		var req setRolePermissionsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAPIError(w, r, http.StatusBadRequest, codeValidationError, err.Error())
			return
		}
		if err := a.auth.SetRolePermissions(r.Context(), roleID, req.Permissions); err != nil {
			handleAuthError(w, r, err, codeResourceConflict)
			return
		}
		_ = audit.LogEvent(r.Context(), "rbac.role.permissions.set", map[string]any{
			"role_id": roleID,
			"count":   len(req.Permissions),
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}
