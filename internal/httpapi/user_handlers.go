package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"podio.org/internal/audit"
	"podio.org/internal/auth"
)

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type grantRoleRequest struct {
	RoleID string `json:"role_id"`
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensureMaster(w, r) {
			return
		}
		users, err := a.auth.ListUsers(r.Context())
		if err != nil {
			handleAuthError(w, r, err, codeResourceConflict)
			return
		}
		writeJSON(w, http.StatusOK, users)
	case http.MethodPost:
		if !a.ensureMaster(w, r) {
			return
		}
		var req createUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAPIError(w, r, http.StatusBadRequest, codeValidationError, err.Error())
			return
		}
		user, err := a.auth.CreateUser(r.Context(), req.Username, req.Email, req.Password)
		if err != nil {
			handleAuthError(w, r, err, codeAlreadyExists)
			return
		}
		_ = audit.LogEvent(r.Context(), "rbac.user.create", map[string]any{
			"user_id":  user.ID,
			"username": user.Username,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/users/%s", user.ID))
		writeJSON(w, http.StatusCreated, user)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleUserScoped(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r.URL.Path, "/v1/users/")
	if len(parts) == 0 {
		writeAPIError(w, r, http.StatusNotFound, codeNotFound, "resource not found")
		return
	}
	userID := parts[0]
	switch {
	case len(parts) == 1:
		a.handleUserByID(w, r, userID)
	case len(parts) == 2 && parts[1] == "roles":
		a.handleUserRoles(w, r, userID)
	case len(parts) == 3 && parts[1] == "roles":
		a.handleUserRole(w, r, userID, parts[2])
	case len(parts) == 2 && parts[1] == "assignments":
		a.handleUserAssignments(w, r, userID)
	default:
		writeAPIError(w, r, http.StatusNotFound, codeNotFound, "resource not found")
	}
}

func (a *API) handleUserByID(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensureMaster(w, r) {
			return
		}
		user, err := a.auth.GetUser(r.Context(), userID)
		if err != nil {
			handleAuthError(w, r, err, codeResourceConflict)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPatch:
		// Users may update their own record; anyone else's takes the
		// super-role.
		principal, ok := a.principal(w, r)
		if !ok {
			return
		}
		if principal.User.ID != userID && !a.ensureMaster(w, r) {
			return
		}
		var req updateUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAPIError(w, r, http.StatusBadRequest, codeValidationError, err.Error())
			return
		}
		user, err := a.auth.UpdateUser(r.Context(), userID, toUserUpdate(req))
		if err != nil {
			handleAuthError(w, r, err, codeAlreadyExists)
			return
		}
		_ = audit.LogEvent(r.Context(), "rbac.user.update", map[string]any{"user_id": userID})
		writeJSON(w, http.StatusOK, user)
	case http.MethodDelete:
		if !a.ensureMaster(w, r) {
			return
		}
		if err := a.auth.DeleteUser(r.Context(), userID); err != nil {
			handleAuthError(w, r, err, codeResourceConflict)
			return
		}
		_ = audit.LogEvent(r.Context(), "rbac.user.delete", map[string]any{"user_id": userID})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) handleUserRoles(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensureMaster(w, r) {
			return
		}
		roles, err := a.auth.RolesForUser(r.Context(), userID)
		if err != nil {
			handleAuthError(w, r, err, codeResourceConflict)
			return
		}
		writeJSON(w, http.StatusOK, roles)
	case http.MethodPost:
		if !a.ensureMaster(w, r) {
			return
		}
		var req grantRoleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAPIError(w, r, http.StatusBadRequest, codeValidationError, err.Error())
			return
		}
		if strings.TrimSpace(req.RoleID) == "" {
			writeAPIError(w, r, http.StatusBadRequest, codeValidationError, "role_id is required")
			return
		}
		assignment, err := a.auth.GrantRole(r.Context(), userID, req.RoleID)
		if err != nil {
			handleAuthError(w, r, err, codeAlreadyExists)
			return
		}
		_ = audit.LogEvent(r.Context(), "rbac.role.grant", map[string]any{
			"user_id": userID,
			"role_id": assignment.RoleID,
		})
		writeJSON(w, http.StatusCreated, assignment)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleUserRole(w http.ResponseWriter, r *http.Request, userID, roleID string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	if !a.ensureMaster(w, r) {
		return
	}
	if err := a.auth.RevokeRole(r.Context(), userID, roleID); err != nil {
		handleAuthError(w, r, err, codeResourceConflict)
		return
	}
	_ = audit.LogEvent(r.Context(), "rbac.role.revoke", map[string]any{
		"user_id": userID,
		"role_id": roleID,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleUserAssignments lists the championships the user is staffed on.
// A user can always read their own assignments; reading someone else's
// takes the super-role.
func (a *API) handleUserAssignments(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := a.principal(w, r)
	if !ok {
		return
	}
	if principal.User.ID != userID && !a.ensureMaster(w, r) {
		return
	}
	assignments, err := a.champ.ListAssignmentsForUser(r.Context(), userID)
	if err != nil {
		handleChampError(w, r, err, codeResourceConflict)
		return
	}
	writeJSON(w, http.StatusOK, assignments)
}

func toUserUpdate(req updateUserRequest) auth.UserUpdate {
	return auth.UserUpdate{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}
}
