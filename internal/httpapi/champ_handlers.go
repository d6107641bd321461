package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"podio.org/internal/audit"
	"podio.org/internal/auth"
	"podio.org/internal/champ"
	"podio.org/internal/ids"
)

// organizerRole may create and manage championships alongside the
// super-role.
const organizerRole = "organizer"

// ensureChampionshipWrite admits the organizer role or the
// championship-management capability; the super-role passes either path.
// The role check is side-effect free so capability-authorized writes do
// not log denials.
func (a *API) ensureChampionshipWrite(w http.ResponseWriter, r *http.Request) bool {
	principal, ok := a.principal(w, r)
	if !ok {
		return false
	}
	if principal.IsMaster() || principal.HasRole(organizerRole) {
		return true
	}
	return a.ensurePermission(w, r, auth.PermManageChampionships)
}

type createChampionshipRequest struct {
	Name         string    `json:"name"`
	Location     string    `json:"location"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	OrganizerID  string    `json:"organizer_id"`
	DisciplineID string    `json:"discipline_id"`
	Description  string    `json:"description"`
}

type updateChampionshipRequest struct {
	Name         *string    `json:"name"`
	Location     *string    `json:"location"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	OrganizerID  *string    `json:"organizer_id"`
	DisciplineID *string    `json:"discipline_id"`
	Description  *string    `json:"description"`
}

type createAssignmentRequest struct {
	UserID        string     `json:"user_id"`
	JobPositionID string     `json:"job_position_id"`
	HoursWorked   float64    `json:"hours_worked"`
	StartDate     *time.Time `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
}

func (a *API) handleChampionships(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.principal(w, r); !ok {
			return
		}
		list, err := a.champ.ListChampionships(r.Context())
		if err != nil {
			handleChampError(w, r, err, codeResourceConflict)
			return
		}
		writeJSON(w, http.StatusOK, list)
	case http.MethodPost:
		if !a.ensureChampionshipWrite(w, r) {
			return
		}
		var req createChampionshipRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAPIError(w, r, http.StatusBadRequest, codeValidationError, err.Error())
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeAPIError(w, r, http.StatusUnprocessableEntity, codeValidationError, "name is required")
			return
		}
		if strings.TrimSpace(req.OrganizerID) == "" || strings.TrimSpace(req.DisciplineID) == "" {
			writeAPIError(w, r, http.StatusUnprocessableEntity, codeValidationError, "organizer_id and discipline_id are required")
			return
		}
		if !ids.Valid(strings.TrimSpace(req.OrganizerID)) || !ids.Valid(strings.TrimSpace(req.DisciplineID)) {
			writeAPIError(w, r, http.StatusUnprocessableEntity, codeValidationError, "organizer_id and discipline_id must be well-formed ids")
			return
		}
		if !req.EndDate.IsZero() && req.EndDate.Before(req.StartDate) {
			writeAPIError(w, r, http.StatusUnprocessableEntity, codeValidationError, "end_date precedes start_date")
			return
		}
		c := &champ.Championship{
			ID:           ids.New(),
			Name:         strings.TrimSpace(req.Name),
			Location:     strings.TrimSpace(req.Location),
			StartDate:    req.StartDate,
			EndDate:      req.EndDate,
			OrganizerID:  strings.TrimSpace(req.OrganizerID),
			DisciplineID: strings.TrimSpace(req.DisciplineID),
			Description:  strings.TrimSpace(req.Description),
			CreatedAt:    time.Now().UTC(),
		}
		if err := a.champ.CreateChampionship(r.Context(), c); err != nil {
			handleChampError(w, r, err, codeAlreadyExists)
			return
		}
		_ = audit.LogEvent(r.Context(), "champ.championship.create", map[string]any{
			"championship_id": c.ID,
			"name":            c.Name,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/championships/%s", c.ID))
		writeJSON(w, http.StatusCreated, c)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleChampionshipScoped(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r.URL.Path, "/v1/championships/")
	switch {
	case len(parts) == 1:
		a.handleChampionshipByID(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "assignments":
		a.handleChampionshipAssignments(w, r, parts[0])
	case len(parts) == 3 && parts[1] == "assignments":
		a.handleChampionshipAssignment(w, r, parts[0], parts[2])
	default:
		writeAPIError(w, r, http.StatusNotFound, codeNotFound, "resource not found")
	}
}

func (a *API) handleChampionshipByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.principal(w, r); !ok {
			return
		}
		c, err := a.champ.GetChampionship(r.Context(), id)
		if err != nil {
			handleChampError(w, r, err, codeResourceConflict)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodPatch:
		if !a.ensureChampionshipWrite(w, r) {
			return
		}
		var req updateChampionshipRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAPIError(w, r, http.StatusBadRequest, codeValidationError, err.Error())
			return
		}
		c, err := a.champ.UpdateChampionship(r.Context(), id, champ.ChampionshipUpdate{
			Name:         req.Name,
			Location:     req.Location,
			StartDate:    req.StartDate,
			EndDate:      req.EndDate,
			OrganizerID:  req.OrganizerID,
			DisciplineID: req.DisciplineID,
			Description:  req.Description,
		})
		if err != nil {
			handleChampError(w, r, err, codeResourceConflict)
			return
		}
		_ = audit.LogEvent(r.Context(), "champ.championship.update", map[string]any{"championship_id": id})
		writeJSON(w, http.StatusOK, c)
	case http.MethodDelete:
		if !a.ensureChampionshipWrite(w, r) {
			return
		}
		if err := a.champ.DeleteChampionship(r.Context(), id); err != nil {
			handleChampError(w, r, err, codeResourceConflict)
			return
		}
		_ = audit.LogEvent(r.Context(), "champ.championship.delete", map[string]any{"championship_id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) handleChampionshipAssignments(w http.ResponseWriter, r *http.Request, championshipID string) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.principal(w, r); !ok {
			return
		}
		list, err := a.champ.ListAssignmentsForChampionship(r.Context(), championshipID)
		if err != nil {
			handleChampError(w, r, err, codeResourceConflict)
			return
		}
		writeJSON(w, http.StatusOK, list)
	case http.MethodPost:
		if !a.ensureChampionshipWrite(w, r) {
			return
		}
		var req createAssignmentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAPIError(w, r, http.StatusBadRequest, codeValidationError, err.Error())
			return
		}
		if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.JobPositionID) == "" {
			writeAPIError(w, r, http.StatusUnprocessableEntity, codeValidationError, "user_id and job_position_id are required")
			return
		}
		if !ids.Valid(strings.TrimSpace(req.UserID)) || !ids.Valid(strings.TrimSpace(req.JobPositionID)) {
			writeAPIError(w, r, http.StatusUnprocessableEntity, codeValidationError, "user_id and job_position_id must be well-formed ids")
			return
		}
		if req.HoursWorked < 0 {
			writeAPIError(w, r, http.StatusUnprocessableEntity, codeValidationError, "hours_worked must not be negative")
			return
		}
		assignment := &champ.Assignment{
			UserID:         strings.TrimSpace(req.UserID),
			ChampionshipID: championshipID,
			JobPositionID:  strings.TrimSpace(req.JobPositionID),
			HoursWorked:    req.HoursWorked,
			StartDate:      req.StartDate,
			EndDate:        req.EndDate,
			CreatedAt:      time.Now().UTC(),
		}
		if err := a.champ.CreateAssignment(r.Context(), assignment); err != nil {
			handleChampError(w, r, err, codeAlreadyExists)
			return
		}
		_ = audit.LogEvent(r.Context(), "champ.assignment.create", map[string]any{
			"championship_id": championshipID,
			"user_id":         assignment.UserID,
			"job_position_id": assignment.JobPositionID,
		})
		writeJSON(w, http.StatusCreated, assignment)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleChampionshipAssignment(w http.ResponseWriter, r *http.Request, championshipID, userID string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	if !a.ensureChampionshipWrite(w, r) {
		return
	}
	if err := a.champ.DeleteAssignment(r.Context(), userID, championshipID); err != nil {
		handleChampError(w, r, err, codeResourceConflict)
		return
	}
	_ = audit.LogEvent(r.Context(), "champ.assignment.delete", map[string]any{
		"championship_id": championshipID,
		"user_id":         userID,
	})
	w.WriteHeader(http.StatusNoContent)
}
