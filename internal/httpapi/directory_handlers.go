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

// Directory resources (organizers, disciplines, job positions) are read
// by any authenticated user; mutations take the directory-management
// capability.

type createOrganizerRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Placement   string `json:"placement"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Website     string `json:"website"`
}

type createDisciplineRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

type createJobPositionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (a *API) handleOrganizers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.principal(w, r); !ok {
			return
		}
		list, err := a.champ.ListOrganizers(r.Context())
		if err != nil {
			handleChampError(w, r, err, codeResourceConflict)
			return
		}
		writeJSON(w, http.StatusOK, list)
	case http.MethodPost:
		if !a.ensurePermission(w, r, auth.PermManageDirectory) {
			return
		}
		var req createOrganizerRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAPIError(w, r, http.StatusBadRequest, codeValidationError, err.Error())
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeAPIError(w, r, http.StatusUnprocessableEntity, codeValidationError, "name is required")
			return
		}
		o := &champ.Organizer{
			ID:          ids.New(),
			Name:        strings.TrimSpace(req.Name),
			Description: strings.TrimSpace(req.Description),
			Placement:   strings.TrimSpace(req.Placement),
			Phone:       strings.TrimSpace(req.Phone),
			Email:       strings.TrimSpace(strings.ToLower(req.Email)),
			Website:     strings.TrimSpace(req.Website),
			CreatedAt:   time.Now().UTC(),
		}
		if err := a.champ.CreateOrganizer(r.Context(), o); err != nil {
			handleChampError(w, r, err, codeAlreadyExists)
			return
		}
		_ = audit.LogEvent(r.Context(), "champ.organizer.create", map[string]any{
			"organizer_id": o.ID,
			"name":         o.Name,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/organizers/%s", o.ID))
		writeJSON(w, http.StatusCreated, o)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleOrganizerScoped(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r.URL.Path, "/v1/organizers/")
	if len(parts) != 1 {
		writeAPIError(w, r, http.StatusNotFound, codeNotFound, "resource not found")
		return
	}
	id := parts[0]
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.principal(w, r); !ok {
			return
		}
		o, err := a.champ.GetOrganizer(r.Context(), id)
		if err != nil {
			handleChampError(w, r, err, codeResourceConflict)
			return
		}
		writeJSON(w, http.StatusOK, o)
	case http.MethodDelete:
		if !a.ensurePermission(w, r, auth.PermManageDirectory) {
			return
		}
		if err := a.champ.DeleteOrganizer(r.Context(), id); err != nil {
			handleChampError(w, r, err, codeResourceConflict)
			return
		}
		_ = audit.LogEvent(r.Context(), "champ.organizer.delete", map[string]any{"organizer_id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) handleDisciplines(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.principal(w, r); !ok {
			return
		}
		list, err := a.champ.ListDisciplines(r.Context())
		if err != nil {
			handleChampError(w, r, err, codeResourceConflict)
			return
		}
		writeJSON(w, http.StatusOK, list)
	case http.MethodPost:
		if !a.ensurePermission(w, r, auth.PermManageDirectory) {
			return
		}
		var req createDisciplineRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAPIError(w, r, http.StatusBadRequest, codeValidationError, err.Error())
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeAPIError(w, r, http.StatusUnprocessableEntity, codeValidationError, "name is required")
			return
		}
		d := &champ.Discipline{
			ID:        ids.New(),
			Name:      strings.TrimSpace(req.Name),
			Category:  strings.TrimSpace(req.Category),
			CreatedAt: time.Now().UTC(),
		}
		if err := a.champ.CreateDiscipline(r.Context(), d); err != nil {
			handleChampError(w, r, err, codeAlreadyExists)
			return
		}
		_ = audit.LogEvent(r.Context(), "champ.discipline.create", map[string]any{
			"discipline_id": d.ID,
			"name":          d.Name,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/disciplines/%s", d.ID))
		writeJSON(w, http.StatusCreated, d)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleDisciplineScoped(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r.URL.Path, "/v1/disciplines/")
	if len(parts) != 1 {
		writeAPIError(w, r, http.StatusNotFound, codeNotFound, "resource not found")
		return
	}
	id := parts[0]
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.principal(w, r); !ok {
			return
		}
		d, err := a.champ.GetDiscipline(r.Context(), id)
		if err != nil {
			handleChampError(w, r, err, codeResourceConflict)
			return
		}
		writeJSON(w, http.StatusOK, d)
	case http.MethodDelete:
		if !a.ensurePermission(w, r, auth.PermManageDirectory) {
			return
		}
		if err := a.champ.DeleteDiscipline(r.Context(), id); err != nil {
			handleChampError(w, r, err, codeResourceConflict)
			return
		}
		_ = audit.LogEvent(r.Context(), "champ.discipline.delete", map[string]any{"discipline_id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) handleJobPositions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.principal(w, r); !ok {
			return
		}
		list, err := a.champ.ListJobPositions(r.Context())
		if err != nil {
			handleChampError(w, r, err, codeResourceConflict)
			return
		}
		writeJSON(w, http.StatusOK, list)
	case http.MethodPost:
		if !a.ensurePermission(w, r, auth.PermManageDirectory) {
			return
		}
		var req createJobPositionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAPIError(w, r, http.StatusBadRequest, codeValidationError, err.Error())
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			writeAPIError(w, r, http.StatusUnprocessableEntity, codeValidationError, "title is required")
			return
		}
		j := &champ.JobPosition{
			ID:          ids.New(),
			Title:       strings.TrimSpace(req.Title),
			Description: strings.TrimSpace(req.Description),
			CreatedAt:   time.Now().UTC(),
		}
		if err := a.champ.CreateJobPosition(r.Context(), j); err != nil {
			handleChampError(w, r, err, codeAlreadyExists)
			return
		}
		_ = audit.LogEvent(r.Context(), "champ.job_position.create", map[string]any{
			"job_position_id": j.ID,
			"title":           j.Title,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/job-positions/%s", j.ID))
		writeJSON(w, http.StatusCreated, j)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleJobPositionScoped(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r.URL.Path, "/v1/job-positions/")
	if len(parts) != 1 {
		writeAPIError(w, r, http.StatusNotFound, codeNotFound, "resource not found")
		return
	}
	id := parts[0]
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.principal(w, r); !ok {
			return
		}
		j, err := a.champ.GetJobPosition(r.Context(), id)
		if err != nil {
			handleChampError(w, r, err, codeResourceConflict)
			return
		}
		writeJSON(w, http.StatusOK, j)
	case http.MethodDelete:
		if !a.ensurePermission(w, r, auth.PermManageDirectory) {
			return
		}
		if err := a.champ.DeleteJobPosition(r.Context(), id); err != nil {
			handleChampError(w, r, err, codeResourceConflict)
			return
		}
		_ = audit.LogEvent(r.Context(), "champ.job_position.delete", map[string]any{"job_position_id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}
