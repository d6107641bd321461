package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"podio.org/internal/auth"
	"podio.org/internal/champ"
	"podio.org/internal/obs"
)

// ReadyProbe reports readiness, typically by pinging the database.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer over the auth service and the championship store.
type API struct {
	mux        *http.ServeMux
	auth       *auth.Service
	champ      champ.Store
	readyProbe ReadyProbe
	version    string
}

func New(authSvc *auth.Service, champStore champ.Store, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		auth:       authSvc,
		champ:      champStore,
		readyProbe: rp,
		version:    version,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// authentication
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/token", a.handleTokenForm)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)

	// user and role administration
	a.mux.HandleFunc("/v1/users", a.handleUsers)
	a.mux.HandleFunc("/v1/users/", a.handleUserScoped)
	a.mux.HandleFunc("/v1/roles", a.handleRoles)
	a.mux.HandleFunc("/v1/roles/", a.handleRoleScoped)
	a.mux.HandleFunc("/v1/permissions", a.handlePermissions)

	// championship domain
	a.mux.HandleFunc("/v1/championships", a.handleChampionships)
	a.mux.HandleFunc("/v1/championships/", a.handleChampionshipScoped)
	a.mux.HandleFunc("/v1/organizers", a.handleOrganizers)
	a.mux.HandleFunc("/v1/organizers/", a.handleOrganizerScoped)
	a.mux.HandleFunc("/v1/disciplines", a.handleDisciplines)
	a.mux.HandleFunc("/v1/disciplines/", a.handleDisciplineScoped)
	a.mux.HandleFunc("/v1/job-positions", a.handleJobPositions)
	a.mux.HandleFunc("/v1/job-positions/", a.handleJobPositionScoped)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full handler chain for the server.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.withAuth(a.mux))
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "podio-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "podio-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
