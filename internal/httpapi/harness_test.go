package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"podio.org/internal/auth"
	"podio.org/internal/champ"
	"podio.org/internal/ids"
)

// fakeStore backs the HTTP tests with in-memory auth and championship
// state, keeping the store error taxonomy of the postgres implementation.
type fakeStore struct {
	mu          sync.Mutex
	users       map[string]*auth.User
	roles       map[string]*auth.Role
	permissions map[string]*auth.Permission
	grants      map[string][]string
	rolePerms   map[string][]string

	// userLookupErr, when set, makes FindByUsername fail to simulate a
	// backend outage.
	userLookupErr error

	championships map[string]champ.Championship
	organizers    map[string]champ.Organizer
	disciplines   map[string]champ.Discipline
	jobPositions  map[string]champ.JobPosition
	assignments   map[string]champ.Assignment // key user|championship
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         make(map[string]*auth.User),
		roles:         make(map[string]*auth.Role),
		permissions:   make(map[string]*auth.Permission),
		grants:        make(map[string][]string),
		rolePerms:     make(map[string][]string),
		championships: make(map[string]champ.Championship),
		organizers:    make(map[string]champ.Organizer),
		disciplines:   make(map[string]champ.Discipline),
		jobPositions:  make(map[string]champ.JobPosition),
		assignments:   make(map[string]champ.Assignment),
	}
}

func (f *fakeStore) Users(ctx context.Context) auth.UserStore             { return (*fakeUsers)(f) }
func (f *fakeStore) Roles(ctx context.Context) auth.RoleStore             { return (*fakeRoles)(f) }
func (f *fakeStore) Permissions(ctx context.Context) auth.PermissionStore { return (*fakePerms)(f) }

type fakeUsers fakeStore

func (f *fakeUsers) Create(ctx context.Context, u *auth.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return auth.ErrConflict
		}
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) Find(ctx context.Context, id string) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.userLookupErr != nil {
		return nil, f.userLookupErr
	}
	for _, u := range f.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (f *fakeUsers) List(ctx context.Context) ([]*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*auth.User, 0, len(f.users))
	for _, u := range f.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeUsers) Update(ctx context.Context, id string, upd auth.UserUpdate) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Password != nil {
		u.PasswordHash = *upd.Password
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return auth.ErrNotFound
	}
	delete(f.users, id)
	delete(f.grants, id)
	return nil
}

type fakeRoles fakeStore

func (f *fakeRoles) Create(ctx context.Context, role *auth.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.roles {
		if strings.EqualFold(existing.Name, role.Name) {
			return auth.ErrConflict
		}
	}
	cp := *role
	f.roles[role.ID] = &cp
	return nil
}

func (f *fakeRoles) Find(ctx context.Context, id string) (*auth.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.roles[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRoles) List(ctx context.Context) ([]*auth.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*auth.Role, 0, len(f.roles))
	for _, r := range f.roles {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeRoles) Update(ctx context.Context, id string, upd auth.RoleUpdate) (*auth.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.roles[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if upd.Name != nil {
		r.Name = *upd.Name
	}
	if upd.Description != nil {
		r.Description = *upd.Description
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRoles) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.roles[id]; !ok {
		return auth.ErrNotFound
	}
	for _, roleIDs := range f.grants {
		for _, rid := range roleIDs {
			if rid == id {
				return auth.ErrConflict
			}
		}
	}
	delete(f.roles, id)
	return nil
}

func (f *fakeRoles) Grant(ctx context.Context, userID, roleID string) (auth.UserRoleAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[userID]; !ok {
		return auth.UserRoleAssignment{}, auth.ErrNotFound
	}
	if _, ok := f.roles[roleID]; !ok {
		return auth.UserRoleAssignment{}, auth.ErrNotFound
	}
	for _, rid := range f.grants[userID] {
		if rid == roleID {
			return auth.UserRoleAssignment{}, auth.ErrConflict
		}
	}
	f.grants[userID] = append(f.grants[userID], roleID)
	return auth.UserRoleAssignment{UserID: userID, RoleID: roleID, CreatedAt: time.Now().UTC()}, nil
}

func (f *fakeRoles) Revoke(ctx context.Context, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	roleIDs := f.grants[userID]
	for i, rid := range roleIDs {
		if rid == roleID {
			f.grants[userID] = append(roleIDs[:i], roleIDs[i+1:]...)
			return nil
		}
	}
	return auth.ErrNotFound
}

func (f *fakeRoles) ForUser(ctx context.Context, userID string) ([]auth.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []auth.Role
	for _, rid := range f.grants[userID] {
		if r, ok := f.roles[rid]; ok {
			out = append(out, *r)
		}
	}
	return out, nil
}

type fakePerms fakeStore

func (f *fakePerms) Create(ctx context.Context, perm *auth.Permission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.permissions {
		if strings.EqualFold(existing.Name, perm.Name) {
			return auth.ErrConflict
		}
	}
	cp := *perm
	f.permissions[perm.ID] = &cp
	return nil
}

func (f *fakePerms) Ensure(ctx context.Context, perms []auth.Permission) error {
	for i := range perms {
		p := perms[i]
		if p.ID == "" {
			p.ID = ids.New()
		}
		if err := f.Create(ctx, &p); err != nil && err != auth.ErrConflict {
			return err
		}
	}
	return nil
}

func (f *fakePerms) List(ctx context.Context) ([]auth.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]auth.Permission, 0, len(f.permissions))
	for _, p := range f.permissions {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakePerms) SetForRole(ctx context.Context, roleID string, names []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.roles[roleID]; !ok {
		return auth.ErrNotFound
	}
	var permIDs []string
	for _, name := range names {
		found := ""
		for _, p := range f.permissions {
			if strings.EqualFold(p.Name, name) {
				found = p.ID
				break
			}
		}
		if found == "" {
			return auth.ErrNotFound
		}
		permIDs = append(permIDs, found)
	}
	f.rolePerms[roleID] = permIDs
	return nil
}

func (f *fakePerms) ForRole(ctx context.Context, roleID string) ([]auth.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []auth.Permission
	for _, pid := range f.rolePerms[roleID] {
		if p, ok := f.permissions[pid]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePerms) ForUser(ctx context.Context, userID string) ([]auth.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []auth.Permission
	seen := make(map[string]struct{})
	for _, rid := range f.grants[userID] {
		for _, pid := range f.rolePerms[rid] {
			if _, dup := seen[pid]; dup {
				continue
			}
			if p, ok := f.permissions[pid]; ok {
				seen[pid] = struct{}{}
				out = append(out, *p)
			}
		}
	}
	return out, nil
}

// champ.Store implementation.

func assignmentKey(userID, championshipID string) string { return userID + "|" + championshipID }

func (f *fakeStore) CreateOrganizer(ctx context.Context, o *champ.Organizer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.organizers {
		if strings.EqualFold(existing.Name, o.Name) {
			return champ.ErrConflict
		}
	}
	f.organizers[o.ID] = *o
	return nil
}

func (f *fakeStore) ListOrganizers(ctx context.Context) ([]champ.Organizer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]champ.Organizer, 0, len(f.organizers))
	for _, o := range f.organizers {
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeStore) GetOrganizer(ctx context.Context, id string) (champ.Organizer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.organizers[id]
	if !ok {
		return champ.Organizer{}, champ.ErrNotFound
	}
	return o, nil
}

func (f *fakeStore) DeleteOrganizer(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.organizers[id]; !ok {
		return champ.ErrNotFound
	}
	for _, c := range f.championships {
		if c.OrganizerID == id {
			return champ.ErrConflict
		}
	}
	delete(f.organizers, id)
	return nil
}

func (f *fakeStore) CreateDiscipline(ctx context.Context, d *champ.Discipline) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.disciplines {
		if strings.EqualFold(existing.Name, d.Name) {
			return champ.ErrConflict
		}
	}
	f.disciplines[d.ID] = *d
	return nil
}

func (f *fakeStore) ListDisciplines(ctx context.Context) ([]champ.Discipline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]champ.Discipline, 0, len(f.disciplines))
	for _, d := range f.disciplines {
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeStore) GetDiscipline(ctx context.Context, id string) (champ.Discipline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.disciplines[id]
	if !ok {
		return champ.Discipline{}, champ.ErrNotFound
	}
	return d, nil
}

func (f *fakeStore) DeleteDiscipline(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.disciplines[id]; !ok {
		return champ.ErrNotFound
	}
	delete(f.disciplines, id)
	return nil
}

func (f *fakeStore) CreateChampionship(ctx context.Context, c *champ.Championship) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.organizers[c.OrganizerID]; !ok {
		return champ.ErrConflict
	}
	if _, ok := f.disciplines[c.DisciplineID]; !ok {
		return champ.ErrConflict
	}
	f.championships[c.ID] = *c
	return nil
}

func (f *fakeStore) ListChampionships(ctx context.Context) ([]champ.Championship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]champ.Championship, 0, len(f.championships))
	for _, c := range f.championships {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeStore) GetChampionship(ctx context.Context, id string) (champ.Championship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.championships[id]
	if !ok {
		return champ.Championship{}, champ.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) UpdateChampionship(ctx context.Context, id string, upd champ.ChampionshipUpdate) (champ.Championship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.championships[id]
	if !ok {
		return champ.Championship{}, champ.ErrNotFound
	}
	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.Location != nil {
		c.Location = *upd.Location
	}
	if upd.StartDate != nil {
		c.StartDate = *upd.StartDate
	}
	if upd.EndDate != nil {
		c.EndDate = *upd.EndDate
	}
	if upd.OrganizerID != nil {
		c.OrganizerID = *upd.OrganizerID
	}
	if upd.DisciplineID != nil {
		c.DisciplineID = *upd.DisciplineID
	}
	if upd.Description != nil {
		c.Description = *upd.Description
	}
	f.championships[id] = c
	return c, nil
}

func (f *fakeStore) DeleteChampionship(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.championships[id]; !ok {
		return champ.ErrNotFound
	}
	delete(f.championships, id)
	return nil
}

func (f *fakeStore) CreateJobPosition(ctx context.Context, j *champ.JobPosition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.jobPositions {
		if strings.EqualFold(existing.Title, j.Title) {
			return champ.ErrConflict
		}
	}
	f.jobPositions[j.ID] = *j
	return nil
}

func (f *fakeStore) ListJobPositions(ctx context.Context) ([]champ.JobPosition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]champ.JobPosition, 0, len(f.jobPositions))
	for _, j := range f.jobPositions {
		out = append(out, j)
	}
	return out, nil
}

func (f *fakeStore) GetJobPosition(ctx context.Context, id string) (champ.JobPosition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobPositions[id]
	if !ok {
		return champ.JobPosition{}, champ.ErrNotFound
	}
	return j, nil
}

func (f *fakeStore) DeleteJobPosition(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobPositions[id]; !ok {
		return champ.ErrNotFound
	}
	delete(f.jobPositions, id)
	return nil
}

func (f *fakeStore) CreateAssignment(ctx context.Context, a *champ.Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := assignmentKey(a.UserID, a.ChampionshipID)
	if _, ok := f.assignments[key]; ok {
		return champ.ErrConflict
	}
	if _, ok := f.championships[a.ChampionshipID]; !ok {
		return champ.ErrConflict
	}
	if _, ok := f.jobPositions[a.JobPositionID]; !ok {
		return champ.ErrConflict
	}
	f.assignments[key] = *a
	return nil
}

func (f *fakeStore) ListAssignmentsForChampionship(ctx context.Context, championshipID string) ([]champ.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []champ.Assignment
	for _, a := range f.assignments {
		if a.ChampionshipID == championshipID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAssignmentsForUser(ctx context.Context, userID string) ([]champ.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []champ.Assignment
	for _, a := range f.assignments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteAssignment(ctx context.Context, userID, championshipID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := assignmentKey(userID, championshipID)
	if _, ok := f.assignments[key]; !ok {
		return champ.ErrNotFound
	}
	delete(f.assignments, key)
	return nil
}

// --- harness ---

type testAPI struct {
	t      *testing.T
	server *httptest.Server
	svc    *auth.Service
	store  *fakeStore

	anomalyMu sync.Mutex
	anomalies []string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := newFakeStore()
	codec, err := auth.NewTokenCodec("httpapi-test-secret", auth.WithTokenTTL(time.Hour))
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	api := &testAPI{t: t, store: store}
	svc, err := auth.NewService(store, codec, auth.NewPasswordHasher(bcrypt.MinCost),
		auth.WithAnomalyLogger(func(event string, fields map[string]any) {
			api.anomalyMu.Lock()
			api.anomalies = append(api.anomalies, event)
			api.anomalyMu.Unlock()
		}))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	if err := svc.EnsureBuiltins(context.Background()); err != nil {
		t.Fatalf("ensure builtins: %v", err)
	}
	api.svc = svc
	handler := New(svc, store, ReadyProbe{}, "test")
	api.server = httptest.NewServer(RequestID(handler.Handler()))
	t.Cleanup(api.server.Close)
	return api
}

func (a *testAPI) anomalyEvents() []string {
	a.anomalyMu.Lock()
	defer a.anomalyMu.Unlock()
	return append([]string(nil), a.anomalies...)
}

// seedLogin creates a user holding the given roles and returns a token.
func (a *testAPI) seedLogin(username string, roleNames ...string) string {
	a.t.Helper()
	ctx := context.Background()
	user, err := a.svc.CreateUser(ctx, username, username+"@example.com", "pa55word")
	if err != nil {
		a.t.Fatalf("create user %s: %v", username, err)
	}
	for _, name := range roleNames {
		role := a.ensureRole(name)
		if _, err := a.svc.GrantRole(ctx, user.ID, role.ID); err != nil {
			a.t.Fatalf("grant %s: %v", name, err)
		}
	}
	result, err := a.svc.Login(ctx, username, "pa55word")
	if err != nil {
		a.t.Fatalf("login %s: %v", username, err)
	}
	return result.Token
}

func (a *testAPI) ensureRole(name string) *auth.Role {
	a.t.Helper()
	ctx := context.Background()
	roles, err := a.svc.ListRoles(ctx)
	if err != nil {
		a.t.Fatalf("list roles: %v", err)
	}
	for _, r := range roles {
		if strings.EqualFold(r.Name, name) {
			return r
		}
	}
	role, err := a.svc.CreateRole(ctx, name, "")
	if err != nil {
		a.t.Fatalf("create role %s: %v", name, err)
	}
	return role
}

func (a *testAPI) do(method, path, token string, body any) *http.Response {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			a.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	if err != nil {
		a.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.server.Client().Do(req)
	if err != nil {
		a.t.Fatalf("do %s %s: %v", method, path, err)
	}
	return resp
}

func (a *testAPI) postForm(path string, values url.Values) *http.Response {
	a.t.Helper()
	resp, err := a.server.Client().PostForm(a.server.URL+path, values)
	if err != nil {
		a.t.Fatalf("post form %s: %v", path, err)
	}
	return resp
}

func decodeErrorBody(t *testing.T, resp *http.Response) errorResponse {
	t.Helper()
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	_ = resp.Body.Close()
	return body
}
