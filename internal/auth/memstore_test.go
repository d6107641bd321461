package auth

import (
	"context"
	"strings"
	"sync"
	"time"
)

// memStore is an in-memory Store used across the service tests. It keeps
// the same error taxonomy as the postgres implementation: uniqueness and
// referential violations become ErrConflict, absent rows ErrNotFound.
type memStore struct {
	mu          sync.Mutex
	users       map[string]*User       // by id
	roles       map[string]*Role       // by id
	permissions map[string]*Permission // by id
	grants      map[string][]string    // user id -> role ids
	rolePerms   map[string][]string    // role id -> permission ids
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[string]*User),
		roles:       make(map[string]*Role),
		permissions: make(map[string]*Permission),
		grants:      make(map[string][]string),
		rolePerms:   make(map[string][]string),
	}
}

func (m *memStore) Users(ctx context.Context) UserStore             { return (*memUserStore)(m) }
func (m *memStore) Roles(ctx context.Context) RoleStore             { return (*memRoleStore)(m) }
func (m *memStore) Permissions(ctx context.Context) PermissionStore { return (*memPermStore)(m) }

type memUserStore memStore

func (m *memUserStore) Create(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Username, u.Username) || strings.EqualFold(existing.Email, u.Email) {
			return ErrConflict
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUserStore) Find(ctx context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memUserStore) List(ctx context.Context) ([]*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memUserStore) Update(ctx context.Context, id string, upd UserUpdate) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
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
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	return &cp, nil
}

func (m *memUserStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	delete(m.grants, id)
	return nil
}

type memRoleStore memStore

func (m *memRoleStore) Create(ctx context.Context, role *Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.roles {
		if strings.EqualFold(existing.Name, role.Name) {
			return ErrConflict
		}
	}
	cp := *role
	m.roles[role.ID] = &cp
	return nil
}

func (m *memRoleStore) Find(ctx context.Context, id string) (*Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRoleStore) List(ctx context.Context) ([]*Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Role, 0, len(m.roles))
	for _, r := range m.roles {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memRoleStore) Update(ctx context.Context, id string, upd RoleUpdate) (*Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Name != nil {
		r.Name = *upd.Name
	}
	if upd.Description != nil {
		r.Description = *upd.Description
	}
	r.UpdatedAt = time.Now().UTC()
	cp := *r
	return &cp, nil
}

func (m *memRoleStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[id]; !ok {
		return ErrNotFound
	}
	for _, roleIDs := range m.grants {
		for _, rid := range roleIDs {
			if rid == id {
				return ErrConflict
			}
		}
	}
	delete(m.roles, id)
	return nil
}

func (m *memRoleStore) Grant(ctx context.Context, userID, roleID string) (UserRoleAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return UserRoleAssignment{}, ErrNotFound
	}
	if _, ok := m.roles[roleID]; !ok {
		return UserRoleAssignment{}, ErrNotFound
	}
	for _, rid := range m.grants[userID] {
		if rid == roleID {
			return UserRoleAssignment{}, ErrConflict
		}
	}
	m.grants[userID] = append(m.grants[userID], roleID)
	return UserRoleAssignment{UserID: userID, RoleID: roleID, CreatedAt: time.Now().UTC()}, nil
}

func (m *memRoleStore) Revoke(ctx context.Context, userID, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	roleIDs := m.grants[userID]
	for i, rid := range roleIDs {
		if rid == roleID {
			m.grants[userID] = append(roleIDs[:i], roleIDs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *memRoleStore) ForUser(ctx context.Context, userID string) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Role
	for _, rid := range m.grants[userID] {
		if r, ok := m.roles[rid]; ok {
			out = append(out, *r)
		}
	}
	return out, nil
}

type memPermStore memStore

func (m *memPermStore) Create(ctx context.Context, perm *Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.permissions {
		if strings.EqualFold(existing.Name, perm.Name) {
			return ErrConflict
		}
	}
	cp := *perm
	m.permissions[perm.ID] = &cp
	return nil
}

func (m *memPermStore) Ensure(ctx context.Context, perms []Permission) error {
	for i := range perms {
		p := perms[i]
		if p.ID == "" {
			p.ID = p.Name
		}
		if err := m.Create(ctx, &p); err != nil && err != ErrConflict {
			return err
		}
	}
	return nil
}

func (m *memPermStore) List(ctx context.Context) ([]Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Permission, 0, len(m.permissions))
	for _, p := range m.permissions {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memPermStore) SetForRole(ctx context.Context, roleID string, names []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[roleID]; !ok {
		return ErrNotFound
	}
	var ids []string
	for _, name := range names {
		found := ""
		for _, p := range m.permissions {
			if strings.EqualFold(p.Name, name) {
				found = p.ID
				break
			}
		}
		if found == "" {
			return ErrNotFound
		}
		ids = append(ids, found)
	}
	m.rolePerms[roleID] = ids
	return nil
}

func (m *memPermStore) ForRole(ctx context.Context, roleID string) ([]Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Permission
	for _, pid := range m.rolePerms[roleID] {
		if p, ok := m.permissions[pid]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memPermStore) ForUser(ctx context.Context, userID string) ([]Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{})
	var out []Permission
	for _, rid := range m.grants[userID] {
		for _, pid := range m.rolePerms[rid] {
			if _, dup := seen[pid]; dup {
				continue
			}
			if p, ok := m.permissions[pid]; ok {
				seen[pid] = struct{}{}
				out = append(out, *p)
			}
		}
	}
	return out, nil
}
