package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"podio.org/internal/ids"
)

// Management operations: user, role and permission administration. These
// validate input, hash credentials and delegate to the store; integrity
// invariants (unique names, at-most-one grant per pair, no deleting a role
// that is still assigned) are enforced by the store at commit time.

// EnsureBuiltins makes sure the predefined permission catalog exists.
func (s *Service) EnsureBuiltins(ctx context.Context) error {
	return s.store.Permissions(ctx).Ensure(ctx, BuiltinPermissions)
}

// CreateUser registers a new identity with a freshly hashed credential.
func (s *Service) CreateUser(ctx context.Context, username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	hash, err := s.hasher.Hash(strings.TrimSpace(password))
	if err != nil {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	now := time.Now().UTC()
	user := &User{
		ID:           ids.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Users(ctx).Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns all identities.
func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.store.Users(ctx).List(ctx)
}

// GetUser loads one identity.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.Users(ctx).Find(ctx, id)
}

// UpdateUser applies optional field changes. A password change replaces
// the credential hash wholesale.
func (s *Service) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if upd.Username != nil {
		name := strings.TrimSpace(*upd.Username)
		if name == "" {
			return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
		}
		upd.Username = &name
	}
	if upd.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*upd.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
		}
		upd.Email = &email
	}
	if upd.Password != nil {
		hash, err := s.hasher.Hash(strings.TrimSpace(*upd.Password))
		if err != nil {
			return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
		}
		upd.Password = &hash
	}
	return s.store.Users(ctx).Update(ctx, id, upd)
}

// DeleteUser removes an identity. Users still referenced by championship
// assignments fail with ErrConflict.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.Users(ctx).Delete(ctx, id)
}

// CreateRole adds a named authorization group.
func (s *Service) CreateRole(ctx context.Context, name, description string) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	now := time.Now().UTC()
	role := &Role{
		ID:          ids.New(),
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Roles(ctx).Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]*Role, error) {
	return s.store.Roles(ctx).List(ctx)
}

// GetRole loads one role.
func (s *Service) GetRole(ctx context.Context, id string) (*Role, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: role id is required", ErrInvalidInput)
	}
	return s.store.Roles(ctx).Find(ctx, id)
}

// UpdateRole applies optional role field changes.
func (s *Service) UpdateRole(ctx context.Context, id string, upd RoleUpdate) (*Role, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: role id is required", ErrInvalidInput)
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: role name is required", ErrInvalidInput)
		}
		upd.Name = &name
	}
	if upd.Description != nil {
		desc := strings.TrimSpace(*upd.Description)
		upd.Description = &desc
	}
	return s.store.Roles(ctx).Update(ctx, id, upd)
}

// DeleteRole removes a role. Roles with live user assignments fail with
// ErrConflict rather than cascading.
func (s *Service) DeleteRole(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: role id is required", ErrInvalidInput)
	}
	return s.store.Roles(ctx).Delete(ctx, id)
}

// GrantRole assigns a role to a user. Granting an already-held role fails
// with ErrConflict.
func (s *Service) GrantRole(ctx context.Context, userID, roleID string) (UserRoleAssignment, error) {
	userID = strings.TrimSpace(userID)
	roleID = strings.TrimSpace(roleID)
	if userID == "" || roleID == "" {
		return UserRoleAssignment{}, fmt.Errorf("%w: user id and role id are required", ErrInvalidInput)
	}
	return s.store.Roles(ctx).Grant(ctx, userID, roleID)
}

// RevokeRole removes a role assignment. Revoking a role that was never
// granted fails with ErrNotFound.
func (s *Service) RevokeRole(ctx context.Context, userID, roleID string) error {
	userID = strings.TrimSpace(userID)
	roleID = strings.TrimSpace(roleID)
	if userID == "" || roleID == "" {
		return fmt.Errorf("%w: user id and role id are required", ErrInvalidInput)
	}
	return s.store.Roles(ctx).Revoke(ctx, userID, roleID)
}

// RolesForUser returns the user's current role set.
func (s *Service) RolesForUser(ctx context.Context, userID string) ([]Role, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.Roles(ctx).ForUser(ctx, userID)
}

// CreatePermission adds a capability to the catalog.
func (s *Service) CreatePermission(ctx context.Context, name, description string) (*Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: permission name is required", ErrInvalidInput)
	}
	perm := &Permission{
		ID:          ids.New(),
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.Permissions(ctx).Create(ctx, perm); err != nil {
		return nil, err
	}
	return perm, nil
}

// ListPermissions returns the permission catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.Permissions(ctx).List(ctx)
}

// SetRolePermissions replaces a role's permission links with the named
// set. Unknown permission names fail with ErrNotFound.
func (s *Service) SetRolePermissions(ctx context.Context, roleID string, names []string) error {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return fmt.Errorf("%w: role id is required", ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(names))
	deduped := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		deduped = append(deduped, n)
	}
	return s.store.Permissions(ctx).SetForRole(ctx, roleID, deduped)
}

// PermissionsForRole lists a role's linked permissions.
func (s *Service) PermissionsForRole(ctx context.Context, roleID string) ([]Permission, error) {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return nil, fmt.Errorf("%w: role id is required", ErrInvalidInput)
	}
	return s.store.Permissions(ctx).ForRole(ctx, roleID)
}

// EnsureAdmin guarantees that an account with the super-role exists,
// creating the user and the master role as needed. Used by the bootstrap
// path so a fresh deployment is never locked out.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) error {
	user, err := s.store.Users(ctx).FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrNotFound) {
		user, err = s.CreateUser(ctx, username, email, password)
	}
	if err != nil {
		return err
	}
	roles, err := s.store.Roles(ctx).ForUser(ctx, user.ID)
	if err != nil {
		return err
	}
	for _, r := range roles {
		if IsSuperRole(r.Name) {
			return nil
		}
	}
	master, err := s.findRoleByName(ctx, MasterRole)
	if errors.Is(err, ErrNotFound) {
		master, err = s.CreateRole(ctx, MasterRole, "Super-role with unrestricted access")
	}
	if err != nil {
		return err
	}
	if _, err := s.store.Roles(ctx).Grant(ctx, user.ID, master.ID); err != nil && !errors.Is(err, ErrConflict) {
		return err
	}
	return nil
}

func (s *Service) findRoleByName(ctx context.Context, name string) (*Role, error) {
	roles, err := s.store.Roles(ctx).List(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if strings.EqualFold(r.Name, name) {
			return r, nil
		}
	}
	return nil, ErrNotFound
}
