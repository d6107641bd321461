package auth

import "context"

// Store describes persistence operations required by the auth subsystem.
// Implementations translate their backend's uniqueness and referential
// integrity violations into ErrConflict and absent rows into ErrNotFound.
type Store interface {
	Users(ctx context.Context) UserStore
	Roles(ctx context.Context) RoleStore
	Permissions(ctx context.Context) PermissionStore
}

// UserStore manages identity records.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*User, error)
	Delete(ctx context.Context, id string) error
}

// RoleStore manages roles and user-role assignments. Grant and Revoke run
// inside transactions; the (user_id, role_id) uniqueness invariant is
// enforced at commit time so a duplicate-grant race still surfaces as
// ErrConflict.
type RoleStore interface {
	Create(ctx context.Context, role *Role) error
	Find(ctx context.Context, id string) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
	Update(ctx context.Context, id string, upd RoleUpdate) (*Role, error)
	Delete(ctx context.Context, id string) error
	Grant(ctx context.Context, userID, roleID string) (UserRoleAssignment, error)
	Revoke(ctx context.Context, userID, roleID string) error
	ForUser(ctx context.Context, userID string) ([]Role, error)
}

// PermissionStore manages the permission catalog and its role links.
type PermissionStore interface {
	Create(ctx context.Context, perm *Permission) error
	Ensure(ctx context.Context, perms []Permission) error
	List(ctx context.Context) ([]Permission, error)
	SetForRole(ctx context.Context, roleID string, names []string) error
	ForRole(ctx context.Context, roleID string) ([]Permission, error)
	ForUser(ctx context.Context, userID string) ([]Permission, error)
}
