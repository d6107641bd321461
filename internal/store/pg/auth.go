package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"podio.org/internal/auth"
	"podio.org/internal/ids"
)

type userStore struct {
	db *sql.DB
}

func (s *userStore) Create(ctx context.Context, u *auth.User) error {
	_, err := s.db.ExecContext(ctx, `
		insert into users (id, username, email, password_hash, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	return translateAuthErr(err)
}

func (s *userStore) Find(ctx context.Context, id string) (*auth.User, error) {
	return s.scanOne(ctx, `
		select id, username, email, password_hash, created_at, updated_at
		from users where id = $1
	`, id)
}

func (s *userStore) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	return s.scanOne(ctx, `
		select id, username, email, password_hash, created_at, updated_at
		from users where username = $1
	`, username)
}

func (s *userStore) scanOne(ctx context.Context, query string, arg any) (*auth.User, error) {
	var u auth.User
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, translateAuthErr(err)
	}
	return &u, nil
}

func (s *userStore) List(ctx context.Context) ([]*auth.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, username, email, password_hash, created_at, updated_at
		from users order by username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*auth.User
	for rows.Next() {
		var u auth.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &u)
	}
	return result, rows.Err()
}

func (s *userStore) Update(ctx context.Context, id string, upd auth.UserUpdate) (*auth.User, error) {
	var (
		setClauses []string
		args       []any
		idx        = 1
	)
	if upd.Username != nil {
		setClauses = append(setClauses, fmt.Sprintf("username = $%d", idx))
		args = append(args, *upd.Username)
		idx++
	}
	if upd.Email != nil {
		setClauses = append(setClauses, fmt.Sprintf("email = $%d", idx))
		args = append(args, *upd.Email)
		idx++
	}
	if upd.Password != nil {
		setClauses = append(setClauses, fmt.Sprintf("password_hash = $%d", idx))
		args = append(args, *upd.Password)
		idx++
	}
	if len(setClauses) == 0 {
		return s.Find(ctx, id)
	}
	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", idx))
	args = append(args, time.Now().UTC())
	idx++
	args = append(args, id)

	query := fmt.Sprintf(`
		update users set %s where id = $%d
		returning id, username, email, password_hash, created_at, updated_at
	`, strings.Join(setClauses, ", "), idx)

	var u auth.User
	err := s.db.QueryRowContext(ctx, query, args...).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, translateAuthErr(err)
	}
	return &u, nil
}

func (s *userStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		return translateAuthErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return auth.ErrNotFound
	}
	return nil
}

type roleStore struct {
	db *sql.DB
}

func (s *roleStore) Create(ctx context.Context, role *auth.Role) error {
	_, err := s.db.ExecContext(ctx, `
		insert into roles (id, name, description, created_at, updated_at)
		values ($1, $2, $3, $4, $5)
	`, role.ID, role.Name, role.Description, role.CreatedAt, role.UpdatedAt)
	return translateAuthErr(err)
}

func (s *roleStore) Find(ctx context.Context, id string) (*auth.Role, error) {
	var r auth.Role
	err := s.db.QueryRowContext(ctx, `
		select id, name, description, created_at, updated_at
		from roles where id = $1
	`, id).Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, translateAuthErr(err)
	}
	return &r, nil
}

func (s *roleStore) List(ctx context.Context) ([]*auth.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, description, created_at, updated_at
		from roles order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*auth.Role
	for rows.Next() {
		var r auth.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &r)
	}
	return result, rows.Err()
}

func (s *roleStore) Update(ctx context.Context, id string, upd auth.RoleUpdate) (*auth.Role, error) {
	var (
		setClauses []string
		args       []any
		idx        = 1
	)
	if upd.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", idx))
		args = append(args, *upd.Name)
		idx++
	}
	if upd.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", idx))
		args = append(args, *upd.Description)
		idx++
	}
	if len(setClauses) == 0 {
		return s.Find(ctx, id)
	}
	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", idx))
	args = append(args, time.Now().UTC())
	idx++
	args = append(args, id)

	query := fmt.Sprintf(`
		update roles set %s where id = $%d
		returning id, name, description, created_at, updated_at
	`, strings.Join(setClauses, ", "), idx)

	var r auth.Role
	err := s.db.QueryRowContext(ctx, query, args...).
		Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, translateAuthErr(err)
	}
	return &r, nil
}

// Delete refuses to remove a role that is still assigned: the FK restrict
// on user_roles surfaces as a 23503 which translateAuthErr turns into
// ErrConflict, never a silent cascade.
func (s *roleStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from roles where id = $1`, id)
	if err != nil {
		return translateAuthErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// Grant inserts the assignment inside a transaction so the (user_id,
// role_id) primary key decides duplicate races at commit time.
func (s *roleStore) Grant(ctx context.Context, userID, roleID string) (auth.UserRoleAssignment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return auth.UserRoleAssignment{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `select 1 from users where id = $1`, userID).Scan(&exists); err != nil {
		return auth.UserRoleAssignment{}, translateAuthErr(err)
	}
	if err := tx.QueryRowContext(ctx, `select 1 from roles where id = $1`, roleID).Scan(&exists); err != nil {
		return auth.UserRoleAssignment{}, translateAuthErr(err)
	}

	assignment := auth.UserRoleAssignment{
		UserID:    userID,
		RoleID:    roleID,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := tx.ExecContext(ctx, `
		insert into user_roles (user_id, role_id, created_at)
		values ($1, $2, $3)
	`, assignment.UserID, assignment.RoleID, assignment.CreatedAt); err != nil {
		return auth.UserRoleAssignment{}, translateAuthErr(err)
	}
	if err := tx.Commit(); err != nil {
		return auth.UserRoleAssignment{}, translateAuthErr(err)
	}
	return assignment, nil
}

func (s *roleStore) Revoke(ctx context.Context, userID, roleID string) error {
	res, err := s.db.ExecContext(ctx, `
		delete from user_roles where user_id = $1 and role_id = $2
	`, userID, roleID)
	if err != nil {
		return translateAuthErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *roleStore) ForUser(ctx context.Context, userID string) ([]auth.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		select r.id, r.name, r.description, r.created_at, r.updated_at
		from roles r
		join user_roles ur on ur.role_id = r.id
		where ur.user_id = $1
		order by r.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []auth.Role
	for rows.Next() {
		var r auth.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type permissionStore struct {
	db *sql.DB
}

func (s *permissionStore) Create(ctx context.Context, perm *auth.Permission) error {
	_, err := s.db.ExecContext(ctx, `
		insert into permissions (id, name, description, created_at)
		values ($1, $2, $3, $4)
	`, perm.ID, perm.Name, perm.Description, perm.CreatedAt)
	return translateAuthErr(err)
}

func (s *permissionStore) Ensure(ctx context.Context, perms []auth.Permission) error {
	for _, p := range perms {
		id := p.ID
		if id == "" {
			id = ids.New()
		}
		if _, err := s.db.ExecContext(ctx, `
			insert into permissions (id, name, description, created_at)
			values ($1, $2, $3, $4)
			on conflict (name) do nothing
		`, id, p.Name, p.Description, time.Now().UTC()); err != nil {
			return err
		}
	}
	return nil
}

func (s *permissionStore) List(ctx context.Context) ([]auth.Permission, error) {
	return s.queryPermissions(ctx, `
		select id, name, description, created_at from permissions order by name
	`)
}

// SetForRole replaces the role's permission links in one transaction.
// Unknown permission names abort with ErrNotFound before anything is
// replaced.
func (s *permissionStore) SetForRole(ctx context.Context, roleID string, names []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `select 1 from roles where id = $1`, roleID).Scan(&exists); err != nil {
		return translateAuthErr(err)
	}

	permIDs := make([]string, 0, len(names))
	for _, name := range names {
		var id string
		err := tx.QueryRowContext(ctx, `select id from permissions where name = $1`, name).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: permission %q", auth.ErrNotFound, name)
		}
		if err != nil {
			return err
		}
		permIDs = append(permIDs, id)
	}

	if _, err := tx.ExecContext(ctx, `delete from role_permissions where role_id = $1`, roleID); err != nil {
		return translateAuthErr(err)
	}
	for _, permID := range permIDs {
		if _, err := tx.ExecContext(ctx, `
			insert into role_permissions (role_id, permission_id) values ($1, $2)
		`, roleID, permID); err != nil {
			return translateAuthErr(err)
		}
	}
	return tx.Commit()
}

func (s *permissionStore) ForRole(ctx context.Context, roleID string) ([]auth.Permission, error) {
	return s.queryPermissions(ctx, `
		select p.id, p.name, p.description, p.created_at
		from permissions p
		join role_permissions rp on rp.permission_id = p.id
		where rp.role_id = $1
		order by p.name
	`, roleID)
}

func (s *permissionStore) ForUser(ctx context.Context, userID string) ([]auth.Permission, error) {
	return s.queryPermissions(ctx, `
		select distinct p.id, p.name, p.description, p.created_at
		from permissions p
		join role_permissions rp on rp.permission_id = p.id
		join user_roles ur on ur.role_id = rp.role_id
		where ur.user_id = $1
		order by p.name
	`, userID)
}

func (s *permissionStore) queryPermissions(ctx context.Context, query string, args ...any) ([]auth.Permission, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []auth.Permission
	for rows.Next() {
		var p auth.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
