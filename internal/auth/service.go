package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Principal is the resolved, authenticated actor for the current request.
// Roles holds the live assignments queried at authentication time and is
// the sole input to authorization decisions; TokenRoleIDs is the snapshot
// carried in the token, kept only for display.
type Principal struct {
	User         *User
	Roles        []Role
	TokenRoleIDs []string
}

// HasRole reports whether the principal holds the named role (live set).
func (p Principal) HasRole(name string) bool {
	name = strings.TrimSpace(name)
	for _, r := range p.Roles {
		if strings.EqualFold(r.Name, name) {
			return true
		}
	}
	return false
}

// IsMaster reports whether any live role is the super-role.
func (p Principal) IsMaster() bool {
	for _, r := range p.Roles {
		if IsSuperRole(r.Name) {
			return true
		}
	}
	return false
}

// RoleNames returns the live role names.
func (p Principal) RoleNames() []string {
	names := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		names = append(names, r.Name)
	}
	return names
}

// Summary returns the non-sensitive projection of the principal.
func (p Principal) Summary() UserSummary {
	ids := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		ids = append(ids, r.ID)
	}
	return UserSummary{
		ID:       p.User.ID,
		Username: p.User.Username,
		Email:    p.User.Email,
		RoleIDs:  ids,
	}
}

// AnomalyLogger receives non-fatal security anomalies (malformed stored
// hashes, token reasons) for server-side logging.
type AnomalyLogger func(event string, fields map[string]any)

// Service orchestrates credential verification, token issuance, identity
// resolution and role-gated authorization.
type Service struct {
	store  Store
	codec  *TokenCodec
	hasher *PasswordHasher
	logf   AnomalyLogger
}

// NewService wires the service from its injected collaborators.
func NewService(store Store, codec *TokenCodec, hasher *PasswordHasher, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if codec == nil {
		return nil, errors.New("auth: token codec is required")
	}
	if hasher == nil {
		hasher = NewPasswordHasher(0)
	}
	svc := &Service{store: store, codec: codec, hasher: hasher, logf: func(string, map[string]any) {}}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithAnomalyLogger installs the sink for security anomaly events.
func WithAnomalyLogger(fn AnomalyLogger) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.logf = fn
		}
	}
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      UserSummary
}

// Login verifies credentials and issues a token embedding the current
// role-id snapshot. Unknown username and wrong password collapse into the
// same ErrInvalidCredentials so responses cannot be used for enumeration.
// Each successful call mints a fresh, independent token.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	user, err := s.store.Users(ctx).FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logf("auth.password.malformed_hash", map[string]any{"user_id": user.ID})
		}
		return LoginResult{}, ErrInvalidCredentials
	}
	roles, err := s.store.Roles(ctx).ForUser(ctx, user.ID)
	if err != nil {
		return LoginResult{}, err
	}
	roleIDs := make([]string, 0, len(roles))
	for _, r := range roles {
		roleIDs = append(roleIDs, r.ID)
	}
	token, exp, err := s.codec.Issue(user, roleIDs)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		Token:     token,
		ExpiresAt: exp,
		User: UserSummary{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
			RoleIDs:  roleIDs,
		},
	}, nil
}

// Authenticate validates a bearer token and resolves it to a principal.
// A token whose subject no longer exists fails with ErrInvalidToken: the
// claims describe a deleted user and must not resolve. The principal's
// role set is queried live; grants and revokes made after issuance take
// effect on the next request, not the next login.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	claims, err := s.codec.Validate(token)
	if err != nil {
		s.logf("auth.token.invalid", map[string]any{"reason": err.Error()})
		return Principal{}, err
	}
	user, err := s.store.Users(ctx).FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logf("auth.token.unknown_subject", map[string]any{"subject": claims.Subject})
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, err
	}
	roles, err := s.store.Roles(ctx).ForUser(ctx, user.ID)
	if err != nil {
		return Principal{}, err
	}
	return Principal{User: user, Roles: roles, TokenRoleIDs: claims.RoleIDs}, nil
}

// RequireAnyRole succeeds iff the principal's live role set intersects the
// allowed names. The super-role always passes.
func (s *Service) RequireAnyRole(ctx context.Context, principal Principal, allowed ...string) error {
	if principal.IsMaster() {
		return nil
	}
	for _, name := range allowed {
		if principal.HasRole(name) {
			return nil
		}
	}
	s.logf("auth.denied", map[string]any{
		"user_id":  principal.User.ID,
		"username": principal.User.Username,
		"required": allowed,
		"held":     principal.RoleNames(),
	})
	return ErrForbidden
}

// RequireMaster is sugar for RequireAnyRole with only the super-role.
func (s *Service) RequireMaster(ctx context.Context, principal Principal) error {
	return s.RequireAnyRole(ctx, principal, MasterRole)
}

// RequirePermission succeeds iff the principal holds the named permission
// through any live role. The super-role bypasses the permission graph.
func (s *Service) RequirePermission(ctx context.Context, principal Principal, name string) error {
	if principal.IsMaster() {
		return nil
	}
	perms, err := s.store.Permissions(ctx).ForUser(ctx, principal.User.ID)
	if err != nil {
		return err
	}
	for _, p := range perms {
		if strings.EqualFold(p.Name, name) {
			return nil
		}
	}
	s.logf("auth.denied", map[string]any{
		"user_id":  principal.User.ID,
		"username": principal.User.Username,
		"required": name,
	})
	return ErrForbidden
}
