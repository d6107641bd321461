package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher produces salted one-way hashes with a tunable cost
// factor. The zero cost selects bcrypt's default.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher clamps cost into bcrypt's supported range; cost <= 0
// selects the default.
func NewPasswordHasher(cost int) *PasswordHasher {
	switch {
	case cost <= 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash returns the bcrypt encoding of password. The embedded random salt
// makes repeated calls produce distinct encodings for the same input.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares plaintext password with the stored hash in
// constant time. A mismatch returns bcrypt.ErrMismatchedHashAndPassword;
// any other error means the stored hash is malformed. Callers treat both
// as a plain negative outcome and keep the distinction for logs only.
func VerifyPassword(hash, password string) error {
	if hash == "" {
		return errors.New("password hash is empty")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
