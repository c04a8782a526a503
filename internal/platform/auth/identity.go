package auth

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means the caller could not be identified.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnauthorized means the caller is known but lacks the right role or
	// ownership for the requested action.
	ErrUnauthorized = errors.New("unauthorized")
)

// Role is the closed set of caller roles.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Identity is the authenticated caller: a role plus the id of the doctor,
// patient or admin record it acts as.
type Identity struct {
	Role   Role  `json:"role"`
	UserID int64 `json:"user_id"`
}

func (id Identity) Authenticated() bool {
	return id.Role.Valid() && id.UserID > 0
}

func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}

func (id Identity) String() string {
	return fmt.Sprintf("%s:%d", id.Role, id.UserID)
}

type contextKey string

const identityKey contextKey = "identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller stored by the auth middleware, or the
// zero Identity (which is not Authenticated) when there is none.
func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey).(Identity)
	return id
}
