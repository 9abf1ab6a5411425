package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/codr1/Rollcall/internal/apperr"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

const RoleManager = "manager"

// AuthUser is the caller resolved by the upstream identity layer.
type AuthUser struct {
	ID int64
}

type userContextKey struct{}

func ContextWithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext retrieves the AuthUser stored in ctx.
// It returns nil if ctx is nil, if no user is stored, or if the stored value has a different type.
func UserFromContext(ctx context.Context) *AuthUser {
	if ctx == nil {
		return nil
	}

	user, ok := ctx.Value(userContextKey{}).(*AuthUser)
	if !ok {
		return nil
	}

	return user
}

// RoleLookup returns a user's role on a team, or apperr.ErrNotFound for non-members.
type RoleLookup interface {
	GetTeamMemberRole(ctx context.Context, teamID, userID int64) (string, error)
}

// RequireTeamManager allows only managers of teamID. Non-members are forbidden.
func RequireTeamManager(ctx context.Context, roles RoleLookup, teamID int64) error {
	user := UserFromContext(ctx)
	if user == nil {
		return ErrUnauthenticated
	}

	role, err := roles.GetTeamMemberRole(ctx, teamID, user.ID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return ErrForbidden
		}
		return fmt.Errorf("load team role: %w", err)
	}
	if !strings.EqualFold(role, RoleManager) {
		return ErrForbidden
	}
	return nil
}
