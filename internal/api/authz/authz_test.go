package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/codr1/Rollcall/internal/apperr"
)

type roleTable map[int64]string

func (r roleTable) GetTeamMemberRole(_ context.Context, _ int64, userID int64) (string, error) {
	if userID == 500 {
		return "", errors.New("db down")
	}
	role, ok := r[userID]
	if !ok {
		return "", apperr.NotFound("user %d is not a member", userID)
	}
	return role, nil
}

var roles = roleTable{1: "manager", 2: "member", 3: "Manager"}

func TestRequireTeamManagerUnauthenticated(t *testing.T) {
	err := RequireTeamManager(context.Background(), roles, 1)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestRequireTeamManagerForbidden(t *testing.T) {
	for _, userID := range []int64{2, 99} {
		ctx := ContextWithUser(context.Background(), &AuthUser{ID: userID})
		if err := RequireTeamManager(ctx, roles, 1); !errors.Is(err, ErrForbidden) {
			t.Fatalf("user %d: expected ErrForbidden, got %v", userID, err)
		}
	}
}

func TestRequireTeamManagerAllowed(t *testing.T) {
	for _, userID := range []int64{1, 3} {
		ctx := ContextWithUser(context.Background(), &AuthUser{ID: userID})
		if err := RequireTeamManager(ctx, roles, 1); err != nil {
			t.Fatalf("user %d: expected nil, got %v", userID, err)
		}
	}
}

func TestRequireTeamManagerLookupError(t *testing.T) {
	ctx := ContextWithUser(context.Background(), &AuthUser{ID: 500})
	err := RequireTeamManager(ctx, roles, 1)
	if err == nil || errors.Is(err, ErrForbidden) || errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected a lookup error, got %v", err)
	}
}

func TestUserFromContextNil(t *testing.T) {
	if UserFromContext(context.Background()) != nil {
		t.Fatal("expected no user")
	}
}
