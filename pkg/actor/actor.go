package actor

import (
	"context"

	"github.com/google/uuid"

	"github.com/souqline/souqline-backend/pkg/enums"
)

// Actor is the explicit per-request identity passed into every service call.
// It is never read from ambient global state.
type Actor struct {
	UserID   uuid.UUID
	Role     enums.UserRole
	BranchID *uuid.UUID
	Country  string
}

// IsZero reports whether the actor carries no identity.
func (a Actor) IsZero() bool {
	return a.UserID == uuid.Nil
}

// IsPlatformAdmin reports whether the actor operates with platform privileges.
func (a Actor) IsPlatformAdmin() bool {
	return a.Role == enums.RolePlatformAdmin
}

// IsBranchAdminFor reports whether the actor administers the given branch.
func (a Actor) IsBranchAdminFor(branchID uuid.UUID) bool {
	return a.Role == enums.RoleBranchAdmin && a.BranchID != nil && *a.BranchID == branchID
}

// CanManageBranch reports whether the actor may act on the given branch,
// either as its admin or as a platform actor.
func (a Actor) CanManageBranch(branchID uuid.UUID) bool {
	return a.IsPlatformAdmin() || a.IsBranchAdminFor(branchID)
}

type ctxKey struct{}

// WithContext attaches the actor to the request context.
func WithContext(ctx context.Context, act Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, act)
}

// FromContext extracts the actor previously attached to the context.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	act, ok := ctx.Value(ctxKey{}).(Actor)
	return act, ok
}
