// Package guard decides whether an authenticated subject may exercise a
// capability, optionally on a resource owned by another account.
package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/prohmpiriya/event-registration/internal/domain"
	"github.com/prohmpiriya/event-registration/internal/token"
)

// Denial reasons
const (
	ReasonInsufficientRole = "insufficient_role"
	ReasonNotOwner         = "not_owner"
	ReasonMissingOwner     = "missing_resource_owner"
)

// DeniedError is returned when a valid identity lacks the capability.
// It matches domain.ErrForbidden.
type DeniedError struct {
	Capability domain.Capability
	Role       domain.Role
	Reason     string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("access denied: %s requires %s (role %s)", e.Reason, e.Capability, e.Role)
}

func (e *DeniedError) Unwrap() error {
	return domain.ErrForbidden
}

// RoleSource reads the stored role of an account
type RoleSource interface {
	// CurrentRole returns the account's stored role and whether it may still act.
	// A missing account returns domain.ErrAccountNotFound.
	CurrentRole(ctx context.Context, accountID string) (domain.Role, bool, error)
}

// Guard is the single authorization gate shared by every mutating operation
type Guard struct {
	roles RoleSource
}

// New creates a Guard. roles may be nil when fresh checks are not needed.
func New(roles RoleSource) *Guard {
	return &Guard{roles: roles}
}

// Authorize returns nil when the assertion grants capability c. For
// resource-scoped capabilities ownerID must be the resource owner; the
// subject must match it unless the role holds the overriding capability.
func (g *Guard) Authorize(a *token.Assertion, c domain.Capability, ownerID string) error {
	if a == nil || a.SubjectID == "" {
		return domain.ErrUnauthenticated
	}
	return decide(a.SubjectID, a.Role, c, ownerID)
}

// AuthorizeFresh behaves like Authorize, but for privilege-sensitive
// capabilities the decision uses the role currently stored for the subject
// rather than the snapshot in the assertion.
func (g *Guard) AuthorizeFresh(ctx context.Context, a *token.Assertion, c domain.Capability, ownerID string) error {
	if a == nil || a.SubjectID == "" {
		return domain.ErrUnauthenticated
	}
	if !c.PrivilegeSensitive() || g.roles == nil {
		return decide(a.SubjectID, a.Role, c, ownerID)
	}

	role, active, err := g.roles.CurrentRole(ctx, a.SubjectID)
	if err != nil {
		if domain.Kind(err) == domain.KindNotFound {
			return domain.ErrUnauthenticated
		}
		return err
	}
	if !active {
		return domain.ErrUnauthenticated
	}
	return decide(a.SubjectID, role, c, ownerID)
}

// EventAction is a mutation on an existing event
type EventAction int

const (
	EditEvent EventAction = iota
	DeleteEvent
)

// AuthorizeEvent authorizes an edit or delete of an event owned by ownerID.
// Owners and administrators alike are checked against their stored role.
func (g *Guard) AuthorizeEvent(ctx context.Context, a *token.Assertion, action EventAction, ownerID string) error {
	c := domain.CapEditOwnEvent
	if action == DeleteEvent {
		c = domain.CapDeleteOwnEvent
	}

	if a != nil && a.SubjectID != "" && a.SubjectID != ownerID {
		// acting on someone else's event relies on the administrator capability
		override, _ := c.OwnershipOverride()
		err := g.AuthorizeFresh(ctx, a, override, "")
		var denied *DeniedError
		if errors.As(err, &denied) {
			return &DeniedError{Capability: c, Role: denied.Role, Reason: ReasonNotOwner}
		}
		return err
	}
	return g.AuthorizeFresh(ctx, a, c, ownerID)
}

func decide(subjectID string, role domain.Role, c domain.Capability, ownerID string) error {
	override, scoped := c.OwnershipOverride()

	if !role.Has(c) {
		// an overriding capability implies the scoped one
		if scoped && role.Has(override) {
			return nil
		}
		return &DeniedError{Capability: c, Role: role, Reason: ReasonInsufficientRole}
	}

	if !scoped {
		return nil
	}
	if role.Has(override) {
		return nil
	}
	if ownerID == "" {
		return &DeniedError{Capability: c, Role: role, Reason: ReasonMissingOwner}
	}
	if subjectID != ownerID {
		return &DeniedError{Capability: c, Role: role, Reason: ReasonNotOwner}
	}
	return nil
}
