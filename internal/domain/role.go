package domain

import "strings"

// Role is the account's position in the capability hierarchy
type Role string

// Role constants, ordered from least to most privileged
const (
	RoleMember        Role = "member"
	RoleOrganizer     Role = "organizer"
	RoleAdministrator Role = "administrator"
)

// Capability is a named permission granted to one or more roles
type Capability string

// Capability constants
const (
	CapBrowse          Capability = "browse"
	CapRegisterSelf    Capability = "registerSelf"
	CapManageBookmarks Capability = "manageBookmarks"
	CapEditOwnProfile  Capability = "editOwnProfile"

	CapCreateEvent    Capability = "createEvent"
	CapEditOwnEvent   Capability = "editOwnEvent"
	CapDeleteOwnEvent Capability = "deleteOwnEvent"

	CapEditAnyEvent   Capability = "editAnyEvent"
	CapDeleteAnyEvent Capability = "deleteAnyEvent"
	CapManageAccounts Capability = "manageAccounts"
	CapManageRoles    Capability = "manageRoles"
)

// capabilitySet is the set of capabilities granted to a role
type capabilitySet map[Capability]struct{}

func newCapabilitySet(base capabilitySet, caps ...Capability) capabilitySet {
	set := make(capabilitySet, len(base)+len(caps))
	for c := range base {
		set[c] = struct{}{}
	}
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

var (
	memberCaps = newCapabilitySet(nil,
		CapBrowse, CapRegisterSelf, CapManageBookmarks, CapEditOwnProfile,
	)
	organizerCaps = newCapabilitySet(memberCaps,
		CapCreateEvent, CapEditOwnEvent, CapDeleteOwnEvent,
	)
	administratorCaps = newCapabilitySet(organizerCaps,
		CapEditAnyEvent, CapDeleteAnyEvent, CapManageAccounts, CapManageRoles,
	)

	// roleCapabilities is the single lookup table every authorization decision reads
	roleCapabilities = map[Role]capabilitySet{
		RoleMember:        memberCaps,
		RoleOrganizer:     organizerCaps,
		RoleAdministrator: administratorCaps,
	}
)

// resourceScoped maps capabilities that only apply to the subject's own
// resource onto the capability that lifts the ownership restriction.
var resourceScoped = map[Capability]Capability{
	CapEditOwnEvent:   CapEditAnyEvent,
	CapDeleteOwnEvent: CapDeleteAnyEvent,
	CapEditOwnProfile: CapManageAccounts,
}

// privilegeSensitive capabilities are re-checked against the stored role
// instead of trusting the role snapshot carried by the token.
var privilegeSensitive = map[Capability]bool{
	CapCreateEvent:    true,
	CapEditOwnEvent:   true,
	CapDeleteOwnEvent: true,
	CapEditAnyEvent:   true,
	CapDeleteAnyEvent: true,
	CapManageAccounts: true,
	CapManageRoles:    true,
}

// IsValid checks if the role is one of the defined roles
func (r Role) IsValid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Has reports whether the role's capability set includes c
func (r Role) Has(c Capability) bool {
	set, ok := roleCapabilities[r]
	if !ok {
		return false
	}
	_, ok = set[c]
	return ok
}

// Capabilities returns the role's capabilities in no particular order
func (r Role) Capabilities() []Capability {
	set := roleCapabilities[r]
	out := make([]Capability, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// SelfAssignable reports whether a new account may request this role at sign-up
func (r Role) SelfAssignable() bool {
	return r == RoleMember || r == RoleOrganizer
}

// ParseRole parses a role name case-insensitively
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if !role.IsValid() {
		return "", ErrInvalidRole
	}
	return role, nil
}

// AllRoles returns all roles in hierarchical order
func AllRoles() []Role {
	return []Role{RoleMember, RoleOrganizer, RoleAdministrator}
}

// OwnershipOverride returns the capability that bypasses the ownership check
// for a resource-scoped capability, and whether c is resource scoped at all.
func (c Capability) OwnershipOverride() (Capability, bool) {
	override, ok := resourceScoped[c]
	return override, ok
}

// PrivilegeSensitive reports whether c requires a fresh role lookup
func (c Capability) PrivilegeSensitive() bool {
	return privilegeSensitive[c]
}
