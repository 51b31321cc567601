// Package models - org_member.go defines organization membership and the role
// hierarchy used for dashboard authorization decisions.
package models

import "time"

// Role is a member's permission level within an organization
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// roleRank orders roles for comparison; higher means more privileged.
var roleRank = map[Role]int{
	RoleMember: 1,
	RoleAdmin:  2,
	RoleOwner:  3,
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r carries at least the privileges of other
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other]
}

// CanManageKeys reports whether the role may create and revoke API keys.
// Plain members may only list them.
func (r Role) CanManageKeys() bool {
	return r.AtLeast(RoleAdmin)
}

// CanGrant reports whether a member holding r may assign the target role to
// someone else. Admins may add plain members; only owners hand out admin or
// owner.
func (r Role) CanGrant(target Role) bool {
	if target == RoleMember {
		return r.AtLeast(RoleAdmin)
	}
	return r == RoleOwner
}

// OrganizationMember represents a user's membership in an organization
type OrganizationMember struct {
	ID        int64     `json:"id"`
	OrgID     int64     `json:"org_id"`
	UserID    int64     `json:"user_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// MemberWithUser includes the user's email for membership listings
type MemberWithUser struct {
	OrganizationMember
	UserEmail string `json:"user_email"`
}
