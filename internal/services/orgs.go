// orgs.go implements organization and membership rules: creation with an
// initial owner, role-gated member management, and the authorization check
// every dashboard handler goes through.
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/smplatform/smplatform/internal/db/models"
	"github.com/smplatform/smplatform/internal/db/repositories"
)

const maxOrgNameLength = 120

// OrgService owns organization and membership business logic
type OrgService struct {
	orgs  *repositories.OrganizationRepository
	users *repositories.UserRepository
}

// NewOrgService creates an OrgService
func NewOrgService(orgs *repositories.OrganizationRepository, users *repositories.UserRepository) *OrgService {
	return &OrgService{orgs: orgs, users: users}
}

// CreateOrganization creates an organization with ownerID as its owner
func (s *OrgService) CreateOrganization(ctx context.Context, name string, ownerID int64) (*models.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: organization name is required", ErrValidation)
	}
	if len(name) > maxOrgNameLength {
		return nil, fmt.Errorf("%w: organization name exceeds %d characters", ErrValidation, maxOrgNameLength)
	}

	org := &models.Organization{Name: name}
	if err := s.orgs.CreateOrganization(ctx, org, ownerID); err != nil {
		return nil, fmt.Errorf("creating organization: %w", err)
	}
	return org, nil
}

// ListForUser returns the organizations the user belongs to
func (s *OrgService) ListForUser(ctx context.Context, userID int64) ([]*models.Organization, error) {
	return s.orgs.ListOrganizationsForUser(ctx, userID)
}

// RequireMember returns the organization and the user's membership in it.
// ErrNotFound when the org does not exist; ErrForbidden when the user is not
// a member or holds less than minRole.
func (s *OrgService) RequireMember(ctx context.Context, orgID, userID int64, minRole models.Role) (*models.Organization, *models.OrganizationMember, error) {
	org, err := s.orgs.GetOrganizationByID(ctx, orgID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading organization: %w", err)
	}
	if org == nil {
		return nil, nil, ErrNotFound
	}

	member, err := s.orgs.GetMember(ctx, orgID, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading membership: %w", err)
	}
	if member == nil || !member.Role.AtLeast(minRole) {
		return nil, nil, ErrForbidden
	}

	return org, member, nil
}

// AddMemberByEmail adds the user with the given email to the organization.
// The actor must already be a member whose role may grant the target role:
// admins add plain members, only owners hand out admin or owner.
func (s *OrgService) AddMemberByEmail(ctx context.Context, orgID, actorID int64, email string, role models.Role) (*models.MemberWithUser, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	_, actor, err := s.RequireMember(ctx, orgID, actorID, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if !actor.Role.CanGrant(role) {
		return nil, ErrForbidden
	}

	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: no account with that email", ErrNotFound)
	}

	member := &models.OrganizationMember{OrgID: orgID, UserID: user.ID, Role: role}
	if err := s.orgs.AddMember(ctx, member); err != nil {
		return nil, err
	}

	return &models.MemberWithUser{OrganizationMember: *member, UserEmail: user.Email}, nil
}

// RemoveMember removes a user from the organization. The actor needs the
// same rank that granting the target's role would: admins remove plain
// members, only owners remove admins or other owners. The last owner can
// never be removed, so an organization cannot be orphaned.
func (s *OrgService) RemoveMember(ctx context.Context, orgID, actorID, userID int64) error {
	_, actor, err := s.RequireMember(ctx, orgID, actorID, models.RoleAdmin)
	if err != nil {
		return err
	}

	target, err := s.orgs.GetMember(ctx, orgID, userID)
	if err != nil {
		return fmt.Errorf("loading membership: %w", err)
	}
	if target == nil {
		return fmt.Errorf("%w: no such member", ErrNotFound)
	}
	if !actor.Role.CanGrant(target.Role) {
		return ErrForbidden
	}

	if target.Role == models.RoleOwner {
		owners, err := s.orgs.CountOwners(ctx, orgID)
		if err != nil {
			return fmt.Errorf("counting owners: %w", err)
		}
		if owners <= 1 {
			return fmt.Errorf("%w: cannot remove the organization's last owner", ErrValidation)
		}
	}

	removed, err := s.orgs.RemoveMember(ctx, orgID, userID)
	if err != nil {
		return fmt.Errorf("removing member: %w", err)
	}
	if !removed {
		return fmt.Errorf("%w: no such member", ErrNotFound)
	}
	return nil
}

// ListMembers returns the organization's memberships with user emails.
// Any member may see the roster.
func (s *OrgService) ListMembers(ctx context.Context, orgID, actorID int64) ([]*models.MemberWithUser, error) {
	if _, _, err := s.RequireMember(ctx, orgID, actorID, models.RoleMember); err != nil {
		return nil, err
	}
	return s.orgs.ListMembers(ctx, orgID)
}
