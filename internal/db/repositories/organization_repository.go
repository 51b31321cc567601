// organization_repository.go implements OrganizationRepository, providing database
// queries for tenants and their memberships.
package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/smplatform/smplatform/internal/db/models"
)

// ErrDuplicateMember is returned when adding a user who already belongs to the organization.
var ErrDuplicateMember = errors.New("user is already a member of this organization")

// OrganizationRepository handles organization and membership database operations
type OrganizationRepository struct {
	db *sql.DB
}

// NewOrganizationRepository creates a new OrganizationRepository
func NewOrganizationRepository(db *sql.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// CreateOrganization inserts a new organization and makes ownerID its owner
// in the same transaction, so an org can never exist without an owner.
func (r *OrganizationRepository) CreateOrganization(ctx context.Context, org *models.Organization, ownerID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orgs (name)
		VALUES ($1)
		RETURNING id, rate_limit_rpm, monthly_quota, created_at
	`
	err = tx.QueryRowContext(ctx, query, org.Name).Scan(
		&org.ID,
		&org.RateLimitRPM,
		&org.MonthlyQuota,
		&org.CreatedAt,
	)
	if err != nil {
		return err
	}

	memberQuery := `
		INSERT INTO org_members (org_id, user_id, role)
		VALUES ($1, $2, 'owner')
	`
	if _, err := tx.ExecContext(ctx, memberQuery, org.ID, ownerID); err != nil {
		return err
	}

	return tx.Commit()
}

// GetOrganizationByID retrieves an organization by ID. Returns (nil, nil) when not found.
func (r *OrganizationRepository) GetOrganizationByID(ctx context.Context, orgID int64) (*models.Organization, error) {
	query := `
		SELECT id, name, rate_limit_rpm, monthly_quota, created_at
		FROM orgs
		WHERE id = $1
	`

	org := &models.Organization{}
	err := r.db.QueryRowContext(ctx, query, orgID).Scan(
		&org.ID,
		&org.Name,
		&org.RateLimitRPM,
		&org.MonthlyQuota,
		&org.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return org, nil
}

// ListOrganizationsForUser retrieves the organizations a user belongs to,
// oldest membership first.
func (r *OrganizationRepository) ListOrganizationsForUser(ctx context.Context, userID int64) ([]*models.Organization, error) {
	query := `
		SELECT o.id, o.name, o.rate_limit_rpm, o.monthly_quota, o.created_at
		FROM orgs o
		JOIN org_members m ON m.org_id = o.id
		WHERE m.user_id = $1
		ORDER BY m.created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		org := &models.Organization{}
		err := rows.Scan(&org.ID, &org.Name, &org.RateLimitRPM, &org.MonthlyQuota, &org.CreatedAt)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}

	return orgs, rows.Err()
}

// GetMember retrieves a user's membership in an organization.
// Returns (nil, nil) when the user is not a member.
func (r *OrganizationRepository) GetMember(ctx context.Context, orgID, userID int64) (*models.OrganizationMember, error) {
	query := `
		SELECT id, org_id, user_id, role, created_at
		FROM org_members
		WHERE org_id = $1 AND user_id = $2
	`

	m := &models.OrganizationMember{}
	err := r.db.QueryRowContext(ctx, query, orgID, userID).Scan(
		&m.ID,
		&m.OrgID,
		&m.UserID,
		&m.Role,
		&m.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return m, nil
}

// AddMember inserts a membership row and fills in the store-assigned fields.
// A unique violation on (org_id, user_id) maps to ErrDuplicateMember.
func (r *OrganizationRepository) AddMember(ctx context.Context, m *models.OrganizationMember) error {
	query := `
		INSERT INTO org_members (org_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, m.OrgID, m.UserID, m.Role).
		Scan(&m.ID, &m.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicateMember
	}
	return err
}

// ListMembers retrieves all memberships of an organization with user emails,
// oldest first.
func (r *OrganizationRepository) ListMembers(ctx context.Context, orgID int64) ([]*models.MemberWithUser, error) {
	query := `
		SELECT m.id, m.org_id, m.user_id, m.role, m.created_at, u.email
		FROM org_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.org_id = $1
		ORDER BY m.created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*models.MemberWithUser
	for rows.Next() {
		m := &models.MemberWithUser{}
		err := rows.Scan(&m.ID, &m.OrgID, &m.UserID, &m.Role, &m.CreatedAt, &m.UserEmail)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

// RemoveMember deletes a membership row. Returns false when no row matched,
// so callers can distinguish "removed" from "was never a member".
func (r *OrganizationRepository) RemoveMember(ctx context.Context, orgID, userID int64) (bool, error) {
	query := `DELETE FROM org_members WHERE org_id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query, orgID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountOwners returns how many owners an organization has. Used to protect
// the last-owner invariant when demoting or removing members.
func (r *OrganizationRepository) CountOwners(ctx context.Context, orgID int64) (int, error) {
	query := `SELECT COUNT(*) FROM org_members WHERE org_id = $1 AND role = 'owner'`

	var count int
	if err := r.db.QueryRowContext(ctx, query, orgID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
