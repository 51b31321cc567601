// event_repository.go implements EventRepository over sqlx, providing batch
// inserts for the ingest surface.
package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/smplatform/smplatform/internal/db/models"
)

// EventRepository handles usage event database operations
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// InsertBatch inserts a batch of events in a single statement and returns the
// number of rows written. The caller is expected to have stamped OrgID and
// APIKeyID on every event from the authenticated identity.
func (r *EventRepository) InsertBatch(ctx context.Context, events []*models.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO events (org_id, api_key_id, name, payload)
		VALUES (:org_id, :api_key_id, :name, :payload)
	`

	res, err := r.db.NamedExecContext(ctx, query, events)
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		// Some drivers cannot report affected rows for multi-value inserts;
		// the statement succeeded, so fall back to the batch size.
		return len(events), nil
	}
	return int(n), nil
}

// CountForOrg returns the number of events recorded for an organization.
// Used by the dashboard usage summary.
func (r *EventRepository) CountForOrg(ctx context.Context, orgID int64) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM events WHERE org_id = $1`, orgID)
	return count, err
}
