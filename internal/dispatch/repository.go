package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LogEntry is one persisted dispatch result row.
type LogEntry struct {
	ID             uuid.UUID     `json:"id"`
	SubmissionID   uuid.UUID     `json:"submissionId"`
	OrganizationID uuid.UUID     `json:"organizationId"`
	RouteID        uuid.UUID     `json:"routeId"`
	RouteName      string        `json:"routeName"`
	Action         string        `json:"action"`
	Success        bool          `json:"success"`
	Critical       bool          `json:"critical"`
	Message        string        `json:"message,omitempty"`
	Duration       time.Duration `json:"durationMs"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// Repository persists dispatch results for the admin surface.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new dispatch log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RecordResults writes one row per attempted (route, action) pair in a
// single batch.
func (r *Repository) RecordResults(ctx context.Context, submissionID, orgID uuid.UUID, results []Result) error {
	if len(results) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, res := range results {
		batch.Queue(`
			INSERT INTO router_dispatch_log (
				submission_id, organization_id, route_id, route_name,
				action, success, critical, message, duration_ms
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, submissionID, orgID, res.RouteID, res.RouteName,
			res.Action, res.Success, res.Critical, res.Message,
			res.Duration.Milliseconds())
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range results {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// ListBySubmission returns the dispatch log for one submission.
func (r *Repository) ListBySubmission(ctx context.Context, orgID, submissionID uuid.UUID) ([]LogEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, submission_id, organization_id, route_id, route_name,
		       action, success, critical, message, duration_ms, created_at
		FROM router_dispatch_log
		WHERE organization_id = $1 AND submission_id = $2
		ORDER BY created_at ASC
	`, orgID, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListRecent returns the most recent dispatch log rows for an
// organization.
func (r *Repository) ListRecent(ctx context.Context, orgID uuid.UUID, limit int) ([]LogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, submission_id, organization_id, route_id, route_name,
		       action, success, critical, message, duration_ms, created_at
		FROM router_dispatch_log
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]LogEntry, error) {
	var entries []LogEntry
	for rows.Next() {
		var (
			entry      LogEntry
			durationMs int64
		)
		if err := rows.Scan(
			&entry.ID, &entry.SubmissionID, &entry.OrganizationID,
			&entry.RouteID, &entry.RouteName, &entry.Action,
			&entry.Success, &entry.Critical, &entry.Message,
			&durationMs, &entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.Duration = time.Duration(durationMs) * time.Millisecond
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
