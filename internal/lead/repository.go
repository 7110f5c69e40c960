package lead

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrLeadNotFound = errors.New("lead not found")

// Repository provides data access for persisted lead records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new lead repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert persists a lead record. The insert is idempotent per
// submission: retrying a dispatch after a transient failure must not
// create a second row, so the submission ID carries a unique index and
// conflicts are ignored.
func (r *Repository) Insert(ctx context.Context, rec Record) (uuid.UUID, error) {
	rawPayload, err := json.Marshal(rec.RawPayload)
	if err != nil {
		return uuid.UUID{}, err
	}

	id := rec.ID
	if id == (uuid.UUID{}) {
		id = uuid.New()
	}

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO router_leads (
			id, submission_id, organization_id, first_name, last_name,
			email, phone, message, source, source_url, form_type,
			listing_id, agent_id, interests, raw_payload, received_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (submission_id) DO NOTHING
	`, id, rec.SubmissionID, rec.OrganizationID, rec.FirstName, rec.LastName,
		rec.Email, rec.Phone, rec.Message, rec.Source, rec.SourceURL, string(rec.FormType),
		rec.ListingID, rec.AgentID, rec.Interests, rawPayload, rec.ReceivedAt)
	if err != nil {
		return uuid.UUID{}, err
	}

	if tag.RowsAffected() == 0 {
		// Already inserted by a previous attempt; return the existing row's ID.
		return r.idBySubmission(ctx, rec.SubmissionID)
	}
	return id, nil
}

// IDBySubmission returns the persisted row's ID for a submission, or
// ErrLeadNotFound when the database action has not run for it.
func (r *Repository) IDBySubmission(ctx context.Context, submissionID uuid.UUID) (uuid.UUID, error) {
	return r.idBySubmission(ctx, submissionID)
}

func (r *Repository) idBySubmission(ctx context.Context, submissionID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM router_leads WHERE submission_id = $1
	`, submissionID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.UUID{}, ErrLeadNotFound
	}
	return id, err
}

// Get returns one lead record by ID within an organization.
func (r *Repository) Get(ctx context.Context, id, orgID uuid.UUID) (Record, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, submission_id, organization_id, first_name, last_name,
		       email, phone, message, source, source_url, form_type,
		       listing_id, agent_id, interests, raw_payload, received_at
		FROM router_leads
		WHERE id = $1 AND organization_id = $2
	`, id, orgID)

	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrLeadNotFound
	}
	return rec, err
}

// List returns the most recent leads for an organization.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID, limit int) ([]Record, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, submission_id, organization_id, first_name, last_name,
		       email, phone, message, source, source_url, form_type,
		       listing_id, agent_id, interests, raw_payload, received_at
		FROM router_leads
		WHERE organization_id = $1
		ORDER BY received_at DESC
		LIMIT $2
	`, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// FindRecentDuplicate returns the ID of a lead with the same email or
// phone received within the window, if one exists. Used by intake to
// suppress double submissions.
func (r *Repository) FindRecentDuplicate(ctx context.Context, orgID uuid.UUID, email, phone string, window time.Duration) (*uuid.UUID, error) {
	if email == "" && phone == "" {
		return nil, nil
	}

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM router_leads
		WHERE organization_id = $1
		  AND received_at > now() - $2::interval
		  AND (
		        ($3 <> '' AND email = $3)
		     OR ($4 <> '' AND phone = $4)
		  )
		ORDER BY received_at DESC
		LIMIT 1
	`, orgID, window.String(), email, phone).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var formType string
	var rawPayload []byte

	err := row.Scan(
		&rec.ID, &rec.SubmissionID, &rec.OrganizationID, &rec.FirstName, &rec.LastName,
		&rec.Email, &rec.Phone, &rec.Message, &rec.Source, &rec.SourceURL, &formType,
		&rec.ListingID, &rec.AgentID, &rec.Interests, &rawPayload, &rec.ReceivedAt,
	)
	if err != nil {
		return Record{}, err
	}

	rec.FormType = FormType(formType)
	if len(rawPayload) > 0 {
		if err := json.Unmarshal(rawPayload, &rec.RawPayload); err != nil {
			return Record{}, err
		}
	}
	return rec, nil
}
