package mapping

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides data access for per-organization field mappings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new mapping repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByOrganization returns the organization's field mappings in
// configured order.
func (r *Repository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]FieldMapping, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT field_key, sources, transform, validation, required
		FROM router_field_mappings
		WHERE organization_id = $1
		ORDER BY position ASC
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []FieldMapping
	for rows.Next() {
		var m FieldMapping
		if err := rows.Scan(&m.Key, &m.Sources, &m.Transform, &m.Validation, &m.Required); err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// Replace atomically swaps the organization's mapping table for the
// given set. Positions are assigned from slice order.
func (r *Repository) Replace(ctx context.Context, orgID uuid.UUID, mappings []FieldMapping) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			DELETE FROM router_field_mappings WHERE organization_id = $1
		`, orgID); err != nil {
			return err
		}

		for i, m := range mappings {
			if _, err := tx.Exec(ctx, `
				INSERT INTO router_field_mappings (organization_id, field_key, sources, transform, validation, required, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, orgID, m.Key, m.Sources, m.Transform, m.Validation, m.Required, i); err != nil {
				return err
			}
		}
		return nil
	})
}
