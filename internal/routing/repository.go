package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrRouteNotFound = errors.New("route not found")

// Repository provides data access for route definitions. Definition
// order is the position column, which the matcher uses as the stable
// tiebreak for equal priorities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new routing repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByOrganization returns the organization's routes in definition order.
func (r *Repository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]Route, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, name, description, priority, enabled, conditions, actions, created_at, updated_at
		FROM router_routes
		WHERE organization_id = $1
		ORDER BY position ASC
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []Route
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, route)
	}
	return routes, rows.Err()
}

// Get returns one route scoped to the organization.
func (r *Repository) Get(ctx context.Context, routeID uuid.UUID, orgID uuid.UUID) (Route, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, organization_id, name, description, priority, enabled, conditions, actions, created_at, updated_at
		FROM router_routes
		WHERE id = $1 AND organization_id = $2
	`, routeID, orgID)

	route, err := scanRoute(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Route{}, ErrRouteNotFound
	}
	return route, err
}

// Create appends a route at the end of the definition order.
func (r *Repository) Create(ctx context.Context, route Route) (Route, error) {
	conditions, actions, err := marshalRoute(route)
	if err != nil {
		return Route{}, err
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO router_routes (organization_id, name, description, priority, enabled, conditions, actions, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7,
			(SELECT COALESCE(MAX(position), -1) + 1 FROM router_routes WHERE organization_id = $1))
		RETURNING id, created_at, updated_at
	`, route.OrganizationID, route.Name, route.Description, route.Priority, route.Enabled, conditions, actions).
		Scan(&route.ID, &route.CreatedAt, &route.UpdatedAt)
	return route, err
}

// Update rewrites a route in place, keeping its definition position.
func (r *Repository) Update(ctx context.Context, route Route) (Route, error) {
	conditions, actions, err := marshalRoute(route)
	if err != nil {
		return Route{}, err
	}

	err = r.pool.QueryRow(ctx, `
		UPDATE router_routes
		SET name = $3, description = $4, priority = $5, enabled = $6, conditions = $7, actions = $8, updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING created_at, updated_at
	`, route.ID, route.OrganizationID, route.Name, route.Description, route.Priority, route.Enabled, conditions, actions).
		Scan(&route.CreatedAt, &route.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Route{}, ErrRouteNotFound
	}
	return route, err
}

// Delete removes a route scoped to the organization.
func (r *Repository) Delete(ctx context.Context, routeID uuid.UUID, orgID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM router_routes WHERE id = $1 AND organization_id = $2
	`, routeID, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRouteNotFound
	}
	return nil
}

// ReplaceAll atomically swaps the organization's whole route store,
// used by import. Slice order becomes the definition order.
func (r *Repository) ReplaceAll(ctx context.Context, orgID uuid.UUID, routes []Route) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			DELETE FROM router_routes WHERE organization_id = $1
		`, orgID); err != nil {
			return err
		}

		for i, route := range routes {
			conditions, actions, err := marshalRoute(route)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO router_routes (organization_id, name, description, priority, enabled, conditions, actions, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, orgID, route.Name, route.Description, route.Priority, route.Enabled, conditions, actions, i); err != nil {
				return err
			}
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoute(row rowScanner) (Route, error) {
	var (
		route      Route
		conditions []byte
		actions    []byte
	)
	if err := row.Scan(
		&route.ID, &route.OrganizationID, &route.Name, &route.Description,
		&route.Priority, &route.Enabled, &conditions, &actions,
		&route.CreatedAt, &route.UpdatedAt,
	); err != nil {
		return Route{}, err
	}

	if err := json.Unmarshal(conditions, &route.Conditions); err != nil {
		return Route{}, fmt.Errorf("route %s: corrupt conditions: %w", route.ID, err)
	}
	if err := json.Unmarshal(actions, &route.Actions); err != nil {
		return Route{}, fmt.Errorf("route %s: corrupt actions: %w", route.ID, err)
	}
	return route, nil
}

func marshalRoute(route Route) (conditions []byte, actions []byte, err error) {
	if route.Conditions == nil {
		route.Conditions = [][]Condition{}
	}
	conditions, err = json.Marshal(route.Conditions)
	if err != nil {
		return nil, nil, err
	}
	actions, err = json.Marshal(route.Actions)
	if err != nil {
		return nil, nil, err
	}
	return conditions, actions, nil
}
