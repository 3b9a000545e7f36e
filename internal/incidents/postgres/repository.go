// Package postgres provides the PostgreSQL implementation of the incidents
// repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/JVK-PAGE/status-page-plivo/internal/domain"
	"github.com/JVK-PAGE/status-page-plivo/internal/incidents"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is the subset of operations both *pgxpool.Pool and pgx.Tx
// implement.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements incidents.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetOrganizationByID retrieves an organization by its identity.
func (r *Repository) GetOrganizationByID(ctx context.Context, id string) (*domain.Organization, error) {
	query := `
		SELECT id, name, auth_provider_id, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`
	var org domain.Organization
	err := r.db.QueryRow(ctx, query, id).Scan(
		&org.ID,
		&org.Name,
		&org.AuthProviderID,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return &org, nil
}

// CountServicesInOrg counts how many of the given service ids resolve to
// services owned by the organization.
func (r *Repository) CountServicesInOrg(ctx context.Context, organizationID string, serviceIDs []string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM services
		WHERE organization_id = $1 AND id = ANY($2::uuid[])
	`
	var count int
	if err := r.db.QueryRow(ctx, query, organizationID, serviceIDs).Scan(&count); err != nil {
		return 0, fmt.Errorf("count services: %w", err)
	}
	return count, nil
}

// GetIncident retrieves a hydrated incident scoped to the organization.
func (r *Repository) GetIncident(ctx context.Context, organizationID, id string) (*domain.Incident, error) {
	incident, err := r.getIncident(ctx, r.db, organizationID, id, false)
	if err != nil {
		return nil, err
	}

	services, err := r.getIncidentServices(ctx, r.db, id)
	if err != nil {
		return nil, fmt.Errorf("get incident services: %w", err)
	}
	incident.Services = services

	return incident, nil
}

// ListIncidents retrieves incidents of an organization with optional filters.
func (r *Repository) ListIncidents(ctx context.Context, organizationID string, filters incidents.IncidentFilters) ([]*domain.Incident, error) {
	query := `
		SELECT id, organization_id, title, description, status, impact, type,
		       created_at, updated_at, resolved_at
		FROM incidents
		WHERE organization_id = $1
	`
	args := []interface{}{organizationID}
	argNum := 2

	if filters.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, *filters.Status)
		argNum++
	}

	if filters.Type != nil {
		query += fmt.Sprintf(" AND type = $%d", argNum)
		args = append(args, *filters.Type)
		argNum++
	}

	query += " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filters.Limit)
		argNum++
	}

	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filters.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	incidentsList := make([]*domain.Incident, 0)
	for rows.Next() {
		var incident domain.Incident
		if err := scanIncident(rows, &incident); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		incidentsList = append(incidentsList, &incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}

	for _, incident := range incidentsList {
		services, err := r.getIncidentServices(ctx, r.db, incident.ID)
		if err != nil {
			return nil, fmt.Errorf("get incident services: %w", err)
		}
		incident.Services = services
	}

	return incidentsList, nil
}

// BeginTx starts a new transaction.
func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.Begin(ctx)
}

// CreateIncidentTx inserts the incident row within the transaction. The
// creation timestamp is set by the store at the moment of write.
func (r *Repository) CreateIncidentTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error {
	query := `
		INSERT INTO incidents (organization_id, title, description, status, impact, type, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := tx.QueryRow(ctx, query,
		incident.OrganizationID,
		incident.Title,
		incident.Description,
		incident.Status,
		incident.Impact,
		incident.Type,
		incident.ResolvedAt,
	).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	return nil
}

// GetIncidentForUpdateTx locks and returns the incident row within the
// caller's organization. The row lock serializes concurrent updates to the
// same incident while leaving other incidents unblocked.
func (r *Repository) GetIncidentForUpdateTx(ctx context.Context, tx pgx.Tx, organizationID, id string) (*domain.Incident, error) {
	return r.getIncident(ctx, tx, organizationID, id, true)
}

// UpdateIncidentTx overwrites the mutable incident fields within the
// transaction.
func (r *Repository) UpdateIncidentTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error {
	query := `
		UPDATE incidents
		SET title = $3, description = $4, status = $5, impact = $6, type = $7,
		    resolved_at = $8, updated_at = NOW()
		WHERE id = $1 AND organization_id = $2
		RETURNING updated_at
	`
	err := tx.QueryRow(ctx, query,
		incident.ID,
		incident.OrganizationID,
		incident.Title,
		incident.Description,
		incident.Status,
		incident.Impact,
		incident.Type,
		incident.ResolvedAt,
	).Scan(&incident.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return incidents.ErrIncidentNotFound
		}
		return fmt.Errorf("update incident: %w", err)
	}
	return nil
}

// ReplaceIncidentServicesTx replaces the full association set of the
// incident: every prior row is deleted, then the new set inserted. The swap
// happens inside the transaction, so a concurrent reader outside it never
// observes an incident without associations.
func (r *Repository) ReplaceIncidentServicesTx(ctx context.Context, tx pgx.Tx, incidentID string, serviceIDs []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM incident_services WHERE incident_id = $1`, incidentID); err != nil {
		return fmt.Errorf("delete incident services: %w", err)
	}

	query := `
		INSERT INTO incident_services (incident_id, service_id)
		SELECT $1, unnest($2::uuid[])
	`
	if _, err := tx.Exec(ctx, query, incidentID, serviceIDs); err != nil {
		return fmt.Errorf("insert incident services: %w", err)
	}
	return nil
}

// GetIncidentServicesTx returns the hydrated service rows associated with
// the incident, as visible inside the transaction.
func (r *Repository) GetIncidentServicesTx(ctx context.Context, tx pgx.Tx, incidentID string) ([]domain.Service, error) {
	return r.getIncidentServices(ctx, tx, incidentID)
}

func (r *Repository) getIncident(ctx context.Context, q querier, organizationID, id string, forUpdate bool) (*domain.Incident, error) {
	query := `
		SELECT id, organization_id, title, description, status, impact, type,
		       created_at, updated_at, resolved_at
		FROM incidents
		WHERE id = $1 AND organization_id = $2
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var incident domain.Incident
	if err := scanIncident(q.QueryRow(ctx, query, id, organizationID), &incident); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return &incident, nil
}

func (r *Repository) getIncidentServices(ctx context.Context, q querier, incidentID string) ([]domain.Service, error) {
	query := `
		SELECT s.id, s.organization_id, s.name, s.description, s.created_at, s.updated_at
		FROM services s
		JOIN incident_services ins ON ins.service_id = s.id
		WHERE ins.incident_id = $1
		ORDER BY s.name, s.id
	`
	rows, err := q.Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("query incident services: %w", err)
	}
	defer rows.Close()

	services := make([]domain.Service, 0)
	for rows.Next() {
		var svc domain.Service
		err := rows.Scan(
			&svc.ID,
			&svc.OrganizationID,
			&svc.Name,
			&svc.Description,
			&svc.CreatedAt,
			&svc.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}

func scanIncident(row pgx.Row, incident *domain.Incident) error {
	return row.Scan(
		&incident.ID,
		&incident.OrganizationID,
		&incident.Title,
		&incident.Description,
		&incident.Status,
		&incident.Impact,
		&incident.Type,
		&incident.CreatedAt,
		&incident.UpdatedAt,
		&incident.ResolvedAt,
	)
}
