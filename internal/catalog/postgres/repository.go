// Package postgres provides the PostgreSQL implementation of the catalog
// repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/JVK-PAGE/status-page-plivo/internal/catalog"
	"github.com/JVK-PAGE/status-page-plivo/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements catalog.Repository using PostgreSQL.
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
			return nil, catalog.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return &org, nil
}

// CreateService inserts a new service row.
func (r *Repository) CreateService(ctx context.Context, service *domain.Service) error {
	query := `
		INSERT INTO services (organization_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		service.OrganizationID,
		service.Name,
		service.Description,
	).Scan(&service.ID, &service.CreatedAt, &service.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	return nil
}

// GetService retrieves a service scoped to the organization.
func (r *Repository) GetService(ctx context.Context, organizationID, id string) (*domain.Service, error) {
	query := `
		SELECT id, organization_id, name, description, created_at, updated_at
		FROM services
		WHERE id = $1 AND organization_id = $2
	`
	var service domain.Service
	err := r.db.QueryRow(ctx, query, id, organizationID).Scan(
		&service.ID,
		&service.OrganizationID,
		&service.Name,
		&service.Description,
		&service.CreatedAt,
		&service.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrServiceNotFound
		}
		return nil, fmt.Errorf("get service: %w", err)
	}
	return &service, nil
}

// ListServices retrieves all services of an organization.
func (r *Repository) ListServices(ctx context.Context, organizationID string) ([]*domain.Service, error) {
	query := `
		SELECT id, organization_id, name, description, created_at, updated_at
		FROM services
		WHERE organization_id = $1
		ORDER BY name, id
	`
	rows, err := r.db.Query(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	services := make([]*domain.Service, 0)
	for rows.Next() {
		var service domain.Service
		err := rows.Scan(
			&service.ID,
			&service.OrganizationID,
			&service.Name,
			&service.Description,
			&service.CreatedAt,
			&service.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, &service)
	}
	return services, rows.Err()
}

// UpdateService updates a service's mutable fields.
func (r *Repository) UpdateService(ctx context.Context, service *domain.Service) error {
	query := `
		UPDATE services
		SET name = $3, description = $4, updated_at = NOW()
		WHERE id = $1 AND organization_id = $2
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		service.ID,
		service.OrganizationID,
		service.Name,
		service.Description,
	).Scan(&service.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.ErrServiceNotFound
		}
		return fmt.Errorf("update service: %w", err)
	}
	return nil
}

// DeleteService removes a service scoped to the organization. The reference
// check and the delete are one statement, so a concurrent incident write
// cannot slip between them; the row lock the delete takes conflicts with
// the foreign-key share lock an association insert holds.
func (r *Repository) DeleteService(ctx context.Context, organizationID, id string) error {
	query := `
		DELETE FROM services s
		WHERE s.id = $1 AND s.organization_id = $2
		  AND NOT EXISTS (
			SELECT 1 FROM incident_services ins WHERE ins.service_id = s.id
		  )
	`
	result, err := r.db.Exec(ctx, query, id, organizationID)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	err = r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM services WHERE id = $1 AND organization_id = $2)`,
		id, organizationID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check service existence: %w", err)
	}
	if exists {
		return catalog.ErrServiceInUse
	}
	return catalog.ErrServiceNotFound
}
