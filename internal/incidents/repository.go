package incidents

import (
	"context"

	"github.com/JVK-PAGE/status-page-plivo/internal/domain"
	"github.com/jackc/pgx/v5"
)

// Repository defines the interface for incident storage. Every operation
// that touches tenant-owned rows takes the organization id as an explicit
// argument; there is no ambient tenant filter to forget.
type Repository interface {
	GetOrganizationByID(ctx context.Context, id string) (*domain.Organization, error)
	CountServicesInOrg(ctx context.Context, organizationID string, serviceIDs []string) (int, error)

	GetIncident(ctx context.Context, organizationID, id string) (*domain.Incident, error)
	ListIncidents(ctx context.Context, organizationID string, filters IncidentFilters) ([]*domain.Incident, error)

	// Transaction support. The two-entity write (incident row plus its
	// service associations) always runs inside a single transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CreateIncidentTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error
	GetIncidentForUpdateTx(ctx context.Context, tx pgx.Tx, organizationID, id string) (*domain.Incident, error)
	UpdateIncidentTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error
	ReplaceIncidentServicesTx(ctx context.Context, tx pgx.Tx, incidentID string, serviceIDs []string) error
	GetIncidentServicesTx(ctx context.Context, tx pgx.Tx, incidentID string) ([]domain.Service, error)
}

// IncidentFilters holds filter options for listing incidents.
type IncidentFilters struct {
	Status *domain.IncidentStatus
	Type   *domain.IncidentType
	Limit  int
	Offset int
}
