package catalog

import (
	"context"

	"github.com/JVK-PAGE/status-page-plivo/internal/domain"
)

// Repository defines the interface for service catalog storage. The
// organization id is a mandatory argument on every tenant-owned lookup.
type Repository interface {
	GetOrganizationByID(ctx context.Context, id string) (*domain.Organization, error)

	CreateService(ctx context.Context, service *domain.Service) error
	GetService(ctx context.Context, organizationID, id string) (*domain.Service, error)
	ListServices(ctx context.Context, organizationID string) ([]*domain.Service, error)
	UpdateService(ctx context.Context, service *domain.Service) error

	// DeleteService removes the service only when no incident references
	// it; the check and the delete are one atomic statement. Returns
	// ErrServiceInUse when any incident still holds an association.
	DeleteService(ctx context.Context, organizationID, id string) error
}
