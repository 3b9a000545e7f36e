package catalog

import (
	"context"

	"github.com/JVK-PAGE/status-page-plivo/internal/domain"
	"github.com/JVK-PAGE/status-page-plivo/internal/identity"
)

// Service implements service catalog business logic.
type Service struct {
	repo Repository
}

// NewService creates a new catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateService creates a service within the caller's organization.
func (s *Service) CreateService(ctx context.Context, session identity.Session, service *domain.Service) error {
	org, err := s.authorizeOrg(ctx, session, service.OrganizationID)
	if err != nil {
		return err
	}
	service.OrganizationID = org.ID
	return s.repo.CreateService(ctx, service)
}

// GetService retrieves a service within the caller's organization.
func (s *Service) GetService(ctx context.Context, session identity.Session, organizationID, id string) (*domain.Service, error) {
	org, err := s.authorizeOrg(ctx, session, organizationID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetService(ctx, org.ID, id)
}

// ListServices lists the organization's services.
func (s *Service) ListServices(ctx context.Context, session identity.Session, organizationID string) ([]*domain.Service, error) {
	org, err := s.authorizeOrg(ctx, session, organizationID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListServices(ctx, org.ID)
}

// UpdateService updates a service's name and description.
func (s *Service) UpdateService(ctx context.Context, session identity.Session, service *domain.Service) error {
	org, err := s.authorizeOrg(ctx, session, service.OrganizationID)
	if err != nil {
		return err
	}
	service.OrganizationID = org.ID
	return s.repo.UpdateService(ctx, service)
}

// DeleteService removes a service. A service referenced by any incident,
// resolved ones included, cannot be deleted; every incident keeps at least
// one associated service for as long as it exists. Re-scoping the incidents
// first is the way to retire a service.
func (s *Service) DeleteService(ctx context.Context, session identity.Session, organizationID, id string) error {
	org, err := s.authorizeOrg(ctx, session, organizationID)
	if err != nil {
		return err
	}

	return s.repo.DeleteService(ctx, org.ID, id)
}

func (s *Service) authorizeOrg(ctx context.Context, session identity.Session, organizationID string) (*domain.Organization, error) {
	org, err := s.repo.GetOrganizationByID(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if org.AuthProviderID != session.OrgAuthID {
		return nil, ErrOrganizationNotFound
	}
	return org, nil
}
