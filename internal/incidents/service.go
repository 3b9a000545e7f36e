package incidents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JVK-PAGE/status-page-plivo/internal/domain"
	"github.com/JVK-PAGE/status-page-plivo/internal/identity"
	"github.com/JVK-PAGE/status-page-plivo/internal/pkg/ctxlog"
	"github.com/JVK-PAGE/status-page-plivo/internal/realtime"
	"github.com/jackc/pgx/v5"
)

// Event names published on the organization channel.
const (
	EventIncidentCreated = "incident-created"
	EventIncidentUpdated = "incident-updated"
)

const defaultWriteTimeout = 30 * time.Second

// Service implements the incident write path: authorization scoping, the
// atomic incident/association write, and the post-commit fan-out.
type Service struct {
	repo         Repository
	publisher    realtime.Publisher
	writeTimeout time.Duration
}

// NewService creates a new incident service.
func NewService(repo Repository, publisher realtime.Publisher) *Service {
	return &Service{
		repo:         repo,
		publisher:    publisher,
		writeTimeout: defaultWriteTimeout,
	}
}

// IncidentInput is a validated incident intent. ServiceIDs is a non-empty
// ordered-unique set of syntactically valid service identifiers.
type IncidentInput struct {
	Title          string
	Description    string
	Status         domain.IncidentStatus
	Impact         domain.IncidentImpact
	Type           domain.IncidentType
	OrganizationID string
	ServiceIDs     []string
}

// CreateIncident authorizes the intent against the caller's session, writes
// the incident and its service associations in one transaction, and
// publishes the hydrated result to the organization channel after commit.
func (s *Service) CreateIncident(ctx context.Context, session identity.Session, input IncidentInput) (*domain.Incident, error) {
	org, err := s.authorize(ctx, session, input.OrganizationID, input.ServiceIDs)
	if err != nil {
		return nil, err
	}

	incident := &domain.Incident{
		OrganizationID: org.ID,
		Title:          input.Title,
		Description:    input.Description,
		Status:         input.Status,
		Impact:         input.Impact,
		Type:           input.Type,
	}
	if incident.Status.IsResolved() {
		now := time.Now()
		incident.ResolvedAt = &now
	}

	// Once authorized, the write runs to completion (or full rollback)
	// even if the caller disconnects mid-request.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()

	tx, err := s.repo.BeginTx(writeCtx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer s.rollback(writeCtx, tx)

	if err := s.repo.CreateIncidentTx(writeCtx, tx, incident); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}

	if err := s.repo.ReplaceIncidentServicesTx(writeCtx, tx, incident.ID, input.ServiceIDs); err != nil {
		return nil, fmt.Errorf("associate services: %w", err)
	}

	services, err := s.repo.GetIncidentServicesTx(writeCtx, tx, incident.ID)
	if err != nil {
		return nil, fmt.Errorf("hydrate services: %w", err)
	}
	incident.Services = services

	if err := tx.Commit(writeCtx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	s.notify(writeCtx, org.ID, EventIncidentCreated, incident)
	recordIncidentWrite("create")

	return incident, nil
}

// UpdateIncident overwrites the mutable fields of an existing incident and
// replaces its entire service association set in one transaction. The prior
// associations are deleted and the new set inserted rather than diffed, so
// no stale or duplicate association can survive the change.
func (s *Service) UpdateIncident(ctx context.Context, session identity.Session, incidentID string, input IncidentInput) (*domain.Incident, error) {
	org, err := s.authorize(ctx, session, input.OrganizationID, input.ServiceIDs)
	if err != nil {
		return nil, err
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()

	tx, err := s.repo.BeginTx(writeCtx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer s.rollback(writeCtx, tx)

	// Row lock serializes concurrent updates to the same incident; updates
	// to different incidents do not block each other. The lookup also
	// establishes, before any write, that the incident exists within the
	// caller's organization.
	incident, err := s.repo.GetIncidentForUpdateTx(writeCtx, tx, org.ID, incidentID)
	if err != nil {
		return nil, err
	}

	incident.Title = input.Title
	incident.Description = input.Description
	incident.Status = input.Status
	incident.Impact = input.Impact
	incident.Type = input.Type

	switch {
	case incident.Status.IsResolved() && incident.ResolvedAt == nil:
		now := time.Now()
		incident.ResolvedAt = &now
	case !incident.Status.IsResolved():
		incident.ResolvedAt = nil
	}

	if err := s.repo.UpdateIncidentTx(writeCtx, tx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}

	if err := s.repo.ReplaceIncidentServicesTx(writeCtx, tx, incident.ID, input.ServiceIDs); err != nil {
		return nil, fmt.Errorf("replace services: %w", err)
	}

	services, err := s.repo.GetIncidentServicesTx(writeCtx, tx, incident.ID)
	if err != nil {
		return nil, fmt.Errorf("hydrate services: %w", err)
	}
	incident.Services = services

	if err := tx.Commit(writeCtx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	s.notify(writeCtx, org.ID, EventIncidentUpdated, incident)
	recordIncidentWrite("update")

	return incident, nil
}

// GetIncident retrieves a hydrated incident within the caller's organization.
func (s *Service) GetIncident(ctx context.Context, session identity.Session, organizationID, incidentID string) (*domain.Incident, error) {
	org, err := s.authorizeOrg(ctx, session, organizationID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetIncident(ctx, org.ID, incidentID)
}

// ListIncidents retrieves incidents of the caller's organization.
func (s *Service) ListIncidents(ctx context.Context, session identity.Session, organizationID string, filters IncidentFilters) ([]*domain.Incident, error) {
	org, err := s.authorizeOrg(ctx, session, organizationID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListIncidents(ctx, org.ID, filters)
}

// authorize confirms the caller may act on the organization and that every
// referenced service resolves within it. All checks pass before any write.
func (s *Service) authorize(ctx context.Context, session identity.Session, organizationID string, serviceIDs []string) (*domain.Organization, error) {
	org, err := s.authorizeOrg(ctx, session, organizationID)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountServicesInOrg(ctx, org.ID, serviceIDs)
	if err != nil {
		return nil, fmt.Errorf("count services: %w", err)
	}
	// An exact count match proves each requested id resolves to a service
	// owned by this organization. A miss may mean a nonexistent service or
	// a cross-tenant reference; the two are indistinguishable to callers.
	if count != len(serviceIDs) {
		return nil, ErrServicesNotFound
	}

	return org, nil
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

// notify publishes the hydrated incident on the organization channel. It
// runs strictly after commit; a failed publish is logged and counted but
// never turns the committed write into a caller-visible failure.
func (s *Service) notify(ctx context.Context, organizationID, event string, incident *domain.Incident) {
	channel := realtime.OrgChannel(organizationID)
	if err := s.publisher.Publish(ctx, channel, event, incident); err != nil {
		ctxlog.FromContext(ctx).Error("failed to publish incident event",
			"incident_id", incident.ID,
			"channel", channel,
			"event", event,
			"error", err,
		)
		recordNotifyFailure(event)
	}
}

func (s *Service) rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		ctxlog.FromContext(ctx).Error("failed to rollback transaction", "error", err)
	}
}
