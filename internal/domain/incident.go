package domain

import "time"

// IncidentType represents the type of an incident record.
type IncidentType string

// Incident types.
const (
	IncidentTypeIncident    IncidentType = "incident"
	IncidentTypeMaintenance IncidentType = "maintenance"
)

// IsValid checks if the incident type is valid.
func (t IncidentType) IsValid() bool {
	return t == IncidentTypeIncident || t == IncidentTypeMaintenance
}

// IncidentStatus represents the current lifecycle stage of an incident.
type IncidentStatus string

// Incident statuses. The progression investigating → identified →
// monitoring → resolved is the usual flow but is not enforced: an update
// may set any valid status.
const (
	IncidentStatusInvestigating IncidentStatus = "investigating"
	IncidentStatusIdentified    IncidentStatus = "identified"
	IncidentStatusMonitoring    IncidentStatus = "monitoring"
	IncidentStatusResolved      IncidentStatus = "resolved"
)

// IsValid checks if the incident status is valid.
func (s IncidentStatus) IsValid() bool {
	switch s {
	case IncidentStatusInvestigating, IncidentStatusIdentified,
		IncidentStatusMonitoring, IncidentStatusResolved:
		return true
	}
	return false
}

// IsResolved checks if the status represents a resolved state.
func (s IncidentStatus) IsResolved() bool {
	return s == IncidentStatusResolved
}

// IncidentImpact represents the severity classification of an incident.
type IncidentImpact string

// Impact levels.
const (
	IncidentImpactMinor    IncidentImpact = "minor"
	IncidentImpactMajor    IncidentImpact = "major"
	IncidentImpactCritical IncidentImpact = "critical"
)

// IsValid checks if the impact level is valid.
func (i IncidentImpact) IsValid() bool {
	return i == IncidentImpactMinor || i == IncidentImpactMajor || i == IncidentImpactCritical
}

// Incident represents a recorded disruption or scheduled maintenance
// affecting one or more services of an organization. Services holds the
// hydrated service records, not just identifiers; an incident always has at
// least one associated service.
type Incident struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Status         IncidentStatus `json:"status"`
	Impact         IncidentImpact `json:"impact"`
	Type           IncidentType   `json:"type"`
	Services       []Service      `json:"services"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty"`
}

// ServiceIDs returns the identifiers of the associated services.
func (i *Incident) ServiceIDs() []string {
	ids := make([]string, len(i.Services))
	for n, svc := range i.Services {
		ids[n] = svc.ID
	}
	return ids
}
