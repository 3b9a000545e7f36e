package domain

import "time"

// Service represents an independently reportable unit of an organization's
// infrastructure. Services are referenced by incidents but never mutated by
// the incident write path.
type Service struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
