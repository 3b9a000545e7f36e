// Package domain contains the core entities of the status page.
package domain

import "time"

// Organization is the tenant boundary. Every service and incident belongs
// to exactly one organization; cross-entity references never resolve
// across it. AuthProviderID is the identifier the external identity
// provider uses for this organization and is what session claims are
// matched against.
type Organization struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	AuthProviderID string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
