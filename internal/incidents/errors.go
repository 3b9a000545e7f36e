package incidents

import "errors"

// Domain errors. An organization that exists but belongs to another tenant
// is reported identically to one that does not exist, so callers cannot
// probe for other tenants' records. The same policy applies to incidents
// and to unresolved service references.
var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrIncidentNotFound     = errors.New("incident not found")
	ErrServicesNotFound     = errors.New("one or more services not found")
)
