package catalog

import "errors"

// Domain errors.
var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrServiceNotFound      = errors.New("service not found")
	ErrServiceInUse         = errors.New("service is referenced by incidents")
)
