package peerdex

import "github.com/kailas-cloud/peerdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrCompanyNotFound   = domain.ErrSeedNotFound
	ErrInvalidCompanyID  = domain.ErrInvalidCompanyID
	ErrInvalidPagination = domain.ErrInvalidPagination
	ErrInvalidStrategy   = domain.ErrInvalidStrategy
	ErrIndexUnavailable  = domain.ErrIndexUnavailable
)
