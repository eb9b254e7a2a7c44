package domain

import "errors"

var (
	// ErrSeedNotFound signals that the requested company has no document in the index.
	ErrSeedNotFound = errors.New("company not found")
	// ErrInvalidPagination signals a non-positive page/size or a window beyond the engine limit.
	ErrInvalidPagination = errors.New("invalid pagination")
	// ErrInvalidCompanyID signals a non-positive company identifier.
	ErrInvalidCompanyID = errors.New("invalid company id")
	// ErrInvalidStrategy signals an unknown similarity strategy.
	ErrInvalidStrategy = errors.New("invalid similarity strategy")
	// ErrIndexUnavailable signals that the index could not be queried.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrInvalidDocument signals a company document that fails validation at ingest.
	ErrInvalidDocument = errors.New("invalid company document")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrIngestRunning signals that an ingestion run is already in progress.
	ErrIngestRunning = errors.New("ingestion already running")
)
