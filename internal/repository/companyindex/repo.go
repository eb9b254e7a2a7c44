// Package companyindex writes company documents into the search index.
package companyindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/peerdex/internal/db"
	"github.com/kailas-cloud/peerdex/internal/domain"
	"github.com/kailas-cloud/peerdex/internal/domain/company"
)

// store is the consumer interface for index building (ISP).
type store interface {
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, m *db.IndexMapping) error
	DeleteIndex(ctx context.Context, name string) error
	BulkIndex(ctx context.Context, index string, docs []db.BulkDocument) (db.BulkStats, error)
}

// Repo implements usecase/ingest.Index.
type Repo struct {
	store       store
	index       string
	dims        int
	inferenceID string
}

// New creates a company index repository.
func New(s store, index string, dims int, inferenceID string) *Repo {
	return &Repo{store: s, index: index, dims: dims, inferenceID: inferenceID}
}

// Name returns the index name.
func (r *Repo) Name() string { return r.index }

// Mapping returns the company index definition.
func (r *Repo) Mapping() (*db.IndexMapping, error) {
	m, err := db.NewMapping(r.index).
		Long(company.FieldCompanyID).
		Text(company.FieldDescription).
		Text(company.FieldIndustries).
		Text(company.FieldSpecialities).
		Text(company.FieldFullDescription, company.FieldSemantic).
		SemanticText(company.FieldSemantic, r.inferenceID).
		DenseVector(company.FieldEmbedding, r.dims, db.SimilarityCosine).
		Build()
	if err != nil {
		return nil, fmt.Errorf("company mapping: %w", err)
	}
	return m, nil
}

// Exists reports whether the index is already built.
func (r *Repo) Exists(ctx context.Context) (bool, error) {
	ok, err := r.store.IndexExists(ctx, r.index)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	return ok, nil
}

// Create creates the index. An index created concurrently by another run is not an error.
func (r *Repo) Create(ctx context.Context) error {
	m, err := r.Mapping()
	if err != nil {
		return err
	}
	if err := r.store.CreateIndex(ctx, m); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", r.index, err)
	}
	return nil
}

// Drop deletes the index. A missing index is not an error.
func (r *Repo) Drop(ctx context.Context) error {
	if err := r.store.DeleteIndex(ctx, r.index); err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil
		}
		return fmt.Errorf("delete index %s: %w", r.index, err)
	}
	return nil
}

// Write bulk indexes documents keyed by company id.
func (r *Repo) Write(ctx context.Context, docs []company.Document) (indexed, failed int64, err error) {
	if len(docs) == 0 {
		return 0, 0, nil
	}

	bulk := make([]db.BulkDocument, 0, len(docs))
	for _, d := range docs {
		body, mErr := json.Marshal(toDTO(d))
		if mErr != nil {
			return 0, 0, fmt.Errorf("marshal company %d: %w", d.CompanyID(), mErr)
		}
		bulk = append(bulk, db.BulkDocument{ID: d.DocID(), Body: body})
	}

	stats, err := r.store.BulkIndex(ctx, r.index, bulk)
	if err != nil {
		return int64(stats.Indexed), int64(stats.Failed), fmt.Errorf("bulk index: %w", err)
	}
	return int64(stats.Indexed), int64(stats.Failed), nil
}
