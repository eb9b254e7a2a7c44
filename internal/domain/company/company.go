// Package company defines the fixed-shape company profile held by the search index.
package company

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/peerdex/internal/domain"
)

// Index field names.
const (
	FieldCompanyID       = "company_id"
	FieldDescription     = "description"
	FieldIndustries      = "industries"
	FieldSpecialities    = "specialities"
	FieldFullDescription = "full_description"
	FieldSemantic        = "full_description_semantic"
	FieldEmbedding       = "full_description_embedding"
)

// Document is an immutable company profile.
// Industries and specialities default to empty slices, never nil.
type Document struct {
	docID           string
	companyID       int64
	description     string
	industries      []string
	specialities    []string
	fullDescription string
	embedding       []float32
}

// New builds a validated document at the ingestion boundary.
// Text fields are normalized and full_description is composed as
// specialities, then industries, then the description.
func New(companyID int64, description string, industries, specialities []string) (Document, error) {
	if companyID <= 0 {
		return Document{}, fmt.Errorf("%w: company_id must be positive, got %d", domain.ErrInvalidDocument, companyID)
	}

	ind := NormalizeAll(industries)
	spec := NormalizeAll(specialities)

	parts := make([]string, 0, len(ind)+len(spec)+1)
	parts = append(parts, spec...)
	parts = append(parts, ind...)
	parts = append(parts, Normalize(description))
	full := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")

	if full == "" {
		return Document{}, fmt.Errorf("%w: company %d has empty full_description", domain.ErrInvalidDocument, companyID)
	}

	return Document{
		docID:           strconv.FormatInt(companyID, 10),
		companyID:       companyID,
		description:     description,
		industries:      ind,
		specialities:    spec,
		fullDescription: full,
	}, nil
}

// Reconstruct restores a document read back from the index (no validation).
func Reconstruct(
	docID string,
	companyID int64,
	description string,
	industries, specialities []string,
	fullDescription string,
	embedding []float32,
) Document {
	if industries == nil {
		industries = []string{}
	}
	if specialities == nil {
		specialities = []string{}
	}
	return Document{
		docID:           docID,
		companyID:       companyID,
		description:     description,
		industries:      industries,
		specialities:    specialities,
		fullDescription: fullDescription,
		embedding:       embedding,
	}
}

// WithEmbedding returns a copy carrying the dense vector.
func (d Document) WithEmbedding(vec []float32) Document {
	d.embedding = vec
	return d
}

// DocID returns the engine-level document id.
func (d Document) DocID() string { return d.docID }

// CompanyID returns the business identifier.
func (d Document) CompanyID() int64 { return d.companyID }

// Description returns the raw description.
func (d Document) Description() string { return d.description }

// Industries returns normalized industry tokens.
func (d Document) Industries() []string { return d.industries }

// Specialities returns normalized speciality tokens.
func (d Document) Specialities() []string { return d.specialities }

// FullDescription returns the normalized text used for lexical and semantic matching.
func (d Document) FullDescription() string { return d.fullDescription }

// Embedding returns the dense vector (nil when not loaded).
func (d Document) Embedding() []float32 { return d.embedding }

// HasEmbedding reports whether a dense vector is present.
func (d Document) HasEmbedding() bool { return len(d.embedding) > 0 }
