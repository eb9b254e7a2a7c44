package similarity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/peerdex/internal/db"
	"github.com/kailas-cloud/peerdex/internal/domain"
	"github.com/kailas-cloud/peerdex/internal/domain/company"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/query"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/result"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/strategy"
)

// store is the consumer interface for similarity retrieval (ISP).
type store interface {
	Search(ctx context.Context, req *db.SearchRequest) (*db.SearchResult, error)
	SearchKNN(ctx context.Context, req *db.KNNRequest) (*db.SearchResult, error)
}

// Settings shapes the queries sent to the index.
type Settings struct {
	Index               string
	SeedField           string
	MLTFields           []string
	MLTMinTermFreq      int
	MLTMaxQueryTerms    int
	IndustriesBoost     float64
	SemanticBoost       float64
	KNNNumCandidates    int
	ExcludeSourceFields []string
}

// DefaultSettings returns the query shaping used by the public endpoints.
func DefaultSettings(index string) Settings {
	return Settings{
		Index:     index,
		SeedField: company.FieldCompanyID,
		MLTFields: []string{
			company.FieldIndustries,
			company.FieldSpecialities,
			company.FieldDescription,
		},
		MLTMinTermFreq:      1,
		MLTMaxQueryTerms:    12,
		IndustriesBoost:     2.0,
		SemanticBoost:       1.5,
		KNNNumCandidates:    100,
		ExcludeSourceFields: []string{company.FieldEmbedding},
	}
}

// Repo implements usecase/similarity.Repository on top of the search store.
type Repo struct {
	store store
	cfg   Settings
}

// New creates a similarity repository. Zero-valued settings fall back to DefaultSettings.
func New(s store, cfg Settings) *Repo {
	def := DefaultSettings(cfg.Index)
	if cfg.SeedField == "" {
		cfg.SeedField = def.SeedField
	}
	if len(cfg.MLTFields) == 0 {
		cfg.MLTFields = def.MLTFields
	}
	if cfg.MLTMinTermFreq <= 0 {
		cfg.MLTMinTermFreq = def.MLTMinTermFreq
	}
	if cfg.MLTMaxQueryTerms <= 0 {
		cfg.MLTMaxQueryTerms = def.MLTMaxQueryTerms
	}
	if cfg.IndustriesBoost <= 0 {
		cfg.IndustriesBoost = def.IndustriesBoost
	}
	if cfg.SemanticBoost <= 0 {
		cfg.SemanticBoost = def.SemanticBoost
	}
	if cfg.KNNNumCandidates <= 0 {
		cfg.KNNNumCandidates = def.KNNNumCandidates
	}
	if cfg.ExcludeSourceFields == nil {
		cfg.ExcludeSourceFields = def.ExcludeSourceFields
	}
	return &Repo{store: s, cfg: cfg}
}

// Index returns the index name queries are sent to.
func (r *Repo) Index() string { return r.cfg.Index }

// ResolveSeed finds the seed document by exact match on the company id.
// Zero hits -> domain.ErrSeedNotFound. Store failure -> domain.ErrIndexUnavailable.
func (r *Repo) ResolveSeed(ctx context.Context, companyID int64, s strategy.Strategy) (company.Document, error) {
	req := &db.SearchRequest{
		Index:  r.cfg.Index,
		Query:  db.Terms(r.cfg.SeedField, companyID),
		Size:   1,
		Source: db.SourceFilter{Includes: seedFields(s)},
	}

	sr, err := r.store.Search(ctx, req)
	if err != nil {
		return company.Document{}, fmt.Errorf("%w: resolve seed %d: %w", domain.ErrIndexUnavailable, companyID, err)
	}
	if len(sr.Hits) == 0 {
		return company.Document{}, fmt.Errorf("%w: company_id=%d", domain.ErrSeedNotFound, companyID)
	}

	return decodeSeed(sr.Hits[0], companyID)
}

// seedFields limits the seed _source to what the strategy consumes.
func seedFields(s strategy.Strategy) []string {
	switch s {
	case strategy.Semantic:
		return []string{company.FieldCompanyID, company.FieldIndustries, company.FieldFullDescription}
	case strategy.DenseVector:
		return []string{company.FieldCompanyID, company.FieldEmbedding}
	default:
		return []string{company.FieldCompanyID}
	}
}

// Execute runs the strategy query. On a store failure it returns a failed page
// together with an error wrapping domain.ErrIndexUnavailable.
func (r *Repo) Execute(ctx context.Context, q query.Query) (result.Page, error) {
	var (
		sr  *db.SearchResult
		err error
	)

	switch v := q.(type) {
	case query.LexicalOverlap:
		sr, err = r.searchLexical(ctx, v)
	case query.SparseSemantic:
		sr, err = r.searchSemantic(ctx, v)
	case query.DenseVector:
		sr, err = r.store.SearchKNN(ctx, r.knnRequest(v))
	default:
		return result.Page{}, fmt.Errorf("%w: %T", domain.ErrInvalidStrategy, q)
	}

	if err != nil {
		if errors.Is(err, errBuild) {
			return result.Page{}, err
		}
		return result.Failed(q.Strategy(), FailureOf(err)),
			fmt.Errorf("%w: %s query: %w", domain.ErrIndexUnavailable, q.Strategy(), err)
	}

	return toPage(q.Strategy(), sr), nil
}

var errBuild = errors.New("build query")

func (r *Repo) searchLexical(ctx context.Context, v query.LexicalOverlap) (*db.SearchResult, error) {
	mlt, err := db.NewMoreLikeThis(r.cfg.MLTFields...).
		Like(r.cfg.Index, v.SeedDocID).
		MinTermFreq(r.cfg.MLTMinTermFreq).
		MaxQueryTerms(r.cfg.MLTMaxQueryTerms).
		Include(true).
		Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBuild, err)
	}
	return r.store.Search(ctx, r.searchRequest(mlt, v.Window()))
}

func (r *Repo) searchSemantic(ctx context.Context, v query.SparseSemantic) (*db.SearchResult, error) {
	q, err := db.NewBool().
		Must(db.NewMultiMatch(strings.Join(v.Industries, " "), company.FieldIndustries).
			Boost(r.cfg.IndustriesBoost).
			Build()).
		Should(db.NewSemantic(company.FieldSemantic, v.FullDescription).
			Boost(r.cfg.SemanticBoost).
			Build()).
		Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBuild, err)
	}
	return r.store.Search(ctx, r.searchRequest(q, v.Window()))
}

func (r *Repo) searchRequest(q db.Query, w query.Window) *db.SearchRequest {
	return &db.SearchRequest{
		Index:  r.cfg.Index,
		Query:  q,
		Size:   w.Size,
		From:   w.Offset,
		Source: db.SourceFilter{Excludes: r.cfg.ExcludeSourceFields},
	}
}

// knnRequest uses k = page size; the candidate pool stays fixed regardless of size.
func (r *Repo) knnRequest(v query.DenseVector) *db.KNNRequest {
	w := v.Window()
	return &db.KNNRequest{
		Index:         r.cfg.Index,
		Field:         company.FieldEmbedding,
		Vector:        v.Embedding,
		K:             w.Size,
		NumCandidates: r.cfg.KNNNumCandidates,
		Size:          w.Size,
		From:          w.Offset,
		Source:        db.SourceFilter{Excludes: r.cfg.ExcludeSourceFields},
	}
}

// FailureOf classifies a store error into a page failure reason.
func FailureOf(err error) result.Failure {
	switch {
	case err == nil:
		return result.FailureNone
	case errors.Is(err, context.DeadlineExceeded):
		return result.FailureTimeout
	case errors.Is(err, db.ErrIndexNotFound):
		return result.FailureIndexMissing
	default:
		return result.FailureQuery
	}
}
