// Package query models the per-request similarity query as a closed set of variants.
package query

import (
	"fmt"

	"github.com/kailas-cloud/peerdex/internal/domain"
	"github.com/kailas-cloud/peerdex/internal/domain/company"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/request"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/strategy"
)

// Query is one of LexicalOverlap, SparseSemantic or DenseVector.
type Query interface {
	Strategy() strategy.Strategy
	Window() Window
	sealed()
}

// Window is the result slice requested from the index.
type Window struct {
	Size   int
	Offset int
}

// LexicalOverlap asks for documents sharing informative terms with the seed document.
type LexicalOverlap struct {
	SeedDocID string
	window    Window
}

// SparseSemantic combines a hard industries match with semantic relevance on the description.
type SparseSemantic struct {
	Industries      []string
	FullDescription string
	window          Window
}

// DenseVector asks for the nearest neighbours of the seed embedding.
type DenseVector struct {
	Embedding []float32
	window    Window
}

// Strategy implements Query.
func (LexicalOverlap) Strategy() strategy.Strategy { return strategy.TFIDF }

// Window implements Query.
func (q LexicalOverlap) Window() Window { return q.window }

func (LexicalOverlap) sealed() {}

// Strategy implements Query.
func (SparseSemantic) Strategy() strategy.Strategy { return strategy.Semantic }

// Window implements Query.
func (q SparseSemantic) Window() Window { return q.window }

func (SparseSemantic) sealed() {}

// Strategy implements Query.
func (DenseVector) Strategy() strategy.Strategy { return strategy.DenseVector }

// Window implements Query.
func (q DenseVector) Window() Window { return q.window }

func (DenseVector) sealed() {}

// For derives the strategy-specific query from a resolved seed document.
func For(s strategy.Strategy, seed company.Document, req request.Request) (Query, error) {
	w := Window{Size: req.Size(), Offset: req.Offset()}

	switch s {
	case strategy.TFIDF:
		if seed.DocID() == "" {
			return nil, fmt.Errorf("%w: seed %d has no document id", domain.ErrSeedNotFound, seed.CompanyID())
		}
		return LexicalOverlap{SeedDocID: seed.DocID(), window: w}, nil
	case strategy.Semantic:
		return SparseSemantic{
			Industries:      seed.Industries(),
			FullDescription: seed.FullDescription(),
			window:          w,
		}, nil
	case strategy.DenseVector:
		if !seed.HasEmbedding() {
			return nil, fmt.Errorf("%w: seed %d has no embedding", domain.ErrSeedNotFound, seed.CompanyID())
		}
		return DenseVector{Embedding: seed.Embedding(), window: w}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStrategy, s)
	}
}
