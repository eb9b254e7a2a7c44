package strategy

// Strategy is the similarity retrieval paradigm.
type Strategy string

// Similarity strategy constants.
const (
	// TFIDF finds companies sharing informative terms (more-like-this).
	TFIDF       Strategy = "tf_idf"
	// Semantic combines industry overlap with sparse semantic relevance.
	Semantic    Strategy = "semantic"
	// DenseVector runs k-nearest-neighbor search over the description embedding.
	DenseVector Strategy = "dense_vector"
)

// All lists every supported strategy in a stable order.
func All() []Strategy {
	return []Strategy{TFIDF, Semantic, DenseVector}
}

// IsValid checks if the strategy is one of the supported values.
func (s Strategy) IsValid() bool {
	return s == TFIDF || s == Semantic || s == DenseVector
}

// String implements fmt.Stringer.
func (s Strategy) String() string { return string(s) }
