// Package peerdex finds companies similar to a given company in an
// Elasticsearch index built by peerdex-ingest.
//
// Three strategies are available:
//   - TFIDF ranks by shared informative terms (more-like-this)
//   - Semantic ranks by industry overlap plus sparse semantic relevance
//   - DenseVector ranks by cosine similarity of description embeddings
//
// Usage:
//
//	client, err := peerdex.New(ctx,
//	    peerdex.WithElasticsearch("https://localhost:9200"),
//	    peerdex.WithBasicAuth("elastic", password),
//	    peerdex.WithIndex("companies"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	page, err := client.Semantic(ctx, 1337, 1, 10)
//	if errors.Is(err, peerdex.ErrCompanyNotFound) {
//	    // unknown seed company
//	}
//	for _, hit := range page.Hits {
//	    fmt.Println(hit.ID, hit.Score)
//	}
package peerdex
