package similarity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/peerdex/internal/db"
	"github.com/kailas-cloud/peerdex/internal/domain/company"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/result"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/strategy"
)

// seedSource is the subset of _source read back for seed documents.
// Older indexes stored company_id as a string and industries as one string, both are accepted.
type seedSource struct {
	CompanyID       flexInt    `json:"company_id"`
	Description     string     `json:"description"`
	Industries      stringList `json:"industries"`
	Specialities    stringList `json:"specialities"`
	FullDescription string     `json:"full_description"`
	Embedding       []float32  `json:"full_description_embedding"`
}

func decodeSeed(hit db.SearchHit, requested int64) (company.Document, error) {
	var src seedSource
	if len(hit.Source) > 0 {
		if err := json.Unmarshal(hit.Source, &src); err != nil {
			return company.Document{}, fmt.Errorf("decode seed %s: %w", hit.ID, err)
		}
	}

	id := int64(src.CompanyID)
	if id == 0 {
		id = requested
	}

	return company.Reconstruct(
		hit.ID,
		id,
		src.Description,
		src.Industries,
		src.Specialities,
		src.FullDescription,
		src.Embedding,
	), nil
}

func toPage(s strategy.Strategy, sr *db.SearchResult) result.Page {
	hits := make([]result.Hit, len(sr.Hits))
	for i, h := range sr.Hits {
		hits[i] = result.Hit{Index: h.Index, ID: h.ID, Score: h.Score, Source: h.Source}
	}
	return result.New(s, sr.Total, sr.MaxScore, hits).WithRelation(sr.TotalRelation)
}

type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("company_id %q: %w", s, err)
		}
		*f = flexInt(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*l = []string{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*l = []string{}
			return nil
		}
		*l = []string{s}
		return nil
	default:
		var v []string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*l = v
		return nil
	}
}
