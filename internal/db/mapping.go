package db

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// FieldType enumerates supported mapping field types.
type FieldType string

const (
	// FieldLong is a 64-bit integer field.
	FieldLong FieldType = "long"
	// FieldKeyword is an exact-match string field.
	FieldKeyword FieldType = "keyword"
	// FieldText is an analyzed full-text field.
	FieldText FieldType = "text"
	// FieldSemanticText is an engine-managed semantic field backed by an inference endpoint.
	FieldSemanticText FieldType = "semantic_text"
	// FieldDenseVector is a fixed-length float vector field.
	FieldDenseVector FieldType = "dense_vector"
)

// Similarity is the dense_vector similarity function.
type Similarity string

const (
	// SimilarityCosine is cosine similarity.
	SimilarityCosine Similarity = "cosine"
	// SimilarityDotProduct is dot product similarity (unit vectors).
	SimilarityDotProduct Similarity = "dot_product"
	// SimilarityL2 is Euclidean similarity.
	SimilarityL2 Similarity = "l2_norm"
)

// MappingField describes a single field in an index mapping.
type MappingField struct {
	Name   string
	Type   FieldType
	CopyTo []string

	// semantic_text options
	InferenceID string

	// dense_vector options
	Dims       int
	Similarity Similarity
}

// IndexMapping is a complete index definition used by the create index API.
type IndexMapping struct {
	Name   string
	Fields []MappingField
}

// Validate checks that the mapping is well-formed.
func (m *IndexMapping) Validate() error {
	if m.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIndexName(m.Name) {
		return errors.New("index name contains invalid characters")
	}
	if len(m.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool, len(m.Fields))
	for i := range m.Fields {
		f := &m.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required at index " + strconv.Itoa(i))
		}
		if seen[f.Name] {
			return errors.New("duplicate field name: " + f.Name)
		}
		seen[f.Name] = true

		switch f.Type {
		case FieldDenseVector:
			if f.Dims <= 0 {
				return errors.New("dense_vector field requires positive dims: " + f.Name)
			}
		case FieldSemanticText:
			if f.InferenceID == "" {
				return errors.New("semantic_text field requires inference_id: " + f.Name)
			}
		}
	}

	for i := range m.Fields {
		for _, target := range m.Fields[i].CopyTo {
			if !seen[target] {
				return errors.New("copy_to target is not mapped: " + target)
			}
		}
	}

	return nil
}

// Body encodes the create index request body: {"mappings": {"properties": {...}}}.
func (m *IndexMapping) Body() ([]byte, error) {
	props := make(map[string]any, len(m.Fields))
	for i := range m.Fields {
		f := &m.Fields[i]
		p := map[string]any{"type": f.Type}
		if len(f.CopyTo) > 0 {
			p["copy_to"] = f.CopyTo
		}
		switch f.Type {
		case FieldSemanticText:
			p["inference_id"] = f.InferenceID
		case FieldDenseVector:
			p["dims"] = f.Dims
			p["index"] = true
			if f.Similarity != "" {
				p["similarity"] = f.Similarity
			}
		}
		props[f.Name] = p
	}
	data, err := json.Marshal(map[string]any{
		"mappings": map[string]any{"properties": props},
	})
	if err != nil {
		return nil, errors.New("encode mapping: " + err.Error())
	}
	return data, nil
}

// String returns a compact debug representation of the mapping.
func (m *IndexMapping) String() string {
	parts := []string{m.Name, "{"}
	for i := range m.Fields {
		f := &m.Fields[i]
		desc := f.Name + ":" + string(f.Type)
		if f.Type == FieldDenseVector {
			desc += "[" + strconv.Itoa(f.Dims) + "]"
		}
		if len(f.CopyTo) > 0 {
			desc += "->" + strings.Join(f.CopyTo, ",")
		}
		parts = append(parts, desc)
	}
	parts = append(parts, "}")
	return strings.Join(parts, " ")
}

// MappingBuilder is a fluent builder for index mappings.
type MappingBuilder struct {
	m IndexMapping
}

// NewMapping starts building an index mapping.
func NewMapping(name string) *MappingBuilder {
	return &MappingBuilder{m: IndexMapping{Name: name}}
}

// Long adds a long field.
func (b *MappingBuilder) Long(name string) *MappingBuilder {
	b.m.Fields = append(b.m.Fields, MappingField{Name: name, Type: FieldLong})
	return b
}

// Keyword adds a keyword field.
func (b *MappingBuilder) Keyword(name string) *MappingBuilder {
	b.m.Fields = append(b.m.Fields, MappingField{Name: name, Type: FieldKeyword})
	return b
}

// Text adds a text field, optionally copying its value into other fields.
func (b *MappingBuilder) Text(name string, copyTo ...string) *MappingBuilder {
	b.m.Fields = append(b.m.Fields, MappingField{Name: name, Type: FieldText, CopyTo: copyTo})
	return b
}

// SemanticText adds a semantic_text field bound to an inference endpoint.
func (b *MappingBuilder) SemanticText(name, inferenceID string) *MappingBuilder {
	b.m.Fields = append(b.m.Fields, MappingField{
		Name:        name,
		Type:        FieldSemanticText,
		InferenceID: inferenceID,
	})
	return b
}

// DenseVector adds an indexed dense_vector field.
func (b *MappingBuilder) DenseVector(name string, dims int, sim Similarity) *MappingBuilder {
	b.m.Fields = append(b.m.Fields, MappingField{
		Name:       name,
		Type:       FieldDenseVector,
		Dims:       dims,
		Similarity: sim,
	})
	return b
}

// Build validates and returns the mapping.
func (b *MappingBuilder) Build() (*IndexMapping, error) {
	if err := b.m.Validate(); err != nil {
		return nil, err
	}
	return &b.m, nil
}

// IsValidIndexName returns true if s matches [a-z0-9_.-]+ and does not start with _ - or +.
func IsValidIndexName(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	if s[0] == '_' || s[0] == '-' || s[0] == '+' {
		return false
	}
	for _, r := range s {
		isLower := r >= 'a' && r <= 'z'
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == '-' || r == '.'
		if !isLower && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
