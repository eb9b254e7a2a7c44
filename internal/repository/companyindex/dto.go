package companyindex

import "github.com/kailas-cloud/peerdex/internal/domain/company"

// docDTO is the stored _source. full_description_semantic is filled by copy_to.
type docDTO struct {
	CompanyID       int64     `json:"company_id"`
	Description     string    `json:"description"`
	Industries      []string  `json:"industries"`
	Specialities    []string  `json:"specialities"`
	FullDescription string    `json:"full_description"`
	Embedding       []float32 `json:"full_description_embedding,omitempty"`
}

func toDTO(d company.Document) docDTO {
	return docDTO{
		CompanyID:       d.CompanyID(),
		Description:     d.Description(),
		Industries:      d.Industries(),
		Specialities:    d.Specialities(),
		FullDescription: d.FullDescription(),
		Embedding:       d.Embedding(),
	}
}
