package ingest

// CompanyRow is one line of the companies export.
type CompanyRow struct {
	ID          int64
	Description string
}

// Dataset is the raw input of one ingestion run.
type Dataset struct {
	Companies    []CompanyRow
	Industries   map[int64][]string
	Specialities map[int64][]string
	// SkippedRows counts company rows dropped for a missing or non-numeric id.
	SkippedRows int
}
