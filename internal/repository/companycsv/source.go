// Package companycsv reads the company CSV exports used to build the index.
package companycsv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/peerdex/internal/domain/ingest"
)

// Source reads the three exports from a directory.
type Source struct {
	dir              string
	companiesFile    string
	industriesFile   string
	specialitiesFile string
	logger           *zap.Logger
}

// New creates a CSV source.
func New(dir, companiesFile, industriesFile, specialitiesFile string, logger *zap.Logger) *Source {
	return &Source{
		dir:              dir,
		companiesFile:    companiesFile,
		industriesFile:   industriesFile,
		specialitiesFile: specialitiesFile,
		logger:           logger,
	}
}

// Load reads all files. The companies file is required; a missing attribute
// file is logged and treated as empty.
func (s *Source) Load(ctx context.Context) (ingest.Dataset, error) {
	var ds ingest.Dataset

	f, err := os.Open(filepath.Join(s.dir, s.companiesFile))
	if err != nil {
		return ingest.Dataset{}, fmt.Errorf("open companies: %w", err)
	}
	defer func() { _ = f.Close() }()

	ds.Companies, ds.SkippedRows, err = ReadCompanies(ctx, f)
	if err != nil {
		return ingest.Dataset{}, fmt.Errorf("read %s: %w", s.companiesFile, err)
	}

	if ds.Industries, err = s.loadAttributes(ctx, s.industriesFile); err != nil {
		return ingest.Dataset{}, err
	}
	if ds.Specialities, err = s.loadAttributes(ctx, s.specialitiesFile); err != nil {
		return ingest.Dataset{}, err
	}

	return ds, nil
}

func (s *Source) loadAttributes(ctx context.Context, name string) (map[int64][]string, error) {
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("Attribute file not found, continuing without it", zap.String("file", name))
		return map[int64][]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	attrs, err := ReadAttributes(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return attrs, nil
}

// ReadCompanies parses the companies export. The first column is the id and a
// column named "description" (any case) holds the text. Rows with a bad id are skipped.
func ReadCompanies(ctx context.Context, r io.Reader) ([]ingest.CompanyRow, int, error) {
	cr := newReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	descCol := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), "description") {
			descCol = i
			break
		}
	}
	if descCol < 0 {
		return nil, 0, errors.New("header has no description column")
	}

	var (
		rows    []ingest.CompanyRow
		skipped int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", len(rows)+skipped+2, err)
		}

		id, ok := parseID(rec[0])
		if !ok {
			skipped++
			continue
		}
		desc := ""
		if descCol < len(rec) {
			desc = rec[descCol]
		}
		rows = append(rows, ingest.CompanyRow{ID: id, Description: desc})
	}
	return rows, skipped, nil
}

// ReadAttributes parses an "id,attribute" export (header skipped) and groups
// attributes by id in file order.
func ReadAttributes(ctx context.Context, r io.Reader) (map[int64][]string, error) {
	cr := newReader(r)

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return map[int64][]string{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	out := make(map[int64][]string)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) < 2 {
			continue
		}
		id, ok := parseID(rec[0])
		if !ok {
			continue
		}
		if attr := strings.TrimSpace(rec[1]); attr != "" {
			out[id] = append(out[id], attr)
		}
	}
	return out, nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	return cr
}

func parseID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	// Some exports write ids as floats ("123.0").
	s = strings.TrimSuffix(s, ".0")
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
