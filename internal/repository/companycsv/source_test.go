package companycsv

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestReadCompanies(t *testing.T) {
	in := `company_id,name,description
1,Acme,"Cloud software, for teams"
2,Globex,Industrial robotics
x,Broken,skipped
,Empty,skipped
3.0,Initech,Float id
`
	rows, skipped, err := ReadCompanies(context.Background(), strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].ID != 1 || rows[0].Description != "Cloud software, for teams" {
		t.Errorf("row[0] = %+v", rows[0])
	}
	if rows[2].ID != 3 {
		t.Errorf("row[2].ID = %d, want 3", rows[2].ID)
	}
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
}

func TestReadCompanies_DescriptionColumnRequired(t *testing.T) {
	_, _, err := ReadCompanies(context.Background(), strings.NewReader("id,name\n1,a\n"))
	if err == nil {
		t.Fatal("expected error without description column")
	}
}

func TestReadCompanies_ShortRow(t *testing.T) {
	rows, _, err := ReadCompanies(context.Background(), strings.NewReader("id,name,Description\n5,a\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].Description != "" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestReadAttributes(t *testing.T) {
	in := `company_id,industry
1, Software
1,IT Services
2,Robotics
bad,ignored
3,
`
	attrs, err := ReadAttributes(context.Background(), strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := attrs[1]; len(got) != 2 || got[0] != "Software" || got[1] != "IT Services" {
		t.Errorf("attrs[1] = %v", got)
	}
	if len(attrs[2]) != 1 {
		t.Errorf("attrs[2] = %v", attrs[2])
	}
	if _, ok := attrs[3]; ok {
		t.Error("blank attributes must be dropped")
	}
}

func TestReadAttributes_Empty(t *testing.T) {
	attrs, err := ReadAttributes(context.Background(), strings.NewReader(""))
	if err != nil || len(attrs) != 0 {
		t.Fatalf("attrs = %v, err = %v", attrs, err)
	}
}

func TestReadCompanies_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := ReadCompanies(ctx, strings.NewReader("id,description\n1,a\n"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestSource_Load(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "companies.csv", "id,description\n1,Acme cloud\n2,Globex\n")
	writeFile(t, dir, "company_industries.csv", "id,industry\n1,Software\n")

	src := New(dir, "companies.csv", "company_industries.csv", "company_specialities.csv", zap.NewNop())
	ds, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ds.Companies) != 2 {
		t.Errorf("companies = %d", len(ds.Companies))
	}
	if len(ds.Industries[1]) != 1 {
		t.Errorf("industries = %v", ds.Industries)
	}
	if ds.Specialities == nil || len(ds.Specialities) != 0 {
		t.Errorf("missing specialities file should load as empty, got %v", ds.Specialities)
	}
}

func TestSource_Load_MissingCompanies(t *testing.T) {
	src := New(t.TempDir(), "companies.csv", "i.csv", "s.csv", zap.NewNop())
	_, err := src.Load(context.Background())
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
