package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/kailas-cloud/peerdex/internal/config"
	statusuc "github.com/kailas-cloud/peerdex/internal/usecase/status"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"run", "status"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered: %v", name, err)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("expected --config flag")
	}
}

func TestRunOptions_Apply(t *testing.T) {
	var cfg config.Config
	cfg.ApplyDefaults()

	opts := &runOptions{globalOptions: &globalOptions{}, workers: 8, dataDir: "/tmp/data"}
	opts.apply(&cfg)
	if cfg.Ingest.Workers != 8 || cfg.Ingest.DataDir != "/tmp/data" {
		t.Errorf("ingest = %+v", cfg.Ingest)
	}
	if cfg.Ingest.BatchSize != 500 {
		t.Errorf("unset flag should keep config batch size, got %d", cfg.Ingest.BatchSize)
	}
}

func TestWriteStatus(t *testing.T) {
	var buf bytes.Buffer
	err := writeStatus(&buf, "text", "companies", statusuc.Report{Message: statusuc.NotReadyMessage})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "not ready") {
		t.Errorf("text = %q", buf.String())
	}

	buf.Reset()
	err = writeStatus(&buf, "json", "companies", statusuc.Report{
		Ready: true,
		Index: json.RawMessage(`{"_all":{}}`),
	})
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("json output: %v", err)
	}
	if out["ready"] != true || out["index"] != "companies" {
		t.Errorf("json = %v", out)
	}
}
