package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestReportClose_ArchivesStoredEntries(t *testing.T) {
	reportFile, err := os.CreateTemp("", "test-report-*.zip")
	if err != nil {
		t.Fatalf("failed to create temp report file: %v", err)
	}
	defer os.Remove(reportFile.Name())

	r := &Report{
		id:      uuid.New(),
		entries: make(map[string]entry),
		file:    reportFile,
	}

	// a regular file entry
	tmpDir := t.TempDir()
	stored := filepath.Join(tmpDir, "input.css")
	if err := os.WriteFile(stored, []byte(".a{color:red}"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	r.Store("input/input.css", stored)
	r.StoreData("tables.json", []byte(`{"selectors":{},"idents":{}}`))
	// absent files are silently skipped
	r.Store("final.log", filepath.Join(tmpDir, "never-created.log"))

	if err := r.Close(); err != nil {
		t.Fatalf("Report.Close() error: %v", err)
	}

	arc, err := zip.OpenReader(reportFile.Name())
	if err != nil {
		t.Fatalf("failed to open report archive: %v", err)
	}
	defer arc.Close()

	found := make(map[string]string)
	for _, f := range arc.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open archive entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("failed to read archive entry %s: %v", f.Name, err)
		}
		found[f.Name] = string(data)
	}

	manifest, ok := found["MANIFEST"]
	if !ok {
		t.Fatal("archive has no MANIFEST")
	}
	if !strings.Contains(manifest, r.id.String()) {
		t.Error("MANIFEST does not carry run id")
	}
	if !strings.Contains(manifest, "tables.json") {
		t.Error("MANIFEST does not list stored data entry")
	}

	if got := found["input/input.css"]; got != ".a{color:red}" {
		t.Errorf("stored file content = %q", got)
	}
	if got := found["tables.json"]; got != `{"selectors":{},"idents":{}}` {
		t.Errorf("stored data content = %q", got)
	}
	if _, ok := found["final.log"]; ok {
		t.Error("absent file ended up in the archive")
	}
}

func TestReport_NilSafety(t *testing.T) {
	var r *Report

	if err := r.Close(); err != nil {
		t.Errorf("Close on nil report should not error, got: %v", err)
	}
	if n := r.Name(); n != "" {
		t.Errorf("Name on nil report = %q, want empty", n)
	}
	if id := r.ID(); id != "" {
		t.Errorf("ID on nil report = %q, want empty", id)
	}

	// must not panic
	r.Store("name", "path")
	r.StoreData("name", []byte("data"))
}

func TestReportClose_NilFile(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	if err := r.Close(); err != nil {
		t.Errorf("Close with nil file should not error, got: %v", err)
	}
}

func TestReportStore_OverwritePanics(t *testing.T) {
	r := &Report{id: uuid.New(), entries: make(map[string]entry)}
	r.Store("same", "/tmp/one")

	defer func() {
		if recover() == nil {
			t.Error("Expected panic when overwriting stored entry with different path")
		}
	}()
	r.Store("same", "/tmp/two")
}
