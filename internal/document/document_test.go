package document

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "cardiology")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(sub, "af-management.md")
	text := "Atrial fibrillation guideline text."
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if doc.Name != "af-management" {
		t.Errorf("name = %q, want af-management", doc.Name)
	}
	if doc.DomainTag != "cardiology" {
		t.Errorf("domain = %q, want cardiology", doc.DomainTag)
	}
	if doc.ByteSize != len(text) {
		t.Errorf("byte size = %d, want %d", doc.ByteSize, len(text))
	}
	if doc.SourceText != text {
		t.Errorf("source text = %q, want %q", doc.SourceText, text)
	}
}

func TestLoad_DomainOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("text"), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(path, "oncology")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if doc.DomainTag != "oncology" {
		t.Errorf("domain = %q, want oncology", doc.DomainTag)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.md"), ""); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		text  string
		empty bool
	}{
		{"", true},
		{"  \n\t ", true},
		{"content", false},
	}
	for _, c := range cases {
		d := &GuidelineDocument{SourceText: c.text}
		if got := d.IsEmpty(); got != c.empty {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.text, got, c.empty)
		}
	}
}
