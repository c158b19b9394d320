// Package document loads guideline documents for evaluation. The engine
// only reads a document; ownership stays with the caller.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GuidelineDocument is one body of clinical-guideline text under evaluation.
type GuidelineDocument struct {
	Name       string
	SourceText string
	DomainTag  string
	ByteSize   int
}

// Load reads the file at path into a GuidelineDocument. The document name
// is the file's base name without extension; the domain tag, if not given,
// is inferred from the first path element under the containing directory
// (e.g. docs/cardiology/af.md tags "cardiology").
func Load(path, domainTag string) (*GuidelineDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("document: read %s: %w", path, err)
	}
	if domainTag == "" {
		domainTag = inferDomain(path)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &GuidelineDocument{
		Name:       name,
		SourceText: string(data),
		DomainTag:  domainTag,
		ByteSize:   len(data),
	}, nil
}

// inferDomain uses the name of the document's parent directory as the
// clinical domain tag, or "general" at a filesystem root.
func inferDomain(path string) string {
	dir := filepath.Base(filepath.Dir(path))
	if dir == "." || dir == string(filepath.Separator) {
		return "general"
	}
	return dir
}

// IsEmpty reports whether the document has no scoreable content.
func (d *GuidelineDocument) IsEmpty() bool {
	return strings.TrimSpace(d.SourceText) == ""
}
