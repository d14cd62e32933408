// Package extract converts document files into per-page plain text.
// Supported formats are registered by file extension.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrParse marks a file whose content could not be extracted. Callers
// record it on the document and continue with the rest of a batch.
var ErrParse = errors.New("document could not be parsed")

// ErrUnsupported marks a file whose extension has no extractor.
var ErrUnsupported = errors.New("unsupported document type")

// Page is one page of extracted text. Formats without a page concept
// (txt, markdown, docx) yield a single page numbered 1.
type Page struct {
	Number int
	Text   string
}

// Extractor converts one file format into pages of plain text.
type Extractor interface {
	Extract(path string) ([]Page, error)
}

var registry = map[string]Extractor{
	".pdf":      pdfExtractor{},
	".docx":     docxExtractor{},
	".md":       markdownExtractor{},
	".markdown": markdownExtractor{},
	".txt":      textExtractor{},
}

// Supported reports whether the path's extension has a registered
// extractor.
func Supported(path string) bool {
	_, ok := registry[normalizeExt(path)]
	return ok
}

// Extensions returns the registered extensions, sorted.
func Extensions() []string {
	exts := make([]string, 0, len(registry))
	for ext := range registry {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extract dispatches to the extractor registered for the path's
// extension.
func Extract(path string) ([]Page, error) {
	e, ok := registry[normalizeExt(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}
	return e.Extract(path)
}

func normalizeExt(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
