// Package artifact writes per-document JSON results under an output
// directory.
package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/doclayout/internal/docmodel"
	"github.com/dgallion1/doclayout/internal/pdfsplit"
)

// LayoutResult is the final per-document summary: category, label set,
// model input shape and aggregated entities.
type LayoutResult struct {
	File         string                `json:"file"`
	DocumentType docmodel.DocumentType `json:"document_type"`
	Rule         string                `json:"classification_rule"`
	Labels       []string              `json:"labels"`
	InputTokens  int                   `json:"input_tokens"`
	TotalTokens  int                   `json:"total_tokens"`
	Truncated    bool                  `json:"truncated"`
	Entities     []docmodel.Entity     `json:"entities"`
}

// Writer places artifacts for one output directory.
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// ForRun returns a writer rooted at the run's own subdirectory, so two
// documents with the same file name never share artifact paths.
func (w *Writer) ForRun(runID string) *Writer {
	return &Writer{dir: filepath.Join(w.dir, runID)}
}

// Stem returns the file name of path without directory or extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ChunkPath returns the JSON path for chunk i (0-based).
func (w *Writer) ChunkPath(stem string, i int) string {
	return filepath.Join(w.dir, stem+"_chunks", pdfsplit.ChunkFileName(stem, i)+".json")
}

// MergedPath returns the merged document path for a processor kind.
func (w *Writer) MergedPath(stem, processor string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s_docai_%s.json", stem, strings.ToLower(processor)))
}

// LayoutPath returns the layout result path.
func (w *Writer) LayoutPath(stem string) string {
	return filepath.Join(w.dir, stem+"_layout_result.json")
}

// ReportPath returns the report path for a format extension.
func (w *Writer) ReportPath(stem, ext string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s_report.%s", stem, ext))
}

func (w *Writer) WriteChunk(stem string, c docmodel.ChunkResult) (string, error) {
	path := w.ChunkPath(stem, c.Index)
	return path, WriteJSON(path, c)
}

func (w *Writer) WriteMerged(stem, processor string, doc *docmodel.MergedDocument) (string, error) {
	path := w.MergedPath(stem, processor)
	return path, WriteJSON(path, doc)
}

func (w *Writer) WriteLayout(stem string, res LayoutResult) (string, error) {
	path := w.LayoutPath(stem)
	return path, WriteJSON(path, res)
}

// WriteJSON writes v as indented JSON without HTML escaping, creating
// parent directories as needed.
func WriteJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return WriteFile(path, buf.Bytes())
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
