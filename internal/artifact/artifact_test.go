package artifact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/doclayout/internal/docmodel"
)

func TestPaths(t *testing.T) {
	w := NewWriter("/out")
	tests := []struct {
		got, want string
	}{
		{w.ChunkPath("deck", 0), "/out/deck_chunks/deck_chunk_1.json"},
		{w.ChunkPath("deck", 2), "/out/deck_chunks/deck_chunk_3.json"},
		{w.MergedPath("deck", "OCR"), "/out/deck_docai_ocr.json"},
		{w.LayoutPath("deck"), "/out/deck_layout_result.json"},
		{w.ReportPath("deck", "md"), "/out/deck_report.md"},
	}
	for _, tt := range tests {
		if tt.got != filepath.FromSlash(tt.want) {
			t.Errorf("path = %q, want %q", tt.got, tt.want)
		}
	}
	run := w.ForRun("0190a1b2")
	if got := run.MergedPath("deck", "OCR"); got != filepath.FromSlash("/out/0190a1b2/deck_docai_ocr.json") {
		t.Errorf("run merged path = %q", got)
	}
	if run.Dir() != filepath.FromSlash("/out/0190a1b2") || w.Dir() != "/out" {
		t.Errorf("run dir = %q, base dir = %q", run.Dir(), w.Dir())
	}
	if Stem("/in/Q3 IR deck.pdf") != "Q3 IR deck" {
		t.Errorf("Stem = %q", Stem("/in/Q3 IR deck.pdf"))
	}
}

func TestWriteChunkCreatesDirs(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "nested"))
	c := docmodel.ChunkResult{
		Index: 1,
		Range: docmodel.PageRange{Start: 15, End: 30},
		Text:  "R&D <budget>",
		Pages: []docmodel.Page{},
	}
	path, err := w.WriteChunk("deck", c)
	if err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"R&D <budget>"`) {
		t.Errorf("html characters were escaped: %s", s)
	}
	if !strings.Contains(s, "\n  \"chunk_index\": 1") {
		t.Errorf("output not indented: %s", s)
	}
	if filepath.Base(path) != "deck_chunk_2.json" {
		t.Errorf("chunk file = %s", filepath.Base(path))
	}
}

func TestWriteLayout(t *testing.T) {
	w := NewWriter(t.TempDir())
	path, err := w.WriteLayout("deck", LayoutResult{
		File:         "deck.pdf",
		DocumentType: docmodel.TypeIRDeck,
		Entities:     []docmodel.Entity{},
	})
	if err != nil {
		t.Fatalf("WriteLayout: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"document_type": "ir_deck"`) {
		t.Errorf("layout json = %s", data)
	}
}
