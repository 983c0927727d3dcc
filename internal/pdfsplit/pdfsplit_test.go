package pdfsplit

import (
	"errors"
	"testing"

	"github.com/dgallion1/doclayout/internal/docmodel"
	"github.com/dgallion1/doclayout/internal/testpdf"
)

func TestPageCount(t *testing.T) {
	data := testpdf.Build([]string{"one", "two", "three", "four", "five"})
	n, err := PageCount(data)
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	if n != 5 {
		t.Errorf("PageCount = %d, want 5", n)
	}
}

func TestPageCountRejectsGarbage(t *testing.T) {
	if _, err := PageCount([]byte("not a pdf")); err == nil {
		t.Error("expected error for non-PDF input")
	}
}

func TestExtract(t *testing.T) {
	data := testpdf.Build([]string{"p1", "p2", "p3", "p4", "p5"})

	chunk, err := Extract(data, docmodel.PageRange{Start: 1, End: 4})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	n, err := PageCount(chunk)
	if err != nil {
		t.Fatalf("PageCount(chunk): %v", err)
	}
	if n != 3 {
		t.Errorf("chunk has %d pages, want 3", n)
	}

	single, err := Extract(data, docmodel.PageRange{Start: 4, End: 5})
	if err != nil {
		t.Fatalf("Extract single: %v", err)
	}
	if n, _ := PageCount(single); n != 1 {
		t.Errorf("single-page chunk has %d pages", n)
	}
}

func TestExtractInvalidRange(t *testing.T) {
	_, err := Extract(nil, docmodel.PageRange{Start: 3, End: 3})
	if !errors.Is(err, docmodel.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestChunkFileName(t *testing.T) {
	if got := ChunkFileName("deck", 0); got != "deck_chunk_1" {
		t.Errorf("ChunkFileName = %q", got)
	}
}
